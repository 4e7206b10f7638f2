/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonObjectScanNormalizesNumbers(t *testing.T) {
	var obj JsonObject
	require.NoError(t, obj.Scan(`{"age":41,"ratio":0.5,"name":"member5","team_id":null}`))
	assert.Equal(t, int64(41), obj["age"])
	assert.Equal(t, 0.5, obj["ratio"])
	assert.Equal(t, "member5", obj["name"])
	v, ok := obj["team_id"]
	assert.True(t, ok)
	assert.Nil(t, v)

	require.NoError(t, obj.Scan([]byte(`{"age":7}`)))
	assert.Equal(t, int64(7), obj["age"])

	require.NoError(t, obj.Scan(nil))
	assert.Empty(t, obj)

	assert.Error(t, obj.Scan(42))
}

func TestJsonObjectValue(t *testing.T) {
	v, err := JsonObject{"age": int64(3)}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"age":3}`, v)

	v, err = JsonObject(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, int64(5), Normalize(5))
	assert.Equal(t, int64(5), Normalize(uint8(5)))
	assert.Equal(t, float64(float32(1.5)), Normalize(float32(1.5)))
	assert.Equal(t, int64(12), Normalize(json.Number("12")))
	assert.Equal(t, 1.25, Normalize(json.Number("1.25")))
	assert.Equal(t, "x", Normalize("x"))
	assert.Nil(t, Normalize(nil))
}

func TestJsonObjectKeepsTimes(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 30, 0, 123456789, time.FixedZone("KST", 9*3600))
	v, err := JsonObject{"at": at, "label": "x"}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":{"$time":"2025-03-01T12:30:00.123456789+09:00"},"label":"x"}`, v.(string))

	var obj JsonObject
	require.NoError(t, obj.Scan(v))
	got, ok := obj["at"].(time.Time)
	require.True(t, ok)
	assert.True(t, at.Equal(got))
	assert.Equal(t, "x", obj["label"])

	require.NoError(t, obj.Scan(`{"at":{"$time":"not a time"},"nested":{"a":1}}`))
	assert.IsType(t, map[string]interface{}{}, obj["at"])
	assert.IsType(t, map[string]interface{}{}, obj["nested"])

	now := time.Now()
	assert.Equal(t, now.Round(0), Normalize(now))
	assert.Equal(t, now.Round(0), Normalize(&now))
}
