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

package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecordIsNew(t *testing.T) {
	r := New("A", Fields{"age": 10, "username": "aaa"})
	assert.True(t, r.IsNew())
	assert.Nil(t, r.CreatedAt)

	age, ok := r.GetInt("age")
	require.True(t, ok)
	assert.Equal(t, int64(10), age)
	assert.IsType(t, int64(0), r.Fields["age"])

	id, ok := r.GetString(KeyID)
	require.True(t, ok)
	assert.Equal(t, "A", id)
}

func TestGetters(t *testing.T) {
	r := New("x", Fields{"f": 2.0, "g": 2.5, "b": true, "n": nil})

	i, ok := r.GetInt("f")
	assert.True(t, ok)
	assert.Equal(t, int64(2), i)
	_, ok = r.GetInt("g")
	assert.False(t, ok)

	f, ok := r.GetFloat("g")
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)

	b, ok := r.GetBool("b")
	assert.True(t, ok)
	assert.True(t, b)

	assert.True(t, r.Exists("n"))
	assert.False(t, r.Exists("missing"))
	_, ok = r.GetString("f")
	assert.False(t, ok)
}

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	r := New("x", Fields{"age": 1})
	r.CreatedAt = &now
	r.Seq = 4

	c := r.Clone()
	c.Set("age", 2)
	later := now.Add(time.Hour)
	*c.CreatedAt = later

	age, _ := r.GetInt("age")
	assert.Equal(t, int64(1), age)
	assert.True(t, r.CreatedAt.Equal(now))
	assert.Equal(t, int64(4), c.Seq)
	assert.Nil(t, (*Record)(nil).Clone())
}

func TestSetOnEmptyRecord(t *testing.T) {
	r := &Record{ID: "y"}
	r.Set("age", uint16(9))
	assert.Equal(t, int64(9), r.Fields["age"])
	assert.Empty(t, CopyFields(nil))
}
