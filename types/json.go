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
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// JsonObject is a convenience type for JSON columns mapped to objects.
// Values are kept normalized, see Normalize.
type JsonObject map[string]interface{}

// timeTag wraps time.Time values in the JSON text as {"$time": RFC3339Nano}
// so that Scan restores them as time.Time instead of strings.
const timeTag = "$time"

func encodeValue(v interface{}) interface{} {
	if t, ok := Normalize(v).(time.Time); ok {
		return map[string]interface{}{timeTag: t.Format(time.RFC3339Nano)}
	}
	return v
}

func decodeValue(v interface{}) interface{} {
	if m, ok := v.(map[string]interface{}); ok && len(m) == 1 {
		if s, ok := m[timeTag].(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return t
			}
		}
	}
	return Normalize(v)
}

// Value implements driver.Valuer for JsonObject. The JSON is handed to the
// driver as a string so text columns work on every dialect.
func (j JsonObject) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	tagged := make(map[string]interface{}, len(j))
	for k, v := range j {
		tagged[k] = encodeValue(v)
	}
	b, err := json.Marshal(tagged)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JsonObject.
func (j *JsonObject) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*j = make(JsonObject)
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JsonObject", value)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	obj := make(map[string]interface{})
	if err := dec.Decode(&obj); err != nil {
		return err
	}
	out := make(JsonObject, len(obj))
	for k, v := range obj {
		out[k] = decodeValue(v)
	}
	*j = out
	return nil
}

// Normalize folds scalar values into the small set of types the query layer
// compares: int64, float64, string, bool, time.Time and nil.
func Normalize(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		if n > math.MaxInt64 {
			return float64(n)
		}
		return int64(n)
	case float32:
		return float64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case time.Time:
		return n.Round(0)
	case *time.Time:
		if n == nil {
			return nil
		}
		return n.Round(0)
	default:
		return v
	}
}
