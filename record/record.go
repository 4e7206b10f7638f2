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
	"fmt"
	"maps"
	"time"

	"github.com/mitchellh/copystructure"
	"github.com/tomoncle/datarepo/types"
)

// KeyID is the field key that resolves to a record's identity.
const KeyID = "id"

// Fields maps field names to normalized values.
type Fields = types.JsonObject

// Record is a single persisted item with a stable identity.
type Record struct {
	ID             string
	Seq            int64
	Fields         Fields
	CreatedAt      *time.Time
	LastModifiedAt *time.Time
}

// New returns an unsaved record. Field values are normalized.
func New(id string, fields Fields) *Record {
	r := &Record{ID: id, Fields: make(Fields, len(fields))}
	for k, v := range fields {
		r.Fields[k] = types.Normalize(v)
	}
	return r
}

// IsNew reports whether the record has never been persisted.
func (r *Record) IsNew() bool {
	return r.CreatedAt == nil
}

// Get returns the value stored under key. KeyID resolves to the identity.
func (r *Record) Get(key string) (interface{}, bool) {
	if key == KeyID {
		return r.ID, true
	}
	v, ok := r.Fields[key]
	return v, ok
}

// Set stores a normalized value under key.
func (r *Record) Set(key string, value interface{}) {
	if r.Fields == nil {
		r.Fields = make(Fields)
	}
	r.Fields[key] = types.Normalize(value)
}

// GetString returns the string under key.
func (r *Record) GetString(key string) (string, bool) {
	v, ok := r.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt returns the integer under key. Whole floats are accepted.
func (r *Record) GetInt(key string) (int64, bool) {
	v, ok := r.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

// GetFloat returns the number under key as float64.
func (r *Record) GetFloat(key string) (float64, bool) {
	v, ok := r.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// GetBool returns the bool under key.
func (r *Record) GetBool(key string) (bool, bool) {
	v, ok := r.Get(key)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Exists reports whether key is present, even if its value is nil.
func (r *Record) Exists(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := &Record{
		ID:             r.ID,
		Seq:            r.Seq,
		Fields:         CopyFields(r.Fields),
		CreatedAt:      copyTime(r.CreatedAt),
		LastModifiedAt: copyTime(r.LastModifiedAt),
	}
	return c
}

func (r *Record) String() string {
	return fmt.Sprintf("Record(id=%s, seq=%d, fields=%v)", r.ID, r.Seq, map[string]interface{}(r.Fields))
}

// CopyFields deep-copies a field map.
func CopyFields(f Fields) Fields {
	if f == nil {
		return make(Fields)
	}
	dup, err := copystructure.Copy(map[string]interface{}(f))
	if err != nil {
		return maps.Clone(f)
	}
	return Fields(dup.(map[string]interface{}))
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
