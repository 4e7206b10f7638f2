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

package store

import (
	"errors"
	"fmt"
	"math"

	"github.com/tomoncle/datarepo/record"
	"github.com/tomoncle/datarepo/types"
)

// ErrTransform is wrapped by transform failures caused by missing or
// mistyped fields.
var ErrTransform = errors.New("transform not applicable")

// Transform mutates the fields of one record in place. Returning an error
// leaves the record untouched.
type Transform func(fields record.Fields) error

// Increment adds delta to a numeric field.
func Increment(field string, delta int64) Transform {
	return func(fields record.Fields) error {
		v, ok := fields[field]
		if !ok {
			return fmt.Errorf("%w: field %q is missing", ErrTransform, field)
		}
		switch n := v.(type) {
		case int64:
			if (delta > 0 && n > math.MaxInt64-delta) || (delta < 0 && n < math.MinInt64-delta) {
				return fmt.Errorf("%w: field %q would overflow adding %d to %d", ErrTransform, field, delta, n)
			}
			fields[field] = n + delta
		case float64:
			fields[field] = n + float64(delta)
		default:
			return fmt.Errorf("%w: field %q holds %T, not a number", ErrTransform, field, v)
		}
		return nil
	}
}

// SetField assigns value to field.
func SetField(field string, value interface{}) Transform {
	return func(fields record.Fields) error {
		fields[field] = types.Normalize(value)
		return nil
	}
}

// Chain applies transforms in order; the first failure aborts the chain.
func Chain(transforms ...Transform) Transform {
	return func(fields record.Fields) error {
		for _, t := range transforms {
			if err := t(fields); err != nil {
				return err
			}
		}
		return nil
	}
}
