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

package query

import (
	"fmt"
	"strings"
)

type inCondition struct {
	key    string
	values []interface{}
}

func newInCondition(key string, value interface{}) Condition {
	values, ok := toValueSlice(value)
	if !ok {
		return newErrorCondition(fmt.Errorf("%w: %s in needs a slice, got %T", ErrInvalidCondition, key, value))
	}
	for _, v := range values {
		if v != nil && !isScalar(v) {
			return newErrorCondition(fmt.Errorf("%w: %s in cannot hold %T", ErrInvalidCondition, key, v))
		}
	}
	return &inCondition{key: key, values: values}
}

func (c *inCondition) Matches(f Fetcher) bool {
	v, ok := f.Get(c.key)
	if !ok {
		return false
	}
	for _, candidate := range c.values {
		if equalValues(v, candidate) {
			return true
		}
	}
	return false
}

func (c *inCondition) Check() error { return nil }

func (c *inCondition) String() string {
	all := make([]string, len(c.values))
	for i, v := range c.values {
		all[i] = formatValue(v)
	}
	return fmt.Sprintf("%s in (%s)", c.key, strings.Join(all, ", "))
}
