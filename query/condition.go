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
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/tomoncle/datarepo/types"
)

// ErrInvalidCondition is returned by Check for conditions that cannot be evaluated.
var ErrInvalidCondition = errors.New("invalid condition")

// Operators.
const (
	Equals uint8 = iota + 1
	NotEquals
	GreaterThan
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
	StartsWith
	Contains
	In
	Exists
)

var operatorNames = map[uint8]string{
	Equals:             "==",
	NotEquals:          "!=",
	GreaterThan:        ">",
	GreaterThanOrEqual: ">=",
	LessThan:           "<",
	LessThanOrEqual:    "<=",
	StartsWith:         "startswith",
	Contains:           "contains",
	In:                 "in",
	Exists:             "exists",
}

func getOpName(operator uint8) string {
	if name, ok := operatorNames[operator]; ok {
		return name
	}
	return "[unknown]"
}

// Fetcher supplies field values to conditions.
type Fetcher interface {
	Get(key string) (value interface{}, ok bool)
}

// Condition is a boolean predicate over a Fetcher.
type Condition interface {
	Matches(f Fetcher) bool
	Check() error
	String() string
}

// Where builds a single field condition.
//
//	query.And(
//	    query.Where("username", query.Equals, "aaa"),
//	    query.Where("age", query.GreaterThan, 15),
//	)
func Where(key string, operator uint8, value interface{}) Condition {
	if key == "" {
		return newErrorCondition(fmt.Errorf("%w: empty key", ErrInvalidCondition))
	}
	switch operator {
	case Exists:
		return &existsCondition{key: key}
	case In:
		return newInCondition(key, value)
	case StartsWith, Contains:
		s, ok := value.(string)
		if !ok {
			return newErrorCondition(fmt.Errorf("%w: %s needs a string, got %T", ErrInvalidCondition, getOpName(operator), value))
		}
		return &fieldCondition{key: key, operator: operator, value: s}
	case Equals, NotEquals:
		v := types.Normalize(value)
		if v != nil && !isScalar(v) {
			return newErrorCondition(fmt.Errorf("%w: cannot compare %s with %T", ErrInvalidCondition, key, value))
		}
		return &fieldCondition{key: key, operator: operator, value: v}
	case GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual:
		v := types.Normalize(value)
		if v == nil || !isScalar(v) {
			return newErrorCondition(fmt.Errorf("%w: cannot order %s by %T", ErrInvalidCondition, key, value))
		}
		return &fieldCondition{key: key, operator: operator, value: v}
	default:
		return newErrorCondition(fmt.Errorf("%w: unknown operator %d", ErrInvalidCondition, operator))
	}
}

type fieldCondition struct {
	key      string
	operator uint8
	value    interface{}
}

func (c *fieldCondition) Matches(f Fetcher) bool {
	v, ok := f.Get(c.key)
	if !ok {
		return false
	}
	switch c.operator {
	case Equals:
		return equalValues(v, c.value)
	case NotEquals:
		return !equalValues(v, c.value)
	case StartsWith:
		s, ok := v.(string)
		return ok && strings.HasPrefix(s, c.value.(string))
	case Contains:
		s, ok := v.(string)
		return ok && strings.Contains(s, c.value.(string))
	}

	n, ok := compareValues(v, c.value)
	if !ok {
		return false
	}
	switch c.operator {
	case GreaterThan:
		return n > 0
	case GreaterThanOrEqual:
		return n >= 0
	case LessThan:
		return n < 0
	case LessThanOrEqual:
		return n <= 0
	default:
		return false
	}
}

func (c *fieldCondition) Check() error { return nil }

func (c *fieldCondition) String() string {
	return fmt.Sprintf("%s %s %s", c.key, getOpName(c.operator), formatValue(c.value))
}

func isScalar(v interface{}) bool {
	switch v.(type) {
	case int64, float64, string, bool, time.Time:
		return true
	default:
		return false
	}
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func toValueSlice(value interface{}) ([]interface{}, bool) {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = types.Normalize(rv.Index(i).Interface())
	}
	return out, true
}
