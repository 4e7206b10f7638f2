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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datarepo/record"
)

func testCondition(t *testing.T, f Fetcher, shouldMatch bool, condition Condition) {
	t.Helper()
	require.NoError(t, condition.Check())

	matched := condition.Matches(f)
	switch {
	case !matched && shouldMatch:
		t.Errorf("should match: %s", condition.String())
	case matched && !shouldMatch:
		t.Errorf("should not match: %s", condition.String())
	}
}

func TestConditions(t *testing.T) {
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	r := record.New("m-1", record.Fields{
		"username": "member5",
		"age":      40,
		"height":   1.85,
		"active":   true,
		"team_id":  nil,
		"joined":   created,
	})

	testCondition(t, r, true, Where("username", Equals, "member5"))
	testCondition(t, r, false, Where("username", Equals, "member4"))
	testCondition(t, r, true, Where("username", NotEquals, "member4"))
	testCondition(t, r, true, Where("age", Equals, 40))
	testCondition(t, r, true, Where("age", Equals, 40.0))
	testCondition(t, r, true, Where("age", GreaterThan, uint8(39)))
	testCondition(t, r, false, Where("age", GreaterThan, 40))
	testCondition(t, r, true, Where("age", GreaterThanOrEqual, 40))
	testCondition(t, r, true, Where("age", LessThan, 40.5))
	testCondition(t, r, true, Where("age", LessThanOrEqual, int32(40)))
	testCondition(t, r, true, Where("height", GreaterThan, 1))
	testCondition(t, r, true, Where("username", StartsWith, "mem"))
	testCondition(t, r, true, Where("username", Contains, "ber"))
	testCondition(t, r, false, Where("age", StartsWith, "4"))
	testCondition(t, r, true, Where("active", Equals, true))
	testCondition(t, r, true, Where("team_id", Equals, nil))
	testCondition(t, r, false, Where("username", Equals, nil))
	testCondition(t, r, true, Where("team_id", Exists, nil))
	testCondition(t, r, false, Where("nickname", Exists, nil))
	testCondition(t, r, false, Where("nickname", NotEquals, "x"))
	testCondition(t, r, true, Where("joined", LessThan, created.Add(time.Second)))
	testCondition(t, r, true, Where("id", Equals, "m-1"))

	// mismatched kinds never match
	testCondition(t, r, false, Where("username", GreaterThan, 3))

	testCondition(t, r, true, And(
		Where("username", Equals, "member5"),
		Where("age", GreaterThan, 15),
	))
	testCondition(t, r, false, And(
		Where("username", Equals, "member5"),
		Where("age", GreaterThan, 45),
	))
	testCondition(t, r, true, Or(
		Where("age", GreaterThan, 45),
		Where("active", Equals, true),
	))
	testCondition(t, r, true, Not(Where("age", GreaterThan, 45)))
	testCondition(t, r, true, All())
	testCondition(t, r, true, And())
	testCondition(t, r, false, Or())
}

func TestInCondition(t *testing.T) {
	r := record.New("m-1", record.Fields{"username": "ccc", "age": 20})

	testCondition(t, r, true, Where("username", In, []string{"aaa", "ddd", "ccc"}))
	testCondition(t, r, false, Where("username", In, []string{"aaa", "ddd"}))
	testCondition(t, r, true, Where("age", In, []int{10, 20}))
	testCondition(t, r, true, Where("id", In, [2]string{"m-1", "m-2"}))
	testCondition(t, r, false, Where("username", In, []string{}))
}

func TestInvalidConditions(t *testing.T) {
	for name, c := range map[string]Condition{
		"empty key":          Where("", Equals, 1),
		"unknown operator":   Where("age", 99, 1),
		"in without slice":   Where("username", In, "aaa"),
		"in with map":        Where("username", In, []interface{}{map[string]int{}}),
		"order against nil":  Where("age", GreaterThan, nil),
		"order against map":  Where("age", LessThan, map[string]int{}),
		"startswith non str": Where("username", StartsWith, 1),
		"equals struct":      Where("age", Equals, struct{}{}),
		"nested":             And(Where("age", Equals, 1), Not(Where("", Equals, 1))),
		"or nested":          Or(Where("", Equals, 1)),
		"nil operand":        And(nil),
	} {
		err := c.Check()
		assert.ErrorIs(t, err, ErrInvalidCondition, name)
	}
	assert.False(t, Where("", Equals, 1).Matches(record.New("x", nil)))
}

func TestConditionString(t *testing.T) {
	c := And(
		Where("username", Equals, "aaa"),
		Where("age", GreaterThan, 15),
		Not(Where("username", In, []string{"x", "y"})),
	)
	assert.Equal(t, `(username == "aaa" and age > 15 and not (username in ("x", "y")))`, c.String())
	assert.Equal(t, "team_id == null", Where("team_id", Equals, nil).String())
}
