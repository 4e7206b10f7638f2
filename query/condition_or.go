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

// Or combines multiple conditions with a logical _OR_ operator.
func Or(conditions ...Condition) Condition {
	return &orCond{
		conditions: conditions,
	}
}

type orCond struct {
	conditions []Condition
}

func (c *orCond) Matches(f Fetcher) bool {
	for _, cond := range c.conditions {
		if cond.Matches(f) {
			return true
		}
	}
	return false
}

func (c *orCond) Check() (err error) {
	for _, cond := range c.conditions {
		if cond == nil {
			return fmt.Errorf("%w: nil operand", ErrInvalidCondition)
		}
		if err = cond.Check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *orCond) String() string {
	var all []string
	for _, cond := range c.conditions {
		all = append(all, cond.String())
	}
	return fmt.Sprintf("(%s)", strings.Join(all, " or "))
}
