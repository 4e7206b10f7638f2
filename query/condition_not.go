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

// Not negates the supplied condition.
func Not(c Condition) Condition {
	return &notCond{
		notC: c,
	}
}

type notCond struct {
	notC Condition
}

func (c *notCond) Matches(f Fetcher) bool {
	return !c.notC.Matches(f)
}

func (c *notCond) Check() error {
	if c.notC == nil {
		return fmt.Errorf("%w: nil operand", ErrInvalidCondition)
	}
	return c.notC.Check()
}

func (c *notCond) String() string {
	next := c.notC.String()
	if strings.HasPrefix(next, "(") {
		return fmt.Sprintf("not %s", next)
	}
	return fmt.Sprintf("not (%s)", next)
}
