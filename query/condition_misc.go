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

import "fmt"

// All matches every record.
func All() Condition {
	return &noCond{}
}

type noCond struct{}

func (c *noCond) Matches(f Fetcher) bool { return true }

func (c *noCond) Check() error { return nil }

func (c *noCond) String() string { return "" }

type existsCondition struct {
	key string
}

func (c *existsCondition) Matches(f Fetcher) bool {
	_, ok := f.Get(c.key)
	return ok
}

func (c *existsCondition) Check() error { return nil }

func (c *existsCondition) String() string {
	return fmt.Sprintf("%s %s", c.key, getOpName(Exists))
}

type errorCondition struct {
	err error
}

func newErrorCondition(err error) *errorCondition {
	return &errorCondition{
		err: err,
	}
}

func (c *errorCondition) Matches(f Fetcher) bool { return false }

func (c *errorCondition) Check() error { return c.err }

func (c *errorCondition) String() string { return "[ERROR]" }
