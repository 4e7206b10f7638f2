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
	"strings"

	"github.com/tomoncle/datarepo/types"
)

// Query combines a predicate, an optional single-key ordering and an
// optional page window.
type Query struct {
	where     Condition
	sort      types.Sort
	page      *types.PageRequest
	readOnly  bool
	forUpdate bool
}

// ErrInvalidLockMode is returned by Check for lock requests that cannot be honored.
var ErrInvalidLockMode = errors.New("invalid lock mode")

// New creates an empty query matching everything.
func New() *Query {
	return &Query{}
}

// Where sets the filter condition.
func (q *Query) Where(condition Condition) *Query {
	q.where = condition
	return q
}

// OrderBy orders by key. It takes precedence over the page request's sort.
func (q *Query) OrderBy(key string, direction types.Direction) *Query {
	q.sort = types.SortBy(direction, key)
	return q
}

// Paged restricts the result to one page.
func (q *Query) Paged(page *types.PageRequest) *Query {
	q.page = page
	return q
}

// ReadOnly marks results as detached: they are not offered to an identity cache.
func (q *Query) ReadOnly() *Query {
	q.readOnly = true
	return q
}

func (q *Query) IsReadOnly() bool { return q.readOnly }

// ForUpdate requests exclusive locks on the matched records, held until the
// caller releases them.
func (q *Query) ForUpdate() *Query {
	q.forUpdate = true
	return q
}

func (q *Query) IsForUpdate() bool { return q.forUpdate }

// Condition returns the filter, never nil.
func (q *Query) Condition() Condition {
	if q.where == nil {
		return All()
	}
	return q.where
}

// Sort returns the effective ordering.
func (q *Query) Sort() types.Sort {
	if q.sort.IsSorted() {
		return q.sort
	}
	if q.page != nil {
		return q.page.GetSort()
	}
	return types.Sort{}
}

func (q *Query) PageRequest() *types.PageRequest { return q.page }

// Check validates the page window, the ordering, the lock mode and the
// condition tree.
func (q *Query) Check() error {
	if q.forUpdate && q.readOnly {
		return fmt.Errorf("%w: a read-only query cannot lock", ErrInvalidLockMode)
	}
	if q.forUpdate && q.page != nil {
		return fmt.Errorf("%w: a paged query cannot lock", ErrInvalidLockMode)
	}
	if q.page != nil {
		if err := q.page.Validate(); err != nil {
			return err
		}
	}
	if s := q.Sort(); s.IsSorted() && !s.Direction.IsValid() {
		return fmt.Errorf("%w: sort direction %d", types.ErrInvalidPage, s.Direction)
	}
	return q.Condition().Check()
}

// Matches checks whether the query's condition matches f.
func (q *Query) Matches(f Fetcher) bool {
	return q.Condition().Matches(f)
}

// Print returns the string representation of the query.
func (q *Query) Print() string {
	where := q.Condition().String()
	if where != "" {
		if strings.HasPrefix(where, "(") {
			where = where[1 : len(where)-1]
		}
		where = fmt.Sprintf(" where %s", where)
	}

	var orderBy string
	if s := q.Sort(); s.IsSorted() {
		orderBy = fmt.Sprintf(" orderby %s", s)
	}

	var page string
	if q.page != nil {
		page = fmt.Sprintf(" limit %d offset %d", q.page.GetPageSize(), q.page.GetOffset())
	}

	var lock string
	if q.forUpdate {
		lock = " for update"
	}

	return fmt.Sprintf("query%s%s%s%s", where, orderBy, page, lock)
}
