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
	"sort"

	"github.com/tomoncle/datarepo/record"
	"github.com/tomoncle/datarepo/types"
)

// Filter returns the records matching c, in input order.
func Filter(records []*record.Record, c Condition) []*record.Record {
	if c == nil {
		c = All()
	}
	matched := make([]*record.Record, 0, len(records))
	for _, r := range records {
		if c.Matches(r) {
			matched = append(matched, r)
		}
	}
	return matched
}

// SortRecords orders records by s. Ties, and unsorted input, fall back to
// insertion order.
func SortRecords(records []*record.Record, s types.Sort) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if s.IsSorted() {
			av, aok := a.Get(s.Key)
			bv, bok := b.Get(s.Key)
			n := sortCompare(av, aok, bv, bok)
			if s.Direction == types.Desc {
				n = -n
			}
			if n != 0 {
				return n < 0
			}
		}
		return a.Seq < b.Seq
	})
}

// Execute evaluates q over records: filter, sort, count, then slice the
// requested page. The count always covers the full match set.
func Execute(records []*record.Record, q *Query) (*types.Page[record.Record], error) {
	if q == nil {
		q = New()
	}
	if err := q.Check(); err != nil {
		return nil, err
	}

	matched := Filter(records, q.Condition())
	SortRecords(matched, q.Sort())
	total := len(matched)

	pr := q.PageRequest()
	if pr == nil {
		return types.NewPage(matched, 0, 0, total), nil
	}

	// Bound the page index by total before multiplying: offsets must not overflow.
	size := pr.GetPageSize()
	if total == 0 || pr.GetPage() > (total-1)/size {
		return types.NewPage[record.Record](nil, pr.GetPage(), size, total), nil
	}
	offset := pr.GetPage() * size
	end := total
	if size < total-offset {
		end = offset + size
	}
	return types.NewPage(matched[offset:end], pr.GetPage(), size, total), nil
}

// Project reduces records to their identity plus the named fields. Missing
// fields are present with a nil value.
func Project(records []*record.Record, fields ...string) []record.Fields {
	out := make([]record.Fields, len(records))
	for i, r := range records {
		row := make(record.Fields, len(fields)+1)
		row[record.KeyID] = r.ID
		for _, f := range fields {
			v, _ := r.Get(f)
			row[f] = v
		}
		out[i] = row
	}
	return out
}
