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

package types

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidPage is returned for a negative page index or a non-positive page size.
var ErrInvalidPage = errors.New("invalid page request")

// Sort describes ordering by a single key.
type Sort struct {
	Key       string
	Direction Direction
}

// SortBy constructs a Sort for key in the given direction.
func SortBy(direction Direction, key string) Sort {
	return Sort{Key: key, Direction: direction}
}

// IsSorted reports whether the sort names a key.
func (s Sort) IsSorted() bool { return s.Key != "" }

func (s Sort) String() string {
	if !s.IsSorted() {
		return "UNSORTED"
	}
	return fmt.Sprintf("%s %s", s.Key, s.Direction)
}

// PageRequest describes a zero-based page window and an optional ordering.
type PageRequest struct {
	page     int
	pageSize int
	sort     Sort
}

// PageOf constructs a PageRequest. Only the first sort is honored.
func PageOf(page int, pageSize int, sort ...Sort) *PageRequest {
	p := &PageRequest{page: page, pageSize: pageSize}
	if len(sort) > 0 {
		p.sort = sort[0]
	}
	return p
}

func (p *PageRequest) GetPage() int { return p.page }

func (p *PageRequest) GetPageSize() int { return p.pageSize }

func (p *PageRequest) GetSort() Sort { return p.sort }

// GetOffset returns page*pageSize, saturated at math.MaxInt.
func (p *PageRequest) GetOffset() int {
	if p.pageSize > 0 && p.page > math.MaxInt/p.pageSize {
		return math.MaxInt
	}
	return p.page * p.pageSize
}

// Validate rejects negative page indexes, non-positive sizes and invalid sort directions.
func (p *PageRequest) Validate() error {
	if p.page < 0 {
		return fmt.Errorf("%w: page index %d is negative", ErrInvalidPage, p.page)
	}
	if p.pageSize <= 0 {
		return fmt.Errorf("%w: page size %d must be positive", ErrInvalidPage, p.pageSize)
	}
	if p.sort.IsSorted() && !p.sort.Direction.IsValid() {
		return fmt.Errorf("%w: sort direction %d", ErrInvalidPage, p.sort.Direction)
	}
	return nil
}

// Next returns the request for the following page.
func (p *PageRequest) Next() *PageRequest {
	return &PageRequest{page: p.page + 1, pageSize: p.pageSize, sort: p.sort}
}

func (p *PageRequest) String() string {
	return fmt.Sprintf("page=%d size=%d sort=%s", p.page, p.pageSize, p.sort)
}

// Page holds one window of results. Everything except the four fields is
// derived from them.
type Page[T any] struct {
	Content       []*T
	Number        int
	Size          int // 0 means unpaged
	TotalElements int
}

// NewPage constructs a page result.
func NewPage[T any](content []*T, number int, size int, total int) *Page[T] {
	if content == nil {
		content = make([]*T, 0)
	}
	return &Page[T]{Content: content, Number: number, Size: size, TotalElements: total}
}

// TotalPages is ceil(total/size), or 1 for an unpaged result.
func (p *Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 1
	}
	return (p.TotalElements + p.Size - 1) / p.Size
}

func (p *Page[T]) NumberOfElements() int { return len(p.Content) }

func (p *Page[T]) HasContent() bool { return len(p.Content) > 0 }

func (p *Page[T]) IsFirst() bool { return !p.HasPrevious() }

func (p *Page[T]) IsLast() bool { return !p.HasNext() }

func (p *Page[T]) HasNext() bool { return p.Number+1 < p.TotalPages() }

func (p *Page[T]) HasPrevious() bool { return p.Number > 0 }

// MapPage converts the content of a page and keeps its metadata.
func MapPage[T any, R any](p *Page[T], fn func(*T) *R) *Page[R] {
	content := make([]*R, len(p.Content))
	for i, item := range p.Content {
		content[i] = fn(item)
	}
	return &Page[R]{Content: content, Number: p.Number, Size: p.Size, TotalElements: p.TotalElements}
}
