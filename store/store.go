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
	"context"
	"errors"

	"github.com/hashicorp/go-multierror"
	"github.com/tomoncle/datarepo/query"
	"github.com/tomoncle/datarepo/record"
)

// Errors for stores.
var (
	ErrNotFound   = errors.New("record not found")
	ErrInvalidKey = errors.New("invalid record key")
	ErrConflict   = errors.New("record key conflict")
)

// Store is durable keyed storage for one collection of records.
type Store interface {
	// Name returns the collection name.
	Name() string

	// Put inserts or replaces the record with the same ID. Seq and CreatedAt
	// are assigned on first insert only; LastModifiedAt on every put.
	Put(ctx context.Context, r *record.Record) (*record.Record, error)

	// Get returns the record or ErrNotFound.
	Get(ctx context.Context, id string) (*record.Record, error)

	// GetAll returns all records in insertion order.
	GetAll(ctx context.Context) ([]*record.Record, error)

	// FindWhere returns all records matching c, in no particular order.
	FindWhere(ctx context.Context, c query.Condition) ([]*record.Record, error)

	// UpdateWhere applies fn to every record matching c, directly in storage.
	UpdateWhere(ctx context.Context, c query.Condition, fn Transform) (*UpdateResult, error)

	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error
}

// UpdateResult reports the outcome of a set-oriented update.
type UpdateResult struct {
	Matched int
	Changed int
	// Skipped collects one error per record the transform rejected.
	Skipped *multierror.Error
}

// SkippedCount returns how many matched records were left unchanged.
func (u *UpdateResult) SkippedCount() int {
	if u.Skipped == nil {
		return 0
	}
	return len(u.Skipped.Errors)
}

func (u *UpdateResult) skip(err error) {
	u.Skipped = multierror.Append(u.Skipped, err)
}

// Apply runs fn on a copy of the record's fields and reports whether the
// record changed. Rejected records are recorded in u.Skipped.
func (u *UpdateResult) Apply(r *record.Record, fn Transform) (record.Fields, bool) {
	u.Matched++
	fields := record.CopyFields(r.Fields)
	if err := fn(fields); err != nil {
		u.skip(&SkipError{ID: r.ID, Err: err})
		return nil, false
	}
	u.Changed++
	return fields, true
}

// SkipError is a transform failure for a single record.
type SkipError struct {
	ID  string
	Err error
}

func (e *SkipError) Error() string { return "record " + e.ID + ": " + e.Err.Error() }

func (e *SkipError) Unwrap() error { return e.Err }

// ValidateKey rejects empty identities.
func ValidateKey(id string) error {
	if id == "" {
		return ErrInvalidKey
	}
	return nil
}
