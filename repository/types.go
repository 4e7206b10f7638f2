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

package repository

import (
	"context"
	"errors"

	"github.com/tomoncle/datarepo/cache"
	"github.com/tomoncle/datarepo/query"
	"github.com/tomoncle/datarepo/record"
	"github.com/tomoncle/datarepo/store"
	"github.com/tomoncle/datarepo/types"
)

// ErrNonUnique is returned by FindOne when more than one record matches.
var ErrNonUnique = errors.New("query did not return a unique result")

// Codec converts between an entity and its stored record.
type Codec[T any] interface {
	Encode(entity *T) (*record.Record, error)
	Decode(r *record.Record) (*T, error)
}

// CrudRepository defines basic CRUD operations for a generic entity type.
type CrudRepository[T any] interface {
	// Save inserts or replaces the entity and writes the stored state back
	// into it. An empty identity is generated.
	Save(ctx context.Context, entity *T) error

	SaveAll(ctx context.Context, entities ...*T) error

	// FindByID reads through the identity cache. Missing records yield
	// store.ErrNotFound.
	FindByID(ctx context.Context, id string) (*T, error)

	FindAll(ctx context.Context) ([]*T, error)

	// Delete removes the record and its cache entry.
	Delete(ctx context.Context, id string) error

	Count(ctx context.Context, condition query.Condition) (int, error)
}

// QueryRepository runs predicate queries.
type QueryRepository[T any] interface {
	FindWhere(ctx context.Context, q *query.Query) ([]*T, error)

	// FindOne returns store.ErrNotFound when nothing matches and
	// ErrNonUnique when several records do.
	FindOne(ctx context.Context, q *query.Query) (*T, error)

	// Project returns the identity and the named fields of each match.
	// Projections are not entities and never touch the identity cache.
	Project(ctx context.Context, q *query.Query, fields ...string) ([]record.Fields, error)
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, q *query.Query) (*types.Page[T], error)
}

// LockRepository loads entities under pessimistic locks.
type LockRepository[T any] interface {
	// FindLocked locks the records matching q and returns them ordered by
	// q. Another FindLocked over any of them blocks until Release. Paged
	// and read-only queries are rejected, as are stores without
	// store.Locker support.
	FindLocked(ctx context.Context, q *query.Query) (*Locked[T], error)
}

// BulkRepository applies set-oriented updates directly in the store.
type BulkRepository interface {
	// BulkUpdate applies transform to every record matching condition and
	// returns how many changed. Records the transform rejects are skipped.
	// Unless auto invalidation is disabled, the identity cache is cleared
	// before BulkUpdate returns.
	BulkUpdate(ctx context.Context, condition query.Condition, transform store.Transform) (int, error)

	Invalidate(id string)
	InvalidateAll()
}

// Repository combines all entity operations and exposes the underlying store
// and cache for custom implementations.
type Repository[T any] interface {
	CrudRepository[T]
	QueryRepository[T]
	PageQueryRepository[T]
	LockRepository[T]
	BulkRepository
	Store() store.Store
	Cache() *cache.IdentityCache
}
