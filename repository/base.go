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
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tomoncle/datarepo/cache"
	"github.com/tomoncle/datarepo/database"
	"github.com/tomoncle/datarepo/query"
	"github.com/tomoncle/datarepo/record"
	"github.com/tomoncle/datarepo/store"
	"github.com/tomoncle/datarepo/types"
)

// baseRepositoryImpl serializes writers against everything else: store
// writes and the cache stamps reflecting them happen under the write lock,
// reads that consult or fill the cache hold the read lock.
type baseRepositoryImpl[T any] struct {
	store store.Store
	codec Codec[T]
	options
	mu sync.RWMutex
}

// NewRepository returns a generic repository over st.
func NewRepository[T any](st store.Store, codec Codec[T], opts ...Option) Repository[T] {
	o := options{autoInvalidate: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = database.GetLogger()
	}
	if o.cache == nil {
		o.cache = cache.New(0, cache.WithLogger(o.logger))
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	return &baseRepositoryImpl[T]{store: st, codec: codec, options: o}
}

func (r *baseRepositoryImpl[T]) Store() store.Store { return r.store }

func (r *baseRepositoryImpl[T]) Cache() *cache.IdentityCache { return r.cache }

func (r *baseRepositoryImpl[T]) Save(ctx context.Context, entity *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(ctx, entity)
}

func (r *baseRepositoryImpl[T]) SaveAll(ctx context.Context, entities ...*T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entity := range entities {
		if err := r.save(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

func (r *baseRepositoryImpl[T]) save(ctx context.Context, entity *T) error {
	rec, err := r.codec.Encode(entity)
	if err != nil {
		return fmt.Errorf("encode %s entity: %w", r.store.Name(), err)
	}
	if rec.ID == "" {
		rec.ID = r.newID()
	}
	stored, err := r.store.Put(ctx, rec)
	if err != nil {
		return err
	}
	r.cache.Offer(stored)

	saved, err := r.codec.Decode(stored)
	if err != nil {
		return fmt.Errorf("decode %s/%s: %w", r.store.Name(), stored.ID, err)
	}
	*entity = *saved
	return nil
}

func (r *baseRepositoryImpl[T]) FindByID(ctx context.Context, id string) (*T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, err := r.cache.LookupOrLoad(id, func() (*record.Record, error) {
		return r.store.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return r.decode(rec)
}

func (r *baseRepositoryImpl[T]) FindAll(ctx context.Context) ([]*T, error) {
	return r.FindWhere(ctx, query.New())
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	r.cache.Invalidate(id)
	return nil
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, condition query.Condition) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records, err := r.store.FindWhere(ctx, condition)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (r *baseRepositoryImpl[T]) FindWhere(ctx context.Context, q *query.Query) ([]*T, error) {
	page, err := r.Page(ctx, q)
	if err != nil {
		return nil, err
	}
	return page.Content, nil
}

func (r *baseRepositoryImpl[T]) FindOne(ctx context.Context, q *query.Query) (*T, error) {
	found, err := r.FindWhere(ctx, q)
	if err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, store.ErrNotFound
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %d %s records match %s", ErrNonUnique, len(found), r.store.Name(), q.Print())
	}
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, q *query.Query) (*types.Page[T], error) {
	if q == nil {
		q = query.New()
	}
	if err := q.Check(); err != nil {
		return nil, err
	}
	if q.IsForUpdate() {
		return nil, ErrLockRequired
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	page, err := r.execute(ctx, q)
	if err != nil {
		return nil, err
	}

	content := make([]*T, len(page.Content))
	for i, rec := range page.Content {
		if !q.IsReadOnly() {
			rec = r.attach(rec)
		}
		if content[i], err = r.decode(rec); err != nil {
			return nil, err
		}
	}
	return types.NewPage(content, page.Number, page.Size, page.TotalElements), nil
}

func (r *baseRepositoryImpl[T]) Project(ctx context.Context, q *query.Query, fields ...string) ([]record.Fields, error) {
	if q == nil {
		q = query.New()
	}
	if err := q.Check(); err != nil {
		return nil, err
	}
	if q.IsForUpdate() {
		return nil, ErrLockRequired
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	page, err := r.execute(ctx, q)
	if err != nil {
		return nil, err
	}
	return query.Project(page.Content, fields...), nil
}

func (r *baseRepositoryImpl[T]) execute(ctx context.Context, q *query.Query) (*types.Page[record.Record], error) {
	records, err := r.store.FindWhere(ctx, q.Condition())
	if err != nil {
		return nil, err
	}
	return query.Execute(records, q)
}

// attach returns the cached snapshot for a queried record, so that a query
// sees the same state as FindByID, or caches the record if none exists.
func (r *baseRepositoryImpl[T]) attach(rec *record.Record) *record.Record {
	if cached, ok := r.cache.Lookup(rec.ID); ok {
		return cached
	}
	r.cache.Offer(rec)
	return rec
}

func (r *baseRepositoryImpl[T]) BulkUpdate(ctx context.Context, condition query.Condition, transform store.Transform) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.store.UpdateWhere(ctx, condition, transform)
	if err != nil {
		return 0, err
	}
	if n := result.SkippedCount(); n > 0 {
		r.logger.Warn("Bulk update skipped records", "collection", r.store.Name(), "skipped", n, "error", result.Skipped.ErrorOrNil())
	}
	if r.autoInvalidate && result.Changed > 0 {
		r.cache.InvalidateAll()
	}
	r.logger.Debug("Bulk update applied", "collection", r.store.Name(), "matched", result.Matched, "changed", result.Changed)
	return result.Changed, nil
}

func (r *baseRepositoryImpl[T]) Invalidate(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Invalidate(id)
}

func (r *baseRepositoryImpl[T]) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.InvalidateAll()
}

func (r *baseRepositoryImpl[T]) decode(rec *record.Record) (*T, error) {
	entity, err := r.codec.Decode(rec)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", r.store.Name(), rec.ID, err)
	}
	return entity, nil
}
