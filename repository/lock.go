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
	"fmt"

	"github.com/tomoncle/datarepo/query"
	"github.com/tomoncle/datarepo/store"
)

// Lock errors.
var (
	ErrLockUnsupported = errors.New("store does not support locking")
	ErrLockRequired    = errors.New("query requests locks, use FindLocked")
)

// Locked holds entities under exclusive locks until Release. Changes made
// with Save are written through the lock and become visible to other
// lockers after Release.
type Locked[T any] struct {
	Entities []*T

	repo  *baseRepositoryImpl[T]
	lock  store.Lock
	saved []string
}

// Save writes a locked entity and refreshes its cached snapshot.
func (l *Locked[T]) Save(ctx context.Context, entity *T) error {
	rec, err := l.repo.codec.Encode(entity)
	if err != nil {
		return fmt.Errorf("encode %s entity: %w", l.repo.store.Name(), err)
	}

	// The write runs outside the repository mutex: on row locking backends
	// a plain Save of the same record waits for this lock while holding it.
	stored, err := l.lock.Put(ctx, rec)
	if err != nil {
		return err
	}
	l.repo.mu.Lock()
	l.repo.cache.Offer(stored)
	l.repo.mu.Unlock()
	l.saved = append(l.saved, stored.ID)

	saved, err := l.repo.decode(stored)
	if err != nil {
		return err
	}
	*entity = *saved
	return nil
}

// Release frees the locks. When the backend fails to commit, the cached
// snapshots written through the lock are dropped.
func (l *Locked[T]) Release() error {
	err := l.lock.Release()
	if err != nil {
		l.repo.mu.Lock()
		for _, id := range l.saved {
			l.repo.cache.Invalidate(id)
		}
		l.repo.mu.Unlock()
		return fmt.Errorf("release %s lock: %w", l.repo.store.Name(), err)
	}
	return nil
}

func (r *baseRepositoryImpl[T]) FindLocked(ctx context.Context, q *query.Query) (*Locked[T], error) {
	if q == nil {
		q = query.New()
	}
	if err := q.Check(); err != nil {
		return nil, err
	}
	if q.IsReadOnly() || q.PageRequest() != nil {
		return nil, fmt.Errorf("%w: locked queries are neither read-only nor paged", query.ErrInvalidLockMode)
	}
	locker, ok := r.store.(store.Locker)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLockUnsupported, r.store.Name())
	}

	// The repository mutex is not held while waiting: lock holders must be
	// able to Save.
	lock, err := locker.LockWhere(ctx, q.Condition())
	if err != nil {
		return nil, err
	}
	page, err := query.Execute(lock.Records(), q)
	if err != nil {
		_ = lock.Release()
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	locked := &Locked[T]{Entities: make([]*T, len(page.Content)), repo: r, lock: lock}
	for i, rec := range page.Content {
		r.cache.Offer(rec)
		if locked.Entities[i], err = r.decode(rec); err != nil {
			_ = lock.Release()
			return nil, err
		}
	}
	r.logger.Debug("Records locked", "collection", r.store.Name(), "count", len(locked.Entities), "query", q.Print())
	return locked, nil
}
