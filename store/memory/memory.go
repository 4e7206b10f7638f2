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

// Package memory is a map-backed record store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomoncle/datarepo/query"
	"github.com/tomoncle/datarepo/record"
	"github.com/tomoncle/datarepo/store"
)

// BackendName is the registry name of this backend.
const BackendName = "memory"

// Store keeps records in a map guarded by a RWMutex. Every record handed in
// or out is a copy.
type Store struct {
	name   string
	db     map[string]*record.Record
	seq    int64
	now    func() time.Time
	dbLock sync.RWMutex
	locks  *store.KeyLocks
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Locker = (*Store)(nil)
)

func init() {
	_ = store.Register(BackendName, func(collection string, _ store.Options) (store.Store, error) {
		return New(collection), nil
	})
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(name string, opts ...Option) *Store {
	s := &Store{
		name:  name,
		db:    make(map[string]*record.Record),
		now:   time.Now,
		locks: store.NewKeyLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Name() string { return s.name }

// Put stores a copy of r.
func (s *Store) Put(ctx context.Context, r *record.Record) (*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := store.ValidateKey(r.ID); err != nil {
		return nil, err
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	now := s.now()
	stored := r.Clone()
	if existing, ok := s.db[r.ID]; ok {
		stored.Seq = existing.Seq
		stored.CreatedAt = existing.CreatedAt
	} else {
		s.seq++
		stored.Seq = s.seq
		created := now
		stored.CreatedAt = &created
	}
	stored.LastModifiedAt = &now
	s.db[r.ID] = stored
	return stored.Clone(), nil
}

// Get returns a copy of the record.
func (s *Store) Get(ctx context.Context, id string) (*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.dbLock.RLock()
	defer s.dbLock.RUnlock()

	r, ok := s.db[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r.Clone(), nil
}

// GetAll returns copies of all records in insertion order.
func (s *Store) GetAll(ctx context.Context) ([]*record.Record, error) {
	return s.FindWhere(ctx, query.All())
}

// FindWhere returns copies of all matching records, in insertion order.
func (s *Store) FindWhere(ctx context.Context, c query.Condition) ([]*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c == nil {
		c = query.All()
	}
	if err := c.Check(); err != nil {
		return nil, err
	}

	s.dbLock.RLock()
	defer s.dbLock.RUnlock()

	matched := make([]*record.Record, 0, len(s.db))
	for _, r := range s.db {
		if c.Matches(r) {
			matched = append(matched, r.Clone())
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Seq < matched[j].Seq })
	return matched, nil
}

// UpdateWhere applies fn to matching records under one write lock.
func (s *Store) UpdateWhere(ctx context.Context, c query.Condition, fn store.Transform) (*store.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c == nil {
		c = query.All()
	}
	if err := c.Check(); err != nil {
		return nil, err
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	now := s.now()
	result := &store.UpdateResult{}
	for _, r := range s.db {
		if !c.Matches(r) {
			continue
		}
		fields, ok := result.Apply(r, fn)
		if !ok {
			continue
		}
		r.Fields = fields
		modified := now
		r.LastModifiedAt = &modified
	}
	return result, nil
}

// Delete removes the record.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	delete(s.db, id)
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.dbLock.RLock()
	defer s.dbLock.RUnlock()
	return len(s.db)
}

// LockWhere locks the matching records against other LockWhere callers.
// Plain Put and UpdateWhere calls are not blocked.
func (s *Store) LockWhere(ctx context.Context, c query.Condition) (store.Lock, error) {
	return store.LockMatching(ctx, s, s.locks, c)
}
