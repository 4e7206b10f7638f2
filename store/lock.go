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
	"fmt"
	"slices"
	"sync"

	"github.com/tevino/abool"
	"github.com/tomoncle/datarepo/query"
	"github.com/tomoncle/datarepo/record"
)

// Lock errors.
var (
	ErrNotLocked    = errors.New("record not held by this lock")
	ErrLockReleased = errors.New("lock already released")
)

// Lock holds exclusive locks on the records a LockWhere call matched until
// Release. Writes of locked records go through Put.
type Lock interface {
	// Records returns the locked records as read after the locks were taken.
	Records() []*record.Record

	// Put writes a locked record. Other identities yield ErrNotLocked.
	Put(ctx context.Context, r *record.Record) (*record.Record, error)

	// Release commits the writes and frees the locks. Only the first call
	// has an effect.
	Release() error
}

// Locker is implemented by stores that support pessimistic locking.
type Locker interface {
	// LockWhere locks every record matching c, blocking while another lock
	// holds any of them. Records inserted after the scan are not locked.
	LockWhere(ctx context.Context, c query.Condition) (Lock, error)
}

// PutFunc writes one record on behalf of a Lock.
type PutFunc func(ctx context.Context, r *record.Record) (*record.Record, error)

type heldLock struct {
	records  []*record.Record
	ids      map[string]struct{}
	put      PutFunc
	release  func() error
	released *abool.AtomicBool
	once     sync.Once
	err      error
}

// NewLock wraps locked records, the backend's write path and its release
// function into a Lock.
func NewLock(records []*record.Record, put PutFunc, release func() error) Lock {
	ids := make(map[string]struct{}, len(records))
	for _, r := range records {
		ids[r.ID] = struct{}{}
	}
	return &heldLock{records: records, ids: ids, put: put, release: release, released: abool.New()}
}

func (l *heldLock) Records() []*record.Record {
	out := make([]*record.Record, len(l.records))
	for i, r := range l.records {
		out[i] = r.Clone()
	}
	return out
}

func (l *heldLock) Put(ctx context.Context, r *record.Record) (*record.Record, error) {
	if l.released.IsSet() {
		return nil, ErrLockReleased
	}
	if _, ok := l.ids[r.ID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotLocked, r.ID)
	}
	return l.put(ctx, r)
}

func (l *heldLock) Release() error {
	l.once.Do(func() {
		l.released.Set()
		l.err = l.release()
	})
	return l.err
}

// KeyLocks is a set of exclusive per-identity locks for backends that cannot
// lock rows themselves.
type KeyLocks struct {
	mu   sync.Mutex
	keys map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewKeyLocks() *KeyLocks {
	return &KeyLocks{keys: make(map[string]*keyLock)}
}

// Lock takes the locks of ids in sorted order and returns the function
// releasing them. It gives up, holding nothing, when ctx is done.
func (l *KeyLocks) Lock(ctx context.Context, ids ...string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	held := make([]string, 0, len(ids))
	unlock := func() {
		for _, id := range held {
			l.unlock(id)
		}
	}
	for _, id := range ids {
		k := l.acquire(id)
		select {
		case k.ch <- struct{}{}:
			held = append(held, id)
		case <-ctx.Done():
			l.drop(id)
			unlock()
			return nil, ctx.Err()
		}
	}
	return unlock, nil
}

func (l *KeyLocks) acquire(id string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	k, ok := l.keys[id]
	if !ok {
		k = &keyLock{ch: make(chan struct{}, 1)}
		l.keys[id] = k
	}
	k.refs++
	return k
}

func (l *KeyLocks) unlock(id string) {
	l.mu.Lock()
	k := l.keys[id]
	l.mu.Unlock()
	<-k.ch
	l.drop(id)
}

func (l *KeyLocks) drop(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if k := l.keys[id]; k != nil {
		k.refs--
		if k.refs == 0 {
			delete(l.keys, id)
		}
	}
}

// Len returns the number of identities currently locked or waited for.
func (l *KeyLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

// LockMatching is the LockWhere implementation for backends using KeyLocks:
// it scans, locks the matches, then re-reads them so the caller sees the
// state after any previous holder's writes. Records that no longer match are
// left out but stay locked until release.
func LockMatching(ctx context.Context, st Store, locks *KeyLocks, c query.Condition) (Lock, error) {
	if c == nil {
		c = query.All()
	}
	matched, err := st.FindWhere(ctx, c)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(matched))
	for i, r := range matched {
		ids[i] = r.ID
	}
	unlock, err := locks.Lock(ctx, ids...)
	if err != nil {
		return nil, err
	}

	current := make([]*record.Record, 0, len(ids))
	for _, r := range matched {
		fresh, err := st.Get(ctx, r.ID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			unlock()
			return nil, err
		}
		if c.Matches(fresh) {
			current = append(current, fresh)
		}
	}
	return NewLock(current, st.Put, func() error {
		unlock()
		return nil
	}), nil
}
