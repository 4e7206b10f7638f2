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

// Package cache holds at most one snapshot per record identity together with
// a version stamp from a monotonically increasing counter.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/bluele/gcache"
	"github.com/tomoncle/datarepo/database"
	"github.com/tomoncle/datarepo/record"
)

// Entry is a cached snapshot and the version it was stored under.
type Entry struct {
	Record  *record.Record
	Version uint64
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// Loader reads the current stored value of a record.
type Loader func() (*record.Record, error)

// IdentityCache maps identities to snapshots. Every record it returns is a
// copy. A snapshot is never replaced by an older one: loads stamp their
// version before reading from the store and lose against any offer or
// invalidation that happened in the meantime.
type IdentityCache struct {
	mu      sync.Mutex
	entries gcache.Cache
	clock   atomic.Uint64
	hits    atomic.Uint64
	misses  atomic.Uint64

	// invalidations newer than a pending load, per id and for the whole cache
	tombstones map[string]uint64
	purgedAt   uint64

	logger database.Logger
}

// Option configures an IdentityCache.
type Option func(*IdentityCache)

// WithLogger logs evictions at debug level.
func WithLogger(logger database.Logger) Option {
	return func(c *IdentityCache) { c.logger = logger }
}

// New creates a cache holding up to size entries with LRU eviction. A size
// of zero or less means unbounded.
func New(size int, opts ...Option) *IdentityCache {
	c := &IdentityCache{tombstones: make(map[string]uint64)}
	for _, opt := range opts {
		opt(c)
	}

	builder := gcache.New(size)
	if size > 0 {
		builder = builder.LRU()
	} else {
		builder = builder.Simple()
	}
	c.entries = builder.
		EvictedFunc(func(key, _ interface{}) {
			if c.logger != nil {
				c.logger.Debug("Identity cache evicted entry", "id", key)
			}
		}).
		Build()
	return c
}

func (c *IdentityCache) next() uint64 {
	return c.clock.Add(1)
}

func (c *IdentityCache) get(id string) (*Entry, bool) {
	v, err := c.entries.Get(id)
	if err != nil {
		return nil, false
	}
	e, ok := v.(*Entry)
	return e, ok
}

// LookupOrLoad returns the cached snapshot for id, or calls load and caches
// its result.
func (c *IdentityCache) LookupOrLoad(id string, load Loader) (*record.Record, error) {
	c.mu.Lock()
	if e, ok := c.get(id); ok {
		c.mu.Unlock()
		c.hits.Add(1)
		return e.Record.Clone(), nil
	}
	c.mu.Unlock()
	c.misses.Add(1)

	version := c.next()
	r, err := load()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.get(id); ok && e.Version > version {
		return e.Record.Clone(), nil
	}
	if version > c.purgedAt && version > c.tombstones[id] {
		c.set(id, r, version)
	}
	return r.Clone(), nil
}

// Offer caches a snapshot of r under a fresh version and returns the version.
func (c *IdentityCache) Offer(r *record.Record) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	version := c.next()
	c.set(r.ID, r, version)
	return version
}

func (c *IdentityCache) set(id string, r *record.Record, version uint64) {
	delete(c.tombstones, id)
	if err := c.entries.Set(id, &Entry{Record: r.Clone(), Version: version}); err != nil && c.logger != nil {
		c.logger.Warn("Identity cache rejected entry", "id", id, "error", err)
	}
}

// Lookup returns the cached snapshot without loading.
func (c *IdentityCache) Lookup(id string) (*record.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.get(id)
	if !ok {
		return nil, false
	}
	return e.Record.Clone(), true
}

// Version returns the version of the cached snapshot for id.
func (c *IdentityCache) Version(id string) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.get(id)
	if !ok {
		return 0, false
	}
	return e.Version, true
}

// Invalidate drops the snapshot for id.
func (c *IdentityCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(id)
	c.tombstones[id] = c.next()
}

// InvalidateAll drops every snapshot.
func (c *IdentityCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	c.tombstones = make(map[string]uint64)
	c.purgedAt = c.next()
}

// Len returns the number of cached snapshots.
func (c *IdentityCache) Len() int {
	return c.entries.Len(false)
}

func (c *IdentityCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.Len(),
	}
}
