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
	"github.com/tomoncle/datarepo/cache"
	"github.com/tomoncle/datarepo/database"
)

// Option configures a repository.
type Option func(*options)

type options struct {
	cache          *cache.IdentityCache
	logger         database.Logger
	newID          func() string
	autoInvalidate bool
}

// WithCache shares an identity cache. By default each repository owns an
// unbounded one.
func WithCache(c *cache.IdentityCache) Option {
	return func(o *options) { o.cache = c }
}

func WithLogger(logger database.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithIDGenerator replaces the UUID generator used for entities saved
// without an identity.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// WithAutoInvalidate controls whether BulkUpdate clears the identity cache.
// When disabled, callers must call InvalidateAll after every bulk update or
// risk reading snapshots from before it.
func WithAutoInvalidate(on bool) Option {
	return func(o *options) { o.autoInvalidate = on }
}
