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
	"fmt"
	"sort"
	"sync"

	"github.com/uptrace/bun"
)

// Options carries backend specific dependencies.
type Options struct {
	// DB is required by the "sql" backend.
	DB *bun.DB
}

// Factory creates a store for one collection.
type Factory func(collection string, opts Options) (Store, error)

var (
	registry     = make(map[string]Factory)
	registryLock sync.RWMutex
)

// Register makes a backend available under name.
func Register(name string, factory Factory) error {
	registryLock.Lock()
	defer registryLock.Unlock()

	if _, ok := registry[name]; ok {
		return fmt.Errorf("store backend %s already registered", name)
	}
	registry[name] = factory
	return nil
}

// New creates a store for collection using the named backend.
func New(name, collection string, opts Options) (Store, error) {
	registryLock.RLock()
	factory, ok := registry[name]
	registryLock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store backend %s not registered, available: %v", name, Backends())
	}
	return factory(collection, opts)
}

// Backends lists registered backend names.
func Backends() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
