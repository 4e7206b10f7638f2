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

package datarepo

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/tomoncle/datarepo/database"
	"github.com/tomoncle/datarepo/store/memory"
	"github.com/tomoncle/datarepo/store/sqlstore"
	"gopkg.in/yaml.v3"
)

// Config describes a whole application: the store backend, the identity
// cache, the database used by the sql backend and logging.
type Config struct {
	Store    StoreConfig     `yaml:"store"`
	Cache    CacheConfig     `yaml:"cache"`
	Database database.Config `yaml:"database"`
	Log      LogConfig       `yaml:"log"`
}

type StoreConfig struct {
	Type string `yaml:"type" validate:"oneof=memory sql"`
}

type CacheConfig struct {
	// Size bounds the number of cached snapshots per repository. 0 means unbounded.
	Size int `yaml:"size" validate:"gte=0"`
	// AutoInvalidate purges the identity cache after bulk updates. Defaults to true.
	AutoInvalidate *bool `yaml:"auto_invalidate"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// DefaultConfig returns a memory backed configuration. The database section
// holds an in-memory sqlite setup so that switching Store.Type to sql works
// without further changes.
func DefaultConfig() *Config {
	return &Config{
		Store:    StoreConfig{Type: memory.BackendName},
		Database: *database.DefaultConfig(),
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// ShouldAutoInvalidate reports the effective auto invalidation setting.
func (c *CacheConfig) ShouldAutoInvalidate() bool {
	return c.AutoInvalidate == nil || *c.AutoInvalidate
}

var validate = validator.New()

// Validate checks field constraints and that the sql backend has a database.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Store.Type == sqlstore.BackendName && c.Database.ConnectionConfig.Type == "" {
		return errors.New("invalid configuration: the sql store requires database.connection_config.type")
	}
	return nil
}

// LoadConfig reads a YAML configuration file. Missing values keep their
// defaults.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return ReadConfig(f)
}

// ReadConfig decodes a YAML configuration over DefaultConfig and validates it.
func ReadConfig(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
