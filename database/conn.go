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

package database

import (
	"context"
	"fmt"
)

// Connect creates a factory for cfg, connects and, when configured, runs
// migrations. Registered models are registered on the returned DB.
func Connect(ctx context.Context, cfg *Config) (*BaseDatabaseFactory, error) {
	return ConnectWithLogger(ctx, cfg, nil)
}

// ConnectWithLogger is Connect with an explicit logger. A nil logger selects
// the global one.
func ConnectWithLogger(ctx context.Context, cfg *Config, logger Logger) (*BaseDatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}

	factory := NewDatabaseFactory()
	if logger != nil {
		factory.SetLogger(logger)
	}
	if _, err := factory.CreateFromConfig(cfg); err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}

	if err := factory.InitializeDatabase(ctx, cfg.DataMigrateConfig.EnableMigrateOnStartup); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	factory.GetDB().RegisterModel(RegisteredModelInstances()...)
	return factory, nil
}
