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
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/tomoncle/datarepo/cache"
	"github.com/tomoncle/datarepo/database"
	"github.com/tomoncle/datarepo/member"
	"github.com/tomoncle/datarepo/repository"
	"github.com/tomoncle/datarepo/store"
	"github.com/tomoncle/datarepo/store/sqlstore"
	"github.com/tomoncle/datarepo/utils"
)

// Application owns the repositories of the member domain and the database
// connection behind them, if any.
type Application struct {
	Members *member.MemberRepository
	Teams   *member.TeamRepository
	Items   *member.ItemRepository

	cfg     *Config
	factory *database.BaseDatabaseFactory
	logger  database.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open configures logging, connects the database when the sql backend is
// selected and builds one repository per collection. A nil cfg selects
// DefaultConfig.
func Open(ctx context.Context, cfg *Config) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Log.Format != "" {
		utils.ConfigureConsoleLogFormat(cfg.Log.Format)
	}
	if cfg.Log.Level != "" {
		utils.ConfigureLogLevel(cfg.Log.Level)
	}

	app := &Application{cfg: cfg, logger: database.GetLogger()}

	var opts store.Options
	if cfg.Store.Type == sqlstore.BackendName {
		factory, err := database.ConnectWithLogger(ctx, &cfg.Database, app.logger)
		if err != nil {
			return nil, err
		}
		app.factory = factory
		opts.DB = factory.GetDB()
	}

	stores := make(map[string]store.Store, 3)
	for _, collection := range []string{member.CollectionMembers, member.CollectionTeams, member.CollectionItems} {
		st, err := store.New(cfg.Store.Type, collection, opts)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("open %s store: %w", collection, err)
		}
		stores[collection] = st
	}

	app.Teams = member.NewTeamRepository(stores[member.CollectionTeams], app.repositoryOptions()...)
	app.Members = member.NewMemberRepository(stores[member.CollectionMembers], app.Teams, app.repositoryOptions()...)
	app.Items = member.NewItemRepository(stores[member.CollectionItems], app.repositoryOptions()...)

	app.logger.Info("Application opened", "store", cfg.Store.Type, "cache_size", cfg.Cache.Size,
		"auto_invalidate", cfg.Cache.ShouldAutoInvalidate())
	return app, nil
}

// repositoryOptions returns fresh options per repository so that every
// repository gets its own identity cache.
func (a *Application) repositoryOptions() []repository.Option {
	return []repository.Option{
		repository.WithLogger(a.logger),
		repository.WithAutoInvalidate(a.cfg.Cache.ShouldAutoInvalidate()),
		repository.WithCache(cache.New(a.cfg.Cache.Size, cache.WithLogger(a.logger))),
	}
}

// Config returns the configuration the application was opened with.
func (a *Application) Config() *Config { return a.cfg }

// Database returns the database factory, or nil for the memory backend.
func (a *Application) Database() *database.BaseDatabaseFactory { return a.factory }

// Health reports the database health. The memory backend is always healthy.
func (a *Application) Health(ctx context.Context) *database.HealthStatus {
	if a.factory == nil {
		return &database.HealthStatus{Healthy: true, Connected: true, LastCheckTime: time.Now()}
	}
	return a.factory.GetHealthStatus(ctx)
}

// Close releases the database connection. It is safe to call more than once.
func (a *Application) Close() error {
	a.closeOnce.Do(func() {
		var result *multierror.Error
		if a.factory != nil {
			if err := a.factory.Close(); err != nil && !errors.Is(err, database.ErrNotConnected) {
				result = multierror.Append(result, err)
			}
		}
		a.closeErr = result.ErrorOrNil()
	})
	return a.closeErr
}
