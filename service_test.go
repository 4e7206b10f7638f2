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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datarepo/member"
	"github.com/tomoncle/datarepo/store"
)

func openApp(t *testing.T, storeType string, autoInvalidate bool) *Application {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Store.Type = storeType
	cfg.Cache.AutoInvalidate = &autoInvalidate
	app, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, app.Close()) })
	return app
}

func TestOpen(t *testing.T) {
	for _, storeType := range []string{"memory", "sql"} {
		t.Run(storeType, func(t *testing.T) {
			ctx := context.Background()
			app := openApp(t, storeType, true)
			assert.Equal(t, storeType == "sql", app.Database() != nil)
			assert.True(t, app.Health(ctx).Healthy)

			team := member.NewTeam("teamA")
			require.NoError(t, app.Teams.Save(ctx, team))
			m := member.NewMember("member1", 10, team)
			require.NoError(t, app.Members.Save(ctx, m))

			changed, err := app.Members.BulkAgePlus(ctx, 10)
			require.NoError(t, err)
			assert.Equal(t, 1, changed)

			found, err := app.Members.FindByID(ctx, m.ID)
			require.NoError(t, err)
			assert.Equal(t, 11, found.Age)
			assert.Equal(t, team.ID, found.Team.ID)

			assert.NotSame(t, app.Members.Cache(), app.Teams.Cache())
			assert.Equal(t, member.CollectionItems, app.Items.Store().Name())
		})
	}
}

func TestOpenWithoutAutoInvalidate(t *testing.T) {
	ctx := context.Background()
	app := openApp(t, "memory", false)

	m := member.NewMember("member1", 40)
	require.NoError(t, app.Members.Save(ctx, m))
	_, err := app.Members.BulkAgePlus(ctx, 20)
	require.NoError(t, err)

	stale, err := app.Members.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, stale.Age)
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Type = "redis"
	_, err := Open(context.Background(), cfg)
	assert.Error(t, err)
}

func TestCloseTwice(t *testing.T) {
	app, err := Open(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, app.Close())
	assert.NoError(t, app.Close())

	_, err = app.Members.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
