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
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type widget struct {
	bun.BaseModel `bun:"table:widgets"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,unique"`
}

func init() {
	RegisterModel((*widget)(nil), 10)
	RegisterMigration(MigrationItem{
		Version:     "900",
		Name:        "seed_widget",
		Description: "insert the first widget",
		Up: func(ctx context.Context, db bun.IDB) error {
			_, err := db.NewInsert().Model(&widget{Name: "first"}).Exec(ctx)
			return err
		},
		Down: func(ctx context.Context, db bun.IDB) error {
			_, err := db.NewDelete().Model((*widget)(nil)).Where("name = ?", "first").Exec(ctx)
			return err
		},
	})
}

func connectMemory(t *testing.T) *BaseDatabaseFactory {
	t.Helper()
	factory, err := Connect(context.Background(), DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })
	return factory
}

func TestConnectMemoryRunsMigrations(t *testing.T) {
	factory := connectMemory(t)
	ctx := context.Background()

	assert.True(t, factory.GetManager().IsConnected())
	count, err := factory.GetDB().NewSelect().Model((*widget)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	mm := NewMigrationManager(factory.GetDB(), nil)
	require.NoError(t, mm.RunMigrations(ctx))
	count, err = factory.GetDB().NewSelect().Model((*widget)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "applied migrations must not run twice")

	applied, err := mm.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, applied)
	assert.Equal(t, "900", applied[len(applied)-1].Version)

	require.NoError(t, mm.RollbackMigration(ctx, "900"))
	count, err = factory.GetDB().NewSelect().Model((*widget)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Error(t, mm.RollbackMigration(ctx, "900"))
}

func TestMemoryDatabasesAreIsolated(t *testing.T) {
	a := connectMemory(t)
	b := connectMemory(t)
	ctx := context.Background()

	_, err := a.GetDB().NewInsert().Model(&widget{Name: "only-in-a"}).Exec(ctx)
	require.NoError(t, err)

	count, err := b.GetDB().NewSelect().Model((*widget)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, b.GetStats().MaxOpenConns)
}

func TestDuplicateKeyIsClassified(t *testing.T) {
	factory := connectMemory(t)
	ctx := context.Background()

	_, err := factory.GetDB().NewInsert().Model(&widget{Name: "first"}).Exec(ctx)
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))
}

func TestHealthCheckAndDisconnect(t *testing.T) {
	factory := connectMemory(t)
	ctx := context.Background()

	status := factory.GetHealthStatus(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)

	require.NoError(t, factory.Close())
	assert.False(t, factory.GetManager().IsConnected())
	assert.ErrorIs(t, factory.GetManager().Ping(ctx), ErrNotConnected)
	assert.False(t, factory.GetHealthStatus(ctx).Healthy)
}

func TestCreateFromConfigRejectsUnknownType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConnectionConfig.Type = "oracle"
	_, err := NewDatabaseFactory().CreateFromConfig(cfg)
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "members")
	t.Setenv("DB_ENABLE_QUERY_LOG", "true")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90")
	t.Setenv("DB_MAX_OPEN_CONNS", "many")

	cfg := DefaultConnectionConfig()
	OverrideFromEnv(cfg)

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 5433, cfg.Port)
	assert.Equal(t, "members", cfg.DBName)
	assert.True(t, cfg.EnableQueryLog)
	assert.Equal(t, 90*time.Second, cfg.ConnMaxLifetime)
	assert.Equal(t, 100, cfg.MaxOpenConns)
}

func TestSqliteDSN(t *testing.T) {
	mem := sqliteDSN(":memory:")
	assert.True(t, strings.HasPrefix(mem, "file:"))
	assert.Contains(t, mem, "mode=memory")
	assert.NotEqual(t, mem, sqliteDSN(":memory:"))
	assert.Equal(t, "file:x.db?cache=shared", sqliteDSN("file:x.db?cache=shared"))
	assert.Equal(t, "members.db", sqliteDSN("members"))
	assert.Equal(t, "members.db", sqliteDSN("members.db"))
}

func TestIsSqlError(t *testing.T) {
	cases := []struct {
		err  error
		kind SQLError
	}{
		{&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, DuplicateKeyErr},
		{fmt.Errorf("wrapped: %w", &mysql.MySQLError{Number: 1146}), NoTableErr},
		{errors.New(`ERROR: duplicate key value violates unique constraint "x" (SQLSTATE 23505)`), DuplicateKeyErr},
		{errors.New("constraint failed: UNIQUE constraint failed: records.collection, records.record_id (2067)"), DuplicateKeyErr},
		{errors.New("SQL logic error: no such table: records (1)"), NoTableErr},
		{errors.New("index records_collection_idx already exists"), ExistIndexErr},
		{errors.New(`relation "records" already exists`), ExistTableErr},
		{errors.New("NOT NULL constraint failed: records.fields"), NotNullViolationErr},
	}
	for _, tc := range cases {
		is, kind := IsSqlError(tc.err)
		assert.True(t, is, tc.err.Error())
		assert.Equal(t, tc.kind, kind, tc.err.Error())
	}

	is, kind := IsSqlError(errors.New("connection reset by peer"))
	assert.False(t, is)
	assert.Equal(t, UnknownErr, kind)
	is, _ = IsSqlError(nil)
	assert.False(t, is)
	is, kind = IsSqlError(&mysql.MySQLError{Number: 9999})
	assert.True(t, is)
	assert.Equal(t, "unknown", kind.String())
}

func TestQueryHookRespectsSilentContext(t *testing.T) {
	t.Setenv("BUNDEBUG", "2")
	var buf bytes.Buffer
	hook := NewQueryHook(WithQueryHookWriter(&buf))
	event := &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now()}

	hook.AfterQuery(WithSilentQueries(context.Background()), event)
	assert.Zero(t, buf.Len())

	hook.AfterQuery(context.Background(), event)
	assert.Contains(t, buf.String(), "SELECT 1")
}

type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) SetLevel(LogLevel)                      {}
func (l *recordingLogger) Debug(string, ...interface{})           {}
func (l *recordingLogger) Info(string, ...interface{})            {}
func (l *recordingLogger) Error(string, ...interface{})           {}
func (l *recordingLogger) Warn(msg string, fields ...interface{}) { l.warnings = append(l.warnings, msg) }

func TestSlowQueryHook(t *testing.T) {
	logger := &recordingLogger{}
	hook := NewSlowQueryHook(time.Millisecond, logger)

	hook.AfterQuery(context.Background(), &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now()})
	assert.Empty(t, logger.warnings)

	hook.AfterQuery(context.Background(), &bun.QueryEvent{Query: "SELECT 2", StartTime: time.Now().Add(-time.Second)})
	assert.Len(t, logger.warnings, 1)
}

func TestFormatFields(t *testing.T) {
	assert.Equal(t, "", formatFields(nil))
	assert.Equal(t, " a=1 b=two", formatFields([]interface{}{"a", 1, "b", "two"}))
	assert.Equal(t, " a=1 dangling", formatFields([]interface{}{"a", 1, "dangling"}))
}
