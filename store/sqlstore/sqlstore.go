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

// Package sqlstore keeps records of every collection in one Bun managed
// "records" table. Field maps are stored as JSON text and predicates are
// evaluated in Go after a collection scan.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomoncle/datarepo/database"
	"github.com/tomoncle/datarepo/query"
	"github.com/tomoncle/datarepo/record"
	"github.com/tomoncle/datarepo/store"
	"github.com/tomoncle/datarepo/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// BackendName is the registry name of this backend.
const BackendName = "sql"

type recordRow struct {
	bun.BaseModel `bun:"table:records,alias:r"`

	Seq        int64            `bun:"seq,pk,autoincrement"`
	Collection string           `bun:"collection,notnull,unique:collection_record"`
	RecordID   string           `bun:"record_id,notnull,unique:collection_record"`
	Fields     types.JsonObject `bun:"fields,type:text"`
	CreatedAt  time.Time        `bun:"created_at,nullzero"`
	ModifiedAt time.Time        `bun:"modified_at,nullzero"`
}

func (row *recordRow) toRecord() *record.Record {
	fields := row.Fields
	if fields == nil {
		fields = make(record.Fields)
	}
	r := &record.Record{
		ID:     row.RecordID,
		Seq:    row.Seq,
		Fields: fields,
	}
	if !row.CreatedAt.IsZero() {
		created := row.CreatedAt.UTC()
		r.CreatedAt = &created
	}
	if !row.ModifiedAt.IsZero() {
		modified := row.ModifiedAt.UTC()
		r.LastModifiedAt = &modified
	}
	return r
}

func init() {
	database.RegisterModel((*recordRow)(nil), 100)
	database.RegisterMigration(database.MigrationItem{
		Version:     "001",
		Name:        "records_collection_index",
		Description: "Index records by collection and insertion order",
		Up: func(ctx context.Context, db bun.IDB) error {
			_, err := db.NewCreateIndex().
				Model((*recordRow)(nil)).
				Index("records_collection_seq_idx").
				Column("collection", "seq").
				Exec(ctx)
			return err
		},
		Down: func(ctx context.Context, db bun.IDB) error {
			_, err := db.NewDropIndex().
				Model((*recordRow)(nil)).
				Index("records_collection_seq_idx").
				Exec(ctx)
			return err
		},
	})

	_ = store.Register(BackendName, func(collection string, opts store.Options) (store.Store, error) {
		if opts.DB == nil {
			return nil, fmt.Errorf("store backend %s needs a database", BackendName)
		}
		return New(opts.DB, collection), nil
	})
}

// Store is a record store for one collection.
type Store struct {
	db    *bun.DB
	name  string
	now   func() time.Time
	locks *store.KeyLocks
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Locker = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a store for collection. The records table must exist, see
// database.MigrationManager.
func New(db *bun.DB, collection string, opts ...Option) *Store {
	s := &Store{db: db, name: collection, now: time.Now, locks: store.NewKeyLocks()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Name() string { return s.name }

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Store) selectRow(ctx context.Context, db bun.IDB, id string) (*recordRow, error) {
	row := new(recordRow)
	err := db.NewSelect().
		Model(row).
		Where("collection = ?", s.name).
		Where("record_id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s/%s: %w", s.name, id, err)
	}
	return row, nil
}

func (s *Store) selectAll(ctx context.Context, db bun.IDB) ([]recordRow, error) {
	var rows []recordRow
	err := db.NewSelect().
		Model(&rows).
		Where("collection = ?", s.name).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.name, err)
	}
	return rows, nil
}

// Put inserts or replaces the record inside one transaction.
func (s *Store) Put(ctx context.Context, r *record.Record) (*record.Record, error) {
	if err := store.ValidateKey(r.ID); err != nil {
		return nil, err
	}

	var saved *recordRow
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		saved, err = s.put(ctx, tx, r)
		return err
	})
	if err != nil {
		if database.IsDuplicateKey(err) {
			return nil, fmt.Errorf("%w: %s/%s", store.ErrConflict, s.name, r.ID)
		}
		return nil, err
	}
	return saved.toRecord(), nil
}

// put inserts or updates r through db and returns the stored row.
func (s *Store) put(ctx context.Context, db bun.IDB, r *record.Record) (*recordRow, error) {
	now := s.timestamp()
	existing, err := s.selectRow(ctx, db, r.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		row := &recordRow{
			Collection: s.name,
			RecordID:   r.ID,
			Fields:     record.CopyFields(r.Fields),
			CreatedAt:  now,
			ModifiedAt: now,
		}
		if _, err := db.NewInsert().Model(row).Exec(ctx); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		existing.Fields = record.CopyFields(r.Fields)
		existing.ModifiedAt = now
		_, err := db.NewUpdate().
			Model(existing).
			Column("fields", "modified_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return nil, err
		}
	}
	return s.selectRow(ctx, db, r.ID)
}

func (s *Store) Get(ctx context.Context, id string) (*record.Record, error) {
	row, err := s.selectRow(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return row.toRecord(), nil
}

func (s *Store) GetAll(ctx context.Context) ([]*record.Record, error) {
	return s.FindWhere(ctx, query.All())
}

// FindWhere scans the collection in insertion order and keeps matching records.
func (s *Store) FindWhere(ctx context.Context, c query.Condition) ([]*record.Record, error) {
	if c == nil {
		c = query.All()
	}
	if err := c.Check(); err != nil {
		return nil, err
	}

	rows, err := s.selectAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	matched := make([]*record.Record, 0, len(rows))
	for i := range rows {
		r := rows[i].toRecord()
		if c.Matches(r) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// UpdateWhere rewrites every matching row inside one transaction.
func (s *Store) UpdateWhere(ctx context.Context, c query.Condition, fn store.Transform) (*store.UpdateResult, error) {
	if c == nil {
		c = query.All()
	}
	if err := c.Check(); err != nil {
		return nil, err
	}

	var result *store.UpdateResult
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		result = &store.UpdateResult{}
		rows, err := s.selectAll(ctx, tx)
		if err != nil {
			return err
		}
		now := s.timestamp()
		for i := range rows {
			row := &rows[i]
			if !c.Matches(row.toRecord()) {
				continue
			}
			fields, ok := result.Apply(row.toRecord(), fn)
			if !ok {
				continue
			}
			row.Fields = fields
			row.ModifiedAt = now
			_, err := tx.NewUpdate().
				Model(row).
				Column("fields", "modified_at").
				WherePK().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("update %s/%s: %w", s.name, row.RecordID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.NewDelete().
		Model((*recordRow)(nil)).
		Where("collection = ?", s.name).
		Where("record_id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", s.name, id, err)
	}
	return nil
}

// LockWhere locks the matching rows. Postgres and MySQL lock them with
// SELECT ... FOR UPDATE inside a transaction that stays open until Release,
// and writes through the lock join that transaction. SQLite has no row
// locks, so its locks are per identity within this Store.
func (s *Store) LockWhere(ctx context.Context, c query.Condition) (store.Lock, error) {
	if c == nil {
		c = query.All()
	}
	if err := c.Check(); err != nil {
		return nil, err
	}
	switch s.db.Dialect().Name() {
	case dialect.PG, dialect.MySQL:
		return s.lockRows(ctx, c)
	default:
		return store.LockMatching(ctx, s, s.locks, c)
	}
}

func (s *Store) lockRows(ctx context.Context, c query.Condition) (store.Lock, error) {
	matched, err := s.FindWhere(ctx, c)
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		return store.NewLock(nil, nil, func() error { return nil }), nil
	}
	ids := make([]string, len(matched))
	for i, r := range matched {
		ids[i] = r.ID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin lock on %s: %w", s.name, err)
	}
	var rows []recordRow
	err = tx.NewSelect().
		Model(&rows).
		Where("collection = ?", s.name).
		Where("record_id IN (?)", bun.In(ids)).
		Order("seq ASC").
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("lock %s: %w", s.name, err)
	}

	locked := make([]*record.Record, 0, len(rows))
	for i := range rows {
		if r := rows[i].toRecord(); c.Matches(r) {
			locked = append(locked, r)
		}
	}
	put := func(ctx context.Context, r *record.Record) (*record.Record, error) {
		row, err := s.put(ctx, tx, r)
		if err != nil {
			return nil, err
		}
		return row.toRecord(), nil
	}
	return store.NewLock(locked, put, tx.Commit), nil
}
