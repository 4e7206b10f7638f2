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

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datarepo/query"
	"github.com/tomoncle/datarepo/record"
	"github.com/tomoncle/datarepo/store"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func seed(t *testing.T, s *Store, ages map[string]int) {
	t.Helper()
	for _, id := range []string{"m1", "m2", "m3", "m4", "m5"} {
		age, ok := ages[id]
		if !ok {
			continue
		}
		_, err := s.Put(context.Background(), record.New(id, record.Fields{"username": id, "age": age}))
		require.NoError(t, err)
	}
}

func TestPutAssignsSeqAndTimestamps(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New("members", WithClock(clock.now))
	ctx := context.Background()

	first, err := s.Put(ctx, record.New("a", record.Fields{"age": 10}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Seq)
	require.NotNil(t, first.CreatedAt)
	assert.False(t, first.IsNew())

	second, err := s.Put(ctx, record.New("b", record.Fields{"age": 20}))
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Seq)

	replaced, err := s.Put(ctx, record.New("a", record.Fields{"age": 11}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), replaced.Seq)
	assert.True(t, replaced.CreatedAt.Equal(*first.CreatedAt))
	assert.True(t, replaced.LastModifiedAt.After(*first.LastModifiedAt))
	assert.Equal(t, 2, s.Len())
}

func TestPutRejectsEmptyKey(t *testing.T) {
	s := New("members")
	_, err := s.Put(context.Background(), record.New("", nil))
	assert.ErrorIs(t, err, store.ErrInvalidKey)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := New("members")
	ctx := context.Background()
	seed(t, s, map[string]int{"m1": 10})

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	got.Set("age", 99)

	again, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	age, _ := again.GetInt("age")
	assert.Equal(t, int64(10), age)

	_, err = s.Get(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetAllInInsertionOrder(t *testing.T) {
	s := New("members")
	seed(t, s, map[string]int{"m1": 10, "m2": 19, "m3": 20, "m4": 21, "m5": 40})

	all, err := s.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, r := range all {
		assert.Equal(t, int64(i+1), r.Seq)
	}
}

func TestUpdateWhere(t *testing.T) {
	s := New("members")
	ctx := context.Background()
	seed(t, s, map[string]int{"m1": 10, "m2": 19, "m3": 20, "m4": 21, "m5": 40})
	_, err := s.Put(ctx, record.New("odd", record.Fields{"age": "old", "username": "odd"}))
	require.NoError(t, err)

	result, err := s.UpdateWhere(ctx,
		query.Or(query.Where("age", query.GreaterThanOrEqual, 20), query.Where("username", query.Equals, "odd")),
		store.Increment("age", 1))
	require.NoError(t, err)
	assert.Equal(t, 4, result.Matched)
	assert.Equal(t, 3, result.Changed)
	assert.Equal(t, 1, result.SkippedCount())

	var skip *store.SkipError
	require.True(t, errors.As(result.Skipped, &skip))
	assert.Equal(t, "odd", skip.ID)
	assert.ErrorIs(t, skip, store.ErrTransform)

	want := map[string]int64{"m1": 10, "m2": 19, "m3": 21, "m4": 22, "m5": 41}
	for id, age := range want {
		r, err := s.Get(ctx, id)
		require.NoError(t, err)
		got, _ := r.GetInt("age")
		assert.Equal(t, age, got, id)
	}
}

func TestUpdateWhereRejectsInvalidCondition(t *testing.T) {
	s := New("members")
	_, err := s.UpdateWhere(context.Background(), query.Where("", query.Equals, 1), store.Increment("age", 1))
	assert.ErrorIs(t, err, query.ErrInvalidCondition)
}

func TestDelete(t *testing.T) {
	s := New("members")
	ctx := context.Background()
	seed(t, s, map[string]int{"m1": 10})

	require.NoError(t, s.Delete(ctx, "m1"))
	require.NoError(t, s.Delete(ctx, "m1"))
	_, err := s.Get(ctx, "m1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCancelledContext(t *testing.T) {
	s := New("members")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Get(ctx, "m1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistered(t *testing.T) {
	st, err := store.New(BackendName, "teams", store.Options{})
	require.NoError(t, err)
	assert.Equal(t, "teams", st.Name())
	assert.Contains(t, store.Backends(), BackendName)
}
