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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datarepo/query"
	"github.com/tomoncle/datarepo/store"
	"github.com/tomoncle/datarepo/store/memory"
	"github.com/tomoncle/datarepo/types"
)

func byName(name string) *query.Query {
	return query.New().Where(query.Where("name", query.Equals, name)).ForUpdate()
}

func TestFindLockedSerializesLockers(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository[user](memory.New("users"), userCodec{})
	users := seedUsers(t, repo, 10, 20)

	held, err := repo.FindLocked(ctx, byName("member1"))
	require.NoError(t, err)
	require.Len(t, held.Entities, 1)

	acquired := make(chan *Locked[user])
	go func() {
		next, err := repo.FindLocked(ctx, byName("member1"))
		assert.NoError(t, err)
		acquired <- next
	}()

	select {
	case <-acquired:
		t.Fatal("second locker acquired a held record")
	case <-time.After(50 * time.Millisecond):
	}

	other, err := repo.FindLocked(ctx, byName("member2"))
	require.NoError(t, err)
	require.NoError(t, other.Release())

	plain, err := repo.FindByID(ctx, users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 10, plain.Age)

	held.Entities[0].Age++
	require.NoError(t, held.Save(ctx, held.Entities[0]))
	require.NoError(t, held.Release())
	require.NoError(t, held.Release())

	var next *Locked[user]
	select {
	case next = <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second locker never acquired the released record")
	}
	require.Len(t, next.Entities, 1)
	assert.Equal(t, 11, next.Entities[0].Age)
	require.NoError(t, next.Release())

	cached, err := repo.FindByID(ctx, users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 11, cached.Age)
}

func TestFindLockedRespectsContext(t *testing.T) {
	repo := NewRepository[user](memory.New("users"), userCodec{})
	seedUsers(t, repo, 10)

	held, err := repo.FindLocked(context.Background(), byName("member1"))
	require.NoError(t, err)
	defer func() { _ = held.Release() }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = repo.FindLocked(ctx, byName("member1"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFindLockedRejections(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository[user](memory.New("users"), userCodec{})
	seedUsers(t, repo, 10)

	_, err := repo.FindWhere(ctx, byName("member1"))
	assert.ErrorIs(t, err, ErrLockRequired)
	_, err = repo.Project(ctx, byName("member1"), "age")
	assert.ErrorIs(t, err, ErrLockRequired)
	_, err = repo.FindLocked(ctx, query.New().Paged(types.PageOf(0, 1)))
	assert.ErrorIs(t, err, query.ErrInvalidLockMode)
	_, err = repo.FindLocked(ctx, query.New().ReadOnly())
	assert.ErrorIs(t, err, query.ErrInvalidLockMode)

	held, err := repo.FindLocked(ctx, byName("member1"))
	require.NoError(t, err)
	stranger := &user{ID: "nobody", Name: "x", Age: 1}
	assert.ErrorIs(t, held.Save(ctx, stranger), store.ErrNotLocked)
	require.NoError(t, held.Release())
	assert.ErrorIs(t, held.Save(ctx, held.Entities[0]), store.ErrLockReleased)

	unsupported, _ := newUsers(t)
	_, err = unsupported.FindLocked(ctx, query.New())
	assert.ErrorIs(t, err, ErrLockUnsupported)
}
