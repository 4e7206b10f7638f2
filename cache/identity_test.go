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

package cache

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datarepo/record"
)

func member(id string, age int) *record.Record {
	return record.New(id, record.Fields{"username": id, "age": age})
}

func ageOf(t *testing.T, r *record.Record) int64 {
	t.Helper()
	age, ok := r.GetInt("age")
	require.True(t, ok)
	return age
}

func TestLookupOrLoadCachesFirstLoad(t *testing.T) {
	c := New(0)
	loads := 0
	load := func() (*record.Record, error) {
		loads++
		return member("m5", 40), nil
	}

	first, err := c.LookupOrLoad("m5", load)
	require.NoError(t, err)
	second, err := c.LookupOrLoad("m5", load)
	require.NoError(t, err)

	assert.Equal(t, 1, loads)
	assert.Equal(t, int64(40), ageOf(t, second))
	assert.NotSame(t, first, second)
	assert.Equal(t, Stats{Hits: 1, Misses: 1, Entries: 1}, c.Stats())
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	c := New(0)
	c.Offer(member("m1", 10))

	got, ok := c.Lookup("m1")
	require.True(t, ok)
	got.Set("age", 99)

	again, _ := c.Lookup("m1")
	assert.Equal(t, int64(10), ageOf(t, again))
}

func TestLoadErrorIsNotCached(t *testing.T) {
	c := New(0)
	boom := errors.New("boom")
	_, err := c.LookupOrLoad("m1", func() (*record.Record, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())
}

func TestReloadAfterInvalidateSeesStoredValue(t *testing.T) {
	c := New(0)
	stored := member("m5", 40)
	load := func() (*record.Record, error) { return stored.Clone(), nil }

	_, err := c.LookupOrLoad("m5", load)
	require.NoError(t, err)

	stored.Set("age", 41)
	stale, err := c.LookupOrLoad("m5", load)
	require.NoError(t, err)
	assert.Equal(t, int64(40), ageOf(t, stale))

	c.Invalidate("m5")
	fresh, err := c.LookupOrLoad("m5", load)
	require.NoError(t, err)
	assert.Equal(t, int64(41), ageOf(t, fresh))

	stored.Set("age", 42)
	c.InvalidateAll()
	fresh, err = c.LookupOrLoad("m5", load)
	require.NoError(t, err)
	assert.Equal(t, int64(42), ageOf(t, fresh))
}

func TestVersionsIncrease(t *testing.T) {
	c := New(0)
	v1 := c.Offer(member("m1", 10))
	v2 := c.Offer(member("m1", 11))
	assert.Greater(t, v2, v1)

	v, ok := c.Version("m1")
	require.True(t, ok)
	assert.Equal(t, v2, v)

	c.Invalidate("m1")
	_, ok = c.Version("m1")
	assert.False(t, ok)
	assert.Greater(t, c.Offer(member("m1", 12)), v2)
}

func TestLoadLosesAgainstConcurrentOffer(t *testing.T) {
	c := New(0)
	_, err := c.LookupOrLoad("m1", func() (*record.Record, error) {
		c.Offer(member("m1", 20))
		return member("m1", 10), nil
	})
	require.NoError(t, err)

	got, ok := c.Lookup("m1")
	require.True(t, ok)
	assert.Equal(t, int64(20), ageOf(t, got))
}

func TestLoadLosesAgainstConcurrentInvalidation(t *testing.T) {
	c := New(0)
	_, err := c.LookupOrLoad("m1", func() (*record.Record, error) {
		c.Invalidate("m1")
		return member("m1", 10), nil
	})
	require.NoError(t, err)
	_, ok := c.Lookup("m1")
	assert.False(t, ok)

	_, err = c.LookupOrLoad("m2", func() (*record.Record, error) {
		c.InvalidateAll()
		return member("m2", 10), nil
	})
	require.NoError(t, err)
	assert.Zero(t, c.Len())
}

func TestBoundedCacheEvicts(t *testing.T) {
	c := New(2)
	for i := 0; i < 5; i++ {
		c.Offer(member(fmt.Sprintf("m%d", i), i))
	}
	assert.Equal(t, 2, c.Len())
	_, ok := c.Lookup("m4")
	assert.True(t, ok)
	_, ok = c.Lookup("m0")
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(16)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := fmt.Sprintf("m%d", i%10)
				switch (g + i) % 3 {
				case 0:
					c.Offer(member(id, i))
				case 1:
					_, _ = c.LookupOrLoad(id, func() (*record.Record, error) { return member(id, i), nil })
				default:
					c.Invalidate(id)
				}
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 10)
}
