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
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomoncle/keel/database"
	"github.com/tomoncle/keel/predicate"
)

func seedMemory(t *testing.T) *MemoryStore[Book] {
	t.Helper()
	return NewMemoryStore(schemaFor[Book](t),
		&Book{ID: 1, Title: "Go in Practice", Pages: 320, Price: 39.5, Released: day("2016-10-01")},
		&Book{ID: 2, Title: "Concurrency in Go", Pages: 238, Price: 29.99, Released: day("2017-07-01")},
		&Book{ID: 3, Title: "The Rust Book", Pages: 560, Price: 39.5, Released: day("2018-05-01")},
	)
}

func TestMemoryStoreFind(t *testing.T) {
	ctx := context.Background()
	m := seedMemory(t)

	all, err := m.Find(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Go in Practice", "Concurrency in Go", "The Rust Book"}, titles(all))

	page, err := m.Find(ctx, Query{Skip: 1, Take: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"Concurrency in Go"}, titles(page))

	tail, err := m.Find(ctx, Query{Skip: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"The Rust Book"}, titles(tail))

	beyond, err := m.Find(ctx, Query{Skip: 10, Take: 5})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestMemoryStoreFilter(t *testing.T) {
	ctx := context.Background()
	m := seedMemory(t)
	s := schemaFor[Book](t)

	cases := []struct {
		term string
		want []string
	}{
		{"Go", []string{"Go in Practice", "Concurrency in Go"}},
		{"go", nil},
		{"39.5", []string{"Go in Practice", "The Rust Book"}},
		{"23", []string{"Concurrency in Go"}},
		{"2017-07-01", []string{"Concurrency in Go"}},
	}
	for _, tc := range cases {
		t.Run(tc.term, func(t *testing.T) {
			filter, err := predicate.ForSearch(s, tc.term)
			require.NoError(t, err)

			rows, err := m.Find(ctx, Query{Filter: filter})
			require.NoError(t, err)
			assert.ElementsMatch(t, tc.want, titles(rows))

			n, err := m.Count(ctx, filter)
			require.NoError(t, err)
			assert.Equal(t, len(tc.want), n)
		})
	}
}

func TestMemoryStoreCommitAssignsKeys(t *testing.T) {
	ctx := context.Background()
	m := seedMemory(t)

	b := &Book{Title: "Learning Go"}
	require.NoError(t, m.Add(ctx, b))
	assert.Equal(t, 1, m.Pending())

	n, err := m.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "queued changes are invisible before commit")

	require.NoError(t, m.Commit(ctx))
	assert.Equal(t, int64(4), b.ID)
	assert.Zero(t, m.Pending())

	rows, err := m.Find(ctx, Query{Filter: predicate.ForID(schemaFor[Book](t), int64(4))})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Learning Go", rows[0].Title)
}

func TestMemoryStoreCopiesEntities(t *testing.T) {
	ctx := context.Background()
	m := seedMemory(t)

	rows, err := m.Find(ctx, Query{Take: 1})
	require.NoError(t, err)
	rows[0].Title = "changed"

	again, err := m.Find(ctx, Query{Take: 1})
	require.NoError(t, err)
	assert.Equal(t, "Go in Practice", again[0].Title)
}

func TestMemoryStoreSharesNestedValues(t *testing.T) {
	ctx := context.Background()
	author := &Author{ID: 1, Name: "Katherine Cox-Buday"}
	m := NewMemoryStore(schemaFor[Book](t), &Book{ID: 1, Title: "Concurrency in Go", Author: author})

	rows, err := m.Find(ctx, Query{})
	require.NoError(t, err)
	assert.NotSame(t, rows[0], m.rows[0])
	assert.Same(t, author, rows[0].Author, "clone copies the top-level struct only")
}

func TestMemoryStoreUpdateAndRemove(t *testing.T) {
	ctx := context.Background()
	m := seedMemory(t)

	require.NoError(t, m.Update(ctx, &Book{ID: 2, Title: "Concurrency in Go, 2nd"}))
	require.NoError(t, m.Remove(ctx, &Book{ID: 3}))
	require.NoError(t, m.Commit(ctx))

	rows, err := m.Find(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Go in Practice", "Concurrency in Go, 2nd"}, titles(rows))
}

func TestMemoryStoreFailedCommitDiscardsBatch(t *testing.T) {
	ctx := context.Background()
	m := seedMemory(t)

	require.NoError(t, m.Add(ctx, &Book{Title: "Never Stored"}))
	require.NoError(t, m.Update(ctx, &Book{ID: 99, Title: "Missing"}))

	err := m.Commit(ctx)
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.Zero(t, m.Pending())

	n, err := m.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMemoryStoreApplyLeavesQueue(t *testing.T) {
	ctx := context.Background()
	m := seedMemory(t)

	require.NoError(t, m.Add(ctx, &Book{ID: 1, Title: "Clash"}))
	added := &Book{Title: "Learning Go"}
	require.NoError(t, m.Apply(ctx, Changes(OpAdd, added)...))
	assert.Equal(t, int64(4), added.ID)
	assert.Equal(t, 1, m.Pending())

	err := m.Apply(ctx, Changes(OpUpdate, &Book{ID: 2, Title: "Renamed"}, &Book{ID: 99})...)
	require.ErrorIs(t, err, sql.ErrNoRows)
	rows, err := m.Find(ctx, Query{Filter: predicate.ForID(m.schema, int64(2))})
	require.NoError(t, err)
	assert.NotEqual(t, "Renamed", rows[0].Title, "a failed batch changes nothing")

	require.Error(t, m.Commit(ctx))
	assert.Zero(t, m.Pending())
}

func TestMemoryStoreDuplicateKey(t *testing.T) {
	ctx := context.Background()
	m := seedMemory(t)

	require.NoError(t, m.Add(ctx, &Book{ID: 1, Title: "Clash"}))
	err := m.Commit(ctx)
	require.Error(t, err)

	ok, kind := database.ClassifySQLError(err)
	assert.True(t, ok)
	assert.Equal(t, database.DuplicateKeyErr, kind)
}

func TestMemoryStoreEach(t *testing.T) {
	ctx := context.Background()
	m := seedMemory(t)

	var seen []int64
	require.NoError(t, m.Each(ctx, func(b *Book) bool {
		seen = append(seen, b.ID)
		return b.ID < 2
	}))
	assert.Equal(t, []int64{1, 2}, seen)
}

func TestMemoryStoreCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := seedMemory(t)

	_, err := m.Find(ctx, Query{})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = m.Count(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, m.Each(ctx, func(*Book) bool { return true }), context.Canceled)
	assert.ErrorIs(t, m.Add(ctx, &Book{}), context.Canceled)
	assert.ErrorIs(t, m.Commit(ctx), context.Canceled)
}
