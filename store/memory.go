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
	"fmt"
	"reflect"
	"sync"

	"github.com/tomoncle/keel/predicate"
	"github.com/tomoncle/keel/schema"
)

// MemoryStore keeps committed entities in insertion order. Entities are
// shallow-copied on the way in and out: top-level fields are the store's
// own, while pointer, slice and map fields still reference the caller's
// values. Includes are ignored: related values are stored as part of the
// entity graph.
type MemoryStore[T any] struct {
	schema *schema.EntitySchema

	mu      sync.RWMutex
	rows    []*T
	nextID  int64
	pending []Change[T]
}

// NewMemoryStore returns a store for entities described by s, seeded with
// rows as if they had been committed.
func NewMemoryStore[T any](s *schema.EntitySchema, rows ...*T) *MemoryStore[T] {
	m := &MemoryStore[T]{schema: s}
	for _, r := range rows {
		m.rows = append(m.rows, clone(r))
		m.observeKey(r)
	}
	return m
}

var _ Store[struct{}] = (*MemoryStore[struct{}])(nil)

func (m *MemoryStore[T]) Find(ctx context.Context, q Query) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*T
	for _, r := range m.rows {
		if predicate.Match(q.Filter, r) {
			matched = append(matched, r)
		}
	}
	page := window(matched, q.Skip, q.Take)
	out := make([]*T, len(page))
	for i, r := range page {
		out[i] = clone(r)
	}
	return out, nil
}

func (m *MemoryStore[T]) Count(ctx context.Context, filter predicate.Predicate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, r := range m.rows {
		if predicate.Match(filter, r) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore[T]) Each(ctx context.Context, fn func(*T) bool) error {
	m.mu.RLock()
	snapshot := make([]*T, len(m.rows))
	copy(snapshot, m.rows)
	m.mu.RUnlock()

	for _, r := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(clone(r)) {
			return nil
		}
	}
	return nil
}

func (m *MemoryStore[T]) Add(ctx context.Context, entity *T) error {
	return m.queue(ctx, OpAdd, entity)
}

func (m *MemoryStore[T]) Update(ctx context.Context, entity *T) error {
	return m.queue(ctx, OpUpdate, entity)
}

func (m *MemoryStore[T]) Remove(ctx context.Context, entity *T) error {
	return m.queue(ctx, OpRemove, entity)
}

func (m *MemoryStore[T]) queue(ctx context.Context, o Op, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entity == nil {
		return fmt.Errorf("store: %s of nil entity", o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, Change[T]{Op: o, Entity: entity})
	return nil
}

func (m *MemoryStore[T]) Pending() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pending)
}

// Commit drains the queue and applies it like Apply.
func (m *MemoryStore[T]) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	pending := m.pending
	m.pending = nil
	return m.apply(pending)
}

// Apply applies changes in order to a copy of the committed rows and swaps
// it in only when every change succeeded.
func (m *MemoryStore[T]) Apply(ctx context.Context, changes ...Change[T]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkChanges(changes); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apply(changes)
}

// apply must be called with mu held.
func (m *MemoryStore[T]) apply(changes []Change[T]) error {
	rows := make([]*T, len(m.rows))
	copy(rows, m.rows)
	nextID := m.nextID
	var assigned []func()

	for _, c := range changes {
		key := m.key(c.Entity)
		at := m.indexOf(rows, key)
		switch c.Op {
		case OpAdd:
			if isZero(key) {
				if next, ok := m.assignKey(nextID + 1); ok {
					nextID++
					e := c.Entity
					assigned = append(assigned, func() { next(e) })
					row := clone(e)
					next(row)
					rows = append(rows, row)
					continue
				}
			}
			if at >= 0 {
				return fmt.Errorf("store: duplicate key value %v for %s", key.Interface(), m.schema.Type.Name())
			}
			rows = append(rows, clone(c.Entity))
			if k := m.intKey(key); k > nextID {
				nextID = k
			}
		case OpUpdate:
			if at < 0 {
				return fmt.Errorf("store: update %s %v: %w", m.schema.Type.Name(), key.Interface(), sql.ErrNoRows)
			}
			rows[at] = clone(c.Entity)
		case OpRemove:
			if at < 0 {
				return fmt.Errorf("store: delete %s %v: %w", m.schema.Type.Name(), key.Interface(), sql.ErrNoRows)
			}
			rows = append(rows[:at:at], rows[at+1:]...)
		}
	}

	for _, fn := range assigned {
		fn()
	}
	m.rows = rows
	m.nextID = nextID
	return nil
}

func (m *MemoryStore[T]) key(entity *T) reflect.Value {
	v, ok := m.schema.PrimaryKey().Value(reflect.ValueOf(entity))
	if !ok {
		return reflect.Value{}
	}
	return v
}

func (m *MemoryStore[T]) indexOf(rows []*T, key reflect.Value) int {
	if !key.IsValid() {
		return -1
	}
	match := predicate.ForID(m.schema, key.Interface())
	for i, r := range rows {
		if predicate.Match(match, r) {
			return i
		}
	}
	return -1
}

// assignKey returns a setter for integer primary keys.
func (m *MemoryStore[T]) assignKey(id int64) (func(*T), bool) {
	pk := m.schema.PrimaryKey()
	if !pk.Type.ConvertibleTo(reflect.TypeOf(id)) {
		return nil, false
	}
	switch pk.Type.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return nil, false
	}
	return func(e *T) {
		f, err := reflect.ValueOf(e).Elem().FieldByIndexErr(pk.Index)
		if err == nil && f.CanSet() {
			f.Set(reflect.ValueOf(id).Convert(pk.Type))
		}
	}, true
}

func (m *MemoryStore[T]) observeKey(entity *T) {
	if k := m.intKey(m.key(entity)); k > m.nextID {
		m.nextID = k
	}
}

func (m *MemoryStore[T]) intKey(key reflect.Value) int64 {
	switch {
	case !key.IsValid():
		return 0
	case key.CanInt():
		return key.Int()
	case key.CanUint():
		return int64(key.Uint())
	}
	return 0
}

func isZero(v reflect.Value) bool {
	return !v.IsValid() || v.IsZero()
}

// clone copies the top-level struct only.
func clone[T any](e *T) *T {
	c := *e
	return &c
}
