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
	"fmt"

	"github.com/tomoncle/keel/predicate"
)

// Query selects entities of one type. Includes are dotted related paths to
// load along with each entity. A nil Filter selects everything. Take <= 0
// means no limit.
type Query struct {
	Includes []string
	Filter   predicate.Predicate
	Skip     int
	Take     int
}

// Store is the entity store behind a repository. Reads see committed data
// only; Add, Update and Remove queue changes that Commit applies as one
// atomic batch. A batch that fails to commit is discarded. Apply runs a
// caller-owned batch directly and leaves the queue alone.
type Store[T any] interface {
	Find(ctx context.Context, q Query) ([]*T, error)
	Count(ctx context.Context, filter predicate.Predicate) (int, error)
	// Each calls fn for every entity in primary key order until fn returns
	// false.
	Each(ctx context.Context, fn func(*T) bool) error

	Add(ctx context.Context, entity *T) error
	Update(ctx context.Context, entity *T) error
	Remove(ctx context.Context, entity *T) error
	Commit(ctx context.Context) error
	Apply(ctx context.Context, changes ...Change[T]) error
	// Pending reports the number of queued changes.
	Pending() int
}

// Op is the kind of write a Change performs.
type Op int

const (
	OpAdd Op = iota
	OpUpdate
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "insert"
	case OpUpdate:
		return "update"
	default:
		return "delete"
	}
}

// Change is one write in a batch.
type Change[T any] struct {
	Op     Op
	Entity *T
}

// Changes builds a batch applying o to every entity.
func Changes[T any](o Op, entities ...*T) []Change[T] {
	out := make([]Change[T], len(entities))
	for i, e := range entities {
		out[i] = Change[T]{Op: o, Entity: e}
	}
	return out
}

func checkChanges[T any](changes []Change[T]) error {
	for _, c := range changes {
		if c.Entity == nil {
			return fmt.Errorf("store: %s of nil entity", c.Op)
		}
	}
	return nil
}

// window applies skip and take to an already materialised slice.
func window[T any](rows []*T, skip, take int) []*T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(rows) {
		return []*T{}
	}
	rows = rows[skip:]
	if take > 0 && take < len(rows) {
		rows = rows[:take]
	}
	return rows
}
