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

package schema

import (
	"reflect"

	"github.com/puzpuzpuz/xsync/v3"
)

// DefaultMaxDepth bounds related-path discovery when no depth is configured.
const DefaultMaxDepth = 3

type pathKey struct {
	typ   reflect.Type
	depth int
}

// Registry owns the schema and related-path caches for the lifetime of a
// data layer. Entries are computed on first use and never invalidated; two
// goroutines racing on the same key may both compute it, the first stored
// value wins and is returned to both.
type Registry struct {
	schemas *xsync.MapOf[reflect.Type, *EntitySchema]
	paths   *xsync.MapOf[pathKey, []string]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		schemas: xsync.NewMapOf[reflect.Type, *EntitySchema](),
		paths:   xsync.NewMapOf[pathKey, []string](),
	}
}

// Register builds the schemas of the given models up front. Models are
// struct values or pointers to structs.
func (r *Registry) Register(models ...any) error {
	for _, m := range models {
		if _, err := r.SchemaOf(reflect.TypeOf(m)); err != nil {
			return err
		}
	}
	return nil
}

// SchemaOf returns the cached schema of t, building it on first use.
// Pointer types resolve to their element type.
func (r *Registry) SchemaOf(t reflect.Type) (*EntitySchema, error) {
	t = indirect(t)
	if s, ok := r.schemas.Load(t); ok {
		return s, nil
	}
	s, err := buildSchema(t)
	if err != nil {
		return nil, err
	}
	actual, _ := r.schemas.LoadOrStore(t, s)
	return actual, nil
}

// SchemaFor is the generic form of SchemaOf.
func SchemaFor[T any](r *Registry) (*EntitySchema, error) {
	return r.SchemaOf(reflect.TypeFor[T]())
}

// Len reports how many schemas are cached.
func (r *Registry) Len() int {
	return r.schemas.Size()
}
