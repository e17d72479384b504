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
	"fmt"
	"strings"

	"github.com/tomoncle/keel/database"
	"github.com/tomoncle/keel/predicate"
	"github.com/tomoncle/keel/schema"
	"github.com/tomoncle/keel/store"
	"github.com/tomoncle/keel/types"
)

type baseRepositoryImpl[T any] struct {
	store    store.Store[T]
	registry *schema.Registry
	schema   *schema.EntitySchema
	opts     Options
	logger   database.Logger
}

// NewRepository returns a repository over st. Schemas and related paths
// are taken from registry. A nil opts means DefaultOptions.
func NewRepository[T any](st store.Store[T], registry *schema.Registry, opts *Options) (Repository[T], error) {
	s, err := schema.SchemaFor[T](registry)
	if err != nil {
		return nil, err
	}
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}
	o = o.withDefaults()
	return &baseRepositoryImpl[T]{store: st, registry: registry, schema: s, opts: o, logger: o.Logger}, nil
}

func (r *baseRepositoryImpl[T]) Schema() *schema.EntitySchema { return r.schema }

func (r *baseRepositoryImpl[T]) name() string { return r.schema.Type.Name() }

func (r *baseRepositoryImpl[T]) ResolveIncludes(requested ...string) ([]string, error) {
	paths, err := r.registry.ResolveIncludes(r.schema.Type, requested, r.opts.RelatedPathsMaxDepth)
	if err != nil {
		return nil, err
	}
	if len(requested) > 0 {
		r.logger.Debug("Resolved include paths", "entity", r.name(), "requested", requested, "paths", paths)
	}
	return paths, nil
}

func (r *baseRepositoryImpl[T]) GetByID(ctx context.Context, id any, includes ...string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled("get", err)
	}
	paths, err := r.ResolveIncludes(includes...)
	if err != nil {
		return nil, err
	}
	rows, err := r.store.Find(ctx, store.Query{
		Includes: paths,
		Filter:   predicate.ForID(r.schema, id),
		Take:     1,
	})
	if err != nil {
		return nil, wrap(ctx, "get", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s %v", ErrNotFound, r.name(), id)
	}
	return rows[0], nil
}

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context, includes ...string) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled("list", err)
	}
	paths, err := r.ResolveIncludes(includes...)
	if err != nil {
		return nil, err
	}
	rows, err := r.store.Find(ctx, store.Query{Includes: paths})
	if err != nil {
		return nil, wrap(ctx, "list", err)
	}
	return rows, nil
}

// Page counts the entities matching the request's search term, computes the
// pager and loads the requested page.
func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled("page", err)
	}
	req := types.NewDefaultPageRequest(1, 0)
	if pageRequest != nil {
		*req = *pageRequest
	}
	pageRequest = req.WithDefaultPageSize(r.opts.DefaultPageSize)

	paths, err := r.ResolveIncludes(pageRequest.GetIncludes()...)
	if err != nil {
		return nil, err
	}

	var filter predicate.Predicate
	if pageRequest.HasSearch() {
		filter, err = predicate.ForSearch(r.schema, strings.TrimSpace(pageRequest.GetSearch()))
		if err != nil {
			return nil, err
		}
		r.logger.Debug("Synthesized search filter", "entity", r.name(), "filter", filter.String())
	}

	total, err := r.store.Count(ctx, filter)
	if err != nil {
		return nil, wrap(ctx, "page", err)
	}
	pager := types.NewPager(total, pageRequest.GetPage(), pageRequest.GetPageSize())
	if total == 0 {
		return types.NewPagination[T](pager, nil), nil
	}

	items, err := r.store.Find(ctx, store.Query{
		Includes: paths,
		Filter:   filter,
		Skip:     pager.Offset(),
		Take:     pager.PageSize,
	})
	if err != nil {
		return nil, wrap(ctx, "page", err)
	}
	return types.NewPagination(pager, items), nil
}

func (r *baseRepositoryImpl[T]) Insert(ctx context.Context, entity ...*T) error {
	if err := ctx.Err(); err != nil {
		return cancelled("insert", err)
	}
	return r.write(ctx, "insert", store.Changes(store.OpAdd, entity...))
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity *T) error {
	if err := ctx.Err(); err != nil {
		return cancelled("update", err)
	}
	return r.write(ctx, "update", store.Changes(store.OpUpdate, entity))
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, entity *T) error {
	if err := ctx.Err(); err != nil {
		return cancelled("delete", err)
	}
	return r.write(ctx, "delete", store.Changes(store.OpRemove, entity))
}

func (r *baseRepositoryImpl[T]) DeleteByID(ctx context.Context, id any) error {
	entity, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return r.Delete(ctx, entity)
}

// Exists walks the entities in key order and stops at the first match.
func (r *baseRepositoryImpl[T]) Exists(ctx context.Context, id any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, cancelled("exists", err)
	}
	match := predicate.ForID(r.schema, id)
	found := false
	err := r.store.Each(ctx, func(entity *T) bool {
		found = predicate.Match(match, entity)
		return !found
	})
	if err != nil {
		return false, wrap(ctx, "exists", err)
	}
	return found, nil
}

func (r *baseRepositoryImpl[T]) Save(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return cancelled("save", err)
	}
	if err := r.store.Commit(ctx); err != nil {
		return wrap(ctx, "save", err)
	}
	return nil
}

// write commits changes on their own under SavePerOperation, so concurrent
// callers never commit each other's work. Otherwise the changes join the
// store's queue until Save.
func (r *baseRepositoryImpl[T]) write(ctx context.Context, op string, changes []store.Change[T]) error {
	if r.opts.SaveStrategy == SavePerOperation {
		if err := r.store.Apply(ctx, changes...); err != nil {
			r.logger.Warn("Commit failed", "entity", r.name(), "op", op, "error", err)
			return wrap(ctx, op, err)
		}
		return nil
	}
	for _, c := range changes {
		var err error
		switch c.Op {
		case store.OpAdd:
			err = r.store.Add(ctx, c.Entity)
		case store.OpUpdate:
			err = r.store.Update(ctx, c.Entity)
		default:
			err = r.store.Remove(ctx, c.Entity)
		}
		if err != nil {
			return wrap(ctx, op, err)
		}
	}
	return nil
}
