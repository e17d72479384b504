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

	"github.com/tomoncle/keel/schema"
	"github.com/tomoncle/keel/types"
)

// CrudRepository defines the single-entity and list operations of a type.
// Every read accepts related paths to eager-load; schema.IncludeAll selects
// them all.
type CrudRepository[T any] interface {
	GetByID(ctx context.Context, id any, includes ...string) (*T, error)

	GetAll(ctx context.Context, includes ...string) ([]*T, error)

	Insert(ctx context.Context, entity ...*T) error

	Update(ctx context.Context, entity *T) error

	Delete(ctx context.Context, entity *T) error

	// DeleteByID loads the entity first and fails with ErrNotFound when it
	// does not exist.
	DeleteByID(ctx context.Context, id any) error

	// Exists scans all entities for a matching primary key.
	Exists(ctx context.Context, id any) (bool, error)

	// Save commits the pending changes of the underlying store.
	Save(ctx context.Context) error
}

// PageQueryRepository defines paged and searchable listing.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// Repository combines CRUD and paging and exposes the entity schema and
// include resolution it runs on.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
	Schema() *schema.EntitySchema
	ResolveIncludes(requested ...string) ([]string, error)
}
