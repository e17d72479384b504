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

package keel

import (
	"context"
	"sync"

	"github.com/tomoncle/keel/repository"
	"github.com/tomoncle/keel/types"
)

type Service[T any] interface {
	// Get returns a single entity by its identifier.
	Get(ctx context.Context, id any, includes ...string) (*T, error)

	// All returns all entities.
	All(ctx context.Context, includes ...string) ([]*T, error)

	// Page returns a paginated, optionally searched list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Create inserts one or more new entities.
	Create(ctx context.Context, model ...*T) error

	// Update modifies an existing entity.
	Update(ctx context.Context, model *T) error

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) error

	// Exists reports whether an entity with the identifier exists.
	Exists(ctx context.Context, id any) (bool, error)

	// Save commits pending changes when the data layer saves per unit of work.
	Save(ctx context.Context) error
}

type baseServiceImpl[T any] struct {
	dl   *DataLayer
	repo repository.Repository[T]
	err  error
	once sync.Once
}

// NewService returns a Service whose repository is created on first use.
func NewService[T any](dl *DataLayer) Service[T] {
	return &baseServiceImpl[T]{dl: dl}
}

func (s *baseServiceImpl[T]) baseRepo() (repository.Repository[T], error) {
	s.once.Do(func() { s.repo, s.err = NewRepository[T](s.dl) })
	return s.repo, s.err
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any, includes ...string) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.GetByID(ctx, id, includes...)
}

func (s *baseServiceImpl[T]) All(ctx context.Context, includes ...string) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.GetAll(ctx, includes...)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.Page(ctx, page)
}

func (s *baseServiceImpl[T]) Create(ctx context.Context, model ...*T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.Insert(ctx, model...)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.Update(ctx, model)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.DeleteByID(ctx, id)
}

func (s *baseServiceImpl[T]) Exists(ctx context.Context, id any) (bool, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return false, err
	}
	return repo.Exists(ctx, id)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.Save(ctx)
}
