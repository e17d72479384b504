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
	"github.com/tomoncle/keel/database"
	"github.com/tomoncle/keel/schema"
	"github.com/tomoncle/keel/types"
)

// SaveStrategy decides when queued changes reach the store.
type SaveStrategy string

const (
	// SavePerOperation commits every Insert, Update and Delete as its own
	// batch, independent of anything queued on the store.
	SavePerOperation SaveStrategy = database.SavePerOperation
	// SavePerUnitOfWork leaves commits to Save.
	SavePerUnitOfWork SaveStrategy = database.SavePerUnitOfWork
)

type Options struct {
	RelatedPathsMaxDepth int
	SaveStrategy         SaveStrategy
	DefaultPageSize      int
	Logger               database.Logger
}

func DefaultOptions() Options {
	return Options{
		RelatedPathsMaxDepth: schema.DefaultMaxDepth,
		SaveStrategy:         SavePerOperation,
		DefaultPageSize:      types.DefaultPageSize,
	}
}

// OptionsFromConfig maps the repository section of a database config.
func OptionsFromConfig(cfg database.RepositoryConfig) Options {
	return Options{
		RelatedPathsMaxDepth: cfg.RelatedPathsMaxDepth,
		SaveStrategy:         SaveStrategy(cfg.SaveStrategy),
		DefaultPageSize:      cfg.DefaultPageSize,
	}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.RelatedPathsMaxDepth < 0 {
		o.RelatedPathsMaxDepth = schema.DefaultMaxDepth
	}
	if o.SaveStrategy == "" {
		o.SaveStrategy = SavePerOperation
	}
	if o.DefaultPageSize < 1 {
		o.DefaultPageSize = types.DefaultPageSize
	}
	if o.Logger == nil {
		o.Logger = database.GetLogger()
	}
	return o
}
