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
	"fmt"

	"github.com/uptrace/bun"

	"github.com/tomoncle/keel/database"
	"github.com/tomoncle/keel/repository"
	"github.com/tomoncle/keel/schema"
	"github.com/tomoncle/keel/store"
)

// DataLayer owns the database connection, the schema registry and the
// repository options shared by every repository created from it.
type DataLayer struct {
	manager  database.AbstractDatabaseManager
	registry *schema.Registry
	options  repository.Options
	logger   database.Logger
}

// Open connects to the database described by cfg and registers models
// (typed nil struct pointers) together with those registered through
// database.RegisterModel. Tables are created when
// cfg.Repository.AutoCreateTables is set, in registration order.
func Open(ctx context.Context, cfg *database.Config, models ...interface{}) (*DataLayer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	logger := database.GetLogger()

	registered := database.NewModelRegistry()
	for _, m := range database.GetRegisteredModels() {
		registered.Register(m)
	}
	for i, m := range models {
		registered.Register(database.NewModelAdapter(m, i))
	}
	instances := registered.Instances()

	registry := schema.NewRegistry()
	if err := registry.Register(instances...); err != nil {
		return nil, err
	}

	factory := database.NewDatabaseFactory().WithModels(registered)
	factory.SetLogger(logger)
	manager, err := factory.CreateFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := factory.Initialize(ctx); err != nil {
		return nil, err
	}
	manager.GetDB().RegisterModel(instances...)

	options := repository.OptionsFromConfig(cfg.Repository)
	options.Logger = logger
	logger.Info("Data layer ready", "models", len(instances), "save_strategy", options.SaveStrategy)
	return &DataLayer{manager: manager, registry: registry, options: options, logger: logger}, nil
}

func (d *DataLayer) DB() *bun.DB { return d.manager.GetDB() }

func (d *DataLayer) Manager() database.AbstractDatabaseManager { return d.manager }

func (d *DataLayer) Schemas() *schema.Registry { return d.registry }

func (d *DataLayer) Options() repository.Options { return d.options }

func (d *DataLayer) HealthCheck(ctx context.Context) *database.HealthStatus {
	return d.manager.HealthCheck(ctx)
}

func (d *DataLayer) Close() error {
	return d.manager.Disconnect()
}

// NewRepository returns a repository for T backed by its own Bun store, so
// pending changes are scoped to the repository.
func NewRepository[T any](d *DataLayer) (repository.Repository[T], error) {
	s, err := schema.SchemaFor[T](d.registry)
	if err != nil {
		return nil, err
	}
	options := d.options
	return repository.NewRepository[T](store.NewBunStore[T](d.DB(), s), d.registry, &options)
}
