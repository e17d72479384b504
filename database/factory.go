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

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// BaseDatabaseFactory builds a database manager from a Config, connects it
// and prepares the tables of the registered models.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	config  *Config
	models  ModelRegistry
	logger  Logger
}

// NewDatabaseFactory returns a factory bound to the default model registry
// and the global logger.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{models: defaultRegistry, logger: GetLogger()}
}

// WithModels replaces the registry whose models Initialize creates tables for.
func (f *BaseDatabaseFactory) WithModels(models ModelRegistry) *BaseDatabaseFactory {
	if models != nil {
		f.models = models
	}
	return f
}

// CreateFromConfig validates cfg and constructs its database manager.
// Environment overrides are applied by LoadConfig, not here.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *Config) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	connection := cfg.Connection
	manager := NewDatabaseManager(&connection)
	manager.SetLogger(f.logger)

	f.config = cfg
	f.manager = manager
	return manager, nil
}

// Initialize connects the manager and, when the repository config asks for
// it, creates the tables of every registered model.
func (f *BaseDatabaseFactory) Initialize(ctx context.Context) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if f.config.Repository.AutoCreateTables {
		if err := f.manager.CreateTables(ctx, f.models.Instances()...); err != nil {
			return err
		}
	}
	f.logger.Info("Database initialization completed!")
	return nil
}

// Open is CreateFromConfig followed by Initialize.
func Open(ctx context.Context, cfg *Config) (AbstractDatabaseManager, error) {
	f := NewDatabaseFactory()
	manager, err := f.CreateFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := f.Initialize(ctx); err != nil {
		return nil, err
	}
	return manager, nil
}

// GetManager returns the underlying database manager.
func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDB returns the Bun database instance, or nil if not initialized.
func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

// SetLogger sets the logger on the factory and the underlying manager.
func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			LastError:     "Database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}
