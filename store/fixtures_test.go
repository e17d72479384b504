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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/tomoncle/keel/database"
	"github.com/tomoncle/keel/schema"
)

type Country struct {
	bun.BaseModel `bun:"table:countries"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull"`
}

type Author struct {
	bun.BaseModel `bun:"table:authors"`

	ID        int64    `bun:"id,pk,autoincrement"`
	Name      string   `bun:"name,notnull"`
	CountryID int64    `bun:"country_id"`
	Country   *Country `bun:"rel:belongs-to,join:country_id=id" repo:"related"`
	Books     []*Book  `bun:"rel:has-many,join:id=author_id" repo:"related"`
}

type Book struct {
	bun.BaseModel `bun:"table:books"`

	ID       int64     `bun:"id,pk,autoincrement"`
	Title    string    `bun:"title,notnull"`
	Pages    int32     `bun:"pages"`
	Price    float64   `bun:"price"`
	Released time.Time `bun:"released"`
	AuthorID int64     `bun:"author_id"`
	Author   *Author   `bun:"rel:belongs-to,join:author_id=id" repo:"related"`
}

var registry = schema.NewRegistry()

func schemaFor[T any](t *testing.T) *schema.EntitySchema {
	t.Helper()
	s, err := schema.SchemaFor[T](registry)
	require.NoError(t, err)
	return s
}

// openTestDB connects a private in-memory SQLite database through the
// database manager and creates the fixture tables.
func openTestDB(t *testing.T) *bun.DB {
	t.Helper()
	cfg := database.DefaultConnectionConfig()
	cfg.Type = database.TypeSQLite
	cfg.DBName = fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	cfg.MaxOpenConns = 1
	cfg.SlowQueryTime = 0

	manager := database.NewDatabaseManager(&cfg)
	ctx := context.Background()
	require.NoError(t, manager.Connect(ctx))
	t.Cleanup(func() { _ = manager.Disconnect() })

	require.NoError(t, manager.CreateTables(ctx, (*Country)(nil), (*Author)(nil), (*Book)(nil)))
	return manager.GetDB()
}

func day(s string) time.Time {
	tm, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return tm
}

func titles(books []*Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}
