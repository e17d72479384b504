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

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/tomoncle/keel/predicate"
	"github.com/tomoncle/keel/schema"
)

// BunStore reads and writes entities of type T through Bun. T must be a Bun
// model registered with the database; related paths map onto Bun relations.
type BunStore[T any] struct {
	db      *bun.DB
	schema  *schema.EntitySchema
	columns map[string]string
	pk      string

	mu      sync.Mutex
	pending []Change[T]
}

var _ Store[struct{}] = (*BunStore[struct{}])(nil)

// NewBunStore returns a store over db for entities described by s.
func NewBunStore[T any](db *bun.DB, s *schema.EntitySchema) *BunStore[T] {
	table := db.Table(reflect.TypeFor[T]())
	columns := make(map[string]string, len(table.Fields))
	for _, f := range table.Fields {
		columns[f.GoName] = f.Name
	}
	pk := columns[s.PrimaryKey().Name]
	if len(table.PKs) > 0 {
		pk = table.PKs[0].Name
	}
	return &BunStore[T]{db: db, schema: s, columns: columns, pk: pk}
}

// ordered sorts by primary key so that paging is stable.
func (s *BunStore[T]) ordered(q *bun.SelectQuery) *bun.SelectQuery {
	if s.pk == "" {
		return q
	}
	return q.OrderExpr("?TableAlias.? ASC", bun.Ident(s.pk))
}

func (s *BunStore[T]) Find(ctx context.Context, q Query) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := make([]*T, 0)
	sel := s.ordered(s.db.NewSelect().Model(&rows))
	for _, path := range q.Includes {
		sel = sel.Relation(path)
	}
	sel, err := s.where(sel, q.Filter)
	if err != nil {
		return nil, err
	}

	// OFFSET without LIMIT is not portable; slice such windows here.
	if q.Take > 0 {
		sel = sel.Offset(max(q.Skip, 0)).Limit(q.Take)
	}
	if err := sel.Scan(ctx); err != nil {
		return nil, err
	}
	if q.Take <= 0 {
		rows = window(rows, q.Skip, 0)
	}
	return rows, nil
}

func (s *BunStore[T]) Count(ctx context.Context, filter predicate.Predicate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sel, err := s.where(s.db.NewSelect().Model((*T)(nil)), filter)
	if err != nil {
		return 0, err
	}
	return sel.Count(ctx)
}

func (s *BunStore[T]) Each(ctx context.Context, fn func(*T) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows, err := s.ordered(s.db.NewSelect().Model((*T)(nil))).Rows(ctx)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		entity := new(T)
		if err := s.db.ScanRow(ctx, rows, entity); err != nil {
			return err
		}
		if !fn(entity) {
			return nil
		}
	}
	return rows.Err()
}

func (s *BunStore[T]) Add(ctx context.Context, entity *T) error {
	return s.queue(ctx, OpAdd, entity)
}

func (s *BunStore[T]) Update(ctx context.Context, entity *T) error {
	return s.queue(ctx, OpUpdate, entity)
}

func (s *BunStore[T]) Remove(ctx context.Context, entity *T) error {
	return s.queue(ctx, OpRemove, entity)
}

func (s *BunStore[T]) queue(ctx context.Context, o Op, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entity == nil {
		return fmt.Errorf("store: %s of nil entity", o)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, Change[T]{Op: o, Entity: entity})
	return nil
}

func (s *BunStore[T]) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Commit drains the queue and runs it like Apply.
func (s *BunStore[T]) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	return s.Apply(ctx, pending...)
}

// Apply runs changes in one transaction of their own. Updates and deletes
// that match no row fail the batch with sql.ErrNoRows.
func (s *BunStore[T]) Apply(ctx context.Context, changes ...Change[T]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkChanges(changes); err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, c := range changes {
			if err := s.apply(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BunStore[T]) apply(ctx context.Context, tx bun.Tx, c Change[T]) error {
	var (
		res sql.Result
		err error
	)
	switch c.Op {
	case OpAdd:
		_, err = tx.NewInsert().Model(c.Entity).Exec(ctx)
		return err
	case OpUpdate:
		res, err = tx.NewUpdate().Model(c.Entity).WherePK().Exec(ctx)
	case OpRemove:
		res, err = tx.NewDelete().Model(c.Entity).WherePK().Exec(ctx)
	}
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("store: %s %s: %w", c.Op, s.schema.Type.Name(), sql.ErrNoRows)
	}
	return nil
}

// where adds filter to q as one parenthesised group of OR-ed conditions.
func (s *BunStore[T]) where(q *bun.SelectQuery, filter predicate.Predicate) (*bun.SelectQuery, error) {
	terms := predicate.Terms(filter)
	if len(terms) == 0 {
		return q, nil
	}
	conds := make([]condition, 0, len(terms))
	for _, term := range terms {
		c, err := s.condition(term)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, c := range conds {
			q = q.WhereOr(c.query, c.args...)
		}
		return q
	}), nil
}

type condition struct {
	query string
	args  []interface{}
}

func (s *BunStore[T]) condition(p predicate.Predicate) (condition, error) {
	switch t := p.(type) {
	case *predicate.Equal:
		col, err := s.column(t.Property)
		if err != nil {
			return condition{}, err
		}
		return condition{"?TableAlias.? = ?", []interface{}{bun.Ident(col), t.Value}}, nil
	case *predicate.Contains:
		col, err := s.column(t.Property)
		if err != nil {
			return condition{}, err
		}
		return condition{s.contains("?TableAlias.?"), []interface{}{bun.Ident(col), t.Substring}}, nil
	case *predicate.FormatContains:
		col, err := s.column(t.Property)
		if err != nil {
			return condition{}, err
		}
		return condition{s.contains(s.asText("?TableAlias.?")), []interface{}{bun.Ident(col), t.Substring}}, nil
	}
	return condition{}, fmt.Errorf("store: predicate %T has no SQL form", p)
}

func (s *BunStore[T]) column(p schema.Property) (string, error) {
	col, ok := s.columns[p.Name]
	if !ok {
		return "", fmt.Errorf("store: %s.%s is not a column", s.schema.Type.Name(), p.Name)
	}
	return col, nil
}

// contains is a case-sensitive substring test of expr against the next
// placeholder.
func (s *BunStore[T]) contains(expr string) string {
	switch s.db.Dialect().Name() {
	case dialect.PG:
		return "STRPOS(" + expr + ", ?) > 0"
	case dialect.MySQL:
		return "INSTR(BINARY " + expr + ", ?) > 0"
	default:
		return "INSTR(" + expr + ", ?) > 0"
	}
}

func (s *BunStore[T]) asText(expr string) string {
	if s.db.Dialect().Name() == dialect.MySQL {
		return "CAST(" + expr + " AS CHAR)"
	}
	return "CAST(" + expr + " AS TEXT)"
}
