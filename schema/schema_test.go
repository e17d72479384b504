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
	"database/sql"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type Country struct {
	ID   int64
	Name string
}

type Author struct {
	ID      int64
	Name    string
	Country *Country `repo:"related"`
	Books   []*Book  `repo:"related"`
}

type Book struct {
	ID       int64
	Title    string
	Pages    int
	Price    float64
	Released time.Time
	Author   *Author  `repo:"related"`
	Reviews  []Review `repo:"related"`
}

type Review struct {
	ID     int64
	Body   string
	Book   *Book   `repo:"related"`
	Author *Author `repo:"related"`
}

type Employee struct {
	ID      int
	Manager *Employee `repo:"related"`
}

type Colleague struct {
	ID    int
	Buddy *Colleague `repo:"related,ignorecycle"`
}

type Team struct {
	ID   int
	Lead *Person `repo:"related,ignorecycle"`
}

type Person struct {
	ID   int
	Team *Team `repo:"related"`
}

type Audit struct {
	CreatedBy string
}

type Widget struct {
	bun.BaseModel `bun:"table:widgets,alias:w"`
	Audit

	Code      string     `bun:"code"`
	ID        int64      `bun:"id,pk,autoincrement"`
	Label     *string    `bun:"label"`
	Small     int8       `bun:"small"`
	Medium    int16      `bun:"medium"`
	Count     int        `bun:"count"`
	Flags     uint8      `bun:"flags"`
	Big       int64      `bun:"big"`
	Weight    float32    `bun:"weight"`
	Price     *float64   `bun:"price"`
	CreatedAt time.Time  `bun:"created_at"`
	DeletedAt *time.Time `bun:"deleted_at"`
	Note      sql.NullString
	Blob      []byte
	Parts     []Part   `bun:"rel:has-many" repo:"related"`
	Owner     *Country `repo:"related"`
	Ignored   string   `repo:"-"`
	Skipped   string   `bun:"-"`
	hidden    string
}

type Part struct {
	ID   int
	Name string
}

type BadRelated struct {
	ID   int
	Name string `repo:"related"`
}

func TestSchemaOfCategories(t *testing.T) {
	r := NewRegistry()
	s, err := SchemaFor[Widget](r)
	require.NoError(t, err)

	var names []string
	for _, p := range s.Properties {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{
		"CreatedBy", "Code", "ID", "Label", "Small", "Medium", "Count", "Flags", "Big",
		"Weight", "Price", "CreatedAt", "DeletedAt", "Note", "Blob", "Parts", "Owner",
	}, names)

	want := map[string]Category{
		"CreatedBy": CategoryString,
		"Code":      CategoryString,
		"ID":        CategoryKey,
		"Label":     CategoryString,
		"Small":     CategoryInteger,
		"Medium":    CategoryInteger,
		"Count":     CategoryInteger,
		"Flags":     CategoryInteger,
		"Big":       CategoryKey,
		"Weight":    CategoryDecimal,
		"Price":     CategoryDecimal,
		"CreatedAt": CategoryDateTime,
		"DeletedAt": CategoryDateTime,
		"Note":      CategoryKey,
		"Blob":      CategoryKey,
		"Parts":     CategoryCollection,
		"Owner":     CategoryEntity,
	}
	for name, category := range want {
		p, ok := s.Property(name)
		require.True(t, ok, name)
		assert.Equal(t, category, p.Category, name)
	}

	label, _ := s.Property("Label")
	assert.True(t, label.Nullable)
	assert.Equal(t, "label", label.Column)

	parts, _ := s.Property("Parts")
	assert.True(t, parts.Loadable)
	assert.Equal(t, reflect.TypeOf(Part{}), parts.Target)

	owner, _ := s.Property("Owner")
	assert.Equal(t, reflect.TypeOf(Country{}), owner.Target)

	assert.Equal(t, "ID", s.PrimaryKey().Name, "bun pk option wins over declaration order")
	assert.Len(t, s.Related(), 2)
	assert.Len(t, s.Filter(CategoryInteger), 4)
}

func TestSchemaOfImplicitPrimaryKey(t *testing.T) {
	s, err := SchemaFor[Book](NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, "ID", s.PrimaryKey().Name)

	type keyed struct {
		Name string
		Code string `repo:"pk"`
	}
	s, err = SchemaFor[keyed](NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, "Code", s.PrimaryKey().Name)
}

func TestSchemaOfRejectsInvalidTypes(t *testing.T) {
	r := NewRegistry()

	_, err := r.SchemaOf(reflect.TypeOf(42))
	assert.Error(t, err)

	_, err = SchemaFor[BadRelated](r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BadRelated.Name")

	type empty struct{ hidden int }
	_, err = SchemaFor[empty](r)
	assert.Error(t, err)
	assert.Equal(t, 0, r.Len())
}

func TestSchemaOfIsCached(t *testing.T) {
	r := NewRegistry()
	first, err := SchemaFor[Book](r)
	require.NoError(t, err)
	second, err := r.SchemaOf(reflect.TypeOf(&Book{}))
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, r.Len())
}

func TestSchemaOfConcurrentFirstUse(t *testing.T) {
	r := NewRegistry()
	const workers = 32
	results := make([]*EntitySchema, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := SchemaFor[Author](r)
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}
	wg.Wait()

	for _, s := range results {
		assert.Same(t, results[0], s)
	}
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Author{}, &Book{}, Country{}))
	assert.Equal(t, 3, r.Len())
	assert.Error(t, r.Register(BadRelated{}))
}

func TestPropertyValue(t *testing.T) {
	s, err := SchemaFor[Widget](NewRegistry())
	require.NoError(t, err)

	w := &Widget{Code: "x-1", Audit: Audit{CreatedBy: "ops"}}
	code, _ := s.Property("Code")
	v, ok := code.Value(reflect.ValueOf(w))
	require.True(t, ok)
	assert.Equal(t, "x-1", v.String())

	createdBy, _ := s.Property("CreatedBy")
	v, ok = createdBy.Value(reflect.ValueOf(*w))
	require.True(t, ok)
	assert.Equal(t, "ops", v.String())

	_, ok = code.Value(reflect.ValueOf((*Widget)(nil)))
	assert.False(t, ok)
}

func TestRelatedPaths(t *testing.T) {
	r := NewRegistry()

	paths, err := r.RelatedPaths(reflect.TypeOf(Author{}), DefaultMaxDepth)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Country",
		"Books",
		"Books.Reviews",
		"Books.Reviews.Author",
		"Books.Reviews.Author.Country",
		"Books.Reviews.Author.Books",
	}, paths)

	paths, err = r.RelatedPaths(reflect.TypeOf(Author{}), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Country", "Books"}, paths, "depth is part of the cache key")

	paths, err = r.RelatedPaths(reflect.TypeOf(&Country{}), DefaultMaxDepth)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestRelatedPathsIdempotent(t *testing.T) {
	r := NewRegistry()
	first, err := r.RelatedPaths(reflect.TypeOf(Book{}), 2)
	require.NoError(t, err)
	first[0] = "mutated"

	second, err := r.RelatedPaths(reflect.TypeOf(Book{}), 2)
	require.NoError(t, err)
	third, err := NewRegistry().RelatedPaths(reflect.TypeOf(Book{}), 2)
	require.NoError(t, err)
	assert.Equal(t, third, second)
	assert.NotContains(t, second, "mutated")
}

func TestRelatedPathsCycles(t *testing.T) {
	r := NewRegistry()

	paths, err := r.RelatedPaths(reflect.TypeOf(Employee{}), DefaultMaxDepth)
	require.NoError(t, err)
	assert.Equal(t, []string{"Manager"}, paths)

	paths, err = r.RelatedPaths(reflect.TypeOf(Colleague{}), DefaultMaxDepth)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Buddy",
		"Buddy.Buddy",
		"Buddy.Buddy.Buddy",
		"Buddy.Buddy.Buddy.Buddy",
	}, paths)

	paths, err = r.RelatedPaths(reflect.TypeOf(Team{}), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lead", "Lead.Team", "Lead.Team.Lead"}, paths,
		"ignorecycle on Lead is inherited by Person.Team below it")

	paths, err = r.RelatedPaths(reflect.TypeOf(Person{}), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Team", "Team.Lead", "Team.Lead.Team"}, paths)
}

// TestRelatedPathsNeverCloseCycles replays every path step by step and checks
// that a step back to the immediate parent type only happens under an
// ignorecycle flag on that step or above it.
func TestRelatedPathsNeverCloseCycles(t *testing.T) {
	r := NewRegistry()
	roots := []any{Author{}, Book{}, Review{}, Employee{}, Colleague{}, Team{}, Person{}, Widget{}}
	for _, root := range roots {
		for depth := 0; depth <= 4; depth++ {
			rootType := reflect.TypeOf(root)
			paths, err := r.RelatedPaths(rootType, depth)
			require.NoError(t, err)

			for _, path := range paths {
				steps := strings.Split(path, ".")
				assert.LessOrEqual(t, len(steps), depth+1, path)

				var parent reflect.Type
				owner := rootType
				ignored := false
				for _, step := range steps {
					s, err := r.SchemaOf(owner)
					require.NoError(t, err)
					p, ok := s.Property(step)
					require.True(t, ok, path)
					require.True(t, p.Loadable, path)
					ignored = ignored || p.IgnoreCycle
					if p.Target == parent {
						assert.True(t, ignored, "%s closes a cycle at %s", path, step)
					}
					parent, owner = owner, p.Target
				}
			}
		}
	}
}

func TestResolveIncludes(t *testing.T) {
	r := NewRegistry()
	author := reflect.TypeOf(Author{})

	got, err := r.ResolveIncludes(author, nil, DefaultMaxDepth)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = r.ResolveIncludes(author, []string{IncludeAll}, DefaultMaxDepth)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"Country",
		"Books.Reviews.Author.Country",
		"Books.Reviews.Author.Books",
	}, got)

	got, err = r.ResolveIncludes(author, []string{"Books", "Books.Reviews", "Publisher"}, DefaultMaxDepth)
	require.NoError(t, err)
	assert.Equal(t, []string{"Books.Reviews"}, got)

	got, err = r.ResolveIncludes(author, []string{"Country", "Books"}, DefaultMaxDepth)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Country", "Books"}, got)

	got, err = r.ResolveIncludes(reflect.TypeOf(Country{}), []string{IncludeAll}, DefaultMaxDepth)
	require.NoError(t, err)
	assert.Empty(t, got, "all on a type without related properties loads nothing")

	_, err = r.ResolveIncludes(reflect.TypeOf(BadRelated{}), []string{IncludeAll}, DefaultMaxDepth)
	assert.Error(t, err)
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
		want  []string
	}{
		{"empty", nil, nil},
		{"descendant wins", []string{"A", "A.B"}, []string{"A.B"}},
		{"deep chain", []string{"A", "A.B", "A.B.C"}, []string{"A.B.C"}},
		{"siblings", []string{"A.B", "A.C", "A"}, []string{"A.B", "A.C"}},
		{"shared prefix is not ancestry", []string{"A", "AB"}, []string{"A", "AB"}},
		{"duplicates", []string{"A", "A"}, []string{"A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, Flatten(tt.paths))
		})
	}
}
