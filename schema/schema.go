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
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Category classifies a property by the kind of value it holds.
type Category int

const (
	// CategoryKey covers scalars that are neither searchable nor navigable
	// (int64, bool, byte slices, UUIDs...). They can still act as primary key.
	CategoryKey Category = iota
	CategoryString
	CategoryInteger
	CategoryDecimal
	CategoryDateTime
	CategoryEntity
	CategoryCollection
)

func (c Category) String() string {
	switch c {
	case CategoryString:
		return "string"
	case CategoryInteger:
		return "integer"
	case CategoryDecimal:
		return "decimal"
	case CategoryDateTime:
		return "datetime"
	case CategoryEntity:
		return "entity"
	case CategoryCollection:
		return "collection"
	default:
		return "key"
	}
}

// Struct tag understood by the schema builder.
//
//	repo:"related"             eager-loadable navigation property
//	repo:"related,ignorecycle" eager-loadable, exempt from the parent cycle check
//	repo:"pk"                  primary key
//	repo:"-"                   not part of the schema
const (
	TagName         = "repo"
	tagRelated      = "related"
	tagIgnoreCycle  = "ignorecycle"
	tagPrimaryKey   = "pk"
	tagSkip         = "-"
	bunTagName      = "bun"
	bunPrimaryKeyOp = "pk"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	valuerType  = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

// Property describes one exported field of an entity.
type Property struct {
	Name        string
	Column      string
	Category    Category
	Nullable    bool
	Loadable    bool
	IgnoreCycle bool
	// Target is the entity type a navigation property points to; for
	// collections it is the element type. Nil for scalar properties.
	Target reflect.Type
	Type   reflect.Type
	Index  []int
}

// Value returns the field value of the property on v, which must be the
// entity struct or a pointer to it. ok is false when the field cannot be
// reached through a nil embedded pointer.
func (p Property) Value(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	f, err := v.FieldByIndexErr(p.Index)
	if err != nil {
		return reflect.Value{}, false
	}
	return f, true
}

// EntitySchema is the immutable, ordered property list of an entity type.
type EntitySchema struct {
	Type       reflect.Type
	Properties []Property
	pk         int
	byName     map[string]int
}

// PrimaryKey returns the explicitly tagged key property, or the first
// declared property when none is tagged.
func (s *EntitySchema) PrimaryKey() Property {
	return s.Properties[s.pk]
}

// Property looks a property up by its Go field name.
func (s *EntitySchema) Property(name string) (Property, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Property{}, false
	}
	return s.Properties[i], true
}

// Filter returns the properties of any of the given categories in
// declaration order.
func (s *EntitySchema) Filter(categories ...Category) []Property {
	var out []Property
	for _, p := range s.Properties {
		for _, c := range categories {
			if p.Category == c {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// Related returns the eager-loadable properties in declaration order.
func (s *EntitySchema) Related() []Property {
	var out []Property
	for _, p := range s.Properties {
		if p.Loadable {
			out = append(out, p)
		}
	}
	return out
}

func buildSchema(t reflect.Type) (*EntitySchema, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: %s is not a struct type", t)
	}
	s := &EntitySchema{Type: t, pk: -1, byName: make(map[string]int)}
	for _, f := range reflect.VisibleFields(t) {
		if f.Anonymous || !f.IsExported() || !promoted(t, f.Index) {
			continue
		}
		opts := tagOptions(f.Tag.Get(TagName), false)
		bunOpts := tagOptions(f.Tag.Get(bunTagName), true)
		if opts.has(tagSkip) || bunOpts.name == tagSkip {
			continue
		}
		if _, dup := s.byName[f.Name]; dup {
			continue
		}
		p := describe(f)
		p.Column = bunOpts.name
		p.Loadable = opts.has(tagRelated)
		p.IgnoreCycle = opts.has(tagIgnoreCycle)
		if p.Loadable && p.Target == nil {
			return nil, fmt.Errorf("schema: %s.%s is tagged %q but is not an entity or a collection of entities",
				t.Name(), f.Name, tagRelated)
		}
		if s.pk < 0 && (opts.has(tagPrimaryKey) || bunOpts.has(bunPrimaryKeyOp)) {
			s.pk = len(s.Properties)
		}
		s.byName[p.Name] = len(s.Properties)
		s.Properties = append(s.Properties, p)
	}
	if len(s.Properties) == 0 {
		return nil, fmt.Errorf("schema: %s declares no exported properties", t)
	}
	if s.pk < 0 {
		s.pk = 0
	}
	return s, nil
}

func describe(f reflect.StructField) Property {
	p := Property{Name: f.Name, Type: f.Type, Index: f.Index}
	t := f.Type
	if t.Kind() == reflect.Pointer {
		p.Nullable = true
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		p.Category = CategoryString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint8:
		p.Category = CategoryInteger
	case reflect.Float32, reflect.Float64:
		p.Category = CategoryDecimal
	case reflect.Struct:
		switch {
		case t == timeType:
			p.Category = CategoryDateTime
		case isEntity(t):
			p.Category = CategoryEntity
			p.Target = t
		}
	case reflect.Slice, reflect.Array:
		if elem := indirect(t.Elem()); isEntity(elem) {
			p.Category = CategoryCollection
			p.Target = elem
		}
	}
	return p
}

// promoted reports whether every embedded struct on the path to a field is
// exported, so the field value can be read through reflection.
func promoted(t reflect.Type, index []int) bool {
	for _, i := range index[:len(index)-1] {
		f := t.Field(i)
		if !f.IsExported() {
			return false
		}
		t = indirect(f.Type)
	}
	return true
}

func isEntity(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t == timeType {
		return false
	}
	pt := reflect.PointerTo(t)
	return !pt.Implements(scannerType) && !t.Implements(valuerType)
}

func indirect(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}

type options struct {
	name string
	set  map[string]struct{}
}

func (o options) has(opt string) bool {
	_, ok := o.set[opt]
	return ok
}

// tagOptions splits a struct tag value. When named is set the first
// element is a column name, not an option.
func tagOptions(tag string, named bool) options {
	parts := strings.Split(tag, ",")
	o := options{name: strings.TrimSpace(parts[0]), set: make(map[string]struct{}, len(parts))}
	if named {
		parts = parts[1:]
	}
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			o.set[part] = struct{}{}
		}
	}
	return o
}
