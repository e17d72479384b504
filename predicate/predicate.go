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

package predicate

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/tomoncle/keel/schema"
)

// Predicate is a boolean test over an entity. Stores either evaluate it
// in memory through Eval or translate the concrete node types into their
// own query language.
type Predicate interface {
	// Eval tests the entity held by v (a struct or a pointer to one).
	Eval(v reflect.Value) bool
	String() string
}

// Equal tests a property for value equality. Numeric values compare by
// value across Go integer and float types; a nil pointer property never
// matches.
type Equal struct {
	Property schema.Property
	Value    any
}

// Contains tests a string property for a case-sensitive substring.
type Contains struct {
	Property  schema.Property
	Substring string
}

// FormatContains tests the decimal text form of an integer property for a
// substring.
type FormatContains struct {
	Property  schema.Property
	Substring string
}

// Or is the logical disjunction of two predicates.
type Or struct {
	Left, Right Predicate
}

// Any folds terms left to right into a chain of Or nodes. It fails with
// ErrNoMatchingProperty when there is nothing to combine.
func Any(terms ...Predicate) (Predicate, error) {
	if len(terms) == 0 {
		return nil, ErrNoMatchingProperty
	}
	acc := terms[0]
	for _, t := range terms[1:] {
		acc = &Or{Left: acc, Right: t}
	}
	return acc, nil
}

// Match evaluates p against entity. A nil predicate matches everything.
func Match(p Predicate, entity any) bool {
	if p == nil {
		return true
	}
	return p.Eval(reflect.ValueOf(entity))
}

// Terms lists the leaves of p in evaluation order, looking through Or nodes.
func Terms(p Predicate) []Predicate {
	if or, ok := p.(*Or); ok {
		return append(Terms(or.Left), Terms(or.Right)...)
	}
	if p == nil {
		return nil
	}
	return []Predicate{p}
}

func (e *Equal) Eval(v reflect.Value) bool {
	f, ok := scalar(e.Property, v)
	if !ok {
		return false
	}
	return equalValue(f, e.Value)
}

func (e *Equal) String() string {
	if t, ok := e.Value.(time.Time); ok {
		return fmt.Sprintf("%s = %s", e.Property.Name, t.Format(time.RFC3339Nano))
	}
	return fmt.Sprintf("%s = %v", e.Property.Name, e.Value)
}

func (c *Contains) Eval(v reflect.Value) bool {
	f, ok := scalar(c.Property, v)
	if !ok || f.Kind() != reflect.String {
		return false
	}
	return strings.Contains(f.String(), c.Substring)
}

func (c *Contains) String() string {
	return fmt.Sprintf("%s contains %q", c.Property.Name, c.Substring)
}

func (c *FormatContains) Eval(v reflect.Value) bool {
	f, ok := scalar(c.Property, v)
	if !ok {
		return false
	}
	var text string
	switch {
	case f.CanInt():
		text = strconv.FormatInt(f.Int(), 10)
	case f.CanUint():
		text = strconv.FormatUint(f.Uint(), 10)
	default:
		return false
	}
	return strings.Contains(text, c.Substring)
}

func (c *FormatContains) String() string {
	return fmt.Sprintf("text(%s) contains %q", c.Property.Name, c.Substring)
}

func (o *Or) Eval(v reflect.Value) bool {
	return o.Left.Eval(v) || o.Right.Eval(v)
}

func (o *Or) String() string {
	return fmt.Sprintf("(%s OR %s)", o.Left, o.Right)
}

// scalar reads the property off the entity, unwrapping nullable pointers.
func scalar(p schema.Property, v reflect.Value) (reflect.Value, bool) {
	f, ok := p.Value(v)
	if !ok {
		return reflect.Value{}, false
	}
	if f.Kind() == reflect.Pointer {
		if f.IsNil() {
			return reflect.Value{}, false
		}
		f = f.Elem()
	}
	return f, true
}

var timeType = reflect.TypeOf(time.Time{})

func equalValue(f reflect.Value, want any) bool {
	w := reflect.ValueOf(want)
	if !w.IsValid() {
		return false
	}
	if w.Kind() == reflect.Pointer {
		if w.IsNil() {
			return false
		}
		w = w.Elem()
	}

	switch {
	case f.CanInt():
		n, ok := asInt(w)
		return ok && n == f.Int()
	case f.CanUint():
		n, ok := asInt(w)
		return ok && n >= 0 && uint64(n) == f.Uint()
	case f.CanFloat():
		x, ok := asFloat(w)
		if !ok {
			return false
		}
		if f.Kind() == reflect.Float32 {
			return float32(x) == float32(f.Float())
		}
		return x == f.Float()
	case f.Kind() == reflect.String:
		return w.Kind() == reflect.String && w.String() == f.String()
	case f.Type() == timeType:
		t, ok := w.Interface().(time.Time)
		return ok && t.Equal(f.Interface().(time.Time))
	}
	if w.Type() == f.Type() && f.Comparable() {
		return f.Equal(w)
	}
	return reflect.DeepEqual(f.Interface(), w.Interface())
}

func asInt(w reflect.Value) (int64, bool) {
	switch {
	case w.CanInt():
		return w.Int(), true
	case w.CanUint():
		u := w.Uint()
		return int64(u), u <= 1<<63-1
	case w.CanFloat():
		x := w.Float()
		return int64(x), x == float64(int64(x))
	case w.Kind() == reflect.String:
		n, err := strconv.ParseInt(w.String(), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func asFloat(w reflect.Value) (float64, bool) {
	switch {
	case w.CanFloat():
		return w.Float(), true
	case w.CanInt():
		return float64(w.Int()), true
	case w.CanUint():
		return float64(w.Uint()), true
	}
	return 0, false
}
