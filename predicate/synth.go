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
	"errors"
	"fmt"
	"strings"

	"github.com/tomoncle/keel/schema"
)

// ErrNoMatchingProperty is returned when an entity has no property of the
// category a search term was classified into.
var ErrNoMatchingProperty = errors.New("predicate: no property matches the search term")

// ForID tests the primary key of s against id.
func ForID(s *schema.EntitySchema, id any) Predicate {
	return &Equal{Property: s.PrimaryKey(), Value: id}
}

// ForSearch classifies raw and ORs one test per eligible property of s:
//
//   - number: decimal properties by value, integer properties by the
//     trimmed raw substring within their decimal text;
//   - date-time: date-time properties by instant;
//   - text: string properties by substring.
func ForSearch(s *schema.EntitySchema, raw string) (Predicate, error) {
	raw = strings.TrimSpace(raw)
	term := Classify(raw)

	var terms []Predicate
	switch term.Kind {
	case KindNumber:
		for _, p := range s.Filter(schema.CategoryDecimal) {
			terms = append(terms, &Equal{Property: p, Value: term.Number})
		}
		for _, p := range s.Filter(schema.CategoryInteger) {
			terms = append(terms, &FormatContains{Property: p, Substring: raw})
		}
	case KindDateTime:
		for _, p := range s.Filter(schema.CategoryDateTime) {
			terms = append(terms, &Equal{Property: p, Value: term.Time})
		}
	default:
		for _, p := range s.Filter(schema.CategoryString) {
			terms = append(terms, &Contains{Property: p, Substring: raw})
		}
	}

	pred, err := Any(terms...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s term %q on %s", err, term.Kind, raw, s.Type.Name())
	}
	return pred, nil
}
