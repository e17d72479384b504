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
	"reflect"
	"slices"
	"strings"
)

// IncludeAll selects every registered related path of a type.
const IncludeAll = "*"

// ResolveIncludes turns the caller's requested include selectors into the
// set of paths handed to the store. Requested paths that are not registered
// related paths of t are dropped. When both an ancestor and one of its
// descendants are selected only the descendant is kept, since loading
// "A.B" also loads "A". The order of the result carries no meaning.
func (r *Registry) ResolveIncludes(t reflect.Type, requested []string, maxDepth int) ([]string, error) {
	if len(requested) == 0 {
		return nil, nil
	}
	registered, err := r.RelatedPaths(t, maxDepth)
	if err != nil {
		return nil, err
	}
	if len(registered) == 0 {
		return nil, nil
	}

	selected := registered
	if !slices.Contains(requested, IncludeAll) {
		selected = selected[:0:0]
		for _, path := range registered {
			if slices.Contains(requested, path) {
				selected = append(selected, path)
			}
		}
	}
	return Flatten(selected), nil
}

// Flatten drops every path that is a dot-prefix of another path in paths.
func Flatten(paths []string) []string {
	sorted := slices.Clone(paths)
	slices.Sort(sorted)
	slices.Reverse(sorted)

	var kept []string
	for _, path := range sorted {
		covered := slices.ContainsFunc(kept, func(k string) bool {
			return strings.HasPrefix(k, path+".")
		})
		if !covered && !slices.Contains(kept, path) {
			kept = append(kept, path)
		}
	}
	return kept
}
