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
)

// RelatedPaths returns every dot-separated eager-load path reachable from t
// through properties tagged as related, visiting at most maxDepth+1 levels.
// Paths are listed depth-first in declaration order. A step back to the
// type of the immediate parent is pruned unless that property, or any step
// above it on the same branch, is tagged ignorecycle.
//
// The result is cached per (type, maxDepth) and returned as a copy.
func (r *Registry) RelatedPaths(t reflect.Type, maxDepth int) ([]string, error) {
	t = indirect(t)
	key := pathKey{typ: t, depth: maxDepth}
	if paths, ok := r.paths.Load(key); ok {
		return slices.Clone(paths), nil
	}
	w := pathWalker{registry: r, maxDepth: maxDepth}
	if err := w.walk(t, nil, false, "", 0); err != nil {
		return nil, err
	}
	actual, _ := r.paths.LoadOrStore(key, w.paths)
	return slices.Clone(actual), nil
}

type pathWalker struct {
	registry *Registry
	maxDepth int
	paths    []string
}

func (w *pathWalker) walk(t, parent reflect.Type, ignoreCycle bool, prefix string, depth int) error {
	if depth > w.maxDepth {
		return nil
	}
	s, err := w.registry.SchemaOf(t)
	if err != nil {
		return err
	}
	for _, p := range s.Related() {
		path := p.Name
		if prefix != "" {
			path = prefix + "." + p.Name
		}
		if p.Target == parent && !p.IgnoreCycle && !ignoreCycle {
			continue
		}
		w.paths = append(w.paths, path)
		if err := w.walk(p.Target, t, p.IgnoreCycle || ignoreCycle, path, depth+1); err != nil {
			return err
		}
	}
	return nil
}
