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

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomoncle/keel/database"
	"github.com/tomoncle/keel/predicate"
)

var (
	ErrNotFound  = errors.New("repository: entity not found")
	ErrCancelled = errors.New("repository: operation cancelled")
	// ErrNoMatchingProperty is returned by Page when the entity has no
	// property the search term could be tested against.
	ErrNoMatchingProperty = predicate.ErrNoMatchingProperty
)

// StoreError is a failure reported by the entity store, surfaced as is.
// Kind classifies database errors such as constraint violations.
type StoreError struct {
	Op   string
	Kind database.SQLError
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("repository: %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the requested entity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsCancelled reports whether err means the operation was aborted through
// its context.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

func cancelled(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCancelled, op, err)
}

// wrap turns a store failure into ErrCancelled when ctx is done and into a
// StoreError otherwise.
func wrap(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return cancelled(op, err)
	}
	_, kind := database.ClassifySQLError(err)
	return &StoreError{Op: op, Kind: kind, Err: err}
}
