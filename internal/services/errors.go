// Package services defines the business logic for cached countries and the
// refresh operation. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked by
// callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Country-related errors.
var (
	// ErrCountryNotFound indicates that no country matches the requested name.
	ErrCountryNotFound = errors.New("country not found")

	// ErrCountryExists is returned when creating a country whose name is taken.
	ErrCountryExists = errors.New("country already exists")

	// ErrImageNotFound indicates that no summary image has been rendered yet.
	ErrImageNotFound = errors.New("summary image not found")

	// ErrReplayNotFound is returned by Replay when the idempotency key has no
	// stored, unexpired refresh result.
	ErrReplayNotFound = errors.New("no stored refresh for idempotency key")
)

// ValidationError carries field-level validation messages keyed by the JSON
// field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// UpstreamError reports that one of the external data sources could not be
// reached or answered with a failure status.
type UpstreamError struct {
	Source string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Could not fetch data from %s. %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
