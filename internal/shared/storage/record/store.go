// Package record is a key-value blob store holding named collections as
// JSON arrays and singleton records as JSON objects.
//
// Reads fail soft: a missing key, an unreachable backend or a blob that does
// not decode all read as an empty collection. Writes report their errors.
package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"papershare-backend/internal/shared/telemetry"
)

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("record: key not found")
	// ErrConflict is returned when an optimistic update keeps losing races.
	ErrConflict = errors.New("record: concurrent update conflict")
)

// maxRetries bounds compare-and-swap loops in remote backends.
const maxRetries = 5

// UpdateFunc receives the current blob (nil when absent) and returns the new one.
// Returning a nil slice deletes the key.
type UpdateFunc func(current []byte) ([]byte, error)

// Store is the backend contract.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Update performs an atomic read-modify-write of one key.
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Close() error
}

// Load returns the collection stored under key.
func Load[T any](ctx context.Context, s Store, key string) []T {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			telemetry.Warn("record.read_failed", map[string]any{"key": key, "error": err.Error()})
		}
		return []T{}
	}
	return decodeCollection[T](key, raw)
}

// Save replaces the collection stored under key.
func Save[T any](ctx context.Context, s Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// Mutate applies fn to the collection under key atomically.
func Mutate[T any](ctx context.Context, s Store, key string, fn func([]T) ([]T, error)) error {
	return s.Update(ctx, key, func(current []byte) ([]byte, error) {
		items := []T{}
		if current != nil {
			items = decodeCollection[T](key, current)
		}
		next, err := fn(items)
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = []T{}
		}
		return json.Marshal(next)
	})
}

// LoadOne returns the singleton stored under key, or nil.
func LoadOne[T any](ctx context.Context, s Store, key string) *T {
	raw, err := s.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			telemetry.Warn("record.read_failed", map[string]any{"key": key, "error": err.Error()})
		}
		return nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		telemetry.Warn("record.corrupt_blob", map[string]any{"key": key, "error": err.Error()})
		return nil
	}
	return &out
}

// SaveOne stores v under key. A nil v clears the key.
func SaveOne[T any](ctx context.Context, s Store, key string, v *T) error {
	if v == nil {
		return s.Delete(ctx, key)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

func decodeCollection[T any](key string, raw []byte) []T {
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		telemetry.Warn("record.corrupt_blob", map[string]any{"key": key, "error": err.Error()})
		return []T{}
	}
	if items == nil {
		return []T{}
	}
	return items
}
