package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when a key has never been set.
var ErrNotFound = errors.New("kv: key not found")

// Store is a string-keyed value store. The hub uses two of them: the persistent
// store (provider credentials, engine metadata, last answers) and the session
// store, whose keys disappear when the browser session ends.
//
// Stores give no transactional guarantees: concurrent writers race and the last
// write wins.
type Store interface {
	// Get returns the raw value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the underlying connection.
	Close() error
}

// GetString reads key as a string. A missing key yields "" and no error.
func GetString(ctx context.Context, s Store, key string) (string, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SetString stores a string value.
func SetString(ctx context.Context, s Store, key, value string) error {
	return s.Set(ctx, key, []byte(value))
}

// GetJSON decodes key into dst. It reports false when the key is missing.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("kv: decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes value as JSON and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
