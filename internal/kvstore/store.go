// Package kvstore provides the durable key-value store backing the offline
// queue, the sync history, and the cached auth token.
//
// Values are UTF-8 JSON documents. A Set replaces the whole value for a key
// in one atomic write, so readers never observe a partially written value.
package kvstore

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/kimhsiao/splitledger/client/internal/errors"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = stderrors.New("kvstore: key not found")

// ErrCorrupt marks a value that was read but could not be decoded.
var ErrCorrupt = stderrors.New("kvstore: corrupt value")

// Store is a string-keyed durable store.
type Store interface {
	// Get returns the raw value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set atomically replaces the value for key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// LoadJSON decodes the value at key into v. It returns false without error
// when the key is absent.
func LoadJSON(ctx context.Context, s Store, key string, v interface{}) (bool, error) {
	raw, err := s.Get(ctx, key)
	if stderrors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, errors.Wrap(errors.ErrStoreRead, "failed to decode value for "+key, fmt.Errorf("%w: %v", ErrCorrupt, err))
	}
	return true, nil
}

// SaveJSON encodes v and writes it to key.
func SaveJSON(ctx context.Context, s Store, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(errors.ErrStoreWrite, "failed to encode value for "+key, err)
	}
	return s.Set(ctx, key, raw)
}
