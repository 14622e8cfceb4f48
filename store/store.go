// Package store defines the key-value persistence used to save a portfolio
// session. Implementations include a directory of files (default), Redis,
// and in-memory (for testing).
package store

import (
	"context"
	"fmt"
	"regexp"
)

// Store is a synchronous key-value byte storage keyed by string.
type Store interface {
	// Get returns the value of 'key', and false if there is none.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set saves 'value' under 'key', replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes 'key'. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// checkKey rejects keys that could not be used as a file name.
func checkKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid store key %q", key)
	}
	return nil
}
