package store

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the backing medium cannot be reached or
// read. Callers treat it as a persistence outage, not as an absent key.
var ErrUnavailable = errors.New("credential store unavailable")

// Store is a scoped key-value persistence layer with at-rest protection
// supplied by the backend. Values are opaque strings; absence is reported
// through the boolean, never through an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
