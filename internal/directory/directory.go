// Package directory defines the User/Key Directory port (spec.md §2.2):
// resolves an opaque API key to a stable user id and reports bans.
package directory

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by ResolveAPIKey when the key does not resolve
// to any user. Callers (the Hub's accept path) treat this identically to a
// missing key: a jittered reject (spec.md §4.2 step 1-2).
var ErrKeyNotFound = errors.New("directory: api key not found")

// Directory resolves API keys to user ids and reports bans.
type Directory interface {
	ResolveAPIKey(ctx context.Context, apiKey string) (userID string, err error)
	Banned(ctx context.Context, userID string) (bool, error)
}
