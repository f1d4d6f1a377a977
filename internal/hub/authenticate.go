package hub

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/stopbars/core/internal/directory"
	"github.com/stopbars/core/internal/identity"
)

// Connect-time failures (spec.md §7): the upgrade is refused outright, never
// escalated into an ERROR packet on an open socket.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbiddenBanned   = errors.New("forbidden: banned")
	ErrForbiddenNotOnNet = errors.New("forbidden: not_on_network")
)

// jitterReject sleeps a uniform [20,50)ms jitter before returning err. This
// is the mandatory anti-enumeration control of spec.md §4.2 step 1 — an
// attacker probing API keys should not be able to distinguish "missing
// credential" from "wrong credential" by response latency.
func jitterReject(ctx context.Context, err error) error {
	d := time.Duration(20+rand.Intn(30)) * time.Millisecond
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	return err
}

// Identity is the resolved identity of an accepted connection.
type Identity struct {
	UserID string
	Kind   identity.ClientKind
}

// Authenticate runs spec.md §4.2 steps 1-5: resolve the API key, check bans,
// ask the Identity Oracle for live status, and classify the session kind.
// It does not touch any Hub state — it is airport-agnostic and runs before
// a Hub is even selected.
func Authenticate(ctx context.Context, dir directory.Directory, oracle identity.Oracle, airport, apiKey string, identityTimeout time.Duration) (*Identity, error) {
	if airport == "" || apiKey == "" {
		return nil, jitterReject(ctx, ErrUnauthenticated)
	}

	userID, err := dir.ResolveAPIKey(ctx, apiKey)
	if err != nil {
		return nil, jitterReject(ctx, ErrUnauthenticated)
	}

	banned, err := dir.Banned(ctx, userID)
	if err != nil {
		// Directory failures at accept time are fatal per spec.md §7; degrade
		// to the same jittered reject rather than leaking a distinguishable
		// error for an account we couldn't verify.
		return nil, jitterReject(ctx, ErrUnauthenticated)
	}
	if banned {
		return nil, ErrForbiddenBanned
	}

	octx, cancel := context.WithTimeout(ctx, identityTimeout)
	defer cancel()
	status, err := oracle.Status(octx, userID)
	if err != nil || status == nil {
		return nil, ErrForbiddenNotOnNet
	}

	return &Identity{UserID: userID, Kind: identity.Classify(status)}, nil
}

// ValidAirportCode reports whether airport is exactly four A-Z0-9
// characters (spec.md §4.1).
func ValidAirportCode(airport string) bool {
	if len(airport) != 4 {
		return false
	}
	for i := 0; i < len(airport); i++ {
		c := airport[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
