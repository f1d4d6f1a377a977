package hub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stopbars/core/internal/directory"
	"github.com/stopbars/core/internal/identity"
)

func newTestDirectory(t *testing.T) (*directory.BcryptDirectory, string) {
	t.Helper()
	dir := directory.NewBcryptDirectory()
	if err := dir.Enroll("user-1", "key1", "secret"); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	return dir, "key1.secret"
}

func TestAuthenticate_Success(t *testing.T) {
	dir, apiKey := newTestDirectory(t)
	oracle := identity.NewMemoryOracle()
	oracle.SetStatus("user-1", &identity.LiveStatus{Callsign: "EDDF_TWR", Type: "atc"})

	ident, err := Authenticate(context.Background(), dir, oracle, "EDDF", apiKey, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ident.UserID != "user-1" || ident.Kind != identity.KindController {
		t.Errorf("unexpected identity: %#v", ident)
	}
}

func TestAuthenticate_ObserverCallsign(t *testing.T) {
	dir, apiKey := newTestDirectory(t)
	oracle := identity.NewMemoryOracle()
	oracle.SetStatus("user-1", &identity.LiveStatus{Callsign: "EDDF_X_OBS", Type: "atc"})

	ident, err := Authenticate(context.Background(), dir, oracle, "EDDF", apiKey, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ident.Kind != identity.KindObserver {
		t.Errorf("expected observer kind, got %v", ident.Kind)
	}
}

func TestAuthenticate_UnknownKeyIsJitteredUnauthenticated(t *testing.T) {
	dir, _ := newTestDirectory(t)
	oracle := identity.NewMemoryOracle()

	_, err := Authenticate(context.Background(), dir, oracle, "EDDF", "bogus.key", time.Second)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthenticate_MissingAirportOrKey(t *testing.T) {
	dir, apiKey := newTestDirectory(t)
	oracle := identity.NewMemoryOracle()

	if _, err := Authenticate(context.Background(), dir, oracle, "", apiKey, time.Second); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated for missing airport, got %v", err)
	}
	if _, err := Authenticate(context.Background(), dir, oracle, "EDDF", "", time.Second); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated for missing api key, got %v", err)
	}
}

func TestAuthenticate_Banned(t *testing.T) {
	dir, apiKey := newTestDirectory(t)
	dir.SetBanned("user-1", true)
	oracle := identity.NewMemoryOracle()

	_, err := Authenticate(context.Background(), dir, oracle, "EDDF", apiKey, time.Second)
	if !errors.Is(err, ErrForbiddenBanned) {
		t.Fatalf("expected ErrForbiddenBanned, got %v", err)
	}
}

func TestAuthenticate_NotOnNetwork(t *testing.T) {
	dir, apiKey := newTestDirectory(t)
	oracle := identity.NewMemoryOracle()

	_, err := Authenticate(context.Background(), dir, oracle, "EDDF", apiKey, time.Second)
	if !errors.Is(err, ErrForbiddenNotOnNet) {
		t.Fatalf("expected ErrForbiddenNotOnNet, got %v", err)
	}
}

func TestValidAirportCode(t *testing.T) {
	cases := map[string]bool{
		"EDDF": true,
		"KJFK": true,
		"1234": true,
		"eddf": false,
		"EDD":  false,
		"EDDFF": false,
		"EDD!": false,
	}
	for code, want := range cases {
		if got := ValidAirportCode(code); got != want {
			t.Errorf("ValidAirportCode(%q) = %v, want %v", code, got, want)
		}
	}
}
