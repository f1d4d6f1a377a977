package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_RequiresIdentityBaseURL(t *testing.T) {
	clearEnv(t, "BARSHUB_IDENTITY_URL")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error when BARSHUB_IDENTITY_URL is unset")
	}
}

func TestLoad_DefaultsApplyWhenUnset(t *testing.T) {
	t.Setenv("BARSHUB_IDENTITY_URL", "https://identity.example.test")
	clearEnv(t, "HEARTBEAT_INTERVAL", "MAX_STATE_SIZE", "STALE_TTL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HeartbeatInterval != 60*time.Second {
		t.Errorf("expected default heartbeat interval, got %v", cfg.HeartbeatInterval)
	}
	if cfg.StaleTTL != 120*time.Second {
		t.Errorf("expected default stale ttl, got %v", cfg.StaleTTL)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("expected default listen addr, got %q", cfg.ListenAddr)
	}
}

func TestParseDuration_AcceptsBareMillisecondInteger(t *testing.T) {
	t.Setenv("HEARTBEAT_INTERVAL", "1500")
	got := parseDuration("HEARTBEAT_INTERVAL", time.Second)
	if got != 1500*time.Millisecond {
		t.Errorf("expected bare integer to be parsed as milliseconds, got %v", got)
	}
}

func TestParseDuration_AcceptsGoDurationString(t *testing.T) {
	t.Setenv("HEARTBEAT_INTERVAL", "45s")
	got := parseDuration("HEARTBEAT_INTERVAL", time.Second)
	if got != 45*time.Second {
		t.Errorf("expected go duration string to parse, got %v", got)
	}
}

func TestParseOrigins_SplitsAndTrims(t *testing.T) {
	t.Setenv("BARSHUB_ALLOWED_ORIGINS", "https://a.test, https://b.test ,  ")
	got := parseOrigins("BARSHUB_ALLOWED_ORIGINS")
	want := []string{"https://a.test", "https://b.test"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}

func TestOptions_BridgesToHubOptions(t *testing.T) {
	t.Setenv("BARSHUB_IDENTITY_URL", "https://identity.example.test")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opts := cfg.Options()
	if opts.HeartbeatInterval != cfg.HeartbeatInterval || opts.StaleTTL != cfg.StaleTTL {
		t.Errorf("expected Options() to mirror Config's tunables, got %#v", opts)
	}
}
