package facade

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stopbars/core/internal/analytics"
	"github.com/stopbars/core/internal/catalogue"
	"github.com/stopbars/core/internal/directory"
	"github.com/stopbars/core/internal/hub"
	"github.com/stopbars/core/internal/identity"
	"github.com/stopbars/core/internal/store"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	dir := directory.NewBcryptDirectory()
	if err := dir.Enroll("ctl-1", "key1", "secret"); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	oracle := identity.NewMemoryOracle()
	oracle.SetStatus("ctl-1", &identity.LiveStatus{Callsign: "EDDF_TWR", Type: "atc"})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	registry := hub.NewRegistry(ctx, zerolog.Nop(), hub.DefaultOptions(), store.NewMemoryStore(),
		catalogue.NewMemoryCatalogue(nil), oracle, analytics.NoopSink{}, nil)
	t.Cleanup(registry.Shutdown)

	srv := New(zerolog.Nop(), registry, dir, oracle, time.Second, nil, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestHandleHealth(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestHandleState_InvalidAirport(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/state?airport=bad")
	if err != nil {
		t.Fatalf("GET /state: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for an invalid airport code, got %d", resp.StatusCode)
	}
}

func TestHandleState_ValidAirportReturnsSnapshot(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/state?airport=EDDF")
	if err != nil {
		t.Fatalf("GET /state: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var snap map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap["airport"] != "EDDF" {
		t.Errorf("expected airport EDDF in snapshot, got %#v", snap["airport"])
	}
}

func TestWebSocket_RejectsUnauthenticated(t *testing.T) {
	_, ts := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?airport=EDDF"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail without an api key")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Errorf("expected 401, got %d", status)
	}
}

func TestWebSocket_AcceptsAuthenticatedControllerAndSendsInitialState(t *testing.T) {
	_, ts := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?" + url.Values{
		"airport": {"EDDF"},
		"apiKey":  {"key1.secret"},
	}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read initial state: %v", err)
	}

	var p map[string]any
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p["type"] != "INITIAL_STATE" {
		t.Errorf("expected INITIAL_STATE as the first frame, got %#v", p["type"])
	}
}
