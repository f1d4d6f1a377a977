package facade

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/stopbars/core/internal/hub"
)

// handleWebSocket runs spec.md §4.2 end to end: authenticate, upgrade,
// register with the airport's Hub, then pump inbound frames to it until the
// socket closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	airport := strings.ToUpper(r.URL.Query().Get("airport"))
	apiKey := extractAPIKey(r)

	ctx := r.Context()
	ident, err := hub.Authenticate(ctx, s.directory, s.oracle, airport, apiKey, s.identityTimeout)
	if err != nil {
		switch {
		case errors.Is(err, hub.ErrForbiddenBanned):
			http.Error(w, "forbidden: banned", http.StatusForbidden)
		case errors.Is(err, hub.ErrForbiddenNotOnNet):
			http.Error(w, "forbidden: not_on_network", http.StatusForbidden)
		default:
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
		}
		return
	}

	h, err := s.registry.Route(ctx, airport)
	if err != nil {
		http.Error(w, "invalid_airport", http.StatusBadRequest)
		return
	}

	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	sock := newWSSocket(conn)

	// The hub context outlives this request; it is derived from
	// context.Background() and canceled only when the socket's own readPump
	// loop exits (physical close). Registry shutdown does not cancel it.
	hubCtx, cancel := context.WithCancel(context.Background())

	initial, err := h.Register(hubCtx, sock, ident)
	if err != nil {
		cancel()
		_ = conn.Close()
		return
	}

	go sock.writePump()
	go h.StartHeartbeat(hubCtx, sock)

	sock.Send(mustEncodeInitial(initial))

	sock.readPump(
		func(data []byte) { h.Dispatch(hubCtx, sock, data) },
		func() {
			h.Disconnect(hubCtx, sock, "closed")
			cancel()
		},
	)
}

func mustEncodeInitial(p any) []byte {
	data, _ := json.Marshal(p)
	return data
}

func extractAPIKey(r *http.Request) string {
	if v := r.URL.Query().Get("apiKey"); v != "" {
		return v
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// handleState implements spec.md §6.2's local query: GET /state?airport=<icao>[&offline=true],
// and airport=all to enumerate every active Hub.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	airport := strings.ToUpper(r.URL.Query().Get("airport"))
	offline := r.URL.Query().Get("offline") == "true"
	ctx := r.Context()

	w.Header().Set("Content-Type", "application/json")

	if airport == "ALL" {
		snaps, err := s.registry.ListActiveAirports(ctx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(snaps)
		return
	}

	if !hub.ValidAirportCode(airport) {
		http.Error(w, "invalid_airport", http.StatusBadRequest)
		return
	}

	snap, err := s.registry.GetStateSnapshot(ctx, airport, offline)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(snap)
}
