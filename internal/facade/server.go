package facade

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/stopbars/core/internal/directory"
	"github.com/stopbars/core/internal/hub"
	"github.com/stopbars/core/internal/identity"
)

// Server is barshub's HTTP surface: the websocket upgrade endpoint and the
// local /state query, grounded on the teacher's internal/dashboard.Server.
type Server struct {
	log             zerolog.Logger
	registry        *hub.Registry
	directory       directory.Directory
	oracle          identity.Oracle
	identityTimeout time.Duration
	allowedOrigins  []string
	gatherer        prometheus.Gatherer

	router     *chi.Mux
	wsUpgrader *websocket.Upgrader
	httpServer *http.Server
}

// New builds a Server. oracle and dir are the connect-time authentication
// ports (spec.md §4.2); registry routes authenticated connections to their
// airport's Hub. gatherer is the registry /metrics scrapes; a nil gatherer
// falls back to prometheus.DefaultGatherer.
func New(log zerolog.Logger, registry *hub.Registry, dir directory.Directory, oracle identity.Oracle, identityTimeout time.Duration, allowedOrigins []string, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		log:             log.With().Str("component", "facade").Logger(),
		registry:        registry,
		directory:       dir,
		oracle:          oracle,
		identityTimeout: identityTimeout,
		allowedOrigins:  allowedOrigins,
		gatherer:        gatherer,
	}
	s.wsUpgrader = &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.securityHeaders)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/state", s.handleState)

	s.router = r
}

func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(s.allowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		s.log.Warn().Str("origin", origin).Msg("rejected websocket: invalid origin")
		return false
	}
	return isLocalhost(originURL.Host)
}

func isLocalhost(host string) bool {
	if i := strings.LastIndex(host, ":"); i != -1 {
		host = host[:i]
	}
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Handler returns the root http.Handler for use in an http.Server.
func (s *Server) Handler() http.Handler { return s.router }

// Run starts an HTTP server on addr and blocks until ctx is canceled.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return s.httpServer.Close()
	case err := <-errCh:
		return err
	}
}
