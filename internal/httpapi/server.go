package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/michaelbrown/sshmcp/internal/audit"
	"github.com/michaelbrown/sshmcp/internal/config"
	"github.com/michaelbrown/sshmcp/internal/logging"
	"github.com/michaelbrown/sshmcp/internal/tools"
)

// Server serves MCP over streamable HTTP alongside health and audit endpoints.
type Server struct {
	cfg     config.Config
	store   audit.Store // nil when auditing is disabled
	feed    *audit.Feed
	gateway *tools.Gateway
	mcp     *server.StreamableHTTPServer
	logger  zerolog.Logger
	router  chi.Router
	http    *http.Server
}

// New creates a Server. store may be nil.
func New(cfg config.Config, gw *tools.Gateway, store audit.Store, feed *audit.Feed, logger zerolog.Logger) *Server {
	if feed == nil {
		feed = audit.NewFeed()
	}
	s := &Server{
		cfg:     cfg,
		store:   store,
		feed:    feed,
		logger:  logger,
		router:  chi.NewRouter(),
		gateway: gw,
		mcp: server.NewStreamableHTTPServer(gw.Server(),
			server.WithLogger(logging.MCPLogger(logger)),
		),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Handle("/mcp", s.answerUnknownTools(s.mcp))
	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/invocations/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(jsonContentType)
			r.Get("/invocations", s.handleListInvocations)
			r.Get("/invocations/{id}", s.handleGetInvocation)
		})
	})
}

// jsonContentType sets Content-Type to application/json for API routes.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// answerUnknownTools lets the gateway answer POSTed calls to unknown tools
// before the streamable HTTP handler sees them.
func (s *Server) answerUnknownTools(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		r.Body.Close()
		if err != nil {
			http.Error(w, "reading request body", http.StatusBadRequest)
			return
		}

		if resp, ok := s.gateway.Intercept(r.Context(), body); ok {
			if sid := r.Header.Get(server.HeaderKeySessionID); sid != "" {
				w.Header().Set(server.HeaderKeySessionID, sid)
			}
			w.Header().Set("Content-Type", "application/json")
			writeJSON(w, http.StatusOK, resp)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

// Handler exposes the router (used by tests).
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Str("target", s.cfg.SSH.Target()).Msg("HTTP server starting")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.mcp.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("closing MCP sessions")
	}
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(shutdownCtx)
}
