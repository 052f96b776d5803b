// Package server exposes pkg/indexcore over an authenticated,
// rate-limited HTTP surface: create/drop a named collection, add,
// search and remove vectors, save/load an index to disk, and report
// stats — the "server" half of SPEC_FULL's ambient stack, grounded on
// the teacher's pkg/api/rest layer but rebound to talk to IndexCore
// directly instead of proxying a gRPC client.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/tann/pkg/observability"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host        string
	Port        int
	CORSEnabled bool
	CORSOrigins []string
	Auth        AuthConfig
	RateLimit   RateLimitConfig
}

// Server is the authenticated HTTP admin/query surface over a Registry
// of IndexCore collections.
type Server struct {
	config     Config
	handler    *Handler
	registry   *Registry
	logger     *observability.Logger
	access     *observability.AccessLogger
	httpServer *http.Server
	mux        *http.ServeMux
}

// NewServer builds a Server. metrics may be nil to disable Prometheus
// instrumentation of request handlers.
func NewServer(config Config, metrics *observability.Metrics, logger *observability.Logger) *Server {
	if logger == nil {
		logger = observability.NewDefaultLogger()
	}
	registry := NewRegistry()
	handler := NewHandler(registry, metrics, logger)

	s := &Server{
		config:   config,
		handler:  handler,
		registry: registry,
		logger:   logger,
		access:   observability.NewAccessLogger(logger),
		mux:      http.NewServeMux(),
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      s.withMiddleware(s.mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Registry exposes the underlying collection registry, e.g. for a
// cmd/server main to pre-populate collections from a config file.
func (s *Server) Registry() *Registry { return s.registry }

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/v1/health", s.handler.HealthCheck)
	s.mux.HandleFunc("/v1/stats", s.handler.GetStats)
	s.mux.HandleFunc("/v1/stats/", s.handler.GetStats)

	s.mux.HandleFunc("/v1/collections", s.routeCollections)
	s.mux.HandleFunc("/v1/collections/", s.routeCollectionsWithPath)
}

// routeCollections handles POST /v1/collections (create).
func (s *Server) routeCollections(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.handler.CreateCollection(w, r)
		return
	}
	writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
}

// routeCollectionsWithPath handles the /v1/collections/{namespace}[/...]
// family: drop, vectors, search, save, load.
func (s *Server) routeCollectionsWithPath(w http.ResponseWriter, r *http.Request) {
	rest := pathTail(r.URL.Path, "/v1/collections")
	if rest == "" {
		writeError(w, "namespace required", http.StatusBadRequest)
		return
	}
	parts := strings.SplitN(rest, "/", 3)
	ns := parts[0]

	if len(parts) == 1 {
		if r.Method == http.MethodDelete {
			s.handler.DropCollection(w, r)
			return
		}
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch parts[1] {
	case "vectors":
		if len(parts) == 3 {
			s.handler.Delete(w, r, ns, parts[2])
			return
		}
		s.handler.Insert(w, r, ns)
	case "search":
		s.handler.Search(w, r, ns)
	case "save":
		s.handler.SaveCollection(w, r, ns)
	case "load":
		s.handler.LoadCollection(w, r, ns)
	default:
		http.NotFound(w, r)
	}
}

// withMiddleware wraps handler with logging, optional CORS, rate
// limiting and authentication, innermost-out, matching the teacher's
// layering order.
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	handler = s.loggingMiddleware(handler)
	if s.config.CORSEnabled {
		handler = corsMiddleware(s.config.CORSOrigins)(handler)
	}
	rateLimiter := NewRateLimiter(s.config.RateLimit)
	handler = RateLimitMiddleware(rateLimiter)(handler)
	handler = AuthMiddleware(s.config.Auth)(handler)
	return handler
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.access.LogAccess(r.Method, r.URL.Path, fmt.Sprintf("%d", wrapped.statusCode), time.Since(start), nil)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := false
			if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
				allowed = true
				origin = "*"
			} else {
				for _, o := range allowedOrigins {
					if o == origin {
						allowed = true
						break
					}
				}
			}
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Start runs the HTTP server until it is stopped or fails.
func (s *Server) Start() error {
	s.logger.Infof("starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
