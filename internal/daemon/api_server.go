package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"poolpack/internal/api"
	"poolpack/internal/archive"
	"poolpack/internal/config"
	"poolpack/internal/logging"
	"poolpack/internal/services"
)

const (
	maxBatchBodyBytes = 1 << 20
	wsRequestTimeout  = 15 * time.Second
	wsWriteTimeout    = 10 * time.Second
)

type apiServer struct {
	bind     string
	token    string
	logger   *slog.Logger
	daemon   *Daemon
	router   chi.Router
	upgrader websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		token:  strings.TrimSpace(cfg.Paths.APIToken),
		logger: logger,
		daemon: d,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestContext)
	r.Use(middleware.Recoverer)

	r.Get(archive.DefaultRetrievePath, srv.handleRetrieve)
	r.Head(archive.DefaultRetrievePath, srv.handleRetrieve)
	if d.prom != nil {
		r.Method(http.MethodGet, "/metrics", d.prom.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(srv.token))
		r.Post("/batch", srv.handleBatch)
		r.Get("/batch/ws", srv.handleBatchWS)
		r.Get("/api/status", srv.handleStatus)
		r.Get("/api/artifacts", srv.handleArtifacts)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	srv.router = r
	return srv
}

func (s *apiServer) handler() http.Handler {
	return s.router
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil || s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	server := s.server
	listener := s.listener
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	if listener != nil {
		_ = listener.Close()
	}
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	writeJSON(w, http.StatusOK, api.StatusResponse{
		Running:       status.Running,
		PID:           status.PID,
		StartedAt:     api.FormatTime(status.StartedAt),
		ArtifactDir:   status.ArtifactDir,
		LockFilePath:  status.LockFilePath,
		Artifacts:     status.Artifacts,
		TTLSeconds:    int64(status.TTL / time.Second),
		LedgerBackend: status.LedgerBackend,
		Checks:        api.FromChecks(status.Checks),
	})
}

func (s *apiServer) handleArtifacts(w http.ResponseWriter, _ *http.Request) {
	registry := s.daemon.registry
	writeJSON(w, http.StatusOK, api.ArtifactListResponse{
		Artifacts: api.FromArtifacts(registry.List(), registry.TTL(), registry.Now()),
	})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return logging.NewComponentLogger(s.logger, "api-server")
}

// requestContext copies the chi request id and the gateway's consumer header
// into the context fields the logging package understands.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = services.WithRequestID(ctx, id)
		}
		if consumer := consumerID(r); consumer != "" {
			ctx = services.WithConsumerID(ctx, consumer)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func consumerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(api.ConsumerHeader))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.ErrorResponse{Error: message})
}
