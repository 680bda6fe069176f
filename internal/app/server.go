package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marcelolino/seucodigo-chat/internal/auth"
	"github.com/marcelolino/seucodigo-chat/internal/chat"
	"github.com/marcelolino/seucodigo-chat/internal/storage"
)

// Version is reported by /healthz.
const Version = "1.2.0"

// ServerHandle represents a running chat server instance.
type ServerHandle struct {
	addr   string
	server *http.Server
	store  *storage.Store
	log    *slog.Logger
	done   chan struct{}
	err    error
}

// Addr returns the actual listen address (after the OS allocated a port).
func (h *ServerHandle) Addr() string {
	return h.addr
}

// Stop triggers a graceful shutdown bounded by the provided context.
func (h *ServerHandle) Stop(ctx context.Context) error {
	if h == nil || h.server == nil {
		return nil
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	return h.server.Shutdown(ctx)
}

// Wait blocks until the server exits.
func (h *ServerHandle) Wait() error {
	if h == nil {
		return nil
	}
	<-h.done
	return h.err
}

// RunServer opens the store, runs migrations, wires the websocket hub and
// the HTTP API, and starts serving in the background. Use Stop/Wait to
// manage its lifecycle.
func RunServer(ctx context.Context, cfg Config, log *slog.Logger) (*ServerHandle, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.DBPath == "" {
		return nil, errors.New("database path is required")
	}
	// URI-style DSNs (sqlite://, file:) carry their own semantics; only
	// plain paths get their parent directory created
	if !strings.Contains(cfg.DBPath, "://") && !strings.HasPrefix(cfg.DBPath, "file:") {
		if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	metrics := chat.NewMetrics()
	hub := chat.NewHub(store, auth.NewResolver(store), metrics, log)
	api := chat.NewAPI(store, log)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Route("/api", func(r chi.Router) {
		api.RegisterRoutes(r)
		r.Get("/chat", hub.ServeWS)
	})
	router.Method(http.MethodGet, "/metrics", metrics)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"status":"ok","version":%q}`, Version)
	})

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen: %w", err)
	}

	handle := &ServerHandle{
		addr:   listener.Addr().String(),
		server: httpServer,
		store:  store,
		log:    log,
		done:   make(chan struct{}),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server shutdown", "err", err)
		}
	}()

	log.Info("chat server listening", "addr", handle.addr)
	go handle.serve(listener)

	return handle, nil
}

func (h *ServerHandle) serve(listener net.Listener) {
	defer close(h.done)
	err := h.server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	if closeErr := h.store.Close(); closeErr != nil {
		h.log.Error("store close", "err", closeErr)
	}
	h.err = err
}
