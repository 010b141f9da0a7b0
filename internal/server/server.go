package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"storyboard/internal/assets"
	"storyboard/internal/catalog"
	"storyboard/internal/config"
	"storyboard/internal/logging"
	"storyboard/web"
)

// Server exposes the storyboard REST API, the uploaded assets, and the
// embedded frontend over HTTP. Handlers are stateless; each request goes
// straight to the catalog store and asset store.
type Server struct {
	bind   string
	logger *slog.Logger
	store  *catalog.Store
	assets *assets.Store

	listener net.Listener
	server   *http.Server
}

// New wires the HTTP routes and returns an unstarted server.
func New(cfg *config.Config, store *catalog.Store, assetStore *assets.Store, logger *slog.Logger) (*Server, error) {
	if cfg == nil || store == nil || assetStore == nil {
		return nil, errors.New("server requires config, store, and asset store")
	}

	srv := &Server{
		bind:   cfg.Paths.Bind,
		logger: logger,
		store:  store,
		assets: assetStore,
	}

	staticFS, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, fmt.Errorf("embedded static files: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/data", srv.handleData)
	mux.HandleFunc("/api/scripts", srv.handleScripts)
	mux.HandleFunc("/api/scripts/", srv.handleScript)
	mux.HandleFunc("/api/sentences", srv.handleSentences)
	mux.HandleFunc("/api/sentences/", srv.handleSentence)
	mux.HandleFunc("/api/images/set_main/", srv.handleSetMainImage)
	mux.HandleFunc("/api/images/", srv.handleImages)
	mux.HandleFunc("/uploads/", srv.handleUploads)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	mux.HandleFunc("/", srv.handleIndex)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// Start begins serving and shuts the server down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.bind, err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("http server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("http server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down without waiting for a context cancellation.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound listen address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) writeSuccess(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "server"))
	}
	return logging.NewNop()
}

// pathSuffix extracts the single path element after prefix, rejecting empty
// values and nested paths.
func pathSuffix(r *http.Request, prefix string) (string, bool) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
