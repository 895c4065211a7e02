// HTTP surface.
//
// Information Hiding:
// - Route table and request decoding hidden
// - Error-to-status mapping hidden
// - Graceful shutdown hidden

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/richinex/feedsage/agent"
)

const (
	maxRequestBytes = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// HTTPServer serves POST /chat, GET /health and GET /.
type HTTPServer struct {
	asker  Asker
	addr   string
	logger zerolog.Logger
}

// NewHTTPServer creates an HTTP surface listening on addr.
func NewHTTPServer(asker Asker, addr string, logger zerolog.Logger) *HTTPServer {
	return &HTTPServer{asker: asker, addr: addr, logger: logger}
}

// Handler returns the route table.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	return mux
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info().Msg("http server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req agent.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	resp, err := s.asker.Ask(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, agent.ErrEmptyQuery):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	default:
		s.logger.Error().Err(err).Msg("chat request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: fmt.Sprintf("Error processing message: %v", err)})
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": ServiceName})
}

func (s *HTTPServer) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": ServiceName + " API", "status": "running"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
