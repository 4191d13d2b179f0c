// Package dispatch queues started games for the worker and reports on the
// games in progress.
package dispatch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Server exposes the queue over HTTP.
type Server struct {
	q   *Queue
	log zerolog.Logger
}

func NewServer(q *Queue) *Server {
	return &Server{q: q, log: q.log}
}

// Handler returns the status routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/queue", s.handleViewQueue)
	mux.HandleFunc("/stats", s.handleGetStats)
	return mux
}

// ListenAndServe serves the status routes on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", addr).Msg("starting status server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
