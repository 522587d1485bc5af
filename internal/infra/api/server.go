package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HistoryStats reports buffer lengths per user.
type HistoryStats interface {
	Stats(ctx context.Context) map[int64]int
	Cap() int
}

// Server is the operator-facing HTTP surface: health, metrics and a history
// summary. It never exposes message content.
type Server struct {
	history HistoryStats // nil in the stateless variant
	started time.Time
	log     *zerolog.Logger
}

func NewServer(history HistoryStats, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "admin").Logger()
	return &Server{history: history, started: time.Now(), log: &l}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(TraceID())
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))
	r.Use(Timeout(10 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/debug/history", s.handleHistory)
	return r
}

type historyEntry struct {
	UserID   int64 `json:"user_id"`
	Messages int   `json:"messages"`
}

type historyResponse struct {
	Enabled       bool           `json:"enabled"`
	Cap           int            `json:"cap,omitempty"`
	Conversations int            `json:"conversations"`
	Messages      int            `json:"messages"`
	Uptime        string         `json:"uptime"`
	Users         []historyEntry `json:"users"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	resp := historyResponse{Uptime: time.Since(s.started).Round(time.Second).String(), Users: []historyEntry{}}
	if s.history != nil {
		resp.Enabled = true
		resp.Cap = s.history.Cap()
		for id, n := range s.history.Stats(r.Context()) {
			resp.Users = append(resp.Users, historyEntry{UserID: id, Messages: n})
			resp.Messages += n
		}
		resp.Conversations = len(resp.Users)
		sort.Slice(resp.Users, func(i, j int) bool { return resp.Users[i].UserID < resp.Users[j].UserID })
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Warn().Err(err).Msg("encode history stats")
	}
}

// ListenAndServe serves on port until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("admin server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
