// Package httpapi serves the operator endpoints: health probes, Prometheus
// metrics and read-only views of the phrase list and the moderation journal.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edgard/phraseguard/internal/database"
	"github.com/edgard/phraseguard/internal/moderation"
	"github.com/edgard/phraseguard/internal/observability"
)

const (
	maxEventsLimit  = 500
	readyTimeout    = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Journal is the read side of the moderation journal.
type Journal interface {
	Ping(ctx context.Context) error
	RecentModerationEvents(ctx context.Context, limit int) ([]database.ModerationEvent, error)
	RecentPhraseChanges(ctx context.Context, limit int) ([]database.PhraseChange, error)
}

// PhraseSource exposes the current phrase snapshot.
type PhraseSource interface {
	Snapshot() *moderation.Snapshot
}

type Server struct {
	journal Journal
	phrases PhraseSource
	metrics *observability.Metrics
	logger  *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type phrasesResponse struct {
	Count   int      `json:"count"`
	Phrases []string `json:"phrases"`
}

type eventResponse struct {
	database.ModerationEvent
	UserID *int64 `json:"user_id"`
}

func New(journal Journal, phrases PhraseSource, metrics *observability.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		journal: journal,
		phrases: phrases,
		metrics: metrics,
		logger:  logger.With("component", "httpapi"),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Handler().ServeHTTP(w, r)
	})

	r.Get("/v1/phrases", s.handlePhrases)
	r.Get("/v1/events", s.handleEvents)
	r.Get("/v1/phrase-changes", s.handlePhraseChanges)

	return r
}

// Run serves on addr until ctx is cancelled, then shuts the server down.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Ops API listening", "addr", ln.Addr().String())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("ops api stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("Ops API graceful shutdown failed", "error", err)
		_ = httpServer.Close()
	}
	s.logger.Info("Ops API stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.journal.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", "error", err)
		respondError(w, http.StatusServiceUnavailable, "database_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handlePhrases(w http.ResponseWriter, _ *http.Request) {
	snap := s.phrases.Snapshot()
	respondJSON(w, http.StatusOK, phrasesResponse{Count: snap.Len(), Phrases: snap.Phrases()})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	events, err := s.journal.RecentModerationEvents(r.Context(), limit)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list moderation events", "error", err)
		respondError(w, http.StatusInternalServerError, "journal_error", "failed to read moderation events")
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		resp := eventResponse{ModerationEvent: ev}
		if ev.UserID.Valid {
			id := ev.UserID.Int64
			resp.UserID = &id
		}
		out = append(out, resp)
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (s *Server) handlePhraseChanges(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	changes, err := s.journal.RecentPhraseChanges(r.Context(), limit)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list phrase changes", "error", err)
		respondError(w, http.StatusInternalServerError, "journal_error", "failed to read phrase changes")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"changes": changes})
}

// parseLimit reads the optional limit query parameter. Zero selects the
// store default.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxEventsLimit {
		respondError(w, http.StatusBadRequest, "invalid_limit",
			fmt.Sprintf("limit must be an integer between 1 and %d", maxEventsLimit))
		return 0, false
	}
	return limit, true
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
