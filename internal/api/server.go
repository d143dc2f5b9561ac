package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/MikeSquared-Agency/pear/internal/processor"
	"github.com/MikeSquared-Agency/pear/internal/reconcile"
	"github.com/MikeSquared-Agency/pear/internal/store"
)

// TranscriptProcessor runs the extraction pipeline. *processor.Processor
// satisfies it.
type TranscriptProcessor interface {
	ProcessTranscript(ctx context.Context, t processor.Transcript) (processor.Outcome, error)
}

type Server struct {
	router   *chi.Mux
	store    *store.Store
	engine   *reconcile.Engine
	proc     TranscriptProcessor
	validate *validator.Validate
	logger   *slog.Logger
}

// NewServer wires the routes. proc may be nil, in which case transcript
// submission answers 503.
func NewServer(st *store.Store, eng *reconcile.Engine, proc TranscriptProcessor, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		store:    st,
		engine:   eng,
		proc:     proc,
		validate: validator.New(),
		logger:   logger,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1/pear", func(r chi.Router) {
		r.Get("/status", s.status)
		r.Get("/sessions", s.listSessions)
		r.Get("/sessions/{id}/records", s.sessionRecords)
		r.Get("/records/{id}", s.getRecord)
		r.Post("/records/{id}/clarify", s.clarifyRecord)
		r.Post("/transcripts", s.submitTranscript)
	})

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"agent":  "pear",
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}

	sessions, err := s.store.CountSessionsByStatus(ctx)
	if err != nil {
		s.internalError(w, "count sessions", err)
		return
	}
	records, err := s.store.CountRecordsByDomain(ctx)
	if err != nil {
		s.internalError(w, "count records", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"agent":    "pear",
		"status":   "ok",
		"store":    s.store.Dialect(),
		"sessions": sessions,
		"records":  records,
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("request failed", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, op+" failed")
}

// storeError maps ErrNotFound to 404, ErrDuplicateRecord to 409 and
// anything else to 500.
func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrDuplicateRecord):
		writeError(w, http.StatusConflict, "record already exists")
	default:
		s.internalError(w, op, err)
	}
}
