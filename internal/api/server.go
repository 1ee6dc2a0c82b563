// Package api exposes the HTTP interface for the batch recording service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/webreel/webreel/internal/batch"
	"github.com/webreel/webreel/internal/dispatcher"
	queuememory "github.com/webreel/webreel/internal/queue/memory"
	"github.com/webreel/webreel/internal/store"
	storememory "github.com/webreel/webreel/internal/store/memory"
)

// Server wires HTTP handlers to the dispatcher and batch store.
type Server struct {
	router     chi.Router
	batches    *storememory.BatchStore
	dispatcher *dispatcher.Dispatcher
	clock      func() time.Time
	maxBatch   int
	logger     *zap.Logger
}

const defaultMaxBatchURLs = 1000

// NewServer constructs a Server with middleware and routes. registry may be
// nil to use the default Prometheus registry.
func NewServer(
	batches *storememory.BatchStore,
	d *dispatcher.Dispatcher,
	registry *prometheus.Registry,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		batches:    batches,
		dispatcher: d,
		clock:      func() time.Time { return time.Now().UTC() },
		maxBatch:   defaultMaxBatchURLs,
		logger:     logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.healthz)
	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	} else {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Route("/v1/batches", func(r chi.Router) {
		r.Post("/", s.submitBatch)
		r.Route("/{batch_id}", func(r chi.Router) {
			r.Get("/", s.getBatch)
			r.Get("/report", s.getBatchReport)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitBatchRequest struct {
	URLs        []string `json:"urls"`
	Concurrency int      `json:"concurrency"`
}

type submitBatchResponse struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

func (s *Server) submitBatch(w http.ResponseWriter, r *http.Request) {
	var req submitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls is required")
		return
	}
	if len(req.URLs) > s.maxBatch {
		writeError(w, http.StatusBadRequest, "too many urls")
		return
	}
	if req.Concurrency < 1 {
		req.Concurrency = 1
	}

	id := uuid.New()
	s.batches.Create(store.Batch{
		ID:          id,
		Status:      store.BatchStatusQueued,
		Submitted:   s.clock(),
		URLs:        req.URLs,
		Concurrency: req.Concurrency,
	})
	if err := s.dispatcher.Enqueue(r.Context(), queuememory.BatchItem{
		BatchID:     id,
		URLs:        req.URLs,
		Concurrency: req.Concurrency,
		Submitted:   s.clock().Unix(),
	}); err != nil {
		s.logger.Error("batch enqueue failed", zap.String("batch_id", id.String()), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "queue is full")
		return
	}
	writeJSON(w, http.StatusAccepted, submitBatchResponse{ID: id, Status: string(store.BatchStatusQueued)})
}

func (s *Server) getBatch(w http.ResponseWriter, r *http.Request) {
	batchRec, ok := s.lookupBatch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, batchRec)
}

func (s *Server) getBatchReport(w http.ResponseWriter, r *http.Request) {
	batchRec, ok := s.lookupBatch(w, r)
	if !ok {
		return
	}
	if batchRec.Finished == nil {
		writeError(w, http.StatusConflict, "batch is still running")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	batch.WriteSummary(w, batchRec.Results)
}

func (s *Server) lookupBatch(w http.ResponseWriter, r *http.Request) (store.Batch, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "batch_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch id")
		return store.Batch{}, false
	}
	batchRec, err := s.batches.Get(id)
	if err != nil {
		if errors.Is(err, storememory.ErrNotFound) {
			writeError(w, http.StatusNotFound, "batch not found")
			return store.Batch{}, false
		}
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return store.Batch{}, false
	}
	return batchRec, true
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
