// Package api exposes uploads and report lookups over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dharsanguruparan/SalesDrop/internal/config"
	"github.com/dharsanguruparan/SalesDrop/internal/model"
	"github.com/dharsanguruparan/SalesDrop/internal/queue"
	"github.com/dharsanguruparan/SalesDrop/internal/repository"
	"github.com/dharsanguruparan/SalesDrop/internal/signing"
)

const shutdownTimeout = 5 * time.Second

// ObjectStore is the slice of object storage the API needs.
type ObjectStore interface {
	UploadRaw(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (model.Location, error)
	PresignURL(ctx context.Context, loc model.Location, ttl time.Duration) (string, error)
}

// Server exposes HTTP endpoints for uploads and report visibility.
type Server struct {
	cfg     *config.Config
	reports repository.ReportRepository
	objects ObjectStore
	jobs    queue.Enqueuer
	signer  *signing.Signer
	logger  *slog.Logger
	now     func() time.Time
}

// New constructs a Server.
func New(cfg *config.Config, reports repository.ReportRepository, objects ObjectStore, jobs queue.Enqueuer, signer *signing.Signer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		reports: reports,
		objects: objects,
		jobs:    jobs,
		signer:  signer,
		logger:  logger,
		now:     time.Now,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(s.logger))
	r.Use(Metrics)
	r.Use(cors)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/uploads", s.handleUpload)
	r.Route("/reports", func(r chi.Router) {
		r.Get("/", s.handleListReports)
		r.Get("/export", s.handleExport)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleReport)
			r.Get("/summary", s.handleSummary)
			r.Get("/source-url", s.handleSourceURL)
			r.Get("/signed-url", s.handleSignedURL)
		})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http shutdown", "error", err)
		}
	}()
	s.logger.Info("api listening", "address", s.cfg.Address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, errorBody{Error: msg})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode response", "error", err)
	}
}
