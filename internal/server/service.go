// Package server exposes the HTTP API: document upload, job status,
// listing, export and health.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/docsum/docsum/constants"
	"github.com/docsum/docsum/internal/async"
	"github.com/docsum/docsum/internal/blobstore"
	"github.com/docsum/docsum/internal/common"
	"github.com/docsum/docsum/internal/entity"
	"github.com/docsum/docsum/internal/export"
	"github.com/docsum/docsum/internal/job"
	"github.com/docsum/docsum/internal/repository"
)

// Config carries the HTTP-facing tunables.
type Config struct {
	MaxUploadSize int64
	RetainFor     time.Duration
}

type Service struct {
	db       *repository.DB
	jobs     repository.JobRepository
	blobs    blobstore.Store
	statuses *job.StatusService
	queue    async.Queue
	exporter *export.Service
	cfg      Config
	logger   *slog.Logger
}

func NewService(db *repository.DB, jobs repository.JobRepository, blobs blobstore.Store,
	statuses *job.StatusService, queue async.Queue, exporter *export.Service,
	cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = 32 << 20
	}
	return &Service{
		db:       db,
		jobs:     jobs,
		blobs:    blobs,
		statuses: statuses,
		queue:    queue,
		exporter: exporter,
		cfg:      cfg,
		logger:   logger,
	}
}

// Router builds the chi router with the full route table.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/documents", s.handleUpload)
		r.Get("/jobs", s.handleList)
		r.Get("/jobs/export", s.handleExport)
		r.Get("/jobs/{jobID}", s.handleStatus)
	})
	return r
}

// handleUpload accepts a multipart document, stores it and creates the
// job. The response is 202 with the job id; processing happens in the
// background.
func (s *Service) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, common.CodeInputTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadSize))
			return
		}
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "expected multipart form data")
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", `missing "document" file field`)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, common.CodeInputTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadSize))
			return
		}
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "unreadable upload")
		return
	}
	// Empty documents are accepted; the pipeline records the EMPTY_INPUT
	// failure on the job so the client sees it through the status poll.
	ext := constants.NormalizeExt(filepath.Ext(header.Filename))
	mediaType := strings.ToUpper(strings.TrimSpace(r.FormValue("media_type")))
	if mediaType == "" {
		mediaType = constants.MapExtToFormat(ext)
	}
	if !constants.IsMediaType(mediaType) {
		s.writeError(w, http.StatusUnsupportedMediaType, common.CodeUnsupportedFormat,
			fmt.Sprintf("cannot determine media type for %q; pass media_type=TXT|PDF|IMAGE", header.Filename))
		return
	}

	id := uuid.New()
	inputRef := blobstore.InputKey(id.String(), ext)
	if err := s.blobs.Put(r.Context(), inputRef, data); err != nil {
		s.logger.Error("input blob store failed", "job_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, common.CodePersistenceFailure, "could not store document")
		return
	}

	j := &entity.Job{
		ID:        id,
		State:     constants.StateCreated,
		InputRef:  inputRef,
		MediaType: mediaType,
	}
	if s.cfg.RetainFor > 0 {
		until := time.Now().UTC().Add(s.cfg.RetainFor)
		j.RetainUntil = &until
	}
	if err := s.jobs.Create(r.Context(), j); err != nil {
		s.logger.Error("job create failed", "job_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, common.CodePersistenceFailure, "could not create job")
		return
	}

	if err := s.queue.Enqueue(r.Context(), async.Job{JobID: id, SubmittedAt: time.Now()}); err != nil {
		s.logger.Error("enqueue failed", "job_id", id, "error", err)
	}

	s.logger.Info("document accepted",
		"job_id", id, "media_type", mediaType, "bytes", len(data), "filename", header.Filename)
	s.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": id.String()})
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "job id must be a UUID")
		return
	}

	st, err := s.statuses.GetStatus(r.Context(), id)
	if errors.Is(err, common.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", "no such job")
		return
	}
	if err != nil {
		s.logger.Error("status query failed", "job_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, common.CodePersistenceFailure, "could not load job")
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	sts, err := s.statuses.ListStatuses(r.Context(), limit)
	if err != nil {
		s.logger.Error("list query failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, common.CodePersistenceFailure, "could not list jobs")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": sts})
}

func (s *Service) handleExport(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	data, err := s.exporter.ExportJobsXLSX(r.Context(), limit)
	if err != nil {
		s.logger.Error("export failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, common.CodePersistenceFailure, "could not export jobs")
		return
	}
	name := "jobs-" + time.Now().UTC().Format("20060102-150405") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.HealthCheck(r.Context(), 2*time.Second); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "UNHEALTHY", "metadata store unreachable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Service) writeError(w http.ResponseWriter, status int, code, msg string) {
	s.writeJSON(w, status, map[string]apiError{"error": {Code: code, Message: msg}})
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", "error", err)
	}
}
