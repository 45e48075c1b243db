// docsumd is the summarization service daemon: HTTP API plus the
// background workers that drive jobs through extraction and
// summarization.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/docsum/docsum/constants"
	"github.com/docsum/docsum/internal/async"
	"github.com/docsum/docsum/internal/blobstore"
	"github.com/docsum/docsum/internal/common"
	"github.com/docsum/docsum/internal/export"
	"github.com/docsum/docsum/internal/extract"
	"github.com/docsum/docsum/internal/job"
	"github.com/docsum/docsum/internal/llm/openai"
	"github.com/docsum/docsum/internal/notify"
	"github.com/docsum/docsum/internal/ocr"
	"github.com/docsum/docsum/internal/repository"
	"github.com/docsum/docsum/internal/server"
	"github.com/docsum/docsum/internal/summarize"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open metadata store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.HealthCheck(ctx, 5*time.Second); err != nil {
		logger.Error("metadata store health check failed", "error", err)
		os.Exit(1)
	}

	jobsRepo, err := repository.NewJobRepository(db, logger)
	if err != nil {
		logger.Error("failed to init job repository", "error", err)
		os.Exit(1)
	}

	blobs, err := blobstore.NewFS(cfg.Blob.Dir, logger)
	if err != nil {
		logger.Error("failed to init blob store", "error", err)
		os.Exit(1)
	}

	recognizer := ocr.NewExtractor(ocr.Config{
		Tesseract:     cfg.OCR.Tesseract,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
	}, logger)

	model := openai.NewClient(openai.FromLLMConfig(cfg.LLM), logger)

	extractStage := extract.NewStage(blobs, recognizer, logger)
	summarizeStage := summarize.NewStage(blobs, model, cfg.Pipeline.InputLimit, logger)

	orchestrator := job.NewOrchestrator(jobsRepo, extractStage, summarizeStage, job.Config{
		MaxAttempts:  cfg.Pipeline.MaxAttempts,
		StageTimeout: cfg.Pipeline.StageTimeout,
	}, logger)

	statuses := job.NewStatusService(jobsRepo, blobs, cfg.Pipeline.MaxInlineSummary, logger)
	webhook := notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.Timeout, logger)

	queue := async.NewAdvanceQueue(orchestrator, logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(512),
		async.WithAdvanceTimeout(cfg.Pipeline.StageTimeout+time.Minute),
		async.WithRetryBackoff(cfg.Pipeline.RetryBackoffBase),
		async.WithTerminalHook(func(ctx context.Context, jobID uuid.UUID, state constants.JobState) {
			st, err := statuses.GetStatus(ctx, jobID)
			if err != nil {
				logger.Warn("terminal status lookup failed", "job_id", jobID, "error", err)
				return
			}
			webhook.JobFinished(ctx, st)
		}),
	)

	exporter := export.NewService(jobsRepo, logger)

	svc := server.NewService(db, jobsRepo, blobs, statuses, queue, exporter, server.Config{
		MaxUploadSize: cfg.Server.MaxUploadSize,
		RetainFor:     cfg.Pipeline.RetainFor,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           svc.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("docsumd listening", "addr", cfg.Server.Addr, "db_driver", cfg.Database.Driver)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err)
	}
	queue.Shutdown(shutdownCtx)
}
