// Package export produces XLSX reports of job history.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/docsum/docsum/internal/repository"
)

// Service is a tiny façade over the job repository that produces XLSX bytes.
type Service struct {
	jobs   repository.JobRepository
	logger *slog.Logger
}

func NewService(jobs repository.JobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

// ExportJobsXLSX returns an XLSX workbook (as bytes) with the most recent
// jobs, newest first. limit <= 0 falls back to the repository default.
func (s *Service) ExportJobsXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()

	jobs, err := s.jobs.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Jobs"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Job ID",
		"State",
		"Media Type",
		"Text Length",
		"Summary Length",
		"Attempts (extract/summarize)",
		"Duration (ms)",
		"Error",
		"Created",
		"Updated",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, j := range jobs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, j.ID.String())
		write(2, string(j.State))
		write(3, j.MediaType)
		write(4, j.TextLength)
		write(5, j.SummaryLength)
		write(6, fmt.Sprintf("%d/%d", j.ExtractAttempts, j.SummarizeAttempts))
		write(7, j.Duration.Milliseconds())
		if j.ErrorMessage != nil {
			write(8, truncate(*j.ErrorMessage, 140))
		} else {
			write(8, "")
		}
		write(9, j.CreatedAt.UTC().Format(time.RFC3339))
		write(10, j.UpdatedAt.UTC().Format(time.RFC3339))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 38) // id
	_ = f.SetColWidth(sheet, "B", "C", 14)
	_ = f.SetColWidth(sheet, "D", "G", 12)
	_ = f.SetColWidth(sheet, "H", "H", 48) // error
	_ = f.SetColWidth(sheet, "I", "J", 22) // timestamps

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(jobs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
