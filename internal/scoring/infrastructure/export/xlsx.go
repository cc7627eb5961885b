package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/talentforge/hirespark/internal/scoring/domain"
	"github.com/xuri/excelize/v2"
)

// HistoryExporter produces XLSX workbooks from an owner's score history.
type HistoryExporter struct {
	history domain.HistoryRepository
	logger  *slog.Logger
}

// NewHistoryExporter creates a history exporter.
func NewHistoryExporter(history domain.HistoryRepository, logger *slog.Logger) *HistoryExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryExporter{history: history, logger: logger}
}

// ExportXLSX renders up to limit of the owner's newest history entries as an
// XLSX workbook and returns the file bytes.
func (e *HistoryExporter) ExportXLSX(ctx context.Context, owner domain.Owner, limit int) ([]byte, error) {
	start := time.Now()

	entries, err := e.history.ListByOwner(ctx, owner.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("query score history: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Score History"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headers := []string{
		"Scored At",
		"File Name",
		"Target Role",
		"Score",
		"Matching Keywords",
		"Reason",
		"Source",
		"Used Profile",
		"Task ID",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for rowIdx, entry := range entries {
		row := rowIdx + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		res := entry.Result()
		taskID := ""
		if id := entry.TaskID(); id != nil {
			taskID = id.String()
		}

		write(1, entry.CreatedAt().UTC().Format("2006-01-02 15:04:05"))
		write(2, entry.FileName())
		write(3, entry.TargetRole())
		write(4, res.Score)
		write(5, res.MatchingKeywords)
		write(6, truncateCell(res.Reason, 500))
		write(7, res.Source)
		write(8, res.UsedProfile)
		write(9, taskID)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}

	e.logger.Info("score history exported",
		slog.String("owner_id", owner.ID.String()),
		slog.Int("entries", len(entries)),
		slog.Duration("took", time.Since(start)))

	return buf.Bytes(), nil
}

func truncateCell(v string, max int) string {
	v = strings.TrimSpace(v)
	if len(v) <= max {
		return v
	}
	return v[:max]
}
