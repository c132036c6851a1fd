package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Jetrug/companysheet/constants"
	"github.com/Jetrug/companysheet/internal/entity"
	"github.com/Jetrug/companysheet/internal/store"
	"github.com/Jetrug/companysheet/internal/view"
)

// Service is a tiny façade over the record store that produces XLSX bytes
// for exports. Fresh (not yet persisted) records are merged in so the
// workbook matches what the table shows.
type Service struct {
	store  store.RecordStore
	logger *slog.Logger
}

func NewService(st store.RecordStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, logger: logger}
}

// ExportRecordsXLSX returns an XLSX workbook (as bytes) of the record table,
// filtered and ordered by q the same way the records listing is.
func (s *Service) ExportRecordsXLSX(ctx context.Context, fresh []entity.Record, q view.Query) ([]byte, error) {
	start := time.Now()

	persisted, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	recs := view.Project(view.Merge(fresh, persisted), q)

	f := excelize.NewFile()
	const sheet = "Companies"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{"File Name"}
	for _, field := range constants.Fields() {
		headers = append(headers, field.Label())
	}
	headers = append(headers, "Imported")
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.DisplayName())
		col := 2
		for _, field := range constants.Fields() {
			value := ""
			if c := r.Canonical(field); c != nil {
				value = c.Value
			}
			if field == constants.Description || field == constants.BusinessModel {
				value = truncate(value, 300)
			}
			write(col, value)
			col++
		}
		if !r.CreatedAt.IsZero() {
			write(col, r.CreatedAt.UTC().Format("2006-01-02"))
		} else {
			write(col, "")
		}

		row++
	}

	// Widen the prose columns
	_ = f.SetColWidth(sheet, "A", "A", 28) // file name
	_ = f.SetColWidth(sheet, "B", "B", 24) // company name
	_ = f.SetColWidth(sheet, "C", "D", 48) // description, business model
	_ = f.SetColWidth(sheet, "E", "E", 20) // industry
	_ = f.SetColWidth(sheet, "F", "F", 36) // management team
	_ = f.SetColWidth(sheet, "G", "K", 14) // financials
	_ = f.SetColWidth(sheet, "L", "L", 12) // imported

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
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
