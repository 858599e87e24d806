package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/marinesafe/safety-advisor/internal/repository"
	"github.com/marinesafe/safety-advisor/internal/schema"
)

// Service is a tiny façade over the incident repository that produces XLSX
// bytes for the incident register export.
type Service struct {
	incidents repository.IncidentRepository
	logger    *slog.Logger
}

func NewService(incidents repository.IncidentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{incidents: incidents, logger: logger}
}

// ExportIncidentsXLSX returns an XLSX workbook (as bytes) holding every
// persisted incident, one row per record, columns in schema order.
func (s *Service) ExportIncidentsXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	recs, err := s.incidents.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Incidents"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{"id"}
	for _, fd := range schema.IncidentDescriptor.Fields {
		headers = append(headers, fd.Name)
	}
	headers = append(headers, "created_at")

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, rec := range recs {
		raw, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("flatten incident %s: %w", rec.ID, err)
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("flatten incident %s: %w", rec.ID, err)
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		for i, h := range headers {
			v := m[h]
			if v == nil {
				v = ""
			}
			write(i+1, v)
		}
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.ok", "incidents", len(recs), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}
