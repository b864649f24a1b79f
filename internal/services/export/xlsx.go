package export

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/xuri/excelize/v2"

	"github.com/ternarybob/takeoff/internal/models"
)

const summarySheet = "Fixture Counts"

// Service renders completed takeoff results as XLSX workbooks
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new export service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// SummaryWorkbook renders the fixture summary as an XLSX workbook and
// returns the encoded bytes.
func (s *Service) SummaryWorkbook(jobID string, summary models.Summary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(summarySheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headers := []string{"Symbol", "Count", "Description"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(summarySheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header cell: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		_ = f.SetCellStyle(summarySheet, "A1", "C1", headerStyle)
	}

	symbols := make([]string, 0, len(summary))
	for symbol := range summary {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for row, symbol := range symbols {
		item := summary[symbol]
		description := ""
		if item.Description != nil {
			description = *item.Description
		}

		values := []interface{}{symbol, item.Count, description}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, fmt.Errorf("failed to compute data cell: %w", err)
			}
			if err := f.SetCellValue(summarySheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write data cell: %w", err)
			}
		}
	}

	totalRow := len(symbols) + 2
	totalCell, err := excelize.CoordinatesToCellName(1, totalRow)
	if err != nil {
		return nil, fmt.Errorf("failed to compute total cell: %w", err)
	}
	if err := f.SetCellValue(summarySheet, totalCell, "TOTAL"); err != nil {
		return nil, fmt.Errorf("failed to write total label: %w", err)
	}
	countCell, err := excelize.CoordinatesToCellName(2, totalRow)
	if err != nil {
		return nil, fmt.Errorf("failed to compute total count cell: %w", err)
	}
	if err := f.SetCellValue(summarySheet, countCell, summary.Total()); err != nil {
		return nil, fmt.Errorf("failed to write total count: %w", err)
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 12)
	_ = f.SetColWidth(summarySheet, "B", "B", 10)
	_ = f.SetColWidth(summarySheet, "C", "C", 60)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}

	s.logger.Debug().
		Str("job_id", jobID).
		Int("symbols", len(symbols)).
		Int("size", buf.Len()).
		Msg("Summary workbook generated")

	return buf.Bytes(), nil
}
