package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/takeoff/internal/models"
)

// Service writes a PDF takeoff report for a completed job. Report
// generation is best-effort: a failure here never changes job status.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new report service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// WriteReport renders the takeoff report for a job into outDir and
// returns the path of the written PDF.
func (s *Service) WriteReport(outDir, jobID, filename string, summary models.Summary, rulebook *models.Rulebook) (string, error) {
	markdown := buildMarkdown(jobID, filename, summary, rulebook)

	pdfBytes, err := renderMarkdownPDF(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render report PDF: %w", err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	outPath := filepath.Join(outDir, "takeoff_report.pdf")
	if err := os.WriteFile(outPath, pdfBytes, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report PDF: %w", err)
	}

	s.logger.Info().
		Str("job_id", jobID).
		Str("path", outPath).
		Int("size", len(pdfBytes)).
		Msg("Takeoff report written")

	return outPath, nil
}

// buildMarkdown assembles the report content: fixture counts, the parsed
// schedule, and schedule notes.
func buildMarkdown(jobID, filename string, summary models.Summary, rulebook *models.Rulebook) string {
	var b strings.Builder

	b.WriteString("# Lighting Fixture Takeoff\n\n")
	fmt.Fprintf(&b, "**Source:** %s\n\n", filename)
	fmt.Fprintf(&b, "**Job:** %s\n\n", jobID)

	b.WriteString("## Fixture Counts\n\n")
	if len(summary) == 0 {
		b.WriteString("No fixture symbols were detected.\n\n")
	} else {
		symbols := make([]string, 0, len(summary))
		for symbol := range summary {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)

		b.WriteString("| Symbol | Count | Description |\n")
		b.WriteString("| --- | --- | --- |\n")
		for _, symbol := range symbols {
			item := summary[symbol]
			description := ""
			if item.Description != nil {
				description = *item.Description
			}
			fmt.Fprintf(&b, "| %s | %d | %s |\n", symbol, item.Count, description)
		}
		fmt.Fprintf(&b, "\n**Total fixtures:** %d\n\n", summary.Total())
	}

	if rulebook != nil && len(rulebook.Schedule) > 0 {
		b.WriteString("## Fixture Schedule\n\n")
		b.WriteString("| Symbol | Description | Mount | Voltage | Lumens |\n")
		b.WriteString("| --- | --- | --- | --- | --- |\n")
		for _, entry := range rulebook.Schedule {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				entry.Symbol, entry.Description, entry.Mount, entry.Voltage, entry.Lumens)
		}
		b.WriteString("\n")
	}

	if rulebook != nil && len(rulebook.Notes) > 0 {
		b.WriteString("## Schedule Notes\n\n")
		for _, note := range rulebook.Notes {
			fmt.Fprintf(&b, "- %s\n", note.Text)
		}
		b.WriteString("\n")
	}

	return b.String()
}
