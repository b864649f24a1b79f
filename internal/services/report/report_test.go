package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/takeoff/internal/models"
)

func TestWriteReport(t *testing.T) {
	service := NewService(arbor.NewLogger())

	troffer := "2x4 LED Troffer"
	summary := models.Summary{
		"A1": {Count: 5, Description: &troffer},
		"F2": {Count: 2},
	}
	rulebook := &models.Rulebook{
		Schedule: []models.ScheduleEntry{
			{Symbol: "A1", Description: troffer, Mount: "Recessed", Voltage: "277", Lumens: "4000"},
		},
		Notes: []models.Note{
			{Text: "All fixtures 277V unless noted.", SourceSheet: "page_3"},
		},
	}

	outDir := t.TempDir()
	path, err := service.WriteReport(outDir, "job_1", "floorplan.pdf", summary, rulebook)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "takeoff_report.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), 500)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestWriteReportEmptySummary(t *testing.T) {
	service := NewService(arbor.NewLogger())

	path, err := service.WriteReport(t.TempDir(), "job_2", "plan.pdf", models.Summary{}, &models.Rulebook{})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestBuildMarkdown(t *testing.T) {
	troffer := "2x4 LED Troffer"
	summary := models.Summary{"A1": {Count: 5, Description: &troffer}}
	rulebook := &models.Rulebook{
		Notes: []models.Note{{Text: "Verify ceiling types.", SourceSheet: "page_3"}},
	}

	markdown := buildMarkdown("job_1", "floorplan.pdf", summary, rulebook)

	assert.Contains(t, markdown, "# Lighting Fixture Takeoff")
	assert.Contains(t, markdown, "floorplan.pdf")
	assert.Contains(t, markdown, "| A1 | 5 | 2x4 LED Troffer |")
	assert.Contains(t, markdown, "**Total fixtures:** 5")
	assert.Contains(t, markdown, "- Verify ceiling types.")
}
