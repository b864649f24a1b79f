package schedule

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ternarybob/takeoff/internal/models"
)

var (
	// columnSplit separates schedule table cells: tabs or runs of two
	// or more spaces
	columnSplit = regexp.MustCompile(`\t+|\s{2,}`)

	// noteMarker matches enumerated or bulleted note lines
	noteMarker = regexp.MustCompile(`^\s*(\d+\.|[-*\x{2022}])\s+`)
)

// columnAliases maps normalized schedule headers to rulebook fields
var columnAliases = map[string]string{
	"type_mark":                 "symbol",
	"symbol":                    "symbol",
	"mark":                      "symbol",
	"description":               "description",
	"mounting":                  "mount",
	"mount":                     "mount",
	"voltage":                   "voltage",
	"volts":                     "voltage",
	"initial_nom._lumen_output": "lumens",
	"initial_lumen_output":      "lumens",
	"lumens":                    "lumens",
}

// ParseRulebook parses per-page text into a rulebook. Duplicate symbols
// keep the first row seen in page order; duplicate notes dedupe by
// case-insensitive text with the first casing kept.
func ParseRulebook(pages map[int]string) *models.Rulebook {
	rulebook := &models.Rulebook{}

	pageNumbers := make([]int, 0, len(pages))
	for n := range pages {
		pageNumbers = append(pageNumbers, n)
	}
	sort.Ints(pageNumbers)

	seenSymbols := make(map[string]bool)
	seenNotes := make(map[string]bool)

	for _, n := range pageNumbers {
		sheet := fmt.Sprintf("page_%d", n)
		lines := strings.Split(pages[n], "\n")

		for _, entry := range parseScheduleRows(lines, sheet) {
			if seenSymbols[entry.Symbol] {
				continue
			}
			seenSymbols[entry.Symbol] = true
			rulebook.Schedule = append(rulebook.Schedule, entry)
		}

		for _, note := range parseNotes(lines, sheet) {
			key := strings.ToLower(strings.TrimSpace(note.Text))
			if key == "" || seenNotes[key] {
				continue
			}
			seenNotes[key] = true
			rulebook.Notes = append(rulebook.Notes, note)
		}
	}

	return rulebook
}

// parseScheduleRows finds the schedule header row and maps the rows
// below it. Rows without a symbol cell are dropped.
func parseScheduleRows(lines []string, sheet string) []models.ScheduleEntry {
	headerIdx, columns := findScheduleHeader(lines)
	if headerIdx < 0 {
		return nil
	}

	var entries []models.ScheduleEntry
	for _, line := range lines[headerIdx+1:] {
		if strings.TrimSpace(line) == "" {
			break
		}

		cells := splitCells(line)
		entry := models.ScheduleEntry{SourceSheet: sheet}
		for i, cell := range cells {
			if i >= len(columns) {
				break
			}
			value := strings.TrimSpace(cell)
			switch columns[i] {
			case "symbol":
				entry.Symbol = strings.ToUpper(value)
			case "description":
				entry.Description = value
			case "mount":
				entry.Mount = value
			case "voltage":
				entry.Voltage = value
			case "lumens":
				entry.Lumens = value
			}
		}

		if entry.Symbol == "" {
			continue
		}
		entries = append(entries, entry)
	}

	return entries
}

// findScheduleHeader locates the header row of a fixture schedule: a
// line whose normalized cells include a symbol column and a description
// column. Returns the line index and the field name per column.
func findScheduleHeader(lines []string) (int, []string) {
	for i, line := range lines {
		cells := splitCells(line)
		if len(cells) < 2 {
			continue
		}

		columns := make([]string, len(cells))
		hasSymbol := false
		hasDescription := false
		for j, cell := range cells {
			field := columnAliases[normalizeHeader(cell)]
			columns[j] = field
			if field == "symbol" {
				hasSymbol = true
			}
			if field == "description" {
				hasDescription = true
			}
		}

		if hasSymbol && hasDescription {
			return i, columns
		}
	}
	return -1, nil
}

// parseNotes harvests general notes: enumerated or bulleted lines, and
// lines announcing a general note block
func parseNotes(lines []string, sheet string) []models.Note {
	var notes []models.Note
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if noteMarker.MatchString(line) || strings.Contains(strings.ToUpper(trimmed), "GENERAL NOTE") {
			text := strings.TrimSpace(noteMarker.ReplaceAllString(line, ""))
			if text == "" {
				continue
			}
			notes = append(notes, models.Note{Text: text, SourceSheet: sheet})
		}
	}
	return notes
}

// normalizeHeader lowercases a header cell and joins whitespace runs
// with underscores
func normalizeHeader(cell string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(cell))), "_")
}

// splitCells splits a table line into cells, preserving empty leading
// cells so rows with a missing symbol column stay aligned
func splitCells(line string) []string {
	cells := columnSplit.Split(strings.TrimRight(line, " \t"), -1)
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}
