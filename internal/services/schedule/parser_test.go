package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRulebookScheduleTable(t *testing.T) {
	pages := map[int]string{
		3: "LIGHTING FIXTURE SCHEDULE\n" +
			"Type Mark\tDescription\tMounting\tVoltage\tInitial Nom. Lumen Output\n" +
			"a1\t2x4 LED Troffer\tRecessed\t277\t4000\n" +
			"F2\tPendant Cylinder\tSuspended\t120\t2200\n" +
			"\t(missing type mark)\tSurface\t120\t1000\n",
	}

	rulebook := ParseRulebook(pages)
	require.Len(t, rulebook.Schedule, 2)

	assert.Equal(t, "A1", rulebook.Schedule[0].Symbol)
	assert.Equal(t, "2x4 LED Troffer", rulebook.Schedule[0].Description)
	assert.Equal(t, "Recessed", rulebook.Schedule[0].Mount)
	assert.Equal(t, "277", rulebook.Schedule[0].Voltage)
	assert.Equal(t, "4000", rulebook.Schedule[0].Lumens)
	assert.Equal(t, "page_3", rulebook.Schedule[0].SourceSheet)

	assert.Equal(t, "F2", rulebook.Schedule[1].Symbol)
}

func TestParseRulebookHeaderAliases(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "type mark and mounting", header: "Type Mark\tDescription\tMounting"},
		{name: "symbol and mount", header: "Symbol\tDescription\tMount"},
		{name: "mark and volts", header: "Mark\tDescription\tVolts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := map[int]string{
				1: tt.header + "\nA1\tTroffer\tRecessed\n",
			}
			rulebook := ParseRulebook(pages)
			require.Len(t, rulebook.Schedule, 1)
			assert.Equal(t, "A1", rulebook.Schedule[0].Symbol)
			assert.Equal(t, "Troffer", rulebook.Schedule[0].Description)
		})
	}
}

func TestParseRulebookNoScheduleHeader(t *testing.T) {
	pages := map[int]string{
		1: "FLOOR PLAN\nsome drawing text\nA1 A1 A1\n",
	}

	rulebook := ParseRulebook(pages)
	assert.Empty(t, rulebook.Schedule)
}

func TestParseRulebookDuplicateSymbolsFirstWins(t *testing.T) {
	pages := map[int]string{
		2: "Symbol\tDescription\nA1\tFirst definition\n",
		5: "Symbol\tDescription\nA1\tSecond definition\n",
	}

	rulebook := ParseRulebook(pages)
	require.Len(t, rulebook.Schedule, 1)
	assert.Equal(t, "First definition", rulebook.Schedule[0].Description)
	assert.Equal(t, "page_2", rulebook.Schedule[0].SourceSheet)
}

func TestParseRulebookStopsAtBlankLine(t *testing.T) {
	pages := map[int]string{
		1: "Symbol\tDescription\nA1\tTroffer\n\nNB  this row is past the table\n",
	}

	rulebook := ParseRulebook(pages)
	require.Len(t, rulebook.Schedule, 1)
	assert.Equal(t, "A1", rulebook.Schedule[0].Symbol)
}

func TestParseRulebookNotes(t *testing.T) {
	pages := map[int]string{
		4: "GENERAL NOTES\n" +
			"1. All fixtures 277V unless noted.\n" +
			"2. Verify ceiling types before ordering.\n" +
			"- Coordinate with RCP.\n" +
			"unrelated drawing text\n",
	}

	rulebook := ParseRulebook(pages)
	require.Len(t, rulebook.Notes, 4)
	assert.Equal(t, "GENERAL NOTES", rulebook.Notes[0].Text)
	assert.Equal(t, "All fixtures 277V unless noted.", rulebook.Notes[1].Text)
	assert.Equal(t, "Verify ceiling types before ordering.", rulebook.Notes[2].Text)
	assert.Equal(t, "Coordinate with RCP.", rulebook.Notes[3].Text)
	assert.Equal(t, "page_4", rulebook.Notes[1].SourceSheet)
}

func TestParseRulebookNoteDedupeKeepsFirstCasing(t *testing.T) {
	pages := map[int]string{
		1: "1. All Fixtures 277V.\n",
		2: "1. ALL FIXTURES 277V.\n",
	}

	rulebook := ParseRulebook(pages)
	require.Len(t, rulebook.Notes, 1)
	assert.Equal(t, "All Fixtures 277V.", rulebook.Notes[0].Text)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "type_mark", normalizeHeader("  Type Mark "))
	assert.Equal(t, "initial_nom._lumen_output", normalizeHeader("Initial Nom. Lumen Output"))
	assert.Equal(t, "description", normalizeHeader("DESCRIPTION"))
}
