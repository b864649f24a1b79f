package models

// ScheduleEntry is one row of a lighting fixture schedule table
type ScheduleEntry struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description,omitempty"`
	Mount       string `json:"mount,omitempty"`
	Voltage     string `json:"voltage,omitempty"`
	Lumens      string `json:"lumens,omitempty"`
	SourceSheet string `json:"source_sheet,omitempty"`
}

// Note is a general note harvested from a drawing sheet
type Note struct {
	Text        string `json:"text"`
	SourceSheet string `json:"source_sheet,omitempty"`
}

// Rulebook is the extracted document context handed to the summarizer:
// the fixture schedule plus any general notes found alongside it.
type Rulebook struct {
	Schedule []ScheduleEntry `json:"schedule"`
	Notes    []Note          `json:"notes"`
}

// Entry returns the schedule row for a symbol, or nil when the symbol
// is not in the schedule. Lookup is exact match on the type mark.
func (r *Rulebook) Entry(symbol string) *ScheduleEntry {
	for i := range r.Schedule {
		if r.Schedule[i].Symbol == symbol {
			return &r.Schedule[i]
		}
	}
	return nil
}
