package models

// SummaryItem is the rolled-up result for one fixture symbol
type SummaryItem struct {
	Count       int     `json:"count"`
	Description *string `json:"description"`
}

// Summary maps fixture symbols to their aggregated counts and schedule
// descriptions. Symbols absent from the schedule carry a nil description.
type Summary map[string]SummaryItem

// Total returns the combined fixture count across all symbols
func (s Summary) Total() int {
	total := 0
	for _, item := range s {
		total += item.Count
	}
	return total
}
