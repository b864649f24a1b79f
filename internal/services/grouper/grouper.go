package grouper

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/takeoff/internal/common"
	"github.com/ternarybob/takeoff/internal/interfaces"
	"github.com/ternarybob/takeoff/internal/models"
)

// summarySchema constrains the shape of the LLM grouping response: a map
// of symbol to {count, description} where description may be null.
const summarySchema = `{
	"type": "object",
	"additionalProperties": {
		"type": "object",
		"properties": {
			"count": {"type": "integer", "minimum": 0},
			"description": {"type": ["string", "null"]}
		},
		"required": ["count"],
		"additionalProperties": false
	}
}`

const systemPrompt = `You are an estimating assistant for electrical lighting takeoffs.
You group detected fixture symbols from construction drawings and attach
the matching description from the fixture schedule. Respond with JSON only,
no prose and no markdown fences.`

// Service groups detected symbols into a fixture summary. Counting is done
// locally; the LLM contributes grouping and schedule descriptions.
type Service struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
	schema *jsonschema.Schema
}

var _ interfaces.Summarizer = (*Service)(nil)

// NewService creates a grouping service backed by the given LLM provider
func NewService(llm interfaces.LLMService, logger arbor.ILogger) (*Service, error) {
	schema, err := jsonschema.CompileString("summary.json", summarySchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile summary schema: %w", err)
	}

	return &Service{
		llm:    llm,
		logger: logger,
		schema: schema,
	}, nil
}

// Summarize produces the per-symbol fixture summary for a completed
// detection pass. An empty detection set short-circuits to an empty
// summary without calling the LLM.
func (s *Service) Summarize(ctx context.Context, detections []models.Detection, rulebook *models.Rulebook) (models.Summary, error) {
	tally := tallySymbols(detections)
	if len(tally) == 0 {
		s.logger.Info().Msg("No labeled detections to group, returning empty summary")
		return models.Summary{}, nil
	}

	prompt, err := s.buildPrompt(tally, rulebook)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSummarizationFailed, err)
	}

	response, err := s.llm.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSummarizationFailed, err)
	}

	summary, err := s.parseResponse(response)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSummarizationFailed, err)
	}

	reconciled := reconcileCounts(summary, tally, rulebook)

	s.logger.Info().
		Int("symbols", len(reconciled)).
		Int("fixtures", reconciled.Total()).
		Msg("Grouped detections into fixture summary")

	return reconciled, nil
}

// tallySymbols counts labeled detections per symbol. Detections without a
// recognized symbol do not contribute.
func tallySymbols(detections []models.Detection) map[string]int {
	tally := make(map[string]int)
	for _, det := range detections {
		if det.Symbol == nil {
			continue
		}
		symbol := strings.ToUpper(strings.TrimSpace(*det.Symbol))
		if symbol == "" {
			continue
		}
		tally[symbol]++
	}
	return tally
}

func (s *Service) buildPrompt(tally map[string]int, rulebook *models.Rulebook) (string, error) {
	symbols := make([]string, 0, len(tally))
	for symbol := range tally {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	type countedSymbol struct {
		Symbol string `json:"symbol"`
		Count  int    `json:"count"`
	}
	counted := make([]countedSymbol, 0, len(symbols))
	for _, symbol := range symbols {
		counted = append(counted, countedSymbol{Symbol: symbol, Count: tally[symbol]})
	}

	countsJSON, err := json.MarshalIndent(counted, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode symbol counts: %w", err)
	}

	var schedule []models.ScheduleEntry
	var notes []models.Note
	if rulebook != nil {
		schedule = rulebook.Schedule
		notes = rulebook.Notes
	}
	scheduleJSON, err := json.MarshalIndent(schedule, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode schedule: %w", err)
	}
	notesJSON, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode notes: %w", err)
	}

	var b strings.Builder
	b.WriteString("Group the detected fixture symbols below and attach the matching schedule description.\n\n")
	b.WriteString("Detected symbol counts:\n")
	b.Write(countsJSON)
	b.WriteString("\n\nFixture schedule:\n")
	b.Write(scheduleJSON)
	b.WriteString("\n\nSchedule notes:\n")
	b.Write(notesJSON)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Output a single JSON object keyed by symbol.\n")
	b.WriteString("- Each value has \"count\" (integer) and \"description\" (string or null).\n")
	b.WriteString("- Merge symbols that the schedule or notes indicate are the same fixture type.\n")
	b.WriteString("- Use null for the description when a symbol has no schedule entry.\n")
	b.WriteString("- Do not invent symbols that are not in the detected counts.\n")

	return b.String(), nil
}

// parseResponse decodes and schema-validates the LLM grouping output
func (s *Service) parseResponse(response string) (models.Summary, error) {
	cleaned := stripMarkdownFences(response)

	var raw interface{}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}

	if err := s.schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("response failed schema validation: %w", err)
	}

	var summary models.Summary
	if err := json.Unmarshal([]byte(cleaned), &summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}

	return summary, nil
}

// reconcileCounts makes the local tally authoritative over whatever the
// model returned. Symbols the model dropped are restored, invented symbols
// are removed, and counts are recomputed from the detections. Descriptions
// fall back to the schedule when the model omitted one.
func reconcileCounts(summary models.Summary, tally map[string]int, rulebook *models.Rulebook) models.Summary {
	reconciled := make(models.Summary, len(tally))
	for symbol, count := range tally {
		item := models.SummaryItem{Count: count}
		if fromLLM, ok := summary[symbol]; ok {
			item.Description = fromLLM.Description
		}
		if item.Description == nil && rulebook != nil {
			if entry := rulebook.Entry(symbol); entry != nil {
				desc := entry.Description
				item.Description = &desc
			}
		}
		reconciled[symbol] = item
	}
	return reconciled
}

// stripMarkdownFences removes a leading/trailing code fence if the model
// wrapped its JSON despite instructions
func stripMarkdownFences(response string) string {
	trimmed := strings.TrimSpace(response)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
