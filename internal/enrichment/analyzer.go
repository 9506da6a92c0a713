package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/llm"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
)

// maxAnalysisChars limits mention content sent to the model
const maxAnalysisChars = 4000

// SentimentResult is a scored sentiment for one piece of content
type SentimentResult struct {
	Score    float64  `json:"score"`
	Label    string   `json:"label"`
	Emotions []string `json:"emotions,omitempty"`
}

// Analyzer runs the model-backed enrichment actions. Each method either
// returns a validated result or an error; it never falls back on its own.
type Analyzer struct {
	client Completer
}

// NewAnalyzer creates an analyzer. client may be nil.
func NewAnalyzer(client Completer) *Analyzer {
	return &Analyzer{client: client}
}

// Enabled reports whether the model can be called at all
func (a *Analyzer) Enabled() bool {
	return a.client != nil && a.client.IsEnabled()
}

// Sentiment asks the model for a sentiment score
func (a *Analyzer) Sentiment(ctx context.Context, content string) (SentimentResult, error) {
	if !a.Enabled() {
		return SentimentResult{}, llm.ErrDisabled
	}

	resp, err := a.client.Complete(ctx, sentimentSystemPrompt, fmt.Sprintf(sentimentUserPrompt, truncateForAnalysis(content)))
	if err != nil {
		return SentimentResult{}, fmt.Errorf("sentiment analysis failed: %w", err)
	}

	return parseSentimentResponse(resp)
}

// Entities asks the model for named entities
func (a *Analyzer) Entities(ctx context.Context, content string) (models.Entities, error) {
	if !a.Enabled() {
		return models.Entities{}, llm.ErrDisabled
	}

	resp, err := a.client.Complete(ctx, entitiesSystemPrompt, fmt.Sprintf(entitiesUserPrompt, truncateForAnalysis(content)))
	if err != nil {
		return models.Entities{}, fmt.Errorf("entity extraction failed: %w", err)
	}

	return parseEntitiesResponse(resp)
}

// Translate asks the model to translate content between two languages
func (a *Analyzer) Translate(ctx context.Context, content, from, to string) (string, error) {
	if !a.Enabled() {
		return "", llm.ErrDisabled
	}

	resp, err := a.client.Complete(ctx, translateSystemPrompt, fmt.Sprintf(translateUserPrompt, from, to, truncateForAnalysis(content)))
	if err != nil {
		return "", fmt.Errorf("translation failed: %w", err)
	}

	return parseTranslateResponse(resp)
}

func parseSentimentResponse(content string) (SentimentResult, error) {
	var raw struct {
		Score    *float64 `json:"score"`
		Label    string   `json:"label"`
		Emotions []string `json:"emotions"`
	}
	if err := llm.DecodeJSON(content, &raw); err != nil {
		return SentimentResult{}, fmt.Errorf("parse sentiment response: %w", err)
	}

	if raw.Score == nil || math.IsNaN(*raw.Score) {
		return SentimentResult{}, fmt.Errorf("sentiment response has no score")
	}

	score := math.Max(-1, math.Min(1, *raw.Score))
	label := strings.ToLower(strings.TrimSpace(raw.Label))
	if !isValidLabel(label) {
		label = labelForScore(score)
	}

	return SentimentResult{Score: score, Label: label, Emotions: raw.Emotions}, nil
}

func parseEntitiesResponse(content string) (models.Entities, error) {
	entities := models.EmptyEntities()
	raw := llm.ExtractJSON(content)
	if raw == "" {
		return entities, fmt.Errorf("parse entities response: %w", llm.ErrNoJSON)
	}
	if err := json.Unmarshal([]byte(raw), &entities); err != nil {
		return models.EmptyEntities(), fmt.Errorf("parse entities response: %w", err)
	}

	entities.People = cleanList(entities.People)
	entities.Organizations = cleanList(entities.Organizations)
	entities.Locations = cleanList(entities.Locations)
	entities.Products = cleanList(entities.Products)
	entities.Topics = cleanList(entities.Topics)
	return entities, nil
}

func parseTranslateResponse(content string) (string, error) {
	var raw struct {
		Translation string `json:"translation"`
	}
	if err := llm.DecodeJSON(content, &raw); err != nil {
		return "", fmt.Errorf("parse translation response: %w", err)
	}
	if strings.TrimSpace(raw.Translation) == "" {
		return "", fmt.Errorf("translation response is empty")
	}
	return raw.Translation, nil
}

func isValidLabel(label string) bool {
	switch label {
	case models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral, models.SentimentMixed:
		return true
	default:
		return false
	}
}

func labelForScore(score float64) string {
	switch {
	case score > 0.1:
		return models.SentimentPositive
	case score < -0.1:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// cleanList trims entries, drops blanks and case-insensitive repeats
func cleanList(items []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

func truncateForAnalysis(content string) string {
	runes := []rune(content)
	if len(runes) <= maxAnalysisChars {
		return content
	}
	return string(runes[:maxAnalysisChars]) + "\n\n[Content truncated for analysis...]"
}
