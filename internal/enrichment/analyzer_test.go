package enrichment

import (
	"testing"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicSentiment(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		expectedLabel string
		expectedScore float64
	}{
		{
			name:          "Positive content",
			content:       "I love this, amazing service!",
			expectedLabel: "positive",
			expectedScore: 0.5,
		},
		{
			name:          "Negative content",
			content:       "This is terrible and broken, hate it",
			expectedLabel: "negative",
			expectedScore: -0.5,
		},
		{
			name:          "Neutral content",
			content:       "The company published its quarterly report",
			expectedLabel: "neutral",
			expectedScore: 0,
		},
		{
			name:          "Balanced content",
			content:       "Great product but a bad launch",
			expectedLabel: "neutral",
			expectedScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := HeuristicSentiment(tt.content)
			assert.Equal(t, tt.expectedLabel, result.Label)
			assert.Equal(t, tt.expectedScore, result.Score)
		})
	}
}

func TestParseSentimentResponse(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedLabel string
		expectedScore float64
		expectErr     bool
	}{
		{
			name:          "plain JSON",
			input:         `{"score": 0.7, "label": "positive", "emotions": ["joy"]}`,
			expectedLabel: "positive",
			expectedScore: 0.7,
		},
		{
			name:          "fenced and mixed case label",
			input:         "```json\n{\"score\": -0.3, \"label\": \"Mixed\"}\n```",
			expectedLabel: "mixed",
			expectedScore: -0.3,
		},
		{
			name:          "score out of range is clamped",
			input:         `{"score": -4, "label": "negative"}`,
			expectedLabel: "negative",
			expectedScore: -1,
		},
		{
			name:          "unknown label derives from score",
			input:         `{"score": 0.6, "label": "happy"}`,
			expectedLabel: "positive",
			expectedScore: 0.6,
		},
		{
			name:      "missing score",
			input:     `{"label": "positive"}`,
			expectErr: true,
		},
		{
			name:      "no JSON",
			input:     "The sentiment is positive.",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseSentimentResponse(tt.input)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedLabel, result.Label)
			assert.InDelta(t, tt.expectedScore, result.Score, 1e-9)
		})
	}
}

func TestParseEntitiesResponse(t *testing.T) {
	entities, err := parseEntitiesResponse(`Here: {"people": ["Ada Lovelace", " ada lovelace ", ""], "organizations": ["Acme"], "topics": ["product recall"]}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"Ada Lovelace"}, entities.People)
	assert.Equal(t, []string{"Acme"}, entities.Organizations)
	assert.Equal(t, []string{}, entities.Locations, "missing lists become empty, not null")
	assert.Equal(t, []string{}, entities.Products)
	assert.Equal(t, []string{"product recall"}, entities.Topics)

	_, err = parseEntitiesResponse("no entities found")
	assert.ErrorIs(t, err, llm.ErrNoJSON)
}

func TestParseTranslateResponse(t *testing.T) {
	translated, err := parseTranslateResponse(`{"translation": "Hello world"}`)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", translated)

	_, err = parseTranslateResponse(`{"translation": "  "}`)
	assert.Error(t, err)
}

func TestNeedsTranslation(t *testing.T) {
	assert.True(t, needsTranslation("fr", "en"))
	assert.False(t, needsTranslation("EN", "en"))
	assert.False(t, needsTranslation("", "en"), "unknown language is never translated")
}
