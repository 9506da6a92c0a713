package alerting

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
)

// DefaultPeriodMinutes is the evaluation window when a rule does not set one
const DefaultPeriodMinutes = 60

// Condition is the typed payload of one alert rule. Each rule type has its
// own variant; evaluate dispatches on the concrete type.
type Condition interface {
	Type() models.RuleType
}

// KeywordCondition fires when enough in-window mentions matched any keyword
type KeywordCondition struct {
	Keywords  []string `json:"keywords"`
	Threshold float64  `json:"-"`
}

func (KeywordCondition) Type() models.RuleType { return models.RuleTypeKeyword }

// DefaultKeywordCondition returns the keyword defaults
func DefaultKeywordCondition() KeywordCondition {
	return KeywordCondition{Keywords: []string{}, Threshold: 1}
}

// SpikeCondition fires when the current window holds more than Multiplier
// times the mentions of the previous window of the same length
type SpikeCondition struct {
	Multiplier float64 `json:"-"`
}

func (SpikeCondition) Type() models.RuleType { return models.RuleTypeSpike }

// DefaultSpikeCondition returns the spike defaults
func DefaultSpikeCondition() SpikeCondition {
	return SpikeCondition{Multiplier: 2}
}

// SentimentCondition fires when at least MinCount negative mentions score at
// or below MaxScore
type SentimentCondition struct {
	MaxScore float64 `json:"-"`
	MinCount int     `json:"min_count"`
}

func (SentimentCondition) Type() models.RuleType { return models.RuleTypeSentiment }

// DefaultSentimentCondition returns the sentiment defaults
func DefaultSentimentCondition() SentimentCondition {
	return SentimentCondition{MaxScore: -0.5, MinCount: 5}
}

// SourceCondition fires when enough in-window mentions come from priority authors
type SourceCondition struct {
	Sources   []string `json:"sources"`
	Threshold float64  `json:"-"`
}

func (SourceCondition) Type() models.RuleType { return models.RuleTypeSource }

// DefaultSourceCondition returns the source defaults
func DefaultSourceCondition() SourceCondition {
	return SourceCondition{Sources: []string{}, Threshold: 1}
}

// TrendCondition fires when a trending cluster reaches MinVelocity
type TrendCondition struct {
	MinVelocity float64 `json:"-"`
}

func (TrendCondition) Type() models.RuleType { return models.RuleTypeTrend }

// DefaultTrendCondition returns the trend defaults
func DefaultTrendCondition() TrendCondition {
	return TrendCondition{MinVelocity: 10}
}

// ParseCondition builds the typed condition for a rule from its conditions
// JSON and threshold value, filling defaults for anything unset
func ParseCondition(rule models.AlertRule) (Condition, error) {
	switch rule.RuleType {
	case models.RuleTypeKeyword:
		cond := DefaultKeywordCondition()
		if err := decodeConditions(rule, &cond); err != nil {
			return nil, err
		}
		cond.Keywords = cleanTerms(cond.Keywords)
		if len(cond.Keywords) == 0 {
			return nil, fmt.Errorf("keyword rule %s has no keywords", rule.ID)
		}
		cond.Threshold = thresholdOr(rule, cond.Threshold)
		return cond, nil

	case models.RuleTypeSpike:
		cond := DefaultSpikeCondition()
		cond.Multiplier = thresholdOr(rule, cond.Multiplier)
		return cond, nil

	case models.RuleTypeSentiment:
		cond := DefaultSentimentCondition()
		if err := decodeConditions(rule, &cond); err != nil {
			return nil, err
		}
		if cond.MinCount <= 0 {
			cond.MinCount = DefaultSentimentCondition().MinCount
		}
		cond.MaxScore = thresholdOr(rule, cond.MaxScore)
		return cond, nil

	case models.RuleTypeSource:
		cond := DefaultSourceCondition()
		if err := decodeConditions(rule, &cond); err != nil {
			return nil, err
		}
		cond.Sources = cleanTerms(cond.Sources)
		if len(cond.Sources) == 0 {
			return nil, fmt.Errorf("source rule %s has no sources", rule.ID)
		}
		cond.Threshold = thresholdOr(rule, cond.Threshold)
		return cond, nil

	case models.RuleTypeTrend:
		cond := DefaultTrendCondition()
		cond.MinVelocity = thresholdOr(rule, cond.MinVelocity)
		return cond, nil

	default:
		return nil, fmt.Errorf("unknown rule type %q", rule.RuleType)
	}
}

// PeriodMinutes returns the rule's evaluation window length
func PeriodMinutes(rule models.AlertRule) int {
	if rule.ThresholdPeriodMinutes > 0 {
		return rule.ThresholdPeriodMinutes
	}
	return DefaultPeriodMinutes
}

func decodeConditions(rule models.AlertRule, v interface{}) error {
	raw := strings.TrimSpace(string(rule.Conditions))
	if raw == "" || raw == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("invalid conditions for rule %s: %w", rule.ID, err)
	}
	return nil
}

func thresholdOr(rule models.AlertRule, fallback float64) float64 {
	if rule.ThresholdValue != nil {
		return *rule.ThresholdValue
	}
	return fallback
}

func cleanTerms(terms []string) []string {
	cleaned := make([]string, 0, len(terms))
	for _, term := range terms {
		if term = strings.TrimSpace(term); term != "" {
			cleaned = append(cleaned, term)
		}
	}
	return cleaned
}
