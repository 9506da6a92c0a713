package alerting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
)

// maxAlertMentions caps the evidence ids stored on one alert
const maxAlertMentions = 100

// Evaluation is the outcome of checking one rule against its window
type Evaluation struct {
	Triggered   bool
	Summary     string
	MentionIDs  []string
	TriggerData map[string]interface{}
}

// window is the half-open interval (From, To] a rule is evaluated over
type window struct {
	From          time.Time
	To            time.Time
	PeriodMinutes int
}

func windowFor(rule models.AlertRule, now time.Time) window {
	period := PeriodMinutes(rule)
	return window{
		From:          now.Add(-time.Duration(period) * time.Minute),
		To:            now,
		PeriodMinutes: period,
	}
}

// evaluate is the single dispatch point from a typed condition to its check
func (s *Service) evaluate(ctx context.Context, rule models.AlertRule, cond Condition, w window) (*Evaluation, error) {
	switch c := cond.(type) {
	case KeywordCondition:
		return s.evaluateKeyword(ctx, rule, c, w)
	case SpikeCondition:
		return s.evaluateSpike(ctx, rule, c, w)
	case SentimentCondition:
		return s.evaluateSentiment(ctx, rule, c, w)
	case SourceCondition:
		return s.evaluateSource(ctx, rule, c, w)
	case TrendCondition:
		return s.evaluateTrend(ctx, rule, c, w)
	default:
		return nil, fmt.Errorf("no evaluator for condition %T", cond)
	}
}

func (s *Service) evaluateKeyword(ctx context.Context, rule models.AlertRule, c KeywordCondition, w window) (*Evaluation, error) {
	mentions, err := s.store.MentionsBetween(ctx, rule.CompanyID, w.From, w.To)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(c.Keywords))
	for _, keyword := range c.Keywords {
		wanted[strings.ToLower(keyword)] = true
	}

	var ids []string
	for _, mention := range mentions {
		for _, matched := range mention.MatchedKeywords {
			if wanted[strings.ToLower(strings.TrimSpace(matched))] {
				ids = append(ids, mention.ID)
				break
			}
		}
	}

	count := len(ids)
	eval := &Evaluation{
		Triggered:  count > 0 && float64(count) >= c.Threshold,
		MentionIDs: capIDs(ids),
		TriggerData: map[string]interface{}{
			"count":          count,
			"keywords":       c.Keywords,
			"threshold":      c.Threshold,
			"period_minutes": w.PeriodMinutes,
		},
	}
	eval.Summary = fmt.Sprintf("Detected %d mentions containing keywords: %s in the last %d minutes.",
		count, strings.Join(c.Keywords, ", "), w.PeriodMinutes)
	return eval, nil
}

func (s *Service) evaluateSpike(ctx context.Context, rule models.AlertRule, c SpikeCondition, w window) (*Evaluation, error) {
	current, err := s.store.CountMentionsBetween(ctx, rule.CompanyID, w.From, w.To)
	if err != nil {
		return nil, err
	}
	previousFrom := w.From.Add(-time.Duration(w.PeriodMinutes) * time.Minute)
	previous, err := s.store.CountMentionsBetween(ctx, rule.CompanyID, previousFrom, w.From)
	if err != nil {
		return nil, err
	}

	triggered, ratio := IsSpike(current, previous, c.Multiplier)
	return &Evaluation{
		Triggered: triggered,
		Summary: fmt.Sprintf("Volume spike detected: %d mentions vs %d in previous period (%.1fx increase).",
			current, previous, ratio),
		TriggerData: map[string]interface{}{
			"current_count":  current,
			"previous_count": previous,
			"ratio":          ratio,
			"threshold":      c.Multiplier,
			"period_minutes": w.PeriodMinutes,
		},
	}, nil
}

// IsSpike compares window counts. A zero previous window counts as a
// denominator of one for the ratio, and any activity after silence is a spike.
func IsSpike(current, previous int64, multiplier float64) (bool, float64) {
	denominator := previous
	if denominator < 1 {
		denominator = 1
	}
	ratio := float64(current) / float64(denominator)

	if previous == 0 {
		return current > 0, ratio
	}
	return float64(current) > float64(previous)*multiplier, ratio
}

func (s *Service) evaluateSentiment(ctx context.Context, rule models.AlertRule, c SentimentCondition, w window) (*Evaluation, error) {
	mentions, err := s.store.MentionsBetween(ctx, rule.CompanyID, w.From, w.To)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, mention := range mentions {
		if mention.SentimentLabel == nil || *mention.SentimentLabel != models.SentimentNegative {
			continue
		}
		if mention.SentimentScore == nil || *mention.SentimentScore > c.MaxScore {
			continue
		}
		ids = append(ids, mention.ID)
	}

	count := len(ids)
	return &Evaluation{
		Triggered:  count >= c.MinCount,
		MentionIDs: capIDs(ids),
		Summary: fmt.Sprintf("High negative sentiment detected: %d negative mentions with sentiment below %g.",
			count, c.MaxScore),
		TriggerData: map[string]interface{}{
			"count":          count,
			"threshold":      c.MaxScore,
			"min_count":      c.MinCount,
			"period_minutes": w.PeriodMinutes,
		},
	}, nil
}

func (s *Service) evaluateSource(ctx context.Context, rule models.AlertRule, c SourceCondition, w window) (*Evaluation, error) {
	mentions, err := s.store.MentionsBetween(ctx, rule.CompanyID, w.From, w.To)
	if err != nil {
		return nil, err
	}

	priority := make(map[string]string, len(c.Sources))
	for _, source := range c.Sources {
		priority[normalizeHandle(source)] = source
	}

	var ids []string
	hit := make(map[string]bool)
	for _, mention := range mentions {
		if source, ok := priority[normalizeHandle(mention.AuthorHandle)]; ok {
			ids = append(ids, mention.ID)
			hit[source] = true
		}
	}

	matched := make([]string, 0, len(hit))
	for _, source := range c.Sources {
		if hit[source] {
			matched = append(matched, source)
			delete(hit, source)
		}
	}

	count := len(ids)
	return &Evaluation{
		Triggered:  count > 0 && float64(count) >= c.Threshold,
		MentionIDs: capIDs(ids),
		Summary:    fmt.Sprintf("%d mentions from priority sources: %s.", count, strings.Join(matched, ", ")),
		TriggerData: map[string]interface{}{
			"count":          count,
			"sources":        matched,
			"threshold":      c.Threshold,
			"period_minutes": w.PeriodMinutes,
		},
	}, nil
}

func (s *Service) evaluateTrend(ctx context.Context, rule models.AlertRule, c TrendCondition, w window) (*Evaluation, error) {
	clusters, err := s.store.TrendingClusters(ctx, rule.CompanyID, w.From, c.MinVelocity)
	if err != nil {
		return nil, err
	}

	clusterIDs := make([]string, 0, len(clusters))
	titles := make([]string, 0, len(clusters))
	for _, cluster := range clusters {
		clusterIDs = append(clusterIDs, cluster.ID)
		titles = append(titles, cluster.Title)
	}

	return &Evaluation{
		Triggered: len(clusters) > 0,
		Summary:   fmt.Sprintf("%d trending stories detected with high velocity.", len(clusters)),
		TriggerData: map[string]interface{}{
			"cluster_ids":    clusterIDs,
			"titles":         titles,
			"min_velocity":   c.MinVelocity,
			"period_minutes": w.PeriodMinutes,
		},
	}, nil
}

func normalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}

func capIDs(ids []string) []string {
	if len(ids) > maxAlertMentions {
		return ids[:maxAlertMentions]
	}
	return ids
}
