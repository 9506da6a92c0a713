// Package enrichment attaches sentiment, entities, translations and cluster
// membership to ingested mentions.
package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/metrics"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// maxBatchSize caps the mentions processed by one enrichment call
const maxBatchSize = 50

// Enrichment actions
const (
	ActionSentiment = "sentiment"
	ActionEntities  = "entities"
	ActionTranslate = "translate"
	ActionCluster   = "cluster"
	ActionAll       = "all"
)

// Item outcomes
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrInvalidAction is returned for an action outside the supported set
var ErrInvalidAction = errors.New("invalid enrichment action")

// Request selects the mentions and the action of one enrichment call.
// An empty MentionIDs list means the company's unprocessed backlog.
type Request struct {
	CompanyID      string
	MentionIDs     []string
	Action         string
	TargetLanguage string
}

// ItemResult is the outcome for one mention
type ItemResult struct {
	ID        string                 `json:"id"`
	Status    string                 `json:"status"`
	Updates   map[string]interface{} `json:"updates,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Fallbacks []string               `json:"fallbacks,omitempty"`
}

// Result is the outcome of one enrichment call
type Result struct {
	Processed int          `json:"processed"`
	Results   []ItemResult `json:"results"`
}

// Service enriches mentions one at a time
type Service struct {
	store          Store
	analyzer       *Analyzer
	targetLanguage string
	now            func() time.Time
}

var _ ServiceInterface = (*Service)(nil)

// NewService creates a new enrichment service. client may be nil, in which
// case every model-backed action uses its fallback.
func NewService(store Store, client Completer, defaultTargetLanguage string) *Service {
	if defaultTargetLanguage == "" {
		defaultTargetLanguage = "en"
	}
	return &Service{
		store:          store,
		analyzer:       NewAnalyzer(client),
		targetLanguage: defaultTargetLanguage,
		now:            time.Now,
	}
}

// ValidAction reports whether action is a supported enrichment action
func ValidAction(action string) bool {
	switch action {
	case ActionSentiment, ActionEntities, ActionTranslate, ActionCluster, ActionAll:
		return true
	default:
		return false
	}
}

// Enrich runs the requested action over the selected mentions. A failure on
// one mention is reported in its item result and does not stop the batch.
func (s *Service) Enrich(ctx context.Context, req Request) (*Result, error) {
	if req.CompanyID == "" {
		return nil, fmt.Errorf("company id is required")
	}
	if !ValidAction(req.Action) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, req.Action)
	}

	target := req.TargetLanguage
	if target == "" {
		target = s.targetLanguage
	}

	logger := logrus.WithFields(logrus.Fields{
		"company_id": req.CompanyID,
		"action":     req.Action,
	})

	mentions, missing, err := s.selectMentions(ctx, req)
	if err != nil {
		return nil, err
	}
	logger.Infof("Enriching %d mentions", len(mentions))

	result := &Result{Results: make([]ItemResult, 0, len(mentions)+len(missing))}
	for _, m := range mentions {
		item := s.processMention(ctx, m, req.Action, target)
		if item.Status == StatusSuccess {
			result.Processed++
		} else {
			logger.WithField("mention_id", m.ID).Errorf("Enrichment failed: %s", item.Error)
		}
		metrics.MentionsEnriched.WithLabelValues(item.Status).Inc()
		result.Results = append(result.Results, item)
	}

	for _, id := range missing {
		result.Results = append(result.Results, ItemResult{ID: id, Status: StatusError, Error: "mention not found"})
	}

	return result, nil
}

// selectMentions loads either the explicit id list or the unprocessed
// backlog, both capped at maxBatchSize. It also returns requested ids that
// were not found for the company.
func (s *Service) selectMentions(ctx context.Context, req Request) ([]models.Mention, []string, error) {
	if len(req.MentionIDs) == 0 {
		mentions, err := s.store.UnprocessedMentions(ctx, req.CompanyID, maxBatchSize)
		return mentions, nil, err
	}

	ids := req.MentionIDs
	if len(ids) > maxBatchSize {
		ids = ids[:maxBatchSize]
	}

	found, err := s.store.MentionsByIDs(ctx, req.CompanyID, ids)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[string]models.Mention, len(found))
	for _, m := range found {
		byID[m.ID] = m
	}

	// Preserve request order
	var mentions []models.Mention
	var missing []string
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			mentions = append(mentions, m)
			delete(byID, id)
		} else if !contains(mentions, id) {
			missing = append(missing, id)
		}
	}

	return mentions, missing, nil
}

func contains(mentions []models.Mention, id string) bool {
	for _, m := range mentions {
		if m.ID == id {
			return true
		}
	}
	return false
}

// processMention runs the requested actions and persists every update,
// processed_at and cluster membership included, in one write
func (s *Service) processMention(ctx context.Context, m models.Mention, action, targetLanguage string) ItemResult {
	updates := make(map[string]interface{})
	var fallbacks []string
	wants := func(a string) bool { return action == ActionAll || action == a }

	if wants(ActionSentiment) {
		sentiment, fellBack := s.sentiment(ctx, m)
		if fellBack {
			fallbacks = append(fallbacks, ActionSentiment)
		}
		updates["sentiment_score"] = sentiment.Score
		updates["sentiment_label"] = sentiment.Label
		m.SentimentScore = &sentiment.Score
		m.SentimentLabel = &sentiment.Label
	}

	if wants(ActionEntities) {
		entities, fellBack := s.entities(ctx, m)
		if fellBack {
			fallbacks = append(fallbacks, ActionEntities)
		}
		raw, err := json.Marshal(entities)
		if err != nil {
			return ItemResult{ID: m.ID, Status: StatusError, Error: err.Error()}
		}
		updates["entities"] = datatypes.JSON(raw)
		m.Entities = raw
	}

	if wants(ActionTranslate) && needsTranslation(m.Language, targetLanguage) {
		translated, fellBack := s.translate(ctx, m, targetLanguage)
		if fellBack {
			fallbacks = append(fallbacks, ActionTranslate)
		}
		updates["translated_content"] = translated
		updates["translated_language"] = targetLanguage
	}

	var plan *clusterPlan
	if wants(ActionCluster) && m.ClusterID == nil {
		var err error
		plan, err = s.planCluster(ctx, &m)
		if err != nil {
			return ItemResult{ID: m.ID, Status: StatusError, Error: fmt.Sprintf("clustering failed: %v", err)}
		}
	}

	updates["processed_at"] = s.now().UTC()

	clusterID, err := s.save(ctx, m, updates, plan)
	if err != nil {
		return ItemResult{ID: m.ID, Status: StatusError, Error: err.Error()}
	}
	if clusterID != "" {
		updates["cluster_id"] = clusterID
	}

	for _, a := range fallbacks {
		metrics.EnrichmentFallbacks.WithLabelValues(a).Inc()
	}

	return ItemResult{ID: m.ID, Status: StatusSuccess, Updates: updates, Fallbacks: fallbacks}
}

// sentiment picks the model result when available and the word-count
// heuristic otherwise. The bool reports whether the heuristic was used.
func (s *Service) sentiment(ctx context.Context, m models.Mention) (SentimentResult, bool) {
	if s.analyzer.Enabled() {
		result, err := s.analyzer.Sentiment(ctx, m.Content)
		if err == nil {
			return result, false
		}
		logrus.WithField("mention_id", m.ID).Warnf("Falling back to heuristic sentiment: %v", err)
	}
	return HeuristicSentiment(m.Content), true
}

// entities falls back to an empty entity set
func (s *Service) entities(ctx context.Context, m models.Mention) (models.Entities, bool) {
	if s.analyzer.Enabled() {
		entities, err := s.analyzer.Entities(ctx, m.Content)
		if err == nil {
			return entities, false
		}
		logrus.WithField("mention_id", m.ID).Warnf("Falling back to empty entities: %v", err)
	}
	return models.EmptyEntities(), true
}

// translate falls back to the original content
func (s *Service) translate(ctx context.Context, m models.Mention, targetLanguage string) (string, bool) {
	if s.analyzer.Enabled() {
		translated, err := s.analyzer.Translate(ctx, m.Content, m.Language, targetLanguage)
		if err == nil {
			return translated, false
		}
		logrus.WithField("mention_id", m.ID).Warnf("Translation failed, keeping original content: %v", err)
	}
	return m.Content, true
}

// needsTranslation is true only for a known language that differs from the target
func needsTranslation(language, target string) bool {
	language = strings.TrimSpace(language)
	return language != "" && !strings.EqualFold(language, strings.TrimSpace(target))
}
