package enrichment

import (
	"context"
	"strings"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/metrics"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	clusterLookback      = 24 * time.Hour
	maxCandidateClusters = 10
	maxClusterTopics     = 10
	clusterSummaryChars  = 200
)

// mentionTopics lists extracted topics followed by matched keywords,
// without blanks or case-insensitive repeats
func mentionTopics(m models.Mention, entities models.Entities) []string {
	topics := make([]string, 0, len(entities.Topics)+len(m.MatchedKeywords))
	topics = append(topics, entities.Topics...)
	topics = append(topics, m.MatchedKeywords...)
	return cleanList(topics)
}

// clusterTopics is the topic bag a cluster is compared against
func clusterTopics(c models.Cluster) []string {
	if len(c.TopEntities) > 0 {
		return c.TopEntities
	}
	if c.Title != "" {
		return []string{c.Title}
	}
	return nil
}

// topicsOverlap is a loose match: two topics overlap when either contains
// the other, ignoring case. It trades precision for recall.
func topicsOverlap(mentionTopics, clusterTopics []string) bool {
	for _, a := range mentionTopics {
		la := strings.ToLower(strings.TrimSpace(a))
		if la == "" {
			continue
		}
		for _, b := range clusterTopics {
			lb := strings.ToLower(strings.TrimSpace(b))
			if lb == "" {
				continue
			}
			if strings.Contains(la, lb) || strings.Contains(lb, la) {
				return true
			}
		}
	}
	return false
}

// clusterPlan is where a mention goes: an existing cluster or a new one
type clusterPlan struct {
	attachTo string
	create   *models.Cluster
}

// planCluster picks the first overlapping recent cluster or seeds a new one.
// It returns nil when the mention has nothing to cluster on.
func (s *Service) planCluster(ctx context.Context, m *models.Mention) (*clusterPlan, error) {
	entities, err := m.EntitySet()
	if err != nil {
		logrus.WithField("mention_id", m.ID).Debugf("Ignoring unreadable entities: %v", err)
	}

	topics := mentionTopics(*m, entities)
	if len(topics) == 0 {
		return nil, nil
	}

	now := s.now().UTC()
	candidates, err := s.store.RecentClusters(ctx, m.CompanyID, now.Add(-clusterLookback), maxCandidateClusters)
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidates {
		if topicsOverlap(topics, clusterTopics(candidate)) {
			return &clusterPlan{attachTo: candidate.ID}, nil
		}
	}

	return &clusterPlan{create: newClusterFor(*m, topics, now)}, nil
}

// save writes the mention's updates together with its cluster membership
func (s *Service) save(ctx context.Context, m models.Mention, updates map[string]interface{}, plan *clusterPlan) (string, error) {
	if plan == nil {
		return "", s.store.UpdateMention(ctx, m.ID, updates)
	}

	if plan.create != nil {
		created, err := s.store.CreateClusterWithMention(ctx, m.ID, updates, plan.create)
		if err != nil || !created {
			return "", err
		}
		metrics.ClustersCreated.Inc()
		return plan.create.ID, nil
	}

	attached, err := s.store.AttachMention(ctx, m.ID, updates, plan.attachTo, m.EstimatedReach, s.now().UTC())
	if err != nil || !attached {
		return "", err
	}
	return plan.attachTo, nil
}

// newClusterFor seeds a cluster from a single mention
func newClusterFor(m models.Mention, topics []string, now time.Time) *models.Cluster {
	if len(topics) > maxClusterTopics {
		topics = topics[:maxClusterTopics]
	}

	dominant := models.SentimentNeutral
	if m.SentimentLabel != nil && *m.SentimentLabel != "" {
		dominant = *m.SentimentLabel
	}

	var avg *float64
	if m.SentimentScore != nil {
		score := *m.SentimentScore
		avg = &score
	}

	var topSources []string
	if m.Platform != "" {
		topSources = []string{m.Platform}
	}

	return &models.Cluster{
		CompanyID:         m.CompanyID,
		Title:             topics[0],
		Summary:           summarize(m.Content),
		FirstSeenAt:       now,
		MentionCount:      1,
		TotalReach:        m.EstimatedReach,
		AvgSentiment:      avg,
		DominantSentiment: dominant,
		TopEntities:       topics,
		TopSources:        topSources,
		LastUpdatedAt:     now,
	}
}

func summarize(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= clusterSummaryChars {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:clusterSummaryChars])) + "..."
}
