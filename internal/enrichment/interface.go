package enrichment

import (
	"context"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
)

// Store is the persistence enrichment needs
type Store interface {
	UnprocessedMentions(ctx context.Context, companyID string, limit int) ([]models.Mention, error)
	MentionsByIDs(ctx context.Context, companyID string, ids []string) ([]models.Mention, error)
	UpdateMention(ctx context.Context, id string, updates map[string]interface{}) error
	RecentClusters(ctx context.Context, companyID string, since time.Time, limit int) ([]models.Cluster, error)
	AttachMention(ctx context.Context, mentionID string, updates map[string]interface{}, clusterID string, reach int64, at time.Time) (bool, error)
	CreateClusterWithMention(ctx context.Context, mentionID string, updates map[string]interface{}, cluster *models.Cluster) (bool, error)
}

// Completer is a text generator that answers a system + user prompt
type Completer interface {
	IsEnabled() bool
	Complete(ctx context.Context, system, user string) (string, error)
}

// ServiceInterface defines the contract for enrichment passes
type ServiceInterface interface {
	Enrich(ctx context.Context, req Request) (*Result, error)
}
