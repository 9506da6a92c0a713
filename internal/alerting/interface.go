package alerting

import (
	"context"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
)

// Store is the persistence the alert engine needs
type Store interface {
	ActiveRules(ctx context.Context, companyID string) ([]models.AlertRule, error)
	MentionsBetween(ctx context.Context, companyID string, from, to time.Time) ([]models.Mention, error)
	CountMentionsBetween(ctx context.Context, companyID string, from, to time.Time) (int64, error)
	TrendingClusters(ctx context.Context, companyID string, since time.Time, minVelocity float64) ([]models.Cluster, error)
	FireRule(ctx context.Context, rule *models.AlertRule, now time.Time, alert *models.Alert, notifications []models.Notification) (bool, error)
}

// Dispatcher delivers a stored alert to the rule's external channels
type Dispatcher interface {
	Dispatch(ctx context.Context, rule models.AlertRule, alert models.Alert) error
}

// ServiceInterface defines the contract for an alert evaluation pass
type ServiceInterface interface {
	CheckAlerts(ctx context.Context, req Request) (*Result, error)
}
