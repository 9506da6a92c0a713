package notifications

import (
	"context"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
)

// DispatcherInterface defines the contract for delivering alerts to external channels
type DispatcherInterface interface {
	Dispatch(ctx context.Context, rule models.AlertRule, alert models.Alert) error
}
