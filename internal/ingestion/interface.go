package ingestion

import (
	"context"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/sources"
)

// Store is the persistence the ingestion run needs
type Store interface {
	CreateJob(ctx context.Context, job *models.IngestionJob) error
	CompleteJob(ctx context.Context, job *models.IngestionJob) error
	ConnectedAccounts(ctx context.Context, companyID string) ([]models.SocialAccount, error)
	ActiveSources(ctx context.Context, companyID, sourceID, platform string) ([]models.Source, error)
	MentionExists(ctx context.Context, companyID, platform, externalID string) (bool, error)
	InsertMention(ctx context.Context, mention *models.Mention) (bool, error)
	MarkSourceFetched(ctx context.Context, sourceID string, at time.Time) error
}

// FetcherResolver picks the fetcher for a configured source
type FetcherResolver interface {
	For(target models.Source) sources.Source
}

// ServiceInterface defines the contract for ingestion runs
type ServiceInterface interface {
	Run(ctx context.Context, req Request) (*Result, error)
}
