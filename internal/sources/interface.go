package sources

import (
	"context"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
)

// Source fetches candidate mentions for one configured scrape source.
// Returned mentions carry Platform, ExternalID and content; the caller
// stamps company and source ids before storing them.
type Source interface {
	GetName() string
	FetchMentions(ctx context.Context, target models.Source) ([]models.Mention, error)
	IsEnabled() bool
}
