package api

import (
	"context"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/auth"
)

// Authenticator resolves the Authorization header of a request
type Authenticator interface {
	Resolve(ctx context.Context, authorization string) (*auth.Principal, error)
}
