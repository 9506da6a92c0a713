// Package accountsync calls the external collaborator that pulls mentions
// for OAuth-connected social accounts.
package accountsync

import (
	"context"
	"fmt"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
	"github.com/go-resty/resty/v2"
)

// Result is the collaborator's report for one account
type Result struct {
	Fetched int `json:"fetched"`
	New     int `json:"new"`
}

// SyncerInterface defines the contract for syncing one connected account
type SyncerInterface interface {
	Sync(ctx context.Context, account models.SocialAccount) (Result, error)
	IsEnabled() bool
}

// Client posts sync requests to the collaborator endpoint
type Client struct {
	url    string
	token  string
	client *resty.Client
}

var _ SyncerInterface = (*Client)(nil)

type syncRequest struct {
	CompanyID string `json:"companyId"`
	AccountID string `json:"accountId"`
	Platform  string `json:"platform"`
}

type syncResponse struct {
	Success bool   `json:"success"`
	Fetched int    `json:"fetched"`
	New     int    `json:"new"`
	Error   string `json:"error"`
}

// NewClient creates a sync client. An empty url disables syncing.
func NewClient(url, token string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		token:  token,
		client: resty.New().SetTimeout(timeout),
	}
}

func (c *Client) IsEnabled() bool {
	return c.url != ""
}

// Sync asks the collaborator to pull mentions for one account
func (c *Client) Sync(ctx context.Context, account models.SocialAccount) (Result, error) {
	if !c.IsEnabled() {
		return Result{}, nil
	}

	var body syncResponse
	req := c.client.R().
		SetContext(ctx).
		SetBody(syncRequest{
			CompanyID: account.CompanyID,
			AccountID: account.ID,
			Platform:  account.Platform,
		}).
		SetResult(&body).
		SetError(&body)
	if c.token != "" {
		req.SetAuthToken(c.token)
	}

	resp, err := req.Post(c.url)
	if err != nil {
		return Result{}, fmt.Errorf("sync request failed: %w", err)
	}

	if resp.IsError() {
		return Result{}, fmt.Errorf("sync collaborator returned status %d: %s", resp.StatusCode(), body.Error)
	}

	return Result{Fetched: body.Fetched, New: body.New}, nil
}
