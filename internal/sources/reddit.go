package sources

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	redditAuthURL = "https://www.reddit.com/api/v1/access_token"
	redditAPIURL  = "https://oauth.reddit.com"
)

var subredditPattern = regexp.MustCompile(`(?i)(?:^|/)r/([A-Za-z0-9_]+)`)

// RedditSource implements Reddit API source
type RedditSource struct {
	clientID     string
	clientSecret string
	authURL      string
	client       *resty.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

type redditAuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type redditSearchResponse struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Permalink   string  `json:"permalink"`
	Created     float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Subscribers int     `json:"subreddit_subscribers"`
}

// NewRedditSource creates a new Reddit source
func NewRedditSource(clientID, clientSecret string, timeout time.Duration) *RedditSource {
	return newRedditSource(clientID, clientSecret, redditAuthURL, redditAPIURL, timeout)
}

func newRedditSource(clientID, clientSecret, authURL, apiURL string, timeout time.Duration) *RedditSource {
	return &RedditSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		authURL:      authURL,
		client: resty.New().
			SetBaseURL(apiURL).
			SetTimeout(timeout).
			SetHeader("User-Agent", "Media-Monitor/1.0"),
	}
}

func (r *RedditSource) GetName() string {
	return "reddit"
}

func (r *RedditSource) IsEnabled() bool {
	return r.clientID != "" && r.clientSecret != ""
}

func (r *RedditSource) FetchMentions(ctx context.Context, target models.Source) ([]models.Mention, error) {
	if !r.IsEnabled() {
		logrus.Debug("Reddit source disabled - missing credentials")
		return nil, nil
	}

	if len(target.Keywords) == 0 {
		return nil, nil
	}

	token, err := r.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("reddit authentication failed: %w", err)
	}

	path := "/search.json"
	params := map[string]string{
		"q":     strings.Join(target.Keywords, " OR "),
		"sort":  "new",
		"limit": "25",
	}
	// A source URL pointing at a subreddit restricts the search to it
	if m := subredditPattern.FindStringSubmatch(target.URL); len(m) == 2 {
		path = fmt.Sprintf("/r/%s/search.json", m[1])
		params["restrict_sr"] = "1"
	}

	var searchResp redditSearchResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(params).
		SetResult(&searchResp).
		Get(path)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("reddit API returned status %d", resp.StatusCode())
	}

	var mentions []models.Mention
	for _, child := range searchResp.Data.Children {
		post := child.Data
		if post.ID == "" {
			continue
		}

		mentions = append(mentions, models.Mention{
			Platform:        target.Platform,
			ExternalID:      post.ID,
			URL:             fmt.Sprintf("https://reddit.com%s", post.Permalink),
			AuthorName:      post.Author,
			AuthorHandle:    post.Author,
			Title:           post.Title,
			Content:         post.Selftext,
			PublishedAt:     time.Unix(int64(post.Created), 0).UTC(),
			Likes:           post.Score,
			Comments:        post.NumComments,
			EstimatedReach:  int64(post.Subscribers),
			MatchedKeywords: MatchKeywords(post.Title+" "+post.Selftext, target.Keywords),
		})
	}

	return mentions, nil
}

// token returns a cached application token, refreshing it shortly before expiry
func (r *RedditSource) token(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.accessToken != "" && time.Now().Before(r.expiresAt) {
		return r.accessToken, nil
	}

	var authResp redditAuthResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBasicAuth(r.clientID, r.clientSecret).
		SetFormData(map[string]string{
			"grant_type": "client_credentials",
		}).
		SetResult(&authResp).
		Post(r.authURL)

	if err != nil {
		return "", err
	}

	if resp.StatusCode() != 200 || authResp.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode())
	}

	r.accessToken = authResp.AccessToken
	r.expiresAt = time.Now().Add(time.Duration(authResp.ExpiresIn)*time.Second - time.Minute)
	return r.accessToken, nil
}
