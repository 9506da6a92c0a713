package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const hackerNewsSearchURL = "https://hn.algolia.com/api/v1"

// HackerNewsSource searches Hacker News through the Algolia search API
type HackerNewsSource struct {
	client   *resty.Client
	maxItems int
}

type hackerNewsSearchResponse struct {
	Hits []hackerNewsHit `json:"hits"`
}

type hackerNewsHit struct {
	ObjectID    string `json:"objectID"`
	Title       string `json:"title"`
	StoryText   string `json:"story_text"`
	CommentText string `json:"comment_text"`
	URL         string `json:"url"`
	Author      string `json:"author"`
	Points      int    `json:"points"`
	NumComments int    `json:"num_comments"`
	CreatedAtI  int64  `json:"created_at_i"`
}

// NewHackerNewsSource creates a new Hacker News source
func NewHackerNewsSource(timeout time.Duration) *HackerNewsSource {
	return newHackerNewsSource(hackerNewsSearchURL, timeout)
}

func newHackerNewsSource(baseURL string, timeout time.Duration) *HackerNewsSource {
	return &HackerNewsSource{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("User-Agent", "Media-Monitor/1.0"),
		maxItems: 20,
	}
}

func (h *HackerNewsSource) GetName() string {
	return "hackernews"
}

func (h *HackerNewsSource) IsEnabled() bool {
	return true // Hacker News search doesn't require authentication
}

func (h *HackerNewsSource) FetchMentions(ctx context.Context, target models.Source) ([]models.Mention, error) {
	if len(target.Keywords) == 0 {
		return nil, nil
	}

	var result hackerNewsSearchResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":       strings.Join(target.Keywords, " "),
			"tags":        "story",
			"hitsPerPage": fmt.Sprintf("%d", h.maxItems),
		}).
		SetResult(&result).
		Get("/search_by_date")

	if err != nil {
		return nil, fmt.Errorf("hacker news search failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("hacker news API returned status %d", resp.StatusCode())
	}

	var mentions []models.Mention
	for _, hit := range result.Hits {
		if hit.ObjectID == "" {
			continue
		}

		content := hit.StoryText
		if content == "" {
			content = hit.CommentText
		}

		mention := models.Mention{
			Platform:        target.Platform,
			ExternalID:      hit.ObjectID,
			URL:             fmt.Sprintf("https://news.ycombinator.com/item?id=%s", hit.ObjectID),
			AuthorName:      hit.Author,
			AuthorHandle:    hit.Author,
			Title:           hit.Title,
			Content:         content,
			PublishedAt:     time.Unix(hit.CreatedAtI, 0).UTC(),
			Likes:           hit.Points,
			Comments:        hit.NumComments,
			EstimatedReach:  int64(hit.Points*10 + hit.NumComments*5),
			MatchedKeywords: MatchKeywords(hit.Title+" "+content, target.Keywords),
		}

		// Use external URL if available
		if hit.URL != "" {
			mention.URL = hit.URL
		}

		mentions = append(mentions, mention)
	}

	logrus.WithFields(logrus.Fields{
		"source_id": target.ID,
		"hits":      len(mentions),
	}).Debug("Fetched Hacker News candidates")

	return mentions, nil
}
