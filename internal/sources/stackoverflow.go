package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const stackExchangeURL = "https://api.stackexchange.com/2.3"

// StackOverflowSource implements Stack Overflow API source
type StackOverflowSource struct {
	client    *resty.Client
	converter *md.Converter
}

type stackOverflowResponse struct {
	Items []stackOverflowQuestion `json:"items"`
}

type stackOverflowQuestion struct {
	QuestionID int      `json:"question_id"`
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Tags       []string `json:"tags"`
	Owner      struct {
		DisplayName string `json:"display_name"`
		Reputation  int    `json:"reputation"`
	} `json:"owner"`
	CreationDate int64  `json:"creation_date"`
	Score        int    `json:"score"`
	ViewCount    int    `json:"view_count"`
	AnswerCount  int    `json:"answer_count"`
	Link         string `json:"link"`
}

// NewStackOverflowSource creates a new Stack Overflow source
func NewStackOverflowSource(timeout time.Duration) *StackOverflowSource {
	return newStackOverflowSource(stackExchangeURL, timeout)
}

func newStackOverflowSource(baseURL string, timeout time.Duration) *StackOverflowSource {
	return &StackOverflowSource{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("User-Agent", "Media-Monitor/1.0"),
		converter: md.NewConverter("", true, nil),
	}
}

func (s *StackOverflowSource) GetName() string {
	return "stackoverflow"
}

func (s *StackOverflowSource) IsEnabled() bool {
	return true // Stack Overflow API doesn't require authentication for basic searches
}

func (s *StackOverflowSource) FetchMentions(ctx context.Context, target models.Source) ([]models.Mention, error) {
	seen := make(map[string]bool)
	var mentions []models.Mention

	for _, keyword := range target.Keywords {
		found, err := s.searchKeyword(ctx, target, keyword)
		if err != nil {
			logrus.Errorf("Failed to search Stack Overflow for keyword '%s': %v", keyword, err)
			continue
		}
		for _, m := range found {
			if seen[m.ExternalID] {
				continue
			}
			seen[m.ExternalID] = true
			mentions = append(mentions, m)
		}
	}

	return mentions, nil
}

func (s *StackOverflowSource) searchKeyword(ctx context.Context, target models.Source, keyword string) ([]models.Mention, error) {
	var searchResp stackOverflowResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"order":    "desc",
			"sort":     "creation",
			"q":        keyword,
			"site":     "stackoverflow",
			"pagesize": "20",
			"filter":   "withbody",
		}).
		SetResult(&searchResp).
		Get("/search/advanced")

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("stack overflow API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var mentions []models.Mention
	for _, question := range searchResp.Items {
		body := s.toMarkdown(question.Body)

		mentions = append(mentions, models.Mention{
			Platform:        target.Platform,
			ExternalID:      fmt.Sprintf("%d", question.QuestionID),
			URL:             question.Link,
			AuthorName:      question.Owner.DisplayName,
			AuthorHandle:    question.Owner.DisplayName,
			AuthorFollowers: question.Owner.Reputation,
			Title:           question.Title,
			Content:         body,
			PublishedAt:     time.Unix(question.CreationDate, 0).UTC(),
			Likes:           question.Score,
			Comments:        question.AnswerCount,
			Views:           question.ViewCount,
			EstimatedReach:  int64(question.ViewCount),
			MatchedKeywords: MatchKeywords(question.Title+" "+body, target.Keywords),
		})
	}

	return mentions, nil
}

func (s *StackOverflowSource) toMarkdown(body string) string {
	markdown, err := s.converter.ConvertString(body)
	if err != nil {
		return body
	}
	return strings.TrimSpace(markdown)
}
