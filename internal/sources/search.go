package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// maxSearchResults caps the URLs requested per scrape call
const maxSearchResults = 5

// SearchSource fetches candidates from a Firecrawl-compatible search and scrape API
type SearchSource struct {
	apiKey    string
	client    *resty.Client
	converter *md.Converter
	now       func() time.Time
}

type searchRequest struct {
	Query         string        `json:"query"`
	Limit         int           `json:"limit"`
	ScrapeOptions scrapeOptions `json:"scrapeOptions"`
}

type scrapeOptions struct {
	Formats []string `json:"formats"`
}

type searchResponse struct {
	Success bool           `json:"success"`
	Data    []searchResult `json:"data"`
	Error   string         `json:"error"`
}

type searchResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Markdown    string `json:"markdown"`
	HTML        string `json:"html"`
	Metadata    struct {
		Language      string `json:"language"`
		PublishedTime string `json:"publishedTime"`
	} `json:"metadata"`
}

// NewSearchSource creates a search provider source
func NewSearchSource(apiKey, baseURL string, timeout time.Duration) *SearchSource {
	return &SearchSource{
		apiKey: apiKey,
		client: resty.New().
			SetBaseURL(strings.TrimSuffix(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
		converter: md.NewConverter("", true, nil),
		now:       time.Now,
	}
}

func (s *SearchSource) GetName() string {
	return "search"
}

func (s *SearchSource) IsEnabled() bool {
	return s.apiKey != ""
}

func (s *SearchSource) FetchMentions(ctx context.Context, target models.Source) ([]models.Mention, error) {
	query := buildSearchQuery(target)
	if query == "" {
		return nil, nil
	}

	var result searchResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.apiKey).
		SetBody(searchRequest{
			Query:         query,
			Limit:         maxSearchResults,
			ScrapeOptions: scrapeOptions{Formats: []string{"markdown"}},
		}).
		SetResult(&result).
		SetError(&result).
		Post("/v1/search")

	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}

	if resp.IsError() || !result.Success {
		return nil, fmt.Errorf("search provider returned status %d: %s", resp.StatusCode(), result.Error)
	}

	data := result.Data
	if len(data) > maxSearchResults {
		data = data[:maxSearchResults]
	}

	var mentions []models.Mention
	for _, item := range data {
		if item.URL == "" {
			continue
		}

		content := s.contentOf(item)
		mention := models.Mention{
			Platform: target.Platform,
			// The same URL always maps to the same external id
			ExternalID:      uuid.NewSHA1(uuid.NameSpaceURL, []byte(item.URL)).String(),
			URL:             item.URL,
			AuthorName:      hostOf(item.URL),
			Title:           item.Title,
			Content:         truncate(content, 5000),
			PublishedAt:     s.now().UTC(),
			Language:        item.Metadata.Language,
			MatchedKeywords: MatchKeywords(item.Title+" "+content, target.Keywords),
		}

		if published, err := time.Parse(time.RFC3339, item.Metadata.PublishedTime); err == nil {
			mention.PublishedAt = published.UTC()
		}

		mentions = append(mentions, mention)
	}

	return mentions, nil
}

// contentOf prefers provider markdown, then converted HTML, then the snippet
func (s *SearchSource) contentOf(item searchResult) string {
	if strings.TrimSpace(item.Markdown) != "" {
		return item.Markdown
	}

	if strings.TrimSpace(item.HTML) != "" {
		markdown, err := s.converter.ConvertString(item.HTML)
		if err == nil && strings.TrimSpace(markdown) != "" {
			return markdown
		}
		logrus.WithError(err).WithField("url", item.URL).Debug("Failed to convert HTML result")
	}

	return item.Description
}

// buildSearchQuery ORs the source keywords and restricts to the source's site when it has one
func buildSearchQuery(target models.Source) string {
	var terms []string
	for _, keyword := range target.Keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		if strings.Contains(keyword, " ") {
			keyword = fmt.Sprintf("%q", keyword)
		}
		terms = append(terms, keyword)
	}

	if len(terms) == 0 {
		return ""
	}

	query := strings.Join(terms, " OR ")
	if host := hostOf(target.URL); host != "" {
		query = fmt.Sprintf("site:%s (%s)", host, query)
	}
	return query
}

func hostOf(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}
