package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
)

// maxSyntheticCandidates bounds the batch emitted per call
const maxSyntheticCandidates = 5

var syntheticTemplates = []struct {
	title   string
	content string
}{
	{"Customers talk about %s", "Really love the new %s update, amazing service and great support."},
	{"Complaints about %s", "Terrible experience with %s today, the app is slow and broken."},
	{"%s in the news", "Analysts discuss what %s means for the market this quarter."},
	{"Community thread: %s", "Has anyone else tried %s? Curious how it compares."},
	{"%s outage reported", "Several users report %s problems and poor response from support."},
}

// SyntheticSource generates placeholder candidates for development runs
type SyntheticSource struct {
	enabled bool
	now     func() time.Time
}

// NewSyntheticSource creates the development candidate generator
func NewSyntheticSource(enabled bool) *SyntheticSource {
	return &SyntheticSource{enabled: enabled, now: time.Now}
}

func (s *SyntheticSource) GetName() string {
	return "synthetic"
}

func (s *SyntheticSource) IsEnabled() bool {
	return s.enabled
}

// FetchMentions emits one candidate per keyword, up to the batch cap. External
// ids are stable within a minute so repeated calls produce duplicates.
func (s *SyntheticSource) FetchMentions(ctx context.Context, target models.Source) ([]models.Mention, error) {
	keywords := target.Keywords
	if len(keywords) == 0 {
		keywords = []string{target.Name}
	}

	now := s.now().UTC()
	minute := now.Unix() / 60
	count := len(keywords)
	if count > maxSyntheticCandidates {
		count = maxSyntheticCandidates
	}

	mentions := make([]models.Mention, 0, count)
	for i := 0; i < count; i++ {
		keyword := keywords[i]
		tpl := syntheticTemplates[(int(minute)+i)%len(syntheticTemplates)]
		handle := fmt.Sprintf("user_%d", (int(minute)+i)%97)

		mentions = append(mentions, models.Mention{
			Platform:        target.Platform,
			ExternalID:      fmt.Sprintf("synthetic-%s-%d-%d", target.ID, minute, i),
			URL:             fmt.Sprintf("https://example.com/%s/%d/%d", strings.ToLower(target.Platform), minute, i),
			AuthorName:      handle,
			AuthorHandle:    handle,
			AuthorFollowers: 100 * (i + 1),
			Title:           fmt.Sprintf(tpl.title, keyword),
			Content:         fmt.Sprintf(tpl.content, keyword),
			PublishedAt:     now,
			Language:        "en",
			Likes:           10 * (i + 1),
			EstimatedReach:  int64(100 * (i + 1)),
			MatchedKeywords: []string{keyword},
		})
	}

	return mentions, nil
}
