package enrichment

import (
	"strings"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
)

var (
	positiveWords = []string{"good", "great", "excellent", "love", "amazing", "awesome", "fantastic", "helpful", "works", "solved", "success"}
	negativeWords = []string{"bad", "terrible", "awful", "hate", "broken", "error", "fail", "problem", "issue", "bug"}
)

// HeuristicSentiment scores content by counting positive and negative words.
// The score is coarse: +0.5, -0.5 or 0.
func HeuristicSentiment(content string) SentimentResult {
	content = strings.ToLower(content)

	positiveCount := 0
	negativeCount := 0

	for _, word := range positiveWords {
		if strings.Contains(content, word) {
			positiveCount++
		}
	}

	for _, word := range negativeWords {
		if strings.Contains(content, word) {
			negativeCount++
		}
	}

	if positiveCount > negativeCount {
		return SentimentResult{Score: 0.5, Label: models.SentimentPositive}
	} else if negativeCount > positiveCount {
		return SentimentResult{Score: -0.5, Label: models.SentimentNegative}
	}

	return SentimentResult{Score: 0, Label: models.SentimentNeutral}
}
