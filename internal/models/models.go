package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Sentiment labels stored on mentions and clusters
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentMixed    = "mixed"
)

// Mention represents one observed piece of social or web content
type Mention struct {
	ID         string  `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CompanyID  string  `json:"company_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_mentions_dedup,priority:1;index:idx_mentions_company_created,priority:1"`
	Platform   string  `json:"platform" gorm:"type:varchar(50);not null;uniqueIndex:idx_mentions_dedup,priority:2"`
	ExternalID string  `json:"external_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_mentions_dedup,priority:3"`
	SourceID   *string `json:"source_id,omitempty" gorm:"type:varchar(36)"`
	URL        string  `json:"url"`

	AuthorName      string `json:"author_name"`
	AuthorHandle    string `json:"author_handle" gorm:"index"`
	AuthorFollowers int    `json:"author_followers"`
	AuthorVerified  bool   `json:"author_verified"`

	Title       string    `json:"title"`
	Content     string    `json:"content"`
	PublishedAt time.Time `json:"published_at"`
	Language    string    `json:"language" gorm:"type:varchar(10)"`

	Likes          int   `json:"likes"`
	Shares         int   `json:"shares"`
	Comments       int   `json:"comments"`
	Views          int   `json:"views"`
	EstimatedReach int64 `json:"estimated_reach"`

	MatchedKeywords datatypes.JSONSlice[string] `json:"matched_keywords"`

	// Enrichment fields stay NULL until the mention is processed
	SentimentScore     *float64       `json:"sentiment_score"`
	SentimentLabel     *string        `json:"sentiment_label"`
	Entities           datatypes.JSON `json:"entities"`
	TranslatedContent  *string        `json:"translated_content"`
	TranslatedLanguage *string        `json:"translated_language"`
	ClusterID          *string        `json:"cluster_id" gorm:"type:varchar(36)"`
	ProcessedAt        *time.Time     `json:"processed_at" gorm:"index"`

	CreatedAt time.Time `json:"created_at" gorm:"index:idx_mentions_company_created,priority:2"`
}

// Entities is the named-entity payload stored on a mention
type Entities struct {
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
	Locations     []string `json:"locations"`
	Products      []string `json:"products"`
	Topics        []string `json:"topics"`
}

// EmptyEntities returns an entity set with every list present but empty
func EmptyEntities() Entities {
	return Entities{
		People:        []string{},
		Organizations: []string{},
		Locations:     []string{},
		Products:      []string{},
		Topics:        []string{},
	}
}

// EntitySet decodes the stored entities column. A NULL column yields an empty set.
func (m *Mention) EntitySet() (Entities, error) {
	entities := EmptyEntities()
	if len(m.Entities) == 0 {
		return entities, nil
	}
	if err := json.Unmarshal(m.Entities, &entities); err != nil {
		return EmptyEntities(), err
	}
	return entities, nil
}

// Cluster is a rolling aggregation of topically related mentions
type Cluster struct {
	ID                string                      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CompanyID         string                      `json:"company_id" gorm:"type:varchar(36);not null;index:idx_clusters_company_updated,priority:1"`
	Title             string                      `json:"title"`
	Summary           string                      `json:"summary"`
	FirstSeenAt       time.Time                   `json:"first_seen_at"`
	MentionCount      int                         `json:"mention_count"`
	TotalReach        int64                       `json:"total_reach"`
	AvgSentiment      *float64                    `json:"avg_sentiment"`
	DominantSentiment string                      `json:"dominant_sentiment"`
	TopEntities       datatypes.JSONSlice[string] `json:"top_entities"`
	TopSources        datatypes.JSONSlice[string] `json:"top_sources"`
	LastUpdatedAt     time.Time                   `json:"last_updated_at" gorm:"index:idx_clusters_company_updated,priority:2"`
	TrendVelocity     float64                     `json:"trend_velocity"` // maintained outside the pipeline
	IsTrending        bool                        `json:"is_trending"`
	CreatedAt         time.Time                   `json:"created_at"`
}

// RuleType identifies how an alert rule is evaluated
type RuleType string

const (
	RuleTypeKeyword   RuleType = "keyword"
	RuleTypeSpike     RuleType = "spike"
	RuleTypeSentiment RuleType = "sentiment"
	RuleTypeSource    RuleType = "source"
	RuleTypeTrend     RuleType = "trend"
)

// Severity of an alert rule and the alerts it produces
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Recipient is a single alert recipient, e.g. {"type":"user","id":"..."}
type Recipient struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// RecipientTypeUser receives an in-app notification for every alert
const RecipientTypeUser = "user"

// AlertRule is a company-scoped trigger definition
type AlertRule struct {
	ID                     string                         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CompanyID              string                         `json:"company_id" gorm:"type:varchar(36);not null;index"`
	Name                   string                         `json:"name" gorm:"not null"`
	Description            string                         `json:"description"`
	RuleType               RuleType                       `json:"rule_type" gorm:"type:varchar(20);not null"`
	Conditions             datatypes.JSON                 `json:"conditions"`
	ThresholdValue         *float64                       `json:"threshold_value"`
	ThresholdPeriodMinutes int                            `json:"threshold_period_minutes"`
	CooldownMinutes        int                            `json:"cooldown_minutes"`
	Severity               Severity                       `json:"severity" gorm:"type:varchar(20)"`
	Channels               datatypes.JSONSlice[string]    `json:"channels"`
	Recipients             datatypes.JSONSlice[Recipient] `json:"recipients"`
	IsActive               bool                           `json:"is_active" gorm:"index"`
	LastTriggeredAt        *time.Time                     `json:"last_triggered_at"`
	TriggerCount           int                            `json:"trigger_count"`
	CreatedAt              time.Time                      `json:"created_at"`
	UpdatedAt              time.Time                      `json:"updated_at"`
}

// Alert records one firing of a rule. Alerts are never updated.
type Alert struct {
	ID          string                      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CompanyID   string                      `json:"company_id" gorm:"type:varchar(36);not null;index"`
	RuleID      string                      `json:"rule_id" gorm:"type:varchar(36);not null;index"`
	RuleType    RuleType                    `json:"rule_type" gorm:"type:varchar(20)"`
	MentionIDs  datatypes.JSONSlice[string] `json:"mention_ids"`
	Severity    Severity                    `json:"severity" gorm:"type:varchar(20)"`
	Title       string                      `json:"title"`
	Summary     string                      `json:"summary"`
	TriggerData datatypes.JSON              `json:"trigger_data"`
	SentTo      datatypes.JSONSlice[string] `json:"sent_to"`
	CreatedAt   time.Time                   `json:"created_at"`
}

// Notification is an in-app message for a single user
type Notification struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);not null;index"`
	CompanyID string    `json:"company_id" gorm:"type:varchar(36);index"`
	AlertID   string    `json:"alert_id" gorm:"type:varchar(36);index"`
	Type      string    `json:"type" gorm:"type:varchar(30)"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Ingestion job states
const (
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// IngestionJob is the bookkeeping row for one ingestion run
type IngestionJob struct {
	ID             string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CompanyID      string     `json:"company_id" gorm:"type:varchar(36);not null;index"`
	SourceID       *string    `json:"source_id" gorm:"type:varchar(36)"`
	Platform       *string    `json:"platform" gorm:"type:varchar(50)"`
	Status         string     `json:"status" gorm:"type:varchar(20)"`
	ItemsFetched   int        `json:"items_fetched"`
	ItemsNew       int        `json:"items_new"`
	ItemsDuplicate int        `json:"items_duplicate"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
}

// Source is a configured scrape target for a company
type Source struct {
	ID            string                      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CompanyID     string                      `json:"company_id" gorm:"type:varchar(36);not null;index"`
	Name          string                      `json:"name"`
	Platform      string                      `json:"platform" gorm:"type:varchar(50);not null"`
	URL           string                      `json:"url"`
	Keywords      datatypes.JSONSlice[string] `json:"keywords"`
	IsActive      bool                        `json:"is_active"`
	LastFetchedAt *time.Time                  `json:"last_fetched_at"`
	CreatedAt     time.Time                   `json:"created_at"`
}

// SocialAccount is an OAuth-connected platform account owned by a company
type SocialAccount struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CompanyID   string    `json:"company_id" gorm:"type:varchar(36);not null;index"`
	Platform    string    `json:"platform" gorm:"type:varchar(50);not null"`
	AccountName string    `json:"account_name"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Profile maps an authenticated user to their company
type Profile struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;type:varchar(36)"`
	CompanyID *string   `json:"company_id" gorm:"type:varchar(36)"`
	CreatedAt time.Time `json:"created_at"`
}
