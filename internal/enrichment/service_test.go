package enrichment

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCompleter is a mock implementation of the LLM client
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) IsEnabled() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

// failingStore fails updates for one mention id
type failingStore struct {
	*storage.Database
	failID string
}

func (f *failingStore) UpdateMention(ctx context.Context, id string, updates map[string]interface{}) error {
	if id == f.failID {
		return errors.New("write conflict")
	}
	return f.Database.UpdateMention(ctx, id, updates)
}

func (f *failingStore) AttachMention(ctx context.Context, mentionID string, updates map[string]interface{}, clusterID string, reach int64, at time.Time) (bool, error) {
	if mentionID == f.failID {
		return false, errors.New("write conflict")
	}
	return f.Database.AttachMention(ctx, mentionID, updates, clusterID, reach, at)
}

func (f *failingStore) CreateClusterWithMention(ctx context.Context, mentionID string, updates map[string]interface{}, cluster *models.Cluster) (bool, error) {
	if mentionID == f.failID {
		return false, errors.New("write conflict")
	}
	return f.Database.CreateClusterWithMention(ctx, mentionID, updates, cluster)
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *storage.Database {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "enrich.db"), false)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestService(store Store, client Completer) *Service {
	service := NewService(store, client, "en")
	service.now = func() time.Time { return testNow }
	return service
}

func seedMention(t *testing.T, db *storage.Database, m models.Mention) models.Mention {
	t.Helper()
	if m.CompanyID == "" {
		m.CompanyID = "company-1"
	}
	if m.Platform == "" {
		m.Platform = "reddit"
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = testNow.Add(-time.Minute)
	}
	inserted, err := db.InsertMention(context.Background(), &m)
	require.NoError(t, err)
	require.True(t, inserted)
	return m
}

func loadMention(t *testing.T, db *storage.Database, id string) models.Mention {
	t.Helper()
	var m models.Mention
	require.NoError(t, db.Gorm().First(&m, "id = ?", id).Error)
	return m
}

func TestService_SentimentFallbackWithoutLLM(t *testing.T) {
	db := newTestStore(t)
	seeded := seedMention(t, db, models.Mention{ExternalID: "m1", Content: "I love this, amazing service!"})

	service := newTestService(db, nil)
	result, err := service.Enrich(context.Background(), Request{CompanyID: "company-1", Action: ActionSentiment})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	require.Len(t, result.Results, 1)
	item := result.Results[0]
	assert.Equal(t, seeded.ID, item.ID)
	assert.Equal(t, StatusSuccess, item.Status)
	assert.Equal(t, "positive", item.Updates["sentiment_label"])
	assert.Equal(t, 0.5, item.Updates["sentiment_score"])
	assert.Equal(t, []string{ActionSentiment}, item.Fallbacks)

	stored := loadMention(t, db, seeded.ID)
	require.NotNil(t, stored.SentimentLabel)
	assert.Equal(t, "positive", *stored.SentimentLabel)
	require.NotNil(t, stored.SentimentScore)
	assert.Equal(t, 0.5, *stored.SentimentScore)
	assert.NotNil(t, stored.ProcessedAt)
	assert.Nil(t, stored.ClusterID, "actions that were not requested are untouched")
	assert.Nil(t, stored.TranslatedContent)
}

func TestService_UsesModelResults(t *testing.T) {
	db := newTestStore(t)
	seeded := seedMention(t, db, models.Mention{ExternalID: "m1", Content: "Le rappel du produit inquiète les clients", Language: "fr"})

	client := &MockCompleter{}
	client.On("IsEnabled").Return(true)
	client.On("Complete", mock.Anything, sentimentSystemPrompt, mock.Anything).
		Return(`{"score": -0.8, "label": "negative", "emotions": ["fear"]}`, nil)
	client.On("Complete", mock.Anything, entitiesSystemPrompt, mock.Anything).
		Return("```json\n{\"organizations\": [\"Acme\"], \"topics\": [\"product recall\"]}\n```", nil)
	client.On("Complete", mock.Anything, translateSystemPrompt, mock.Anything).Return(`{"translation": "The product recall worries customers"}`, nil)

	service := newTestService(db, client)
	result, err := service.Enrich(context.Background(), Request{CompanyID: "company-1", Action: ActionAll})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, StatusSuccess, result.Results[0].Status)
	assert.Empty(t, result.Results[0].Fallbacks)

	stored := loadMention(t, db, seeded.ID)
	assert.Equal(t, "negative", *stored.SentimentLabel)
	assert.Equal(t, -0.8, *stored.SentimentScore)
	require.NotNil(t, stored.TranslatedContent)
	assert.Equal(t, "The product recall worries customers", *stored.TranslatedContent)
	assert.Equal(t, "en", *stored.TranslatedLanguage)

	entities, err := stored.EntitySet()
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme"}, entities.Organizations)
	assert.Equal(t, []string{"product recall"}, entities.Topics)

	// Extracted topics seed the cluster
	require.NotNil(t, stored.ClusterID)
	var cluster models.Cluster
	require.NoError(t, db.Gorm().First(&cluster, "id = ?", *stored.ClusterID).Error)
	assert.Equal(t, "product recall", cluster.Title)
	assert.Equal(t, models.SentimentNegative, cluster.DominantSentiment)

	client.AssertExpectations(t)
}

func TestService_ModelErrorsFallBack(t *testing.T) {
	db := newTestStore(t)
	seeded := seedMention(t, db, models.Mention{ExternalID: "m1", Content: "Terrible outage, everything is broken", Language: "de"})

	client := &MockCompleter{}
	client.On("IsEnabled").Return(true)
	client.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("gateway timeout"))

	service := newTestService(db, client)
	result, err := service.Enrich(context.Background(), Request{
		CompanyID: "company-1",
		Action:    ActionAll,
	})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)

	item := result.Results[0]
	assert.Equal(t, StatusSuccess, item.Status, "fallbacks are soft failures")
	assert.ElementsMatch(t, []string{ActionSentiment, ActionEntities, ActionTranslate}, item.Fallbacks)

	stored := loadMention(t, db, seeded.ID)
	assert.Equal(t, "negative", *stored.SentimentLabel)
	assert.Equal(t, -0.5, *stored.SentimentScore)
	assert.Equal(t, "Terrible outage, everything is broken", *stored.TranslatedContent)
	assert.Nil(t, stored.ClusterID, "no topics and no keywords means no cluster")
	assert.NotNil(t, stored.ProcessedAt)

	entities, err := stored.EntitySet()
	require.NoError(t, err)
	assert.Equal(t, models.EmptyEntities(), entities)
}

func TestService_TranslateSkipsSameLanguage(t *testing.T) {
	db := newTestStore(t)
	same := seedMention(t, db, models.Mention{ExternalID: "m1", Content: "hello", Language: "EN"})
	unknown := seedMention(t, db, models.Mention{ExternalID: "m2", Content: "hola"})

	client := &MockCompleter{}
	client.On("IsEnabled").Return(true)

	service := newTestService(db, client)
	result, err := service.Enrich(context.Background(), Request{
		CompanyID:      "company-1",
		MentionIDs:     []string{same.ID, unknown.ID},
		Action:         ActionTranslate,
		TargetLanguage: "en",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)

	for _, item := range result.Results {
		assert.NotContains(t, item.Updates, "translated_content")
		assert.Contains(t, item.Updates, "processed_at")
	}
	client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ClusteringOverlap(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	existing := &models.Cluster{
		CompanyID:     "company-1",
		Title:         "elections 2024",
		FirstSeenAt:   testNow.Add(-3 * time.Hour),
		MentionCount:  1,
		TotalReach:    100,
		TopEntities:   []string{"elections 2024"},
		LastUpdatedAt: testNow.Add(-time.Hour),
	}
	require.NoError(t, db.CreateCluster(ctx, existing))

	election := seedMention(t, db, models.Mention{ExternalID: "m1", Content: "Polls open today", MatchedKeywords: []string{"election"}, EstimatedReach: 250})
	weather := seedMention(t, db, models.Mention{ExternalID: "m2", Content: "Storm warning issued", MatchedKeywords: []string{"weather"}, EstimatedReach: 40})

	service := newTestService(db, nil)
	result, err := service.Enrich(ctx, Request{
		CompanyID:  "company-1",
		MentionIDs: []string{election.ID, weather.ID},
		Action:     ActionCluster,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)

	stored := loadMention(t, db, election.ID)
	require.NotNil(t, stored.ClusterID)
	assert.Equal(t, existing.ID, *stored.ClusterID)

	var updated models.Cluster
	require.NoError(t, db.Gorm().First(&updated, "id = ?", existing.ID).Error)
	assert.Equal(t, 2, updated.MentionCount)
	assert.Equal(t, int64(350), updated.TotalReach)

	stored = loadMention(t, db, weather.ID)
	require.NotNil(t, stored.ClusterID)
	assert.NotEqual(t, existing.ID, *stored.ClusterID)

	var created models.Cluster
	require.NoError(t, db.Gorm().First(&created, "id = ?", *stored.ClusterID).Error)
	assert.Equal(t, "weather", created.Title)
	assert.Equal(t, 1, created.MentionCount)
	assert.Equal(t, int64(40), created.TotalReach)
	assert.Equal(t, "Storm warning issued", created.Summary)

	// Re-running does not attach an already clustered mention again
	_, err = service.Enrich(ctx, Request{CompanyID: "company-1", MentionIDs: []string{election.ID}, Action: ActionCluster})
	require.NoError(t, err)
	require.NoError(t, db.Gorm().First(&updated, "id = ?", existing.ID).Error)
	assert.Equal(t, 2, updated.MentionCount)
}

func TestService_StaleClustersAreIgnored(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	stale := &models.Cluster{
		CompanyID:     "company-1",
		Title:         "election",
		TopEntities:   []string{"election"},
		MentionCount:  1,
		LastUpdatedAt: testNow.Add(-25 * time.Hour),
	}
	require.NoError(t, db.CreateCluster(ctx, stale))

	m := seedMention(t, db, models.Mention{ExternalID: "m1", MatchedKeywords: []string{"election"}})

	service := newTestService(db, nil)
	_, err := service.Enrich(ctx, Request{CompanyID: "company-1", Action: ActionCluster})
	require.NoError(t, err)

	stored := loadMention(t, db, m.ID)
	require.NotNil(t, stored.ClusterID)
	assert.NotEqual(t, stale.ID, *stored.ClusterID)
}

func TestService_ClusteringAttachesToFirstOverlap(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	newest := &models.Cluster{
		CompanyID:     "company-1",
		Title:         "recall",
		MentionCount:  1,
		TotalReach:    10,
		TopEntities:   []string{"recall"},
		LastUpdatedAt: testNow.Add(-time.Hour),
	}
	older := &models.Cluster{
		CompanyID:     "company-1",
		Title:         "product recall",
		MentionCount:  1,
		TotalReach:    10,
		TopEntities:   []string{"product recall"},
		LastUpdatedAt: testNow.Add(-2 * time.Hour),
	}
	require.NoError(t, db.CreateCluster(ctx, older))
	require.NoError(t, db.CreateCluster(ctx, newest))

	m := seedMention(t, db, models.Mention{ExternalID: "m1", MatchedKeywords: []string{"product recall"}, EstimatedReach: 30})

	service := newTestService(db, nil)
	_, err := service.Enrich(ctx, Request{CompanyID: "company-1", MentionIDs: []string{m.ID}, Action: ActionCluster})
	require.NoError(t, err)

	stored := loadMention(t, db, m.ID)
	require.NotNil(t, stored.ClusterID)
	assert.Equal(t, newest.ID, *stored.ClusterID)

	var got models.Cluster
	require.NoError(t, db.Gorm().First(&got, "id = ?", newest.ID).Error)
	assert.Equal(t, 2, got.MentionCount)
	assert.Equal(t, int64(40), got.TotalReach)

	require.NoError(t, db.Gorm().First(&got, "id = ?", older.ID).Error)
	assert.Equal(t, 1, got.MentionCount, "only the first overlapping cluster grows")
	assert.Equal(t, int64(10), got.TotalReach)
}

func TestService_ClusteringScansRecentCandidatesOnly(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	oldest := &models.Cluster{
		CompanyID:     "company-1",
		Title:         "recall",
		MentionCount:  1,
		TopEntities:   []string{"recall"},
		LastUpdatedAt: testNow.Add(-5 * time.Hour),
	}
	require.NoError(t, db.CreateCluster(ctx, oldest))
	for i := 0; i < maxCandidateClusters; i++ {
		title := fmt.Sprintf("weather %d", i)
		require.NoError(t, db.CreateCluster(ctx, &models.Cluster{
			CompanyID:     "company-1",
			Title:         title,
			MentionCount:  1,
			TopEntities:   []string{title},
			LastUpdatedAt: testNow.Add(-time.Duration(i+1) * time.Minute),
		}))
	}

	m := seedMention(t, db, models.Mention{ExternalID: "m1", MatchedKeywords: []string{"recall"}})

	service := newTestService(db, nil)
	_, err := service.Enrich(ctx, Request{CompanyID: "company-1", MentionIDs: []string{m.ID}, Action: ActionCluster})
	require.NoError(t, err)

	stored := loadMention(t, db, m.ID)
	require.NotNil(t, stored.ClusterID)
	assert.NotEqual(t, oldest.ID, *stored.ClusterID)

	var got models.Cluster
	require.NoError(t, db.Gorm().First(&got, "id = ?", oldest.ID).Error)
	assert.Equal(t, 1, got.MentionCount)

	var clusters int64
	require.NoError(t, db.Gorm().Model(&models.Cluster{}).Count(&clusters).Error)
	assert.Equal(t, int64(maxCandidateClusters+2), clusters)
}

func TestService_FailedWriteDoesNotCountMention(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	first := seedMention(t, db, models.Mention{ExternalID: "m1", MatchedKeywords: []string{"recall"}, EstimatedReach: 100})
	service := newTestService(db, nil)
	_, err := service.Enrich(ctx, Request{CompanyID: "company-1", MentionIDs: []string{first.ID}, Action: ActionCluster})
	require.NoError(t, err)
	clusterID := loadMention(t, db, first.ID).ClusterID
	require.NotNil(t, clusterID)

	second := seedMention(t, db, models.Mention{ExternalID: "m2", MatchedKeywords: []string{"recall"}, EstimatedReach: 50})
	failing := newTestService(&failingStore{Database: db, failID: second.ID}, nil)
	result, err := failing.Enrich(ctx, Request{CompanyID: "company-1", MentionIDs: []string{second.ID}, Action: ActionCluster})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, StatusError, result.Results[0].Status)
	assert.Nil(t, loadMention(t, db, second.ID).ClusterID)

	result, err = service.Enrich(ctx, Request{CompanyID: "company-1", MentionIDs: []string{second.ID}, Action: ActionCluster})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Results[0].Status)
	assert.Equal(t, *clusterID, result.Results[0].Updates["cluster_id"])

	var cluster models.Cluster
	require.NoError(t, db.Gorm().First(&cluster, "id = ?", *clusterID).Error)
	assert.Equal(t, 2, cluster.MentionCount)
	assert.Equal(t, int64(150), cluster.TotalReach)
}

func TestService_ItemFailureDoesNotStopBatch(t *testing.T) {
	db := newTestStore(t)
	first := seedMention(t, db, models.Mention{ExternalID: "m1", Content: "great"})
	second := seedMention(t, db, models.Mention{ExternalID: "m2", Content: "awful"})

	service := newTestService(&failingStore{Database: db, failID: first.ID}, nil)
	result, err := service.Enrich(context.Background(), Request{
		CompanyID:  "company-1",
		MentionIDs: []string{first.ID, second.ID, "missing-id"},
		Action:     ActionSentiment,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	require.Len(t, result.Results, 3)
	assert.Equal(t, StatusError, result.Results[0].Status)
	assert.Contains(t, result.Results[0].Error, "write conflict")
	assert.Equal(t, StatusSuccess, result.Results[1].Status)
	assert.Equal(t, "missing-id", result.Results[2].ID)
	assert.Equal(t, StatusError, result.Results[2].Status)

	assert.Nil(t, loadMention(t, db, first.ID).ProcessedAt)
	assert.NotNil(t, loadMention(t, db, second.ID).ProcessedAt)
}

func TestService_RerunIsIdempotent(t *testing.T) {
	db := newTestStore(t)
	m := seedMention(t, db, models.Mention{ExternalID: "m1", Content: "Awesome support", MatchedKeywords: []string{"support"}})

	service := newTestService(db, nil)
	req := Request{CompanyID: "company-1", MentionIDs: []string{m.ID}, Action: ActionAll}

	first, err := service.Enrich(context.Background(), req)
	require.NoError(t, err)
	second, err := service.Enrich(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, second.Results[0].Status)
	assert.Equal(t, first.Results[0].Updates["sentiment_label"], second.Results[0].Updates["sentiment_label"])

	var clusters int64
	require.NoError(t, db.Gorm().Model(&models.Cluster{}).Count(&clusters).Error)
	assert.Equal(t, int64(1), clusters)
}

func TestService_RejectsInvalidRequests(t *testing.T) {
	service := newTestService(newTestStore(t), nil)

	_, err := service.Enrich(context.Background(), Request{CompanyID: "company-1", Action: "summarize"})
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = service.Enrich(context.Background(), Request{Action: ActionAll})
	assert.Error(t, err)
}

func TestService_BatchIsCapped(t *testing.T) {
	db := newTestStore(t)
	for i := 0; i < maxBatchSize+5; i++ {
		seedMention(t, db, models.Mention{ExternalID: fmt.Sprintf("m%d", i), Content: "neutral text"})
	}

	service := newTestService(db, nil)
	result, err := service.Enrich(context.Background(), Request{CompanyID: "company-1", Action: ActionSentiment})
	require.NoError(t, err)
	assert.Equal(t, maxBatchSize, result.Processed)

	result, err = service.Enrich(context.Background(), Request{CompanyID: "company-1", Action: ActionSentiment})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Processed)
}
