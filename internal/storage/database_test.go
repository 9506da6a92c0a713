package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "store.db"), false)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDatabase_InsertMentionIgnoresDuplicateKey(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	first := &models.Mention{CompanyID: "company-1", Platform: "reddit", ExternalID: "abc", Content: "first"}
	inserted, err := db.InsertMention(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotEmpty(t, first.ID)

	second := &models.Mention{CompanyID: "company-1", Platform: "reddit", ExternalID: "abc", Content: "second"}
	inserted, err = db.InsertMention(ctx, second)
	require.NoError(t, err)
	assert.False(t, inserted, "same dedup key must not produce a second row")

	other := &models.Mention{CompanyID: "company-2", Platform: "reddit", ExternalID: "abc"}
	inserted, err = db.InsertMention(ctx, other)
	require.NoError(t, err)
	assert.True(t, inserted, "dedup key is scoped per company")

	exists, err := db.MentionExists(ctx, "company-1", "reddit", "abc")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = db.MentionExists(ctx, "company-1", "twitter", "abc")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDatabase_FireRule(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rule := &models.AlertRule{
		ID:              "rule-1",
		CompanyID:       "company-1",
		Name:            "Recall watch",
		RuleType:        models.RuleTypeKeyword,
		CooldownMinutes: 30,
		IsActive:        true,
	}
	require.NoError(t, db.Gorm().Create(rule).Error)

	newAlert := func() *models.Alert {
		return &models.Alert{CompanyID: "company-1", RuleID: "rule-1", Title: "HIGH: Recall watch", CreatedAt: now}
	}

	alert := newAlert()
	fired, err := db.FireRule(ctx, rule, now, alert, []models.Notification{{UserID: "user-1", CompanyID: "company-1"}})
	require.NoError(t, err)
	assert.True(t, fired)
	assert.NotEmpty(t, alert.ID)

	// A second pass holding the stale trigger_count loses the race
	fired, err = db.FireRule(ctx, rule, now.Add(time.Minute), newAlert(), nil)
	require.NoError(t, err)
	assert.False(t, fired)

	var stored models.AlertRule
	require.NoError(t, db.Gorm().First(&stored, "id = ?", "rule-1").Error)
	assert.Equal(t, 1, stored.TriggerCount)
	require.NotNil(t, stored.LastTriggeredAt)

	// Fresh read but still inside the cooldown window
	fired, err = db.FireRule(ctx, &stored, now.Add(10*time.Minute), newAlert(), nil)
	require.NoError(t, err)
	assert.False(t, fired)

	var alerts int64
	require.NoError(t, db.Gorm().Model(&models.Alert{}).Count(&alerts).Error)
	assert.Equal(t, int64(1), alerts, "a lost claim must not store an alert")

	var notifications []models.Notification
	require.NoError(t, db.Gorm().Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, alert.ID, notifications[0].AlertID)

	fired, err = db.FireRule(ctx, &stored, now.Add(31*time.Minute), newAlert(), nil)
	require.NoError(t, err)
	assert.True(t, fired)
}

func TestDatabase_AttachMentionAccumulates(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cluster := &models.Cluster{CompanyID: "company-1", Title: "election", MentionCount: 1, TotalReach: 100, LastUpdatedAt: now}
	require.NoError(t, db.CreateCluster(ctx, cluster))

	first := &models.Mention{CompanyID: "company-1", Platform: "reddit", ExternalID: "m1"}
	second := &models.Mention{CompanyID: "company-1", Platform: "reddit", ExternalID: "m2"}
	for _, m := range []*models.Mention{first, second} {
		_, err := db.InsertMention(ctx, m)
		require.NoError(t, err)
	}

	attached, err := db.AttachMention(ctx, first.ID, map[string]interface{}{"processed_at": now}, cluster.ID, 250, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, attached)
	attached, err = db.AttachMention(ctx, second.ID, map[string]interface{}{"processed_at": now}, cluster.ID, 50, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, attached)

	// A mention that already has a cluster is not counted twice
	attached, err = db.AttachMention(ctx, first.ID, map[string]interface{}{"processed_at": now.Add(time.Hour)}, cluster.ID, 250, now.Add(3*time.Minute))
	require.NoError(t, err)
	assert.False(t, attached)

	clusters, err := db.RecentClusters(ctx, "company-1", now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, 3, clusters[0].MentionCount)
	assert.Equal(t, int64(400), clusters[0].TotalReach)

	var stored models.Mention
	require.NoError(t, db.Gorm().First(&stored, "id = ?", first.ID).Error)
	require.NotNil(t, stored.ClusterID)
	assert.Equal(t, cluster.ID, *stored.ClusterID)
	require.NotNil(t, stored.ProcessedAt)
	assert.True(t, stored.ProcessedAt.Equal(now.Add(time.Hour)), "other updates still apply")

	_, err = db.AttachMention(ctx, "missing", map[string]interface{}{"processed_at": now}, cluster.ID, 1, now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDatabase_AttachMentionRollsBackOnMissingCluster(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m := &models.Mention{CompanyID: "company-1", Platform: "reddit", ExternalID: "m1"}
	_, err := db.InsertMention(ctx, m)
	require.NoError(t, err)

	_, err = db.AttachMention(ctx, m.ID, map[string]interface{}{"processed_at": now}, "missing", 10, now)
	assert.ErrorIs(t, err, ErrNotFound)

	var stored models.Mention
	require.NoError(t, db.Gorm().First(&stored, "id = ?", m.ID).Error)
	assert.Nil(t, stored.ClusterID)
	assert.Nil(t, stored.ProcessedAt)
}

func TestDatabase_CreateClusterWithMention(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m := &models.Mention{CompanyID: "company-1", Platform: "reddit", ExternalID: "m1"}
	_, err := db.InsertMention(ctx, m)
	require.NoError(t, err)

	cluster := &models.Cluster{CompanyID: "company-1", Title: "recall", MentionCount: 1, TotalReach: 10, LastUpdatedAt: now}
	created, err := db.CreateClusterWithMention(ctx, m.ID, map[string]interface{}{"processed_at": now}, cluster)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, cluster.ID)

	var stored models.Mention
	require.NoError(t, db.Gorm().First(&stored, "id = ?", m.ID).Error)
	require.NotNil(t, stored.ClusterID)
	assert.Equal(t, cluster.ID, *stored.ClusterID)

	// A second seed for the same mention is dropped
	created, err = db.CreateClusterWithMention(ctx, m.ID, map[string]interface{}{"processed_at": now}, &models.Cluster{CompanyID: "company-1", Title: "recall", LastUpdatedAt: now})
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, db.Gorm().Model(&models.Cluster{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDatabase_MentionWindows(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, age := range []time.Duration{5 * time.Minute, 30 * time.Minute, 90 * time.Minute} {
		_, err := db.InsertMention(ctx, &models.Mention{
			CompanyID:  "company-1",
			Platform:   "web",
			ExternalID: string(rune('a' + i)),
			CreatedAt:  now.Add(-age),
		})
		require.NoError(t, err)
	}

	count, err := db.CountMentionsBetween(ctx, "company-1", now.Add(-time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = db.CountMentionsBetween(ctx, "company-1", now.Add(-2*time.Hour), now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	mentions, err := db.MentionsBetween(ctx, "company-1", now.Add(-time.Hour), now)
	require.NoError(t, err)
	assert.Len(t, mentions, 2)
}

func TestDatabase_CompanyForUser(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	company := "company-1"
	require.NoError(t, db.Gorm().Create(&models.Profile{UserID: "user-1", CompanyID: &company}).Error)
	require.NoError(t, db.Gorm().Create(&models.Profile{UserID: "user-2"}).Error)

	got, err := db.CompanyForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "company-1", got)

	got, err = db.CompanyForUser(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = db.CompanyForUser(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileArchive_StoreAndList(t *testing.T) {
	archive := NewFileArchive(t.TempDir())
	ctx := context.Background()

	require.NoError(t, archive.Store(ctx, "ingestion/company-1/job-1.json", []byte(`[]`)))
	require.NoError(t, archive.Store(ctx, "ingestion/company-2/job-2.json", []byte(`[{}]`)))

	payloads, err := archive.List(ctx, "ingestion/company-1/")
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Equal(t, "ingestion/company-1/job-1.json", payloads[0].Name)
	assert.Equal(t, int64(2), payloads[0].Size)
	assert.False(t, payloads[0].ModifiedAt.IsZero())

	data, err := archive.Retrieve(ctx, "ingestion/company-1/job-1.json")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	_, err = archive.Retrieve(ctx, "ingestion/company-1/missing.json")
	assert.ErrorIs(t, err, ErrNotFound)

	payloads, err = NewFileArchive(filepath.Join(t.TempDir(), "absent")).List(ctx, "ingestion/")
	require.NoError(t, err)
	assert.Empty(t, payloads)
}

func TestLatestPayload(t *testing.T) {
	dir := t.TempDir()
	archive := NewFileArchive(dir)
	ctx := context.Background()

	_, _, err := LatestPayload(ctx, archive, "ingestion/company-1/")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, archive.Store(ctx, "ingestion/company-1/b.json", []byte(`"newest"`)))
	require.NoError(t, archive.Store(ctx, "ingestion/company-1/a.json", []byte(`"oldest"`)))
	old := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "ingestion", "company-1", "a.json"), old, old))

	latest, data, err := LatestPayload(ctx, archive, "ingestion/company-1/")
	require.NoError(t, err)
	assert.Equal(t, "ingestion/company-1/b.json", latest.Name)
	assert.Equal(t, `"newest"`, string(data))
}

func TestOpenArchive(t *testing.T) {
	ctx := context.Background()

	archive, err := OpenArchive(ctx, "", "", "")
	require.NoError(t, err)
	assert.Nil(t, archive)

	archive, err = OpenArchive(ctx, "", "", t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FileArchive{}, archive)
}
