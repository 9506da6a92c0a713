package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Database is the relational store shared by ingestion, enrichment and alerting
type Database struct {
	db *gorm.DB
}

// Open connects to Postgres for postgres:// DSNs and to SQLite otherwise
func Open(dsn string, debug bool) (*Database, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	isPostgres := strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")

	var dialector gorm.Dialector
	if isPostgres {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logLevel)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if !isPostgres {
		// SQLite allows a single writer
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	logrus.WithField("driver", dialector.Name()).Info("Database connected")
	return &Database{db: db}, nil
}

// NewDatabase wraps an existing gorm handle
func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// Migrate creates or updates every table the pipeline uses, including the
// unique dedup index on mentions(company_id, platform, external_id).
func (d *Database) Migrate() error {
	return d.db.AutoMigrate(
		&models.Profile{},
		&models.SocialAccount{},
		&models.Source{},
		&models.Mention{},
		&models.Cluster{},
		&models.AlertRule{},
		&models.Alert{},
		&models.Notification{},
		&models.IngestionJob{},
	)
}

// Close releases the underlying connection pool
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Gorm exposes the underlying handle for seeding and ad-hoc queries
func (d *Database) Gorm() *gorm.DB {
	return d.db
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// CompanyForUser returns the company linked to a user's profile
func (d *Database) CompanyForUser(ctx context.Context, userID string) (string, error) {
	var profile models.Profile
	err := d.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load profile: %w", err)
	}
	if profile.CompanyID == nil {
		return "", nil
	}
	return *profile.CompanyID, nil
}

// CompanyIDs lists every company with an active source, account or alert rule
func (d *Database) CompanyIDs(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)

	for _, model := range []interface{}{&models.Source{}, &models.SocialAccount{}, &models.AlertRule{}} {
		var ids []string
		err := d.db.WithContext(ctx).Model(model).
			Where("is_active = ?", true).
			Distinct().Pluck("company_id", &ids).Error
		if err != nil {
			return nil, fmt.Errorf("failed to list companies: %w", err)
		}
		for _, id := range ids {
			seen[id] = true
		}
	}

	companies := make([]string, 0, len(seen))
	for id := range seen {
		companies = append(companies, id)
	}
	sort.Strings(companies)
	return companies, nil
}

// CreateJob inserts a new ingestion job row
func (d *Database) CreateJob(ctx context.Context, job *models.IngestionJob) error {
	ensureID(&job.ID)
	if err := d.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create ingestion job: %w", err)
	}
	return nil
}

// CompleteJob persists the final counters and status of a job
func (d *Database) CompleteJob(ctx context.Context, job *models.IngestionJob) error {
	err := d.db.WithContext(ctx).Model(&models.IngestionJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"status":          job.Status,
			"items_fetched":   job.ItemsFetched,
			"items_new":       job.ItemsNew,
			"items_duplicate": job.ItemsDuplicate,
			"completed_at":    job.CompletedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to complete ingestion job: %w", err)
	}
	return nil
}

// ConnectedAccounts returns the company's active OAuth-connected accounts
func (d *Database) ConnectedAccounts(ctx context.Context, companyID string) ([]models.SocialAccount, error) {
	var accounts []models.SocialAccount
	err := d.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Order("created_at").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load social accounts: %w", err)
	}
	return accounts, nil
}

// ActiveSources returns active scrape sources, optionally narrowed by id and platform
func (d *Database) ActiveSources(ctx context.Context, companyID, sourceID, platform string) ([]models.Source, error) {
	query := d.db.WithContext(ctx).Where("company_id = ? AND is_active = ?", companyID, true)
	if sourceID != "" {
		query = query.Where("id = ?", sourceID)
	}
	if platform != "" {
		query = query.Where("platform = ?", platform)
	}

	var sources []models.Source
	if err := query.Order("created_at").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}
	return sources, nil
}

// MentionExists checks the dedup key without writing
func (d *Database) MentionExists(ctx context.Context, companyID, platform, externalID string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&models.Mention{}).
		Where("company_id = ? AND platform = ? AND external_id = ?", companyID, platform, externalID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check mention: %w", err)
	}
	return count > 0, nil
}

// InsertMention inserts a mention unless its dedup key already exists.
// It reports whether a row was written.
func (d *Database) InsertMention(ctx context.Context, mention *models.Mention) (bool, error) {
	ensureID(&mention.ID)
	result := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(mention)
	if result.Error != nil {
		return false, fmt.Errorf("failed to insert mention: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// MarkSourceFetched records when a source was last scraped
func (d *Database) MarkSourceFetched(ctx context.Context, sourceID string, at time.Time) error {
	err := d.db.WithContext(ctx).Model(&models.Source{}).
		Where("id = ?", sourceID).
		Update("last_fetched_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to update source %s: %w", sourceID, err)
	}
	return nil
}

// UnprocessedMentions returns up to limit mentions that have not been enriched
func (d *Database) UnprocessedMentions(ctx context.Context, companyID string, limit int) ([]models.Mention, error) {
	var mentions []models.Mention
	err := d.db.WithContext(ctx).
		Where("company_id = ? AND processed_at IS NULL", companyID).
		Order("created_at DESC").
		Limit(limit).
		Find(&mentions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load unprocessed mentions: %w", err)
	}
	return mentions, nil
}

// MentionsByIDs loads the listed mentions of a company
func (d *Database) MentionsByIDs(ctx context.Context, companyID string, ids []string) ([]models.Mention, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var mentions []models.Mention
	err := d.db.WithContext(ctx).
		Where("company_id = ? AND id IN ?", companyID, ids).
		Find(&mentions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load mentions: %w", err)
	}
	return mentions, nil
}

// UpdateMention applies column updates to a single mention
func (d *Database) UpdateMention(ctx context.Context, id string, updates map[string]interface{}) error {
	result := d.db.WithContext(ctx).Model(&models.Mention{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update mention %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecentClusters returns the most recently updated clusters since a cutoff
func (d *Database) RecentClusters(ctx context.Context, companyID string, since time.Time, limit int) ([]models.Cluster, error) {
	var clusters []models.Cluster
	err := d.db.WithContext(ctx).
		Where("company_id = ? AND last_updated_at >= ?", companyID, since).
		Order("last_updated_at DESC").
		Limit(limit).
		Find(&clusters).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load clusters: %w", err)
	}
	return clusters, nil
}

// CreateCluster inserts a new cluster
func (d *Database) CreateCluster(ctx context.Context, cluster *models.Cluster) error {
	ensureID(&cluster.ID)
	if err := d.db.WithContext(ctx).Create(cluster).Error; err != nil {
		return fmt.Errorf("failed to create cluster: %w", err)
	}
	return nil
}

// AttachMention writes a mention's updates and makes it a member of an
// existing cluster in one transaction. The cluster's aggregates only grow
// when the mention had no cluster yet; otherwise the updates are written
// without the membership and false is returned.
func (d *Database) AttachMention(ctx context.Context, mentionID string, updates map[string]interface{}, clusterID string, reach int64, at time.Time) (bool, error) {
	attached := false
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, err := claimMentionForCluster(tx, mentionID, clusterID, updates)
		if err != nil || !claimed {
			return err
		}

		result := tx.Model(&models.Cluster{}).
			Where("id = ?", clusterID).
			Updates(map[string]interface{}{
				"mention_count":   gorm.Expr("mention_count + ?", 1),
				"total_reach":     gorm.Expr("total_reach + ?", reach),
				"last_updated_at": at,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to attach to cluster %s: %w", clusterID, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		attached = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return attached, nil
}

// CreateClusterWithMention writes a mention's updates and seeds a new cluster
// from it in one transaction. No cluster is created when the mention already
// belongs to one; false is returned in that case.
func (d *Database) CreateClusterWithMention(ctx context.Context, mentionID string, updates map[string]interface{}, cluster *models.Cluster) (bool, error) {
	ensureID(&cluster.ID)
	created := false
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, err := claimMentionForCluster(tx, mentionID, cluster.ID, updates)
		if err != nil || !claimed {
			return err
		}
		if err := tx.Create(cluster).Error; err != nil {
			return fmt.Errorf("failed to create cluster: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// claimMentionForCluster sets cluster_id alongside the other updates while the
// mention is still unclustered. A mention that lost the race gets the
// remaining updates only.
func claimMentionForCluster(tx *gorm.DB, mentionID, clusterID string, updates map[string]interface{}) (bool, error) {
	values := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["cluster_id"] = clusterID

	result := tx.Model(&models.Mention{}).
		Where("id = ? AND cluster_id IS NULL", mentionID).
		Updates(values)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update mention %s: %w", mentionID, result.Error)
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	delete(values, "cluster_id")
	result = tx.Model(&models.Mention{}).Where("id = ?", mentionID).Updates(values)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update mention %s: %w", mentionID, result.Error)
	}
	if result.RowsAffected == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

// ActiveRules returns active alert rules for a company, or for every company when companyID is empty
func (d *Database) ActiveRules(ctx context.Context, companyID string) ([]models.AlertRule, error) {
	query := d.db.WithContext(ctx).Where("is_active = ?", true)
	if companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}

	var rules []models.AlertRule
	if err := query.Order("created_at").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to load alert rules: %w", err)
	}
	return rules, nil
}

// MentionsBetween returns mentions created in the window (from, to]
func (d *Database) MentionsBetween(ctx context.Context, companyID string, from, to time.Time) ([]models.Mention, error) {
	var mentions []models.Mention
	err := d.db.WithContext(ctx).
		Where("company_id = ? AND created_at > ? AND created_at <= ?", companyID, from, to).
		Order("created_at DESC").
		Find(&mentions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load mentions in window: %w", err)
	}
	return mentions, nil
}

// CountMentionsBetween counts mentions created in the window (from, to]
func (d *Database) CountMentionsBetween(ctx context.Context, companyID string, from, to time.Time) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&models.Mention{}).
		Where("company_id = ? AND created_at > ? AND created_at <= ?", companyID, from, to).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count mentions in window: %w", err)
	}
	return count, nil
}

// TrendingClusters returns trending clusters updated since a cutoff with at least minVelocity
func (d *Database) TrendingClusters(ctx context.Context, companyID string, since time.Time, minVelocity float64) ([]models.Cluster, error) {
	var clusters []models.Cluster
	err := d.db.WithContext(ctx).
		Where("company_id = ? AND last_updated_at >= ? AND is_trending = ? AND trend_velocity >= ?",
			companyID, since, true, minVelocity).
		Order("trend_velocity DESC").
		Find(&clusters).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load trending clusters: %w", err)
	}
	return clusters, nil
}

// FireRule claims the rule and stores the alert with its notifications in a
// single transaction. It returns false, and stores nothing, when another pass
// already claimed the rule or it is still cooling down.
func (d *Database) FireRule(ctx context.Context, rule *models.AlertRule, now time.Time, alert *models.Alert, notifications []models.Notification) (bool, error) {
	fired := false
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, err := claimRule(tx, rule, now)
		if err != nil || !claimed {
			return err
		}
		if err := insertAlert(tx, alert, notifications); err != nil {
			return err
		}
		fired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return fired, nil
}

func insertAlert(tx *gorm.DB, alert *models.Alert, notifications []models.Notification) error {
	ensureID(&alert.ID)
	if err := tx.Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	if len(notifications) == 0 {
		return nil
	}
	for i := range notifications {
		ensureID(&notifications[i].ID)
		notifications[i].AlertID = alert.ID
	}
	if err := tx.Create(&notifications).Error; err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}
	return nil
}

// claimRule moves a rule into its triggered state. The update only applies
// while trigger_count still holds the value read during evaluation and the
// rule is outside its cooldown, so concurrent passes cannot both fire it.
func claimRule(tx *gorm.DB, rule *models.AlertRule, now time.Time) (bool, error) {
	query := tx.Model(&models.AlertRule{}).
		Where("id = ? AND trigger_count = ?", rule.ID, rule.TriggerCount)

	if rule.CooldownMinutes > 0 {
		cutoff := now.Add(-time.Duration(rule.CooldownMinutes) * time.Minute)
		query = query.Where("(last_triggered_at IS NULL OR last_triggered_at <= ?)", cutoff)
	}

	result := query.Updates(map[string]interface{}{
		"last_triggered_at": now,
		"trigger_count":     gorm.Expr("trigger_count + ?", 1),
	})
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim rule %s: %w", rule.ID, result.Error)
	}
	return result.RowsAffected == 1, nil
}
