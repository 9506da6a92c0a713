// Package ingestion pulls candidate mentions from OAuth-synced accounts and
// configured scrape sources into the mention store.
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/accountsync"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/metrics"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/sources"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/storage"
	"github.com/sirupsen/logrus"
)

// Request selects what one ingestion run covers. SourceID and Platform are optional filters.
type Request struct {
	CompanyID string
	SourceID  string
	Platform  string
}

// Result summarises a completed ingestion job
type Result struct {
	JobID     string `json:"jobId"`
	Fetched   int    `json:"fetched"`
	New       int    `json:"new"`
	Duplicate int    `json:"duplicate"`
}

// Service runs ingestion for one company at a time
type Service struct {
	store    Store
	fetchers FetcherResolver
	syncer   accountsync.SyncerInterface
	archive  storage.ArchiveInterface
	now      func() time.Time
}

var _ ServiceInterface = (*Service)(nil)

// NewService creates a new ingestion service. archive may be nil.
func NewService(store Store, fetchers FetcherResolver, syncer accountsync.SyncerInterface, archive storage.ArchiveInterface) *Service {
	return &Service{
		store:    store,
		fetchers: fetchers,
		syncer:   syncer,
		archive:  archive,
		now:      time.Now,
	}
}

// ShouldSkipSource reports whether a scrape source is shadowed by an
// OAuth-connected account on the same platform. OAuth data always wins.
func ShouldSkipSource(platform string, connectedPlatforms map[string]bool) bool {
	return connectedPlatforms[strings.ToLower(platform)]
}

type sourceBatch struct {
	source     models.Source
	candidates []models.Mention
	err        error
}

// Run performs one ingestion pass and returns the job counters
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if req.CompanyID == "" {
		return nil, fmt.Errorf("company id is required")
	}

	start := s.now()
	logger := logrus.WithField("company_id", req.CompanyID)

	job := &models.IngestionJob{
		CompanyID: req.CompanyID,
		Status:    models.JobStatusRunning,
		StartedAt: start.UTC(),
	}
	if req.SourceID != "" {
		job.SourceID = &req.SourceID
	}
	if req.Platform != "" {
		job.Platform = &req.Platform
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		metrics.RecordIngestion(s.now().Sub(start), err)
		return nil, err
	}
	logger = logger.WithField("job_id", job.ID)
	logger.Info("Starting ingestion run")

	accounts, err := s.store.ConnectedAccounts(ctx, req.CompanyID)
	if err != nil {
		s.failJob(ctx, logger, job)
		metrics.RecordIngestion(s.now().Sub(start), err)
		return nil, err
	}

	connectedPlatforms := make(map[string]bool)
	for _, account := range accounts {
		connectedPlatforms[strings.ToLower(account.Platform)] = true
	}

	// OAuth path: a run narrowed to one scrape source does not sync accounts
	if req.SourceID == "" {
		s.syncAccounts(ctx, logger, accounts, req.Platform, job)
	}

	targets, err := s.store.ActiveSources(ctx, req.CompanyID, req.SourceID, req.Platform)
	if err != nil {
		s.failJob(ctx, logger, job)
		metrics.RecordIngestion(s.now().Sub(start), err)
		return nil, err
	}

	var raw []models.Mention
	for batch := range s.fetchAll(ctx, logger, targets, connectedPlatforms) {
		if batch.err != nil {
			metrics.SourceFetchErrors.WithLabelValues(batch.source.Platform).Inc()
			logger.WithField("source_id", batch.source.ID).Errorf("Error fetching from source: %v", batch.err)
			continue
		}

		raw = append(raw, batch.candidates...)
		s.storeCandidates(ctx, logger, batch, job)

		if err := s.store.MarkSourceFetched(ctx, batch.source.ID, s.now().UTC()); err != nil {
			logger.WithField("source_id", batch.source.ID).Errorf("Failed to update source: %v", err)
		}
	}

	s.archiveCandidates(ctx, logger, job, raw)

	completed := s.now().UTC()
	job.Status = models.JobStatusCompleted
	job.CompletedAt = &completed
	if err := s.store.CompleteJob(ctx, job); err != nil {
		s.failJob(ctx, logger, job)
		metrics.RecordIngestion(s.now().Sub(start), err)
		return nil, err
	}

	metrics.RecordIngestion(s.now().Sub(start), nil)
	logger.WithFields(logrus.Fields{
		"fetched":   job.ItemsFetched,
		"new":       job.ItemsNew,
		"duplicate": job.ItemsDuplicate,
	}).Infof("Ingestion run completed in %v", s.now().Sub(start))

	return &Result{
		JobID:     job.ID,
		Fetched:   job.ItemsFetched,
		New:       job.ItemsNew,
		Duplicate: job.ItemsDuplicate,
	}, nil
}

// failJob closes a job that could not finish, keeping the counts so far.
// The write survives cancellation of the run's context.
func (s *Service) failJob(ctx context.Context, logger *logrus.Entry, job *models.IngestionJob) {
	completed := s.now().UTC()
	job.Status = models.JobStatusFailed
	job.CompletedAt = &completed
	if err := s.store.CompleteJob(context.WithoutCancel(ctx), job); err != nil {
		logger.Errorf("Failed to close ingestion job: %v", err)
	}
}

// syncAccounts delegates each connected account to the sync collaborator and
// adds its reported counts to the job
func (s *Service) syncAccounts(ctx context.Context, logger *logrus.Entry, accounts []models.SocialAccount, platform string, job *models.IngestionJob) {
	if s.syncer == nil || !s.syncer.IsEnabled() {
		if len(accounts) > 0 {
			logger.Debug("Account sync disabled, skipping connected accounts")
		}
		return
	}

	for _, account := range accounts {
		if platform != "" && !strings.EqualFold(account.Platform, platform) {
			continue
		}

		result, err := s.syncer.Sync(ctx, account)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"account_id": account.ID,
				"platform":   account.Platform,
			}).Errorf("Account sync failed: %v", err)
			continue
		}

		job.ItemsFetched += result.Fetched
		job.ItemsNew += result.New
	}
}

// fetchAll fetches every eligible source concurrently
func (s *Service) fetchAll(ctx context.Context, logger *logrus.Entry, targets []models.Source, connectedPlatforms map[string]bool) <-chan sourceBatch {
	batches := make(chan sourceBatch, len(targets))
	var wg sync.WaitGroup

	for _, target := range targets {
		if ShouldSkipSource(target.Platform, connectedPlatforms) {
			logger.WithFields(logrus.Fields{
				"source_id": target.ID,
				"platform":  target.Platform,
			}).Info("Skipping scrape source, platform is covered by a connected account")
			continue
		}

		fetcher := s.fetchers.For(target)
		if fetcher == nil {
			logger.WithField("source_id", target.ID).Debug("No fetcher available for source")
			continue
		}

		wg.Add(1)
		go func(target models.Source, fetcher sources.Source) {
			defer wg.Done()

			logger.Debugf("Fetching mentions from %s for source %s", fetcher.GetName(), target.ID)
			candidates, err := fetcher.FetchMentions(ctx, target)
			batches <- sourceBatch{source: target, candidates: candidates, err: err}
		}(target, fetcher)
	}

	go func() {
		wg.Wait()
		close(batches)
	}()

	return batches
}

// storeCandidates applies check-then-insert against the dedup key. The
// unique index is the real guard; a lost insert race counts as a duplicate.
func (s *Service) storeCandidates(ctx context.Context, logger *logrus.Entry, batch sourceBatch, job *models.IngestionJob) {
	sourceID := batch.source.ID

	for i := range batch.candidates {
		candidate := batch.candidates[i]
		candidate.CompanyID = batch.source.CompanyID
		candidate.SourceID = &sourceID
		if candidate.Platform == "" {
			candidate.Platform = batch.source.Platform
		}
		if candidate.CreatedAt.IsZero() {
			candidate.CreatedAt = s.now().UTC()
		}
		if candidate.ExternalID == "" {
			logger.WithField("source_id", sourceID).Warn("Dropping candidate without external id")
			continue
		}

		job.ItemsFetched++

		exists, err := s.store.MentionExists(ctx, candidate.CompanyID, candidate.Platform, candidate.ExternalID)
		if err != nil {
			logger.WithField("external_id", candidate.ExternalID).Errorf("Dedup check failed: %v", err)
			continue
		}
		if exists {
			job.ItemsDuplicate++
			metrics.MentionsIngested.WithLabelValues(candidate.Platform, "duplicate").Inc()
			continue
		}

		inserted, err := s.store.InsertMention(ctx, &candidate)
		if err != nil {
			logger.WithField("external_id", candidate.ExternalID).Errorf("Failed to insert mention: %v", err)
			continue
		}
		if !inserted {
			job.ItemsDuplicate++
			metrics.MentionsIngested.WithLabelValues(candidate.Platform, "duplicate").Inc()
			continue
		}

		job.ItemsNew++
		metrics.MentionsIngested.WithLabelValues(candidate.Platform, "new").Inc()
	}
}

func (s *Service) archiveCandidates(ctx context.Context, logger *logrus.Entry, job *models.IngestionJob, raw []models.Mention) {
	if s.archive == nil || len(raw) == 0 {
		return
	}

	data, err := json.Marshal(raw)
	if err != nil {
		logger.Warnf("Failed to marshal raw candidates: %v", err)
		return
	}

	name := fmt.Sprintf("ingestion/%s/%s.json", job.CompanyID, job.ID)
	if err := s.archive.Store(ctx, name, data); err != nil {
		logger.Warnf("Failed to archive raw candidates: %v", err)
	}
}
