package scheduler

import (
	"context"
	"fmt"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/alerting"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/config"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/enrichment"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/ingestion"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CompanyLister lists the companies a scheduled pass should cover
type CompanyLister interface {
	CompanyIDs(ctx context.Context) ([]string, error)
}

// Service handles scheduling of pipeline passes
type Service struct {
	config    *config.Config
	companies CompanyLister
	ingestion ingestion.ServiceInterface
	enricher  enrichment.ServiceInterface
	alerts    alerting.ServiceInterface
	cron      *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, companies CompanyLister, ingestionService ingestion.ServiceInterface, enrichmentService enrichment.ServiceInterface, alertService alerting.ServiceInterface) *Service {
	cronLogger := cron.PrintfLogger(logrus.StandardLogger())
	return &Service{
		config:    cfg,
		companies: companies,
		ingestion: ingestionService,
		enricher:  enrichmentService,
		alerts:    alertService,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
	}
}

// Start registers the ingest, enrich and alert passes and starts the cron
func (s *Service) Start() error {
	jobs := []struct {
		name     string
		schedule string
		run      func(ctx context.Context) error
	}{
		{"ingestion", s.config.IngestSchedule, s.RunIngestion},
		{"enrichment", s.config.EnrichSchedule, s.RunEnrichment},
		{"alerts", s.config.AlertSchedule, s.RunAlerts},
	}

	for _, job := range jobs {
		job := job
		_, err := s.cron.AddFunc(job.schedule, func() {
			logrus.Infof("Starting scheduled %s pass", job.name)
			if err := job.run(context.Background()); err != nil {
				logrus.Errorf("Scheduled %s pass failed: %v", job.name, err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", job.name, job.schedule, err)
		}
	}

	s.cron.Start()
	logrus.WithFields(logrus.Fields{
		"ingest": s.config.IngestSchedule,
		"enrich": s.config.EnrichSchedule,
		"alerts": s.config.AlertSchedule,
	}).Info("Scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running passes
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}

// RunIngestion ingests every company with active sources or accounts
func (s *Service) RunIngestion(ctx context.Context) error {
	companies, err := s.companies.CompanyIDs(ctx)
	if err != nil {
		return err
	}

	failed := 0
	for _, companyID := range companies {
		result, err := s.ingestion.Run(ctx, ingestion.Request{CompanyID: companyID})
		if err != nil {
			failed++
			logrus.WithError(err).WithField("company_id", companyID).Error("Ingestion failed")
			continue
		}
		logrus.WithFields(logrus.Fields{
			"company_id": companyID,
			"job_id":     result.JobID,
			"new":        result.New,
		}).Debug("Ingestion finished")
	}

	if failed > 0 {
		return fmt.Errorf("ingestion failed for %d of %d companies", failed, len(companies))
	}
	return nil
}

// RunEnrichment enriches each company's unprocessed backlog
func (s *Service) RunEnrichment(ctx context.Context) error {
	companies, err := s.companies.CompanyIDs(ctx)
	if err != nil {
		return err
	}

	failed := 0
	for _, companyID := range companies {
		result, err := s.enricher.Enrich(ctx, enrichment.Request{
			CompanyID: companyID,
			Action:    enrichment.ActionAll,
		})
		if err != nil {
			failed++
			logrus.WithError(err).WithField("company_id", companyID).Error("Enrichment failed")
			continue
		}
		logrus.WithFields(logrus.Fields{
			"company_id": companyID,
			"processed":  result.Processed,
		}).Debug("Enrichment finished")
	}

	if failed > 0 {
		return fmt.Errorf("enrichment failed for %d of %d companies", failed, len(companies))
	}
	return nil
}

// RunAlerts evaluates the alert rules of every company
func (s *Service) RunAlerts(ctx context.Context) error {
	result, err := s.alerts.CheckAlerts(ctx, alerting.Request{CheckAll: true})
	if err != nil {
		return err
	}
	logrus.WithField("alerts_triggered", result.AlertsTriggered).Debug("Alert pass finished")
	return nil
}
