package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/alerting"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/config"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/enrichment"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubCompanies []string

func (s stubCompanies) CompanyIDs(ctx context.Context) ([]string, error) {
	return s, nil
}

// MockIngestion is a mock implementation of the ingestion service
type MockIngestion struct {
	mock.Mock
}

func (m *MockIngestion) Run(ctx context.Context, req ingestion.Request) (*ingestion.Result, error) {
	args := m.Called(ctx, req)
	if result, ok := args.Get(0).(*ingestion.Result); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockEnrichment is a mock implementation of the enrichment service
type MockEnrichment struct {
	mock.Mock
}

func (m *MockEnrichment) Enrich(ctx context.Context, req enrichment.Request) (*enrichment.Result, error) {
	args := m.Called(ctx, req)
	if result, ok := args.Get(0).(*enrichment.Result); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockAlerts is a mock implementation of the alert engine
type MockAlerts struct {
	mock.Mock
}

func (m *MockAlerts) CheckAlerts(ctx context.Context, req alerting.Request) (*alerting.Result, error) {
	args := m.Called(ctx, req)
	if result, ok := args.Get(0).(*alerting.Result); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{
		IngestSchedule: "0 */15 * * * *",
		EnrichSchedule: "0 */5 * * * *",
		AlertSchedule:  "30 */5 * * * *",
	}
}

func TestService_RunIngestionContinuesPastFailures(t *testing.T) {
	ingest := new(MockIngestion)
	ingest.On("Run", mock.Anything, ingestion.Request{CompanyID: "company-1"}).Return(nil, errors.New("store down")).Once()
	ingest.On("Run", mock.Anything, ingestion.Request{CompanyID: "company-2"}).Return(&ingestion.Result{JobID: "job-2"}, nil).Once()

	service := NewService(testConfig(), stubCompanies{"company-1", "company-2"}, ingest, new(MockEnrichment), new(MockAlerts))
	err := service.RunIngestion(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 companies")
	ingest.AssertExpectations(t)
}

func TestService_RunEnrichmentUsesAllActions(t *testing.T) {
	enricher := new(MockEnrichment)
	enricher.On("Enrich", mock.Anything, enrichment.Request{CompanyID: "company-1", Action: enrichment.ActionAll}).
		Return(&enrichment.Result{Processed: 4}, nil).Once()

	service := NewService(testConfig(), stubCompanies{"company-1"}, new(MockIngestion), enricher, new(MockAlerts))
	require.NoError(t, service.RunEnrichment(context.Background()))
	enricher.AssertExpectations(t)
}

func TestService_RunAlertsChecksAllCompanies(t *testing.T) {
	alerts := new(MockAlerts)
	alerts.On("CheckAlerts", mock.Anything, alerting.Request{CheckAll: true}).
		Return(&alerting.Result{AlertsTriggered: 2}, nil).Once()

	service := NewService(testConfig(), stubCompanies{}, new(MockIngestion), new(MockEnrichment), alerts)
	require.NoError(t, service.RunAlerts(context.Background()))
	alerts.AssertExpectations(t)
}

func TestService_StartRejectsInvalidSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.AlertSchedule = "every five minutes"

	service := NewService(cfg, stubCompanies{}, new(MockIngestion), new(MockEnrichment), new(MockAlerts))
	err := service.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alerts")
}

func TestService_StartAndStop(t *testing.T) {
	service := NewService(testConfig(), stubCompanies{}, new(MockIngestion), new(MockEnrichment), new(MockAlerts))
	require.NoError(t, service.Start())
	assert.Len(t, service.cron.Entries(), 3)
	service.Stop()
}
