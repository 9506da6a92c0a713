package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/accountsync"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/alerting"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/config"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/enrichment"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/ingestion"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/llm"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/notifications"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/sources"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/storage"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const companyID = "local-company"

func main() {
	keywords := flag.String("keywords", "recall,outage,launch", "comma separated keywords for the seeded source")
	dir := flag.String("dir", "", "working directory for the SQLite file and archive (default: temp dir)")
	flag.Parse()

	fmt.Println("🧪 Media Monitor - Local Pipeline Run")
	fmt.Println("=====================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	logrus.SetLevel(logrus.WarnLevel)

	workDir := *dir
	if workDir == "" {
		tmp, err := os.MkdirTemp("", "media-monitor-")
		if err != nil {
			log.Fatalf("Failed to create work dir: %v", err)
		}
		workDir = tmp
	}

	cfg := &config.Config{
		DatabaseDSN:            filepath.Join(workDir, "pipeline.db"),
		EnableSyntheticSources: true,
		ScrapeAPIKey:           os.Getenv("SCRAPE_API_KEY"),
		ScrapeBaseURL:          "https://api.firecrawl.dev",
		LLMAPIKey:              os.Getenv("LLM_API_KEY"),
		LLMBaseURL:             "https://ai.gateway.lovable.dev/v1",
		LLMModel:               "google/gemini-2.5-flash",
		LLMRatePerSecond:       5,
		TeamsWebhookURL:        os.Getenv("TEAMS_WEBHOOK_URL"),
		DefaultTargetLanguage:  "en",
		HTTPTimeout:            30 * time.Second,
	}

	db, err := storage.Open(cfg.DatabaseDSN, false)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := seed(db, splitKeywords(*keywords)); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	archive := storage.NewFileArchive(filepath.Join(workDir, "archive"))
	llmClient := llm.NewClient(llm.Config{
		APIKey:        cfg.LLMAPIKey,
		BaseURL:       cfg.LLMBaseURL,
		Model:         cfg.LLMModel,
		Timeout:       cfg.HTTPTimeout,
		RatePerSecond: cfg.LLMRatePerSecond,
	})

	ingestionService := ingestion.NewService(db, sources.NewRegistry(cfg), accountsync.NewClient("", "", cfg.HTTPTimeout), archive)
	enrichmentService := enrichment.NewService(db, llmClient, cfg.DefaultTargetLanguage)
	alertService := alerting.NewService(db, notifications.NewService(cfg.TeamsWebhookURL, cfg.HTTPTimeout))

	fmt.Printf("📁 Working directory: %s\n", workDir)

	fmt.Println("\n🔸 Ingesting...")
	ingested, err := ingestionService.Run(ctx, ingestion.Request{CompanyID: companyID})
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}
	fmt.Printf("   ✅ Job %s: fetched %d, new %d, duplicate %d\n", ingested.JobID, ingested.Fetched, ingested.New, ingested.Duplicate)

	fmt.Println("\n🔸 Enriching...")
	enriched, err := enrichmentService.Enrich(ctx, enrichment.Request{CompanyID: companyID, Action: enrichment.ActionAll})
	if err != nil {
		log.Fatalf("Enrichment failed: %v", err)
	}
	fmt.Printf("   ✅ Processed %d of %d mentions\n", enriched.Processed, len(enriched.Results))
	for _, item := range enriched.Results {
		if item.Status != enrichment.StatusSuccess {
			fmt.Printf("   ❌ %s: %s\n", item.ID, item.Error)
		} else if len(item.Fallbacks) > 0 {
			fmt.Printf("   ⚠️  %s used fallbacks: %s\n", item.ID, strings.Join(item.Fallbacks, ", "))
		}
	}

	fmt.Println("\n🔸 Checking alerts...")
	checked, err := alertService.CheckAlerts(ctx, alerting.Request{CompanyID: companyID})
	if err != nil {
		log.Fatalf("Alert check failed: %v", err)
	}
	fmt.Printf("   ✅ %d alerts triggered\n", checked.AlertsTriggered)
	for _, alert := range checked.Alerts {
		fmt.Printf("   🚨 %s - %s\n", alert.Title, alert.Summary)
	}

	fmt.Println("\n✅ Local pipeline run completed!")
}

func seed(db *storage.Database, keywords []string) error {
	gormDB := db.Gorm()
	now := time.Now().UTC()
	userID := "local-user"
	company := companyID

	if err := gormDB.FirstOrCreate(&models.Profile{}, models.Profile{UserID: userID, CompanyID: &company}).Error; err != nil {
		return err
	}

	source := models.Source{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Name:      "Local web watch",
		Platform:  "web",
		Keywords:  datatypes.NewJSONSlice(keywords),
		IsActive:  true,
		CreatedAt: now,
	}
	if err := gormDB.Create(&source).Error; err != nil {
		return err
	}

	threshold := 1.0
	rules := []models.AlertRule{
		{
			Name:           "Keyword watch",
			RuleType:       models.RuleTypeKeyword,
			Conditions:     datatypes.JSON(fmt.Sprintf(`{"keywords":[%q]}`, keywords[0])),
			ThresholdValue: &threshold,
			Severity:       models.SeverityHigh,
		},
		{Name: "Volume spike", RuleType: models.RuleTypeSpike, Severity: models.SeverityMedium},
		{Name: "Negative sentiment", RuleType: models.RuleTypeSentiment, Conditions: datatypes.JSON(`{"min_count":1}`), Severity: models.SeverityCritical},
	}
	for i := range rules {
		rules[i].ID = uuid.NewString()
		rules[i].CompanyID = companyID
		rules[i].CooldownMinutes = 30
		rules[i].IsActive = true
		rules[i].Channels = datatypes.NewJSONSlice([]string{"in_app", "teams"})
		rules[i].Recipients = datatypes.NewJSONSlice([]models.Recipient{{Type: models.RecipientTypeUser, ID: userID}})
		rules[i].CreatedAt = now
	}
	return gormDB.Create(&rules).Error
}

func splitKeywords(raw string) []string {
	var keywords []string
	for _, keyword := range strings.Split(raw, ",") {
		if keyword = strings.TrimSpace(keyword); keyword != "" {
			keywords = append(keywords, keyword)
		}
	}
	if len(keywords) == 0 {
		keywords = []string{"recall"}
	}
	return keywords
}
