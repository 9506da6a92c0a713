// Package notifications delivers fired alerts to the channels listed on
// their rule. In-app delivery is the Notification rows the alert engine
// stores; this package covers the external channels.
package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/metrics"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Alert channels a rule may list
const (
	ChannelInApp = "in_app"
	ChannelTeams = "teams"
	ChannelEmail = "email"
)

// Service handles delivering alerts via the configured channels
type Service struct {
	teamsWebhookURL string
	client          *resty.Client
}

// Ensure Service implements DispatcherInterface
var _ DispatcherInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	ActivityText  string      `json:"activityText,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service. An empty webhook URL
// disables Teams delivery.
func NewService(teamsWebhookURL string, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		teamsWebhookURL: teamsWebhookURL,
		client:          resty.New().SetTimeout(timeout),
	}
}

// Dispatch delivers an alert to every channel it was sent to
func (s *Service) Dispatch(ctx context.Context, rule models.AlertRule, alert models.Alert) error {
	var errors []string

	for _, channel := range alert.SentTo {
		logger := logrus.WithFields(logrus.Fields{
			"alert_id": alert.ID,
			"rule_id":  rule.ID,
			"channel":  channel,
		})

		switch strings.ToLower(channel) {
		case ChannelInApp:
			// Served by the notification rows stored with the alert
			metrics.NotificationDeliveries.WithLabelValues(ChannelInApp, "stored").Inc()

		case ChannelTeams:
			if s.teamsWebhookURL == "" {
				logger.Warn("Teams channel requested but no webhook is configured")
				metrics.NotificationDeliveries.WithLabelValues(ChannelTeams, "skipped").Inc()
				continue
			}
			if err := s.sendToTeams(ctx, rule, alert); err != nil {
				logger.WithError(err).Error("Failed to send Teams notification")
				metrics.NotificationDeliveries.WithLabelValues(ChannelTeams, "error").Inc()
				errors = append(errors, fmt.Sprintf("Teams: %v", err))
				continue
			}
			logger.Info("Successfully sent alert to Teams")
			metrics.NotificationDeliveries.WithLabelValues(ChannelTeams, "sent").Inc()

		case ChannelEmail:
			logger.Warn("Email delivery is not supported, skipping")
			metrics.NotificationDeliveries.WithLabelValues(ChannelEmail, "unsupported").Inc()

		default:
			logger.Warn("Unknown alert channel, skipping")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

func (s *Service) sendToTeams(ctx context.Context, rule models.AlertRule, alert models.Alert) error {
	message := BuildTeamsMessage(rule, alert)

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.teamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

// BuildTeamsMessage renders an alert as a MessageCard
func BuildTeamsMessage(rule models.AlertRule, alert models.Alert) *TeamsMessage {
	facts := []TeamsFact{
		{Name: "Rule", Value: rule.Name},
		{Name: "Type", Value: string(alert.RuleType)},
		{Name: "Severity", Value: string(alert.Severity)},
		{Name: "Mentions", Value: fmt.Sprintf("%d", len(alert.MentionIDs))},
		{Name: "Triggered", Value: alert.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
	}

	message := &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: themeColor(alert.Severity),
		Title:      alert.Title,
		Text:       alert.Summary,
		Sections: []TeamsSection{{
			ActivityTitle: "Details",
			Facts:         facts,
			Markdown:      true,
		}},
	}

	if rule.Description != "" {
		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "About this rule",
			ActivityText:  rule.Description,
			Markdown:      true,
		})
	}

	return message
}

func themeColor(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "A4262C"
	case models.SeverityHigh:
		return "D13438"
	case models.SeverityMedium:
		return "FFB900"
	default:
		return "0078D4"
	}
}
