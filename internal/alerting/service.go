// Package alerting evaluates company alert rules against recent mentions and
// clusters and records the alerts and notifications they produce.
package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/metrics"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// ErrCompanyRequired is returned when a pass names no company and is not a checkAll pass
var ErrCompanyRequired = errors.New("company id is required unless checkAll is set")

// NotificationTypeAlert is the type stamped on in-app alert notifications
const NotificationTypeAlert = "alert"

// Request scopes one evaluation pass
type Request struct {
	CompanyID string
	CheckAll  bool
}

// Result lists the alerts fired during one pass
type Result struct {
	AlertsTriggered int            `json:"alertsTriggered"`
	Alerts          []models.Alert `json:"alerts"`
}

// Service evaluates alert rules
type Service struct {
	store      Store
	dispatcher Dispatcher
	now        func() time.Time
}

var _ ServiceInterface = (*Service)(nil)

// NewService creates a new alert engine. dispatcher may be nil when no
// external channel is configured.
func NewService(store Store, dispatcher Dispatcher) *Service {
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CheckAlerts runs one evaluation pass over the active rules of a company,
// or of every company when CheckAll is set
func (s *Service) CheckAlerts(ctx context.Context, req Request) (*Result, error) {
	companyID := req.CompanyID
	if req.CheckAll {
		companyID = ""
	} else if companyID == "" {
		return nil, ErrCompanyRequired
	}

	rules, err := s.store.ActiveRules(ctx, companyID)
	if err != nil {
		return nil, err
	}

	logger := logrus.WithFields(logrus.Fields{
		"company_id": req.CompanyID,
		"check_all":  req.CheckAll,
		"rules":      len(rules),
	})
	logger.Info("Starting alert evaluation")

	result := &Result{Alerts: []models.Alert{}}
	for i := range rules {
		alert, err := s.checkRule(ctx, &rules[i])
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"company_id": rules[i].CompanyID,
				"rule_id":    rules[i].ID,
				"rule_type":  rules[i].RuleType,
			}).Error("Failed to evaluate alert rule")
			continue
		}
		if alert != nil {
			result.Alerts = append(result.Alerts, *alert)
		}
	}

	result.AlertsTriggered = len(result.Alerts)
	logger.WithField("alerts_triggered", result.AlertsTriggered).Info("Alert evaluation completed")
	return result, nil
}

// checkRule walks one rule through cooldown, evaluation and firing. It
// returns the stored alert, or nil when the rule did not fire.
func (s *Service) checkRule(ctx context.Context, rule *models.AlertRule) (*models.Alert, error) {
	now := s.now()
	ruleType := string(rule.RuleType)

	if InCooldown(*rule, now) {
		metrics.AlertRulesEvaluated.WithLabelValues(ruleType, "cooldown").Inc()
		logrus.WithField("rule_id", rule.ID).Debug("Rule is cooling down")
		return nil, nil
	}

	cond, err := ParseCondition(*rule)
	if err != nil {
		metrics.RecordRuleEvaluation(ruleType, false, err)
		return nil, err
	}

	eval, err := s.evaluate(ctx, *rule, cond, windowFor(*rule, now))
	if err != nil {
		metrics.RecordRuleEvaluation(ruleType, false, err)
		return nil, fmt.Errorf("failed to evaluate condition: %w", err)
	}
	metrics.RecordRuleEvaluation(ruleType, eval.Triggered, nil)
	if !eval.Triggered {
		return nil, nil
	}

	alert, err := buildAlert(*rule, eval, now)
	if err != nil {
		return nil, err
	}
	notifications := buildNotifications(*rule, alert, now)

	fired, err := s.store.FireRule(ctx, rule, now, alert, notifications)
	if err != nil {
		return nil, err
	}
	if !fired {
		logrus.WithField("rule_id", rule.ID).Info("Rule was claimed by a concurrent pass, skipping")
		return nil, nil
	}

	metrics.AlertsTriggered.WithLabelValues(ruleType, string(alert.Severity)).Inc()
	logrus.WithFields(logrus.Fields{
		"company_id":    rule.CompanyID,
		"rule_id":       rule.ID,
		"alert_id":      alert.ID,
		"notifications": len(notifications),
	}).Info(alert.Summary)

	s.dispatch(ctx, *rule, *alert)
	return alert, nil
}

func (s *Service) dispatch(ctx context.Context, rule models.AlertRule, alert models.Alert) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, rule, alert); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"rule_id":  rule.ID,
			"alert_id": alert.ID,
		}).Error("Failed to deliver alert to external channels")
	}
}

// InCooldown reports whether a rule fired less than cooldown_minutes ago
func InCooldown(rule models.AlertRule, now time.Time) bool {
	if rule.LastTriggeredAt == nil || rule.CooldownMinutes <= 0 {
		return false
	}
	return now.Sub(*rule.LastTriggeredAt) < time.Duration(rule.CooldownMinutes)*time.Minute
}

// AlertTitle renders the alert title for a rule
func AlertTitle(rule models.AlertRule) string {
	return fmt.Sprintf("%s: %s", strings.ToUpper(string(severityOf(rule))), rule.Name)
}

func severityOf(rule models.AlertRule) models.Severity {
	if rule.Severity == "" {
		return models.SeverityMedium
	}
	return rule.Severity
}

func buildAlert(rule models.AlertRule, eval *Evaluation, now time.Time) (*models.Alert, error) {
	triggerData, err := json.Marshal(eval.TriggerData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trigger data: %w", err)
	}

	mentionIDs := eval.MentionIDs
	if mentionIDs == nil {
		mentionIDs = []string{}
	}
	sentTo := []string(rule.Channels)
	if sentTo == nil {
		sentTo = []string{}
	}

	return &models.Alert{
		CompanyID:   rule.CompanyID,
		RuleID:      rule.ID,
		RuleType:    rule.RuleType,
		MentionIDs:  datatypes.NewJSONSlice(mentionIDs),
		Severity:    severityOf(rule),
		Title:       AlertTitle(rule),
		Summary:     eval.Summary,
		TriggerData: datatypes.JSON(triggerData),
		SentTo:      datatypes.NewJSONSlice(sentTo),
		CreatedAt:   now,
	}, nil
}

func buildNotifications(rule models.AlertRule, alert *models.Alert, now time.Time) []models.Notification {
	var notifications []models.Notification
	for _, recipient := range rule.Recipients {
		if recipient.Type != models.RecipientTypeUser || recipient.ID == "" {
			continue
		}
		notifications = append(notifications, models.Notification{
			UserID:    recipient.ID,
			CompanyID: rule.CompanyID,
			Type:      NotificationTypeAlert,
			Title:     alert.Title,
			Message:   alert.Summary,
			CreatedAt: now,
		})
	}
	return notifications
}
