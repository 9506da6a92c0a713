// Package api exposes the pipeline services as HTTP functions.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/alerting"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/auth"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/enrichment"
	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/ingestion"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var validate = validator.New()

// IngestRequest is the body of an ingestion call
type IngestRequest struct {
	SourceID  string `json:"sourceId" validate:"omitempty,max=64"`
	Platform  string `json:"platform" validate:"omitempty,max=50"`
	CompanyID string `json:"companyId" validate:"omitempty,max=64"`
}

// EnrichRequest is the body of an enrichment call
type EnrichRequest struct {
	MentionIDs     []string `json:"mentionIds" validate:"omitempty,dive,required"`
	CompanyID      string   `json:"companyId" validate:"omitempty,max=64"`
	Action         string   `json:"action" validate:"omitempty,oneof=sentiment entities translate cluster all"`
	TargetLanguage string   `json:"targetLanguage" validate:"omitempty,min=2,max=10"`
}

// AlertsRequest is the body of an alert evaluation call
type AlertsRequest struct {
	CompanyID string `json:"companyId" validate:"omitempty,max=64"`
	CheckAll  bool   `json:"checkAll"`
}

type ingestResponse struct {
	Success bool `json:"success"`
	*ingestion.Result
}

type enrichResponse struct {
	Success bool `json:"success"`
	*enrichment.Result
}

type alertsResponse struct {
	Success bool `json:"success"`
	*alerting.Result
}

// Handler serves the pipeline functions
type Handler struct {
	auth      Authenticator
	ingestion ingestion.ServiceInterface
	enricher  enrichment.ServiceInterface
	alerts    alerting.ServiceInterface
}

// NewHandler creates the HTTP handler set
func NewHandler(authenticator Authenticator, ingestionService ingestion.ServiceInterface, enrichmentService enrichment.ServiceInterface, alertService alerting.ServiceInterface) *Handler {
	return &Handler{
		auth:      authenticator,
		ingestion: ingestionService,
		enricher:  enrichmentService,
		alerts:    alertService,
	}
}

// IngestMentions runs one ingestion job for the caller's company
func (h *Handler) IngestMentions(w http.ResponseWriter, r *http.Request) {
	principal, err := h.auth.Resolve(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		respondError(w, err)
		return
	}

	var req IngestRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	companyID, err := principal.CompanyFor(req.CompanyID, false)
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := h.ingestion.Run(r.Context(), ingestion.Request{
		CompanyID: companyID,
		SourceID:  req.SourceID,
		Platform:  req.Platform,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ingestResponse{Success: true, Result: result})
}

// EnrichMentions enriches the listed mentions, or the unprocessed backlog
func (h *Handler) EnrichMentions(w http.ResponseWriter, r *http.Request) {
	principal, err := h.auth.Resolve(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		respondError(w, err)
		return
	}

	var req EnrichRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	companyID, err := principal.CompanyFor(req.CompanyID, false)
	if err != nil {
		respondError(w, err)
		return
	}

	action := req.Action
	if action == "" {
		action = enrichment.ActionAll
	}

	result, err := h.enricher.Enrich(r.Context(), enrichment.Request{
		CompanyID:      companyID,
		MentionIDs:     req.MentionIDs,
		Action:         action,
		TargetLanguage: req.TargetLanguage,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, enrichResponse{Success: true, Result: result})
}

// CheckAlerts evaluates alert rules for one company, or all with checkAll
func (h *Handler) CheckAlerts(w http.ResponseWriter, r *http.Request) {
	principal, err := h.auth.Resolve(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		respondError(w, err)
		return
	}

	var req AlertsRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	// Only the service principal may evaluate every company at once
	checkAll := req.CheckAll && principal.Service
	companyID, err := principal.CompanyFor(req.CompanyID, checkAll)
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := h.alerts.CheckAlerts(r.Context(), alerting.Request{
		CompanyID: companyID,
		CheckAll:  checkAll && companyID == "",
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, alertsResponse{Success: true, Result: result})
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// errBadRequest marks malformed or invalid request bodies
var errBadRequest = errors.New("invalid request body")

func decodeBody(r *http.Request, v interface{}) error {
	if r.Body != nil {
		err := json.NewDecoder(r.Body).Decode(v)
		if err != nil && !errors.Is(err, io.EOF) {
			return errBadRequest
		}
	}
	if err := validate.Struct(v); err != nil {
		return err
	}
	return nil
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrNoCompany),
		errors.Is(err, errBadRequest),
		errors.Is(err, enrichment.ErrInvalidAction),
		errors.As(err, &validationErrors):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	switch status {
	case http.StatusUnauthorized:
		message = auth.ErrUnauthorized.Error()
	case http.StatusInternalServerError:
		logrus.WithError(err).Error("Request failed")
	}
	respondJSON(w, status, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("Failed to write response")
	}
}
