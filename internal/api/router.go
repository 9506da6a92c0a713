package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/metrics"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the function routes, health and metrics
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(metricsMiddleware)

	functions := router.PathPrefix("/functions/v1").Subrouter()
	functions.HandleFunc("/ingest-mentions", h.IngestMentions).Methods(http.MethodPost)
	functions.HandleFunc("/enrich-mentions", h.EnrichMentions).Methods(http.MethodPost)
	functions.HandleFunc("/check-alerts", h.CheckAlerts).Methods(http.MethodPost)

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if template, err := route.GetPathTemplate(); err == nil {
				endpoint = template
			}
		}
		if endpoint == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.RecordAPIRequest(r.Method, endpoint, strconv.Itoa(recorder.status), time.Since(start))
	})
}
