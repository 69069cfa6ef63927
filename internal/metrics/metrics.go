// Package metrics registers the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
			Objectives: map[float64]float64{
				0.5:  0.05,
				0.9:  0.01,
				0.95: 0.005,
				0.99: 0.001,
			},
		},
		[]string{"method", "path", "status_code"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	analyses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_analyses_total",
			Help: "Analyses by final status",
		},
		[]string{"status"},
	)

	creditsDeducted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resume_credits_deducted_total",
			Help: "Credits charged for analyses, net of refunds",
		},
	)

	uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_uploads_total",
			Help: "Parsed uploads by file type",
		},
		[]string{"file_type"},
	)

	llmDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Language model request latency",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"model", "outcome"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAnalysis counts an analysis reaching status.
func RecordAnalysis(status string) {
	analyses.WithLabelValues(status).Inc()
}

// RecordCredits adds n to the deducted credits counter. Refunds are
// recorded with a negative n and ignored, since counters only grow.
func RecordCredits(n int) {
	if n > 0 {
		creditsDeducted.Add(float64(n))
	}
}

// RecordUpload counts a parsed upload.
func RecordUpload(fileType string) {
	uploads.WithLabelValues(fileType).Inc()
}

// ObserveLLMRequest records the latency and outcome of a model call.
func ObserveLLMRequest(model string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	llmDuration.WithLabelValues(model, outcome).Observe(d.Seconds())
}

// Middleware records request counts and latency labelled with the matched
// route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(rec.status)
		httpDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequests.WithLabelValues(r.Method, path, status).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
