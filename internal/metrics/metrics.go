package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	ExamsAssembled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examforge_exams_total",
			Help: "Exams served, by mode (fresh or replay)",
		},
		[]string{"mode"},
	)

	SubmissionsGraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examforge_submissions_total",
			Help: "Graded submissions, by pass/fail outcome",
		},
		[]string{"outcome"},
	)

	SourceDegraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "examforge_source_degraded_total",
			Help: "Question lookups that ran without one or both sources",
		},
		[]string{"source"},
	)
)

// Register adds every collector to reg
func Register(reg prometheus.Registerer) {
	reg.MustRegister(RequestCounter, RequestDuration, ExamsAssembled, SubmissionsGraded, SourceDegraded)
}

// Init registers the collectors on the default registry
func Init() {
	Register(prometheus.DefaultRegisterer)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware records request count and latency per route template
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tmpl
			}
		}

		RequestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
		RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
