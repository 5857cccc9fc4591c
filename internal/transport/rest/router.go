package rest

import (
	"examforge/internal/metrics"
	"examforge/internal/transport/rest/handler"
	"examforge/internal/transport/rest/middleware"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    middleware.TokenValidator
	ExamService    handler.ExamProvider
	GradingService handler.Submitter
	AttemptService handler.AttemptReader
	SubmitLimiter  *middleware.RateLimiter // optional
	AllowedOrigins string
	Logger         *zap.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	examHandler := handler.NewExamHandler(c.ExamService, c.GradingService, c.Logger)
	attemptHandler := handler.NewAttemptHandler(c.AttemptService, c.Logger)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.AllowedOrigins))
	r.Use(metrics.Middleware)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	// API v1 routes; identity is optional everywhere
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(authMW.OptionalUser)

	v1.HandleFunc("/exams", examHandler.Assemble).Methods("GET", "OPTIONS")
	v1.HandleFunc("/exams/{examId}", examHandler.Replay).Methods("GET", "OPTIONS")
	v1.HandleFunc("/attempts/{key}", attemptHandler.Get).Methods("GET", "OPTIONS")

	// Submissions (rate limited per caller)
	submitRoutes := v1.NewRoute().Subrouter()
	if c.SubmitLimiter != nil {
		submitRoutes.Use(c.SubmitLimiter.Middleware)
	}
	submitRoutes.HandleFunc("/exams/{examId}/submit", examHandler.Submit).Methods("POST", "OPTIONS")
	submitRoutes.HandleFunc("/submissions", examHandler.Submit).Methods("POST", "OPTIONS")

	// Caller's own records (require a token)
	userRoutes := v1.NewRoute().Subrouter()
	userRoutes.Use(authMW.RequireUser)
	userRoutes.HandleFunc("/me/attempts", attemptHandler.Mine).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if strings.TrimSpace(allowedOrigins) == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
