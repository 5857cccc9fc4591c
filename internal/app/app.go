package app

import (
	"context"
	"examforge/internal/cache"
	"examforge/internal/config"
	"examforge/internal/event"
	"examforge/internal/fallback"
	"examforge/internal/permutation"
	"examforge/internal/repository"
	"examforge/internal/service"
	"examforge/internal/transport/rest"
	"examforge/internal/transport/rest/middleware"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// App holds the wired services and the clients they share
type App struct {
	Config *config.Config
	Log    *zap.Logger

	Mongo     *mongo.Client
	Redis     *redis.Client
	Publisher event.Publisher
	Fallback  *fallback.Dataset

	AuthService     *service.AuthService
	QuestionService *service.QuestionService
	ExamService     *service.ExamService
	GradingService  *service.GradingService
	AttemptService  *service.AttemptService
	SubmitLimiter   *middleware.RateLimiter
}

// New connects to MongoDB, Redis and (optionally) RabbitMQ and wires the
// services. MongoDB is required; everything else degrades.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	a.Mongo = mongoClient
	log.Info("connected to MongoDB", zap.String("database", cfg.Mongo.Database))

	db := mongoClient.Database(cfg.Mongo.Database)
	repository.EnsureIndexes(ctx, db, log)

	a.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	var (
		examCache     cache.ExamCache
		questionCache cache.QuestionCache
	)
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		// Caches are never authoritative; run without them
		log.Warn("redis unavailable, caches disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	} else {
		log.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
		examCache = cache.NewExamCache(a.Redis, cfg.Redis.ExamTTL)
		questionCache = cache.NewQuestionCache(a.Redis, cfg.Redis.QuestionTTL)
	}

	a.Publisher = event.Nop{}
	if cfg.RabbitMQ.URL != "" {
		pub, err := event.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Warn("rabbitmq unavailable, events disabled", zap.Error(err))
		} else {
			a.Publisher = pub
			log.Info("publishing events", zap.String("exchange", cfg.RabbitMQ.Exchange))
		}
	}

	a.Fallback = fallback.New(cfg.Fallback.Path)
	if err := a.Fallback.Reload(); err != nil {
		log.Warn("fallback dataset not loaded", zap.String("path", cfg.Fallback.Path), zap.Error(err))
	} else {
		log.Info("fallback dataset loaded", zap.Int("questions", a.Fallback.Len()))
	}

	// Repositories
	questionRepo := repository.NewQuestionRepo(db)
	examRepo := repository.NewExamRepo(db)
	attemptRepo := repository.NewAttemptRepo(db)
	scopeRepo := repository.NewScopeRepo(db)

	// Services
	engine := permutation.NewEngine()
	a.AuthService = service.NewAuthService(cfg.JWT.Secret)
	a.QuestionService = service.NewQuestionService(questionRepo, a.Fallback, questionCache, engine, log)
	a.AttemptService = service.NewAttemptService(attemptRepo, log)
	a.ExamService = service.NewExamService(examRepo, scopeRepo, examCache, a.QuestionService, a.AttemptService, engine,
		service.ExamSettings{
			DefaultCount: cfg.Exam.DefaultCount,
			MaxCount:     cfg.Exam.MaxCount,
			TTL:          cfg.Exam.TTL,
		}, log)
	a.GradingService = service.NewGradingService(a.ExamService, a.QuestionService, a.AttemptService,
		cfg.Grading.PassThreshold, cfg.Exam.ConsumedRetention, log)

	// Inject notifier (event.Publisher implements service.Notifier)
	a.ExamService.SetNotifier(a.Publisher)
	a.GradingService.SetNotifier(a.Publisher)

	a.SubmitLimiter = middleware.NewRateLimiter(cfg.RateLimit.SubmitPerMinute, time.Minute)

	return a, nil
}

// Handler builds the HTTP router
func (a *App) Handler() http.Handler {
	return rest.NewRouter(&rest.Container{
		AuthService:    a.AuthService,
		ExamService:    a.ExamService,
		GradingService: a.GradingService,
		AttemptService: a.AttemptService,
		SubmitLimiter:  a.SubmitLimiter,
		AllowedOrigins: a.Config.CORS.AllowedOrigins,
		Logger:         a.Log,
	})
}

// Close releases every client
func (a *App) Close(ctx context.Context) {
	if a.Publisher != nil {
		a.Publisher.Close()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.Mongo != nil {
		a.Mongo.Disconnect(ctx)
	}
}
