package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Fallback  FallbackConfig  `mapstructure:"fallback"`
	Exam      ExamConfig      `mapstructure:"exam"`
	Grading   GradingConfig   `mapstructure:"grading"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // "debug" or "release"
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	ExamTTL     time.Duration `mapstructure:"exam_ttl"`
	QuestionTTL time.Duration `mapstructure:"question_ttl"`
}

type FallbackConfig struct {
	Path string `mapstructure:"path"`
}

type ExamConfig struct {
	DefaultCount      int           `mapstructure:"default_count"`
	MaxCount          int           `mapstructure:"max_count"`
	TTL               time.Duration `mapstructure:"ttl"` // 0 = no expiry stamp at assembly
	ConsumedRetention time.Duration `mapstructure:"consumed_retention"`
}

// GradingConfig has no built-in threshold; deployments must set one
type GradingConfig struct {
	PassThreshold int `mapstructure:"pass_threshold"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type RateLimitConfig struct {
	SubmitPerMinute int `mapstructure:"submit_per_minute"`
}

type CORSConfig struct {
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// Load reads .env (if present), config.yaml from path (if present) and the
// environment, in increasing order of precedence.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("EXAMFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Names shared with the rest of the deployment
	v.BindEnv("mongo.uri", "EXAMFORGE_MONGO_URI", "MONGO_URI")
	v.BindEnv("redis.addr", "EXAMFORGE_REDIS_ADDR", "REDIS_URI")
	v.BindEnv("server.port", "EXAMFORGE_SERVER_PORT", "PORT")
	v.BindEnv("jwt.secret", "EXAMFORGE_JWT_SECRET", "JWT_SECRET")
	v.BindEnv("rabbitmq.url", "EXAMFORGE_RABBITMQ_URL", "RABBITMQ_URI")
	v.BindEnv("cors.allowed_origins", "EXAMFORGE_CORS_ALLOWED_ORIGINS", "CORS_ALLOWED_ORIGINS")
	v.BindEnv("grading.pass_threshold", "EXAMFORGE_GRADING_PASS_THRESHOLD", "PASS_THRESHOLD")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if !v.IsSet("grading.pass_threshold") {
		return nil, errors.New("grading.pass_threshold must be configured")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Remove redis:// prefix if present
	cfg.Redis.Addr = strings.TrimPrefix(cfg.Redis.Addr, "redis://")

	return &cfg, nil
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	if c.Grading.PassThreshold < 0 || c.Grading.PassThreshold > 100 {
		return fmt.Errorf("grading.pass_threshold must be within 0..100, got %d", c.Grading.PassThreshold)
	}
	if c.Exam.DefaultCount <= 0 {
		return fmt.Errorf("exam.default_count must be positive, got %d", c.Exam.DefaultCount)
	}
	if c.Exam.MaxCount < c.Exam.DefaultCount {
		return fmt.Errorf("exam.max_count (%d) must be >= exam.default_count (%d)", c.Exam.MaxCount, c.Exam.DefaultCount)
	}
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "examforge")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.exam_ttl", time.Hour)
	v.SetDefault("redis.question_ttl", 6*time.Hour)
	v.SetDefault("fallback.path", "data/fallback_questions.json")
	v.SetDefault("exam.default_count", 20)
	v.SetDefault("exam.max_count", 100)
	v.SetDefault("exam.ttl", 0)
	v.SetDefault("exam.consumed_retention", 24*time.Hour)
	v.SetDefault("jwt.secret", "dev-secret-change-in-production")
	v.SetDefault("rabbitmq.exchange", "examforge.events")
	v.SetDefault("rate_limit.submit_per_minute", 30)
	v.SetDefault("cors.allowed_origins", "*")
	v.SetDefault("log.file", "logs/examforge.log")
	v.SetDefault("log.level", "info")
}
