package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/danghamo/stride/internal/domain/tracking"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Tracking  TrackingConfig  `mapstructure:"tracking"`
	Events    EventsConfig    `mapstructure:"events"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	Environment  string        `mapstructure:"environment"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// RedisConfig holds Redis-related configuration. URL wins over the
// host/port fields when set.
type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Private  bool   `mapstructure:"private"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	JWTExpiration time.Duration `mapstructure:"jwt_expiration"`
	JWTIssuer     string        `mapstructure:"jwt_issuer"`
}

// TrackingConfig holds recording session configuration
type TrackingConfig struct {
	TickInterval time.Duration           `mapstructure:"tick_interval"`
	ActivityType string                  `mapstructure:"activity_type"`
	Sampler      tracking.SamplerOptions `mapstructure:"sampler"`
	SessionTTL   time.Duration           `mapstructure:"session_ttl"`
	ReapInterval time.Duration           `mapstructure:"reap_interval"`
}

// EventsConfig holds the Redis Streams event bus configuration
type EventsConfig struct {
	TopicPrefix   string `mapstructure:"topic_prefix"`
	ConsumerGroup string `mapstructure:"consumer_group"`
	MaxLen        int64  `mapstructure:"max_len"`
}

// RateLimitConfig limits position fix ingestion per user
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Environment string `mapstructure:"environment"`
	Encoding    string `mapstructure:"encoding"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/stride")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	// Redis defaults
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.private", false)

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "dev-jwt-secret-change-in-production")
	v.SetDefault("auth.jwt_expiration", "24h")
	v.SetDefault("auth.jwt_issuer", "stride")

	// Tracking defaults
	sampler := tracking.DefaultSamplerOptions()
	v.SetDefault("tracking.tick_interval", tracking.DefaultTickInterval.String())
	v.SetDefault("tracking.activity_type", "Run")
	v.SetDefault("tracking.sampler.accuracy", string(sampler.Accuracy))
	v.SetDefault("tracking.sampler.distance_filter_meters", sampler.DistanceFilterMeters)
	v.SetDefault("tracking.sampler.interval", sampler.Interval.String())
	v.SetDefault("tracking.sampler.fastest_interval", sampler.FastestInterval.String())
	v.SetDefault("tracking.session_ttl", "10m")
	v.SetDefault("tracking.reap_interval", "30s")

	// Events defaults
	v.SetDefault("events.topic_prefix", "stride-events")
	v.SetDefault("events.consumer_group", "")
	v.SetDefault("events.max_len", 10000)

	// Rate limit defaults
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_second", 2)
	v.SetDefault("ratelimit.burst", 10)
	v.SetDefault("ratelimit.idle_timeout", "3m")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.environment", "development")
	v.SetDefault("log.encoding", "console")
}

// validateConfig validates the loaded configuration
func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if cfg.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}

	if cfg.Redis.URL == "" {
		if cfg.Redis.Host == "" {
			return fmt.Errorf("redis host cannot be empty")
		}
		if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
			return fmt.Errorf("invalid redis port: %d", cfg.Redis.Port)
		}
	}

	if len(cfg.Auth.JWTSecret) < 8 {
		return fmt.Errorf("JWT secret must be at least 8 characters long")
	}

	if cfg.Auth.JWTExpiration < time.Minute {
		return fmt.Errorf("JWT expiration must be at least 1 minute")
	}

	if cfg.Tracking.TickInterval <= 0 {
		return fmt.Errorf("tracking tick interval must be positive")
	}

	if cfg.Tracking.ActivityType == "" {
		return fmt.Errorf("tracking activity type cannot be empty")
	}

	validAccuracies := []string{string(tracking.AccuracyHighest), string(tracking.AccuracyBalanced)}
	if !contains(validAccuracies, string(cfg.Tracking.Sampler.Accuracy)) {
		return fmt.Errorf("invalid sampler accuracy: %s", cfg.Tracking.Sampler.Accuracy)
	}

	if cfg.Tracking.Sampler.DistanceFilterMeters < 0 {
		return fmt.Errorf("sampler distance filter cannot be negative")
	}

	if cfg.Tracking.Sampler.FastestInterval > cfg.Tracking.Sampler.Interval {
		return fmt.Errorf("sampler fastest interval cannot exceed interval")
	}

	if cfg.Tracking.SessionTTL < cfg.Tracking.ReapInterval {
		return fmt.Errorf("session TTL must be at least the reap interval")
	}

	if cfg.Events.TopicPrefix == "" {
		return fmt.Errorf("events topic prefix cannot be empty")
	}

	if cfg.RateLimit.Enabled && (cfg.RateLimit.RequestsPerSecond <= 0 || cfg.RateLimit.Burst < 1) {
		return fmt.Errorf("rate limit needs a positive rate and burst")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, cfg.Log.Level) {
		return fmt.Errorf("invalid log level: %s", cfg.Log.Level)
	}

	validEncodings := []string{"json", "console"}
	if !contains(validEncodings, cfg.Log.Encoding) {
		return fmt.Errorf("invalid log encoding: %s", cfg.Log.Encoding)
	}

	return nil
}

// GetRedisURL returns the Redis connection URL
func (r *RedisConfig) GetRedisURL() string {
	if r.URL != "" {
		return r.URL
	}

	addr := fmt.Sprintf("%s:%d", r.Host, r.Port)
	if r.Password != "" {
		return fmt.Sprintf("redis://:%s@%s/%d", r.Password, addr, r.DB)
	}
	return fmt.Sprintf("redis://%s/%d", addr, r.DB)
}

// GetServerAddr returns the server address in host:port format
func (s *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsProduction returns true if the environment is production
func (s *ServerConfig) IsProduction() bool {
	return strings.EqualFold(s.Environment, "production")
}

// IsDevelopment returns true if the environment is development
func (s *ServerConfig) IsDevelopment() bool {
	return strings.EqualFold(s.Environment, "development")
}

// contains checks if a slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
