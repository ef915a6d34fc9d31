package redisx

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/danghamo/stride/pkg/config"
	"github.com/danghamo/stride/pkg/logger"
)

const (
	privateDBKey        = "stride:private_db"
	privateDBCounterKey = "stride:private_db:counter"
)

// Client wraps redis.Client with additional functionality
type Client struct {
	*redis.Client
	url    string
	logger *logger.Logger
}

// ClientOption represents an option for creating a new Redis client
type ClientOption func(*clientOptions)

type clientOptions struct {
	usePrivateDB bool
	pingTimeout  time.Duration
}

// WithPrivate gives each development host its own DB number so several
// developers can share one Redis instance
func WithPrivate() ClientOption {
	return func(opts *clientOptions) {
		opts.usePrivateDB = true
	}
}

// WithPingTimeout bounds the connection check done by NewClient
func WithPingTimeout(timeout time.Duration) ClientOption {
	return func(opts *clientOptions) {
		opts.pingTimeout = timeout
	}
}

// NewClient creates a new Redis client from URL with options
func NewClient(redisURL string, log *logger.Logger, opts ...ClientOption) (*Client, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL cannot be empty")
	}

	if log == nil {
		log = logger.GetGlobalLogger()
	}

	options := &clientOptions{pingTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(options)
	}

	finalURL := redisURL
	if options.usePrivateDB {
		var err error
		finalURL, err = PrivateUrl(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to get private URL: %w", err)
		}
	}

	redisOptions, err := redis.ParseURL(finalURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := &Client{
		Client: redis.NewClient(redisOptions),
		url:    finalURL,
		logger: log.WithComponent("redisx"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), options.pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	client.logger.Info("Redis client connected successfully",
		zap.String("addr", redisOptions.Addr),
		zap.Int("db", redisOptions.DB),
		zap.Bool("private_db", options.usePrivateDB))

	return client, nil
}

// NewClientFromConfig creates a new Redis client from the redis config section
func NewClientFromConfig(cfg *config.RedisConfig, log *logger.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	var opts []ClientOption
	if cfg.Private {
		opts = append(opts, WithPrivate())
	}
	return NewClient(cfg.GetRedisURL(), log, opts...)
}

// URL returns the URL the client connected with
func (c *Client) URL() string {
	return c.url
}

// Close closes the Redis client connection
func (c *Client) Close() error {
	c.logger.Info("Closing Redis connection")
	return c.Client.Close()
}

// HealthCheck performs a health check on the Redis connection
func (c *Client) HealthCheck(ctx context.Context) error {
	start := time.Now()
	err := c.Ping(ctx).Err()
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("Redis health check failed",
			zap.Error(err),
			zap.Duration("duration", duration),
		)
		return err
	}

	c.logger.Debug("Redis health check passed", zap.Duration("duration", duration))
	return nil
}

// PrivateUrl rewrites the URL's DB number to the one assigned to this host.
// Assignments live in DB 0 and are handed out by an auto-incrementing counter.
func PrivateUrl(redisURL string) (string, error) {
	if redisURL == "" {
		return "", fmt.Errorf("redis URL cannot be empty")
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to get hostname: %w", err)
	}

	return privateUrlWithHostname(redisURL, hostname)
}

func privateUrlWithHostname(redisURL, hostname string) (string, error) {
	if redisURL == "" {
		return "", fmt.Errorf("redis URL cannot be empty")
	}

	if hostname == "" {
		return "", fmt.Errorf("hostname cannot be empty")
	}

	parsedURL, err := url.Parse(redisURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	db0URL := *parsedURL
	db0URL.Path = "/0"

	options, err := redis.ParseURL(db0URL.String())
	if err != nil {
		return "", fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(options)
	defer rdb.Close()

	ctx := context.Background()

	dbNumber, err := rdb.HGet(ctx, privateDBKey, hostname).Result()
	if err == redis.Nil {
		// DB 0 is reserved for the assignments, so numbering starts at 1
		nextDB, err := rdb.HIncrBy(ctx, privateDBCounterKey, "next", 1).Result()
		if err != nil {
			return "", fmt.Errorf("failed to get next DB number: %w", err)
		}

		if err := rdb.HSet(ctx, privateDBKey, hostname, nextDB).Err(); err != nil {
			return "", fmt.Errorf("failed to assign DB to hostname: %w", err)
		}

		dbNumber = strconv.FormatInt(nextDB, 10)
	} else if err != nil {
		return "", fmt.Errorf("failed to check existing DB assignment: %w", err)
	}

	newURL := *parsedURL
	newURL.Path = "/" + dbNumber

	return newURL.String(), nil
}
