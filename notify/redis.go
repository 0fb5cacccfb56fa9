package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "tcspc:warnings"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// RedisConfig configures the Redis pub/sub warning sink.
type RedisConfig struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: tcspc:warnings).
	Channel string
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure (default 3).
	Retries int
}

// RedisWarningSink publishes warning notifications as JSON via Redis
// PUBLISH, retrying with exponential backoff on any publish error.
type RedisWarningSink struct {
	config RedisConfig
	client *goredis.Client
}

// NewRedisWarningSink creates a Redis warning sink from the given
// config. Returns an error if the URL is empty or invalid.
func NewRedisWarningSink(cfg RedisConfig) (*RedisWarningSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis warning sink requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis warning sink: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &RedisWarningSink{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Publish sends the notification as a JSON PUBLISH to the configured
// channel, retrying with exponential backoff on failures.
func (s *RedisWarningSink) Publish(ctx context.Context, n *WarningNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("redis: marshal notification: %w", err)
	}

	var lastErr error
	// attempts = 1 initial + retries
	attempts := 1 + s.config.Retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("redis: context canceled: %w", err)
		}

		// Exponential backoff before retries (not before first attempt)
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return fmt.Errorf("redis: context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		publishCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
		lastErr = s.client.Publish(publishCtx, s.config.Channel, body).Err()
		cancel()

		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("redis: failed after %d attempts: %w", attempts, lastErr)
}

// Close releases the Redis client.
func (s *RedisWarningSink) Close() error {
	return s.client.Close()
}

// Verify RedisWarningSink implements the sink interface.
var _ WarningSink = (*RedisWarningSink)(nil)
