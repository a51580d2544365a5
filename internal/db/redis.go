package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

// ErrEmptyRedisURL is returned by OpenRedis when no URL is configured.
var ErrEmptyRedisURL = errors.New("db: REDIS_URL is not set")

// OpenRedis parses a redis:// URL and pings the server, retrying with the same policy as Open.
func OpenRedis(ctx context.Context, url string, opts Options) (*redis.Client, error) {
	if url == "" {
		return nil, ErrEmptyRedisURL
	}
	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = DefaultOptions().RetryBase
	}
	client := redis.NewClient(ropts)
	backoff := retry.WithMaxRetries(opts.RetryAttempts, retry.NewExponential(opts.RetryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			slog.WarnContext(ctx, "db: redis ping failed, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
