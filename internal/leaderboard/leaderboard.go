// Package leaderboard publishes solved ratings to a Redis sorted set.
package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pairwise-ratings/internal/report"
	"github.com/pairwise-ratings/pkg/config"
	pkgerrors "github.com/pairwise-ratings/pkg/errors"
	"github.com/pairwise-ratings/pkg/utils"
)

// chunkSize bounds the members sent per ZADD.
const chunkSize = 1000

// Client is the subset of the Redis client the publisher needs.
type Client interface {
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	Rename(ctx context.Context, key, newkey string) *redis.StatusCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Publisher replaces a sorted set with the display ratings of a run.
type Publisher struct {
	client Client
	key    string
	ttl    time.Duration
	logger utils.Logger
	closer func() error
}

// NewPublisher connects to the configured Redis server.
func NewPublisher(cfg *config.LeaderboardConfig, logger utils.Logger) *Publisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	p := NewPublisherWithClient(rdb, cfg.Key, cfg.TTL, logger)
	p.closer = rdb.Close
	return p
}

// NewPublisherWithClient creates a publisher over an existing client.
func NewPublisherWithClient(client Client, key string, ttl time.Duration, logger utils.Logger) *Publisher {
	if logger == nil {
		logger = &utils.NullLogger{}
	}
	return &Publisher{client: client, key: key, ttl: ttl, logger: logger}
}

// Key returns the sorted set key.
func (p *Publisher) Key() string {
	return p.key
}

// StagingKey returns the key the set is built under before the rename.
func (p *Publisher) StagingKey() string {
	return p.key + ":staging"
}

// Publish writes entries under the staging key and renames it over the
// live key, so readers never observe a half-written leaderboard. An empty
// slice deletes the live key.
func (p *Publisher) Publish(ctx context.Context, entries []report.Entry) error {
	if len(entries) == 0 {
		if err := p.client.Del(ctx, p.key).Err(); err != nil {
			return publishError("failed to clear leaderboard", err)
		}
		return nil
	}

	staging := p.StagingKey()
	if err := p.client.Del(ctx, staging).Err(); err != nil {
		return publishError("failed to reset staging key", err)
	}

	for start := 0; start < len(entries); start += chunkSize {
		end := min(start+chunkSize, len(entries))
		members := make([]redis.Z, 0, end-start)
		for _, e := range entries[start:end] {
			members = append(members, redis.Z{Score: e.Rating, Member: e.Name})
		}
		if err := p.client.ZAdd(ctx, staging, members...).Err(); err != nil {
			return publishError(fmt.Sprintf("failed to add members %d-%d", start, end), err)
		}
	}

	if err := p.client.Rename(ctx, staging, p.key).Err(); err != nil {
		return publishError("failed to swap leaderboard", err)
	}

	if p.ttl > 0 {
		if err := p.client.Expire(ctx, p.key, p.ttl).Err(); err != nil {
			return publishError("failed to set leaderboard ttl", err)
		}
	}

	p.logger.Info("Published %d ratings to %s", len(entries), p.key)
	return nil
}

// Close releases the connection when the publisher owns it.
func (p *Publisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

func publishError(msg string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodePublishError, msg, err)
}
