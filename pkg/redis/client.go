package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatherly-app/gatherly-backend/pkg/config"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	keyNamespace     = "gl"
	actorInboxPrefix = "actor_inbox"
)

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// Client wraps the redis connection helpers needed by the platform.
type Client struct {
	store cmdable
	raw   *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// InboxCache stores resolved actor inbox URLs between discovery round-trips.
type InboxCache interface {
	GetInboxURL(ctx context.Context, actorRef string) (string, bool, error)
	SetInboxURL(ctx context.Context, actorRef, inboxURL string, ttl time.Duration) error
	InvalidateInboxURL(ctx context.Context, actorRef string) error
}

// New bootstraps a Redis client with pooling/timeouts and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{store: raw, raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Ping verifies the connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.store.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

// ActorInboxKey builds the namespaced cache key for a remote actor reference.
func (c *Client) ActorInboxKey(actorRef string) string {
	return fmt.Sprintf("%s:%s:%s", keyNamespace, actorInboxPrefix, actorRef)
}

// GetInboxURL returns the cached inbox URL for an actor reference, if any.
func (c *Client) GetInboxURL(ctx context.Context, actorRef string) (string, bool, error) {
	val, err := c.store.Get(ctx, c.ActorInboxKey(actorRef)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetInboxURL caches the inbox URL for an actor reference with the given TTL.
func (c *Client) SetInboxURL(ctx context.Context, actorRef, inboxURL string, ttl time.Duration) error {
	return c.store.Set(ctx, c.ActorInboxKey(actorRef), inboxURL, ttl).Err()
}

// InvalidateInboxURL drops a cached inbox URL.
func (c *Client) InvalidateInboxURL(ctx context.Context, actorRef string) error {
	return c.store.Del(ctx, c.ActorInboxKey(actorRef)).Err()
}
