package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cshum/vipsbridge/internal/cache"
	"github.com/redis/go-redis/v9"
)

// Provider implements a redis cache
type Provider struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// Options configures the redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	// TTL is the expiry of every key; zero keeps keys forever
	TTL time.Duration
	// Prefix namespaces keys, e.g. "vipsbridge:"
	Prefix string
}

// New connects to redis and verifies the connection
func New(ctx context.Context, opts Options) (*Provider, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}

	return &Provider{
		client: client,
		ttl:    opts.TTL,
		prefix: opts.Prefix,
	}, nil
}

// Get returns an object from the cache if it exists
func (p *Provider) Get(ctx context.Context, key string) (data []byte, err error) {
	data, err = p.client.Get(ctx, p.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache get error: %w", err)
	}
	return data, nil
}

// Set adds an object to the cache
func (p *Provider) Set(ctx context.Context, key string, data []byte) (err error) {
	return p.client.Set(ctx, p.prefix+key, data, p.ttl).Err()
}

// Shutdown closes the connection pool
func (p *Provider) Shutdown() {
	p.client.Close()
}
