// Package redisstore is a persist.Gateway backed by Redis. Each location is
// stored as one string value under <prefix><location key>.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-settings/persist"
)

// DefaultKeyPrefix namespaces keys written by the gateway.
const DefaultKeyPrefix = "settings:"

// Config holds connection settings for New.
type Config struct {
	Addr      string
	Username  string
	Password  string
	DB        int
	KeyPrefix string

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Gateway implements persist.Gateway over a Redis client.
type Gateway struct {
	client    redis.UniversalClient
	keyPrefix string
}

// New dials Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Gateway, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redisstore: address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstore: connect %s: %w", cfg.Addr, err)
	}
	return NewWithClient(client, cfg.KeyPrefix), nil
}

// NewWithClient wraps an existing client. An empty prefix uses
// DefaultKeyPrefix.
func NewWithClient(client redis.UniversalClient, keyPrefix string) *Gateway {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Gateway{client: client, keyPrefix: keyPrefix}
}

// Close releases the underlying client.
func (g *Gateway) Close() error {
	return g.client.Close()
}

func (g *Gateway) key(loc persist.Location) string {
	return g.keyPrefix + loc.Key()
}

func (g *Gateway) Exists(ctx context.Context, loc persist.Location) (bool, error) {
	n, err := g.client.Exists(ctx, g.key(loc)).Result()
	if err != nil {
		return false, fmt.Errorf("redisstore: exists %s: %w", loc, err)
	}
	return n > 0, nil
}

func (g *Gateway) Read(ctx context.Context, loc persist.Location) ([]byte, error) {
	blob, err := g.client.Get(ctx, g.key(loc)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", persist.ErrNotFound, loc)
		}
		return nil, fmt.Errorf("redisstore: get %s: %w", loc, err)
	}
	return blob, nil
}

func (g *Gateway) Write(ctx context.Context, loc persist.Location, blob []byte) error {
	if err := g.client.Set(ctx, g.key(loc), blob, 0).Err(); err != nil {
		return fmt.Errorf("redisstore: set %s: %w", loc, err)
	}
	return nil
}

var _ persist.Gateway = (*Gateway)(nil)
