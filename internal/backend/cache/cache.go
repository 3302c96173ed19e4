// Package cache stores enhanced images keyed by their input so repeated uploads of the
// same scan skip the enhancement pipeline.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

const (
	NoopType  = "none"
	RedisType = "redis"

	keyPrefix = "enhanced:"
)

// ErrMiss is returned by Get when no entry exists for a key
var ErrMiss = errors.New("cache miss")

// Cache abstracts the key/value operations used for enhancement results
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Key derives the cache key of an image enhanced by the pipeline identified by signature
func Key(signature string, imageData []byte) string {
	sum := sha256.New()
	sum.Write([]byte(signature))
	sum.Write([]byte{0})
	sum.Write(imageData)
	return keyPrefix + hex.EncodeToString(sum.Sum(nil))
}

type Config struct {
	Type     string
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// NewCache returns the cache selected by config.Type; an empty type disables caching
func NewCache(ctx context.Context, config Config) (Cache, error) {
	switch config.Type {
	case "", NoopType:
		return NoopCache{}, nil
	case RedisType:
		return NewRedisCache(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", config.Type)
	}
}

// NoopCache never stores anything
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }

func (NoopCache) Set(context.Context, string, []byte) error { return nil }

func (NoopCache) Close() error { return nil }
