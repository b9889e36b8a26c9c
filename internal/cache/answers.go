// Package cache keeps rendered answers in Redis so a repeated question does
// not start the QA tool again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Divas-Gupta30/kg-studio/internal/config"
)

const generationKey = "kg:generation"

// opTimeout bounds every cache round trip.
const opTimeout = 2 * time.Second

// Prometheus metrics
var (
	cacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kg_answer_cache_hits_total",
			Help: "Total number of answer cache hits",
		},
	)
	cacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kg_answer_cache_misses_total",
			Help: "Total number of answer cache misses",
		},
	)
)

func init() {
	prometheus.MustRegister(cacheHitsTotal)
	prometheus.MustRegister(cacheMissesTotal)
}

// Answers caches answers per query and graph generation. Keys embed the
// generation counter, so bumping it after a rebuild orphans every older
// answer and the TTL reclaims them.
type Answers struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// Connect creates the Redis client and checks the connection. A failed ping
// is logged, not returned: the service works without caching.
func Connect(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Answers {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	a := New(client, cfg.TTL, logger)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.Ping(pingCtx); err != nil {
		a.logger.Warn("failed to connect to Redis, answers will not be cached",
			zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		a.logger.Info("connected to Redis cache", zap.String("addr", cfg.Addr))
	}
	return a
}

// New wraps an existing client.
func New(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Answers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answers{
		client: client,
		ttl:    ttl,
		logger: logger.Named("cache"),
	}
}

// Key returns the cache key for query under the current graph generation.
// Answers must be read and written with the same key so that an answer
// computed before a rebuild is never filed under the new generation.
func (a *Answers) Key(ctx context.Context, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	gen, err := a.client.Get(ctx, generationKey).Result()
	if errors.Is(err, redis.Nil) {
		gen = "0"
	} else if err != nil {
		cacheMissesTotal.Inc()
		return "", fmt.Errorf("read graph generation: %w", err)
	}
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("kg:answer:%s:%s", gen, hex.EncodeToString(sum[:])), nil
}

// Get returns the answer stored under key. Any Redis failure is a miss.
func (a *Answers) Get(ctx context.Context, key string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	html, err := a.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			a.logger.Debug("cache read failed", zap.Error(err))
		}
		cacheMissesTotal.Inc()
		return "", false
	}
	cacheHitsTotal.Inc()
	return html, true
}

// Set stores html under key. Failures are logged and otherwise ignored.
func (a *Answers) Set(ctx context.Context, key, html string) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := a.client.Set(ctx, key, html, a.ttl).Err(); err != nil {
		a.logger.Warn("failed to cache answer", zap.Error(err))
	}
}

// Invalidate advances the graph generation.
func (a *Answers) Invalidate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := a.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("bump graph generation: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (a *Answers) Ping(ctx context.Context) error {
	return a.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (a *Answers) Close() error {
	return a.client.Close()
}
