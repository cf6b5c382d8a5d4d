package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"travelog/internal/logging"
	"travelog/internal/metrics"
	"travelog/internal/models"
)

const (
	keyPrefix  = "travelog:leaderboard:"
	versionKey = keyPrefix + "version"

	// DefaultTTL applies when the configured TTL is not positive.
	DefaultTTL = 30 * time.Second
)

// errSuperseded means an Invalidate ran between Get and Set.
var errSuperseded = errors.New("leaderboard cache version moved")

// Redis stores each sort order under its own key, namespaced by the current
// version. Invalidate increments the version; entries of older versions are
// unreachable and expire on their own TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects and pings addr.
func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 2 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Close() error { return r.client.Close() }

func dataKey(version int64, sortKey string) string {
	return keyPrefix + strconv.FormatInt(version, 10) + ":" + sortKey
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// version reads the current version; a missing key is version 0.
func version(ctx context.Context, c getter) (int64, error) {
	v, err := c.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (r *Redis) Get(ctx context.Context, sortKey string) ([]models.LeaderboardEntry, int64, bool) {
	v, err := version(ctx, r.client)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("get").Inc()
		metrics.CacheMisses.Inc()
		logging.Ctx(ctx).Warn().Err(err).Msg("leaderboard cache version read failed")
		// -1 never matches a stored version, so the following Set is dropped.
		return nil, -1, false
	}

	data, err := r.client.Get(ctx, dataKey(v, sortKey)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			metrics.CacheErrors.WithLabelValues("get").Inc()
			logging.Ctx(ctx).Warn().Err(err).Str("sort", sortKey).Msg("leaderboard cache read failed")
		}
		metrics.CacheMisses.Inc()
		return nil, v, false
	}
	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		metrics.CacheErrors.WithLabelValues("decode").Inc()
		metrics.CacheMisses.Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("sort", sortKey).Msg("leaderboard cache entry corrupt")
		return nil, v, false
	}
	metrics.CacheHits.Inc()
	return entries, v, true
}

// Set writes entries under version, watching the version key so a
// concurrent Invalidate aborts the write.
func (r *Redis) Set(ctx context.Context, sortKey string, v int64, entries []models.LeaderboardEntry) {
	if v < 0 {
		return
	}
	data, err := json.Marshal(entries)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("encode").Inc()
		logging.Ctx(ctx).Warn().Err(err).Msg("leaderboard cache encode failed")
		return
	}
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := version(ctx, tx)
		if err != nil {
			return err
		}
		if cur != v {
			return errSuperseded
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, dataKey(v, sortKey), data, r.ttl)
			return nil
		})
		return err
	}, versionKey)
	switch {
	case err == nil:
	case errors.Is(err, errSuperseded), errors.Is(err, redis.TxFailedErr):
		logging.Ctx(ctx).Debug().Str("sort", sortKey).Msg("leaderboard invalidated during read, not caching")
	default:
		metrics.CacheErrors.WithLabelValues("set").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("sort", sortKey).Msg("leaderboard cache write failed")
	}
}

func (r *Redis) Invalidate(ctx context.Context) {
	if err := r.client.Incr(ctx, versionKey).Err(); err != nil {
		metrics.CacheErrors.WithLabelValues("invalidate").Inc()
		logging.Ctx(ctx).Warn().Err(err).Msg("leaderboard cache invalidate failed")
	}
}
