package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/peakline/aeo-backend/internal/pkg/logger"
	"github.com/peakline/aeo-backend/internal/platform/envutil"
)

// EngineLimiter bounds concurrent in-flight work per engine. Inflight
// jobs live in a per-engine SET, not a counter, so Release is
// idempotent: a crashed worker or double-release can never push the
// count negative.
type EngineLimiter interface {
	CanClaim(ctx context.Context, engine string) (bool, error)
	Claim(ctx context.Context, engine, jobID string) error
	Release(ctx context.Context, engine, jobID string) error
	InflightCount(ctx context.Context, engine string) (int64, error)
	Close() error
}

type engineLimiter struct {
	log          *logger.Logger
	rdb          *goredis.Client
	defaultLimit int64
}

func NewEngineLimiter(log *logger.Logger) (EngineLimiter, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &engineLimiter{
		log:          log.With("service", "RedisEngineLimiter"),
		rdb:          rdb,
		defaultLimit: int64(envutil.Int("ENGINE_INFLIGHT_LIMIT", 10)),
	}, nil
}

func inflightSetKey(engine string) string {
	return fmt.Sprintf("aeo:engine:%s:inflight", engine)
}

func inflightLimitKey(engine string) string {
	return fmt.Sprintf("aeo:engine:%s:inflight_limit", engine)
}

func (l *engineLimiter) limit(ctx context.Context, engine string) (int64, error) {
	v, err := l.rdb.Get(ctx, inflightLimitKey(engine)).Int64()
	if err == goredis.Nil {
		return l.defaultLimit, nil
	}
	return v, err
}

// CanClaim reports whether engine has capacity for one more job. There
// is a TOCTOU window between this check and the SADD in Claim; the
// overshoot is bounded by worker concurrency and acceptable here.
func (l *engineLimiter) CanClaim(ctx context.Context, engine string) (bool, error) {
	if l == nil || l.rdb == nil {
		return false, fmt.Errorf("redis engine limiter not initialized")
	}
	limit, err := l.limit(ctx, engine)
	if err != nil {
		return false, err
	}
	inflight, err := l.rdb.SCard(ctx, inflightSetKey(engine)).Result()
	if err != nil {
		return false, err
	}
	return inflight < limit, nil
}

func (l *engineLimiter) Claim(ctx context.Context, engine, jobID string) error {
	if l == nil || l.rdb == nil {
		return fmt.Errorf("redis engine limiter not initialized")
	}
	return l.rdb.SAdd(ctx, inflightSetKey(engine), jobID).Err()
}

// Release is safe to call multiple times; SREM on a missing member is
// a no-op.
func (l *engineLimiter) Release(ctx context.Context, engine, jobID string) error {
	if l == nil || l.rdb == nil {
		return fmt.Errorf("redis engine limiter not initialized")
	}
	return l.rdb.SRem(ctx, inflightSetKey(engine), jobID).Err()
}

func (l *engineLimiter) InflightCount(ctx context.Context, engine string) (int64, error) {
	if l == nil || l.rdb == nil {
		return 0, fmt.Errorf("redis engine limiter not initialized")
	}
	return l.rdb.SCard(ctx, inflightSetKey(engine)).Result()
}

func (l *engineLimiter) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}
