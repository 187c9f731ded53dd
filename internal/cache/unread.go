package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	unreadKeyPrefix = "unread"
	unreadTTL       = 5 * time.Minute
)

// Unread caches per-user unread counters in Redis. Every method is
// best-effort: cache failures are logged and callers fall through to the
// store, mirroring the realtime push path.
type Unread struct {
	cli *redis.Client
	log *zap.Logger
}

// Connect connects to the Redis server and pings it to ensure the
// connection works.
func Connect(ctx context.Context, addr string, log *zap.Logger) (*Unread, error) {
	cli := redis.NewClient(&redis.Options{Addr: addr})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Unread{cli: cli, log: log}, nil
}

// Ping is used by the readiness probe.
func (u *Unread) Ping(ctx context.Context) error {
	return u.cli.Ping(ctx).Err()
}

func unreadKey(userID int64) string {
	return fmt.Sprintf("%s:%d", unreadKeyPrefix, userID)
}

func (u *Unread) Get(ctx context.Context, userID int64) (int64, bool) {
	val, err := u.cli.Get(ctx, unreadKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false
	}
	if err != nil {
		u.log.Warn("unread cache get failed", zap.Int64("user_id", userID), zap.Error(err))
		return 0, false
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		u.log.Warn("unread cache holds non-numeric value", zap.Int64("user_id", userID), zap.Error(err))
		return 0, false
	}
	return n, true
}

func (u *Unread) Set(ctx context.Context, userID int64, count int64) {
	if err := u.cli.Set(ctx, unreadKey(userID), count, unreadTTL).Err(); err != nil {
		u.log.Warn("unread cache set failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (u *Unread) Invalidate(ctx context.Context, userID int64) {
	if err := u.cli.Del(ctx, unreadKey(userID)).Err(); err != nil {
		u.log.Warn("unread cache invalidate failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
