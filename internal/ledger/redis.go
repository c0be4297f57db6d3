package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"go.uber.org/zap"
)

// RedisLedger keeps delivery records in Redis. Entries carry no TTL: the key
// embeds the occurrence start, and the window fetcher never surfaces a start
// that has already passed, so old keys can never match again.
type RedisLedger struct {
	pool   *redis.Pool
	logger *zap.SugaredLogger
}

func NewRedisLedger(pool *redis.Pool, logger *zap.SugaredLogger) *RedisLedger {
	return &RedisLedger{
		pool:   pool,
		logger: logger,
	}
}

// MarkDelivered records the occurrence as delivered. It reports whether the
// record already existed, in which case the store is left untouched.
func (l *RedisLedger) MarkDelivered(ctx context.Context, eventID string, start time.Time) (bool, error) {
	conn, err := l.pool.GetContext(ctx)
	if err != nil {
		return false, fmt.Errorf("get redis connection: %w", err)
	}
	defer conn.Close()

	created, err := redis.Int(conn.Do("SETNX", Key(eventID, start), 1))
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}

	return created == 0, nil
}

func (l *RedisLedger) IsDelivered(ctx context.Context, eventID string, start time.Time) (bool, error) {
	conn, err := l.pool.GetContext(ctx)
	if err != nil {
		return false, fmt.Errorf("get redis connection: %w", err)
	}
	defer conn.Close()

	exists, err := redis.Bool(conn.Do("EXISTS", Key(eventID, start)))
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}

	return exists, nil
}
