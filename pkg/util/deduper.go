package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper holds short-lived claims on message ids so redelivered events are
// not processed twice at the same time.
type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func DedupKey(handler, messageID string) string {
	return fmt.Sprintf("dedup:%s:%s", handler, messageID)
}

// AcquireOnce returns true the first time handler claims messageID within
// the ttl. When redis is unavailable it returns true and lets the database
// constraint decide.
func (d *Deduper) AcquireOnce(ctx context.Context, handler, messageID string) bool {
	key := DedupKey(handler, messageID)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		d.logger.Warn("redis dedup check failed, allowing processing",
			zap.String("handler", handler),
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Info("skipped duplicated event",
			zap.String("handler", handler),
			zap.String("message_id", messageID),
			zap.String("dedup_key", key),
		)
	}
	return ok
}

// Release drops the claim so a retry of a failed attempt is not skipped.
func (d *Deduper) Release(ctx context.Context, handler, messageID string) {
	if err := d.rdb.Del(ctx, DedupKey(handler, messageID)).Err(); err != nil {
		d.logger.Warn("redis dedup release failed",
			zap.String("handler", handler),
			zap.String("message_id", messageID),
			zap.Error(err),
		)
	}
}
