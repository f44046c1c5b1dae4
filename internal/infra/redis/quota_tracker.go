package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"ai-caption-backend/internal/domain/ports/repository"
)

var _ repository.UsageQuotaTracker = (*QuotaTracker)(nil)

// QuotaTracker counts anonymous generations per device over a rolling
// window: INCR plus an EXPIRE set on the first hit, so the counter clears
// itself when the window passes.
type QuotaTracker struct {
	client  RedisClient
	ceiling int64
	window  time.Duration
}

func NewQuotaTracker(client RedisClient, ceiling int64, window time.Duration) *QuotaTracker {
	if ceiling <= 0 {
		ceiling = 3
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &QuotaTracker{client: client, ceiling: ceiling, window: window}
}

func quotaKey(deviceID string) string {
	return fmt.Sprintf("quota:anon:%s", deviceID)
}

func (q *QuotaTracker) Increment(ctx context.Context, deviceID string) (int64, error) {
	key := quotaKey(deviceID)
	count, err := q.client.Incr(ctx, key)
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := q.client.Expire(ctx, key, q.window); err != nil {
			return count, err
		}
	}
	return count, nil
}

func (q *QuotaTracker) IsAllowed(ctx context.Context, deviceID string) (bool, error) {
	val, err := q.client.Get(ctx, quotaKey(deviceID))
	if err != nil {
		if err == redis.Nil {
			return true, nil
		}
		return false, err
	}
	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, err
	}
	return count < q.ceiling, nil
}
