package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis_rate/v10"
)

const rateLimitKeyPrefix = "ratelimit:user:"

// SenderLimiter ограничивает число обновлений от одного пользователя в минуту.
// Счётчики живут в Redis и общие для всех экземпляров бота.
type SenderLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
}

// SenderLimiter возвращает лимитер на perMinute обновлений в минуту.
func (c *Cache) SenderLimiter(perMinute int) *SenderLimiter {
	return &SenderLimiter{
		limiter: redis_rate.NewLimiter(c.Db),
		limit:   redis_rate.PerMinute(perMinute),
	}
}

// Allow списывает одно обновление отправителя senderID.
func (l *SenderLimiter) Allow(ctx context.Context, senderID int64) (bool, error) {
	const op = "cache.SenderLimiter.Allow"
	res, err := l.limiter.Allow(ctx, rateLimitKeyPrefix+strconv.FormatInt(senderID, 10), l.limit)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return res.Allowed > 0, nil
}
