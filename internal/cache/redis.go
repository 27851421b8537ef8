// Package cache хранит выбор тарифа пользователем в Redis до подтверждения оплаты.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/premium-gate-bot/internal/config"
)

const selectionKeyPrefix = "selection:"

// Cache обёртка над клиентом Redis.
type Cache struct {
	Db  *redis.Client
	ttl time.Duration
}

// Selection неподтверждённый выбор тарифа.
type Selection struct {
	Tier       string    `json:"tier"`
	SelectedAt time.Time `json:"selected_at"`
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db, ttl: cfg.SelectionTTL}, nil
}

func selectionKey(userID int64) string {
	return selectionKeyPrefix + strconv.FormatInt(userID, 10)
}

// SaveSelection запоминает выбранный тариф пользователя на время SelectionTTL.
func (c *Cache) SaveSelection(ctx context.Context, userID int64, tier string) error {
	const op = "cache.SaveSelection"
	data, err := json.Marshal(Selection{Tier: tier, SelectedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.Db.Set(ctx, selectionKey(userID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Selection возвращает выбранный тариф. found=false, если выбора нет или он истёк.
func (c *Cache) Selection(ctx context.Context, userID int64) (string, bool, error) {
	const op = "cache.Selection"
	val, err := c.Db.Get(ctx, selectionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	var sel Selection
	if err := json.Unmarshal(val, &sel); err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return sel.Tier, true, nil
}

// ClearSelection удаляет выбор тарифа.
func (c *Cache) ClearSelection(ctx context.Context, userID int64) error {
	const op = "cache.ClearSelection"
	if err := c.Db.Del(ctx, selectionKey(userID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (c *Cache) Close() error {
	return c.Db.Close()
}

// Ping проверяет соединение с Redis.
func (c *Cache) Ping(ctx context.Context) error {
	return c.Db.Ping(ctx).Err()
}
