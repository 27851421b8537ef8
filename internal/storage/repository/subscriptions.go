package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/premium-gate-bot/internal/models"
)

// AddSubscription сохраняет подписку пользователя. Повторное подтверждение
// перезаписывает тариф и дату окончания: у пользователя не больше одной подписки.
func (s *Storage) AddSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.AddSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (user_id, tier, expire_date, created_at)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (user_id) DO UPDATE
			  SET tier = EXCLUDED.tier,
			      expire_date = EXCLUDED.expire_date,
			      created_at = EXCLUDED.created_at`
	if _, err := s.DB.ExecContext(ctx, query, sub.UserID, sub.Tier, sub.ExpireDate, sub.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RemoveSubscription удаляет подписку и возвращает количество удалённых строк.
// Запись пользователя остаётся.
func (s *Storage) RemoveSubscription(ctx context.Context, userID int64) (int, error) {
	const op = "storage.RemoveSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM subscriptions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListSubscribers возвращает всех пользователей с подпиской, по дате окончания.
func (s *Storage) ListSubscribers(ctx context.Context) ([]*models.Subscriber, error) {
	const op = "storage.ListSubscribers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT s.user_id, u.username, u.full_name, s.tier, s.expire_date
			  FROM subscriptions s
			  JOIN users u ON u.user_id = s.user_id
			  ORDER BY s.expire_date, s.user_id`
	return s.querySubscribers(ctx, op, query)
}

// FindSubscriptionsExpiringBetween находит подписки, истекающие в интервале [from, to).
func (s *Storage) FindSubscriptionsExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.Subscriber, error) {
	const op = "storage.FindSubscriptionsExpiringBetween"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT s.user_id, u.username, u.full_name, s.tier, s.expire_date
			  FROM subscriptions s
			  JOIN users u ON u.user_id = s.user_id
			  WHERE s.expire_date >= $1 AND s.expire_date < $2
			  ORDER BY s.expire_date, s.user_id`
	return s.querySubscribers(ctx, op, query, from, to)
}

func (s *Storage) querySubscribers(ctx context.Context, op, query string, args ...any) ([]*models.Subscriber, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscriber
	for rows.Next() {
		var item models.Subscriber
		if err := rows.Scan(&item.UserID, &item.Username, &item.FullName, &item.Tier, &item.ExpireDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
