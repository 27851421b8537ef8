package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/premium-gate-bot/internal/models"
)

// GetOrCreateUser возвращает пользователя по ID, создавая его при первом обращении.
// Имя и username обновляются, если пришли непустыми.
func (s *Storage) GetOrCreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage.GetOrCreateUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (user_id, full_name, username)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (user_id) DO UPDATE
			  SET full_name = COALESCE(NULLIF(EXCLUDED.full_name, ''), users.full_name),
			      username = COALESCE(NULLIF(EXCLUDED.username, ''), users.username)
			  RETURNING user_id, full_name, username, created_at`
	var u models.User
	if err := s.DB.QueryRowContext(ctx, query, user.ID, user.FullName, user.Username).
		Scan(&u.ID, &u.FullName, &u.Username, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}
