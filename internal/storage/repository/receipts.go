package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/premium-gate-bot/internal/models"
	"github.com/magabrotheeeer/premium-gate-bot/internal/storage"
)

// CreateReceipt сохраняет новую квитанцию.
func (s *Storage) CreateReceipt(ctx context.Context, r models.Receipt) error {
	const op = "storage.CreateReceipt"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO receipts (id, user_id, tier, file_id, kind, status, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.DB.ExecContext(ctx, query,
		r.ID, r.UserID, r.Tier, r.FileID, string(r.Kind), string(r.Status), r.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetReceipt возвращает квитанцию по ID или storage.ErrNotFound.
func (s *Storage) GetReceipt(ctx context.Context, id string) (*models.Receipt, error) {
	const op = "storage.GetReceipt"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, tier, file_id, kind, status, created_at, reviewed_at
			  FROM receipts
			  WHERE id = $1`
	return scanReceipt(op, s.DB.QueryRowContext(ctx, query, id))
}

// LatestSubmittedReceipt возвращает последнюю непроверенную квитанцию пользователя
// или storage.ErrNotFound.
func (s *Storage) LatestSubmittedReceipt(ctx context.Context, userID int64) (*models.Receipt, error) {
	const op = "storage.LatestSubmittedReceipt"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, tier, file_id, kind, status, created_at, reviewed_at
			  FROM receipts
			  WHERE user_id = $1 AND status = $2
			  ORDER BY created_at DESC
			  LIMIT 1`
	return scanReceipt(op, s.DB.QueryRowContext(ctx, query, userID, string(models.ReceiptSubmitted)))
}

// ReviewReceipt переводит квитанцию из submitted в status. Возвращает 0, если
// квитанция уже проверена или не существует.
func (s *Storage) ReviewReceipt(ctx context.Context, id string, status models.ReceiptStatus, reviewedAt time.Time) (int, error) {
	const op = "storage.ReviewReceipt"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE receipts
			  SET status = $1, reviewed_at = $2
			  WHERE id = $3 AND status = $4`
	result, err := s.DB.ExecContext(ctx, query, string(status), reviewedAt, id, string(models.ReceiptSubmitted))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

func scanReceipt(op string, row *sql.Row) (*models.Receipt, error) {
	var (
		r          models.Receipt
		kind       string
		status     string
		reviewedAt sql.NullTime
	)
	err := row.Scan(&r.ID, &r.UserID, &r.Tier, &r.FileID, &kind, &status, &r.CreatedAt, &reviewedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	r.Kind = models.ReceiptKind(kind)
	r.Status = models.ReceiptStatus(status)
	if reviewedAt.Valid {
		r.ReviewedAt = &reviewedAt.Time
	}
	return &r, nil
}
