package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/premium-gate-bot/internal/lib/sl"
	"github.com/magabrotheeeer/premium-gate-bot/internal/models"
	"github.com/magabrotheeeer/premium-gate-bot/internal/rabbitmq"
	"github.com/magabrotheeeer/premium-gate-bot/internal/telegram"
)

const textExpiring = "⏰ Premium obunangiz %s da tugaydi (%s).\n" +
	"Uzaytirish uchun /start buyrug‘ini yuboring va yangi to‘lov chekini yuboring."

type Notifier interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// SenderService отправляет пользователям напоминания из очереди.
type SenderService struct {
	notifier Notifier
	log      *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(notifier Notifier, log *slog.Logger) *SenderService {
	return &SenderService{
		notifier: notifier,
		log:      log,
	}
}

// Handler возвращает обработчик сообщений очереди, привязанный к ctx.
func (s *SenderService) Handler(ctx context.Context) func([]byte) error {
	return func(body []byte) error {
		return s.SendExpiringReminder(ctx, body)
	}
}

// SendExpiringReminder разбирает models.Subscriber и отправляет напоминание.
// Битое сообщение и отказ Bot API, который не исправится повтором,
// возвращаются с rabbitmq.ErrPermanent.
func (s *SenderService) SendExpiringReminder(ctx context.Context, body []byte) error {
	const op = "services.sender.SendExpiringReminder"

	var message models.Subscriber
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrPermanent, err)
	}
	if message.UserID == 0 {
		return fmt.Errorf("%s: %w: empty user id", op, rabbitmq.ErrPermanent)
	}

	text := fmt.Sprintf(textExpiring, message.ExpireDate.UTC().Format(time.DateTime), message.Tier)
	if err := s.notifier.SendText(ctx, message.UserID, text); err != nil {
		if telegram.IsPermanent(err) {
			s.log.Warn("reminder dropped", sl.UserID(message.UserID), sl.Err(err))
			return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrPermanent, err)
		}
		s.log.Error("failed to send reminder", sl.UserID(message.UserID), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("reminder sent", sl.UserID(message.UserID))
	return nil
}
