package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/premium-gate-bot/internal/lib/sl"
	"github.com/magabrotheeeer/premium-gate-bot/internal/models"
)

// ReminderLead за сколько до окончания подписки отправляется напоминание.
const ReminderLead = 24 * time.Hour

type SubscriptionRepository interface {
	FindSubscriptionsExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.Subscriber, error)
}

type Publisher interface {
	PublishExpiring(message any) error
}

// SchedulerService периодически ищет подписки, истекающие через ReminderLead,
// и публикует их в очередь напоминаний. Подписки никто не удаляет.
type SchedulerService struct {
	repo      SubscriptionRepository
	publisher Publisher
	interval  time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo SubscriptionRepository, publisher Publisher, interval time.Duration, log *slog.Logger) *SchedulerService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &SchedulerService{
		repo:      repo,
		publisher: publisher,
		interval:  interval,
		log:       log,
		now:       time.Now,
	}
}

// Run выполняет проверку на каждой границе interval (отсчёт от нулевого
// времени UTC, для 24h это полночь UTC), пока не отменён ctx. Сразу при
// старте проверка не выполняется: перезапуск внутри интервала не повторяет
// уже отправленное окно.
func (s *SchedulerService) Run(ctx context.Context) {
	for {
		now := s.now().UTC()
		next := now.Truncate(s.interval).Add(s.interval)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("scheduler stopped")
			return
		case <-timer.C:
			s.RunOnce(ctx)
		}
	}
}

// window окно проверки для момента at: [b+lead, b+lead+interval), где b
// последняя граница interval не позже at. Окна соседних границ стыкуются
// без пересечений, а все запуски внутри одного интервала получают одно окно.
func (s *SchedulerService) window(at time.Time) (from, to time.Time) {
	from = at.UTC().Truncate(s.interval).Add(ReminderLead)
	return from, from.Add(s.interval)
}

// RunOnce публикует подписки, истекающие в окне текущего интервала.
// Возвращает количество опубликованных сообщений.
func (s *SchedulerService) RunOnce(ctx context.Context) int {
	from, to := s.window(s.now())

	s.log.Info("looking for expiring subscriptions", slog.Time("from", from), slog.Time("to", to))
	subs, err := s.repo.FindSubscriptionsExpiringBetween(ctx, from, to)
	if err != nil {
		s.log.Error("failed to find expiring subscriptions", sl.Err(err))
		return 0
	}
	if len(subs) == 0 {
		s.log.Info("no expiring subscriptions found")
		return 0
	}

	s.log.Info("found expiring subscriptions", slog.Int("count", len(subs)))
	published := 0
	for _, sub := range subs {
		if err := s.publisher.PublishExpiring(sub); err != nil {
			s.log.Error("failed to publish message", sl.UserID(sub.UserID), sl.Err(err))
			continue
		}
		published++
	}
	return published
}
