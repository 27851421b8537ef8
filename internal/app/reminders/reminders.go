// Package reminders собирает планировщик и отправщик напоминаний
// об окончании подписки поверх RabbitMQ.
package reminders

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/premium-gate-bot/internal/config"
	"github.com/magabrotheeeer/premium-gate-bot/internal/lib/sl"
	"github.com/magabrotheeeer/premium-gate-bot/internal/rabbitmq"
	schedulerservice "github.com/magabrotheeeer/premium-gate-bot/internal/services/scheduler"
	senderservice "github.com/magabrotheeeer/premium-gate-bot/internal/services/sender"
)

// App представляет приложение напоминаний.
type App struct {
	schedulerService *schedulerservice.SchedulerService
	senderService    *senderservice.SenderService
	conn             *amqp.Connection
	ch               *amqp.Channel
	logger           *slog.Logger
}

// New подключается к RabbitMQ и объявляет очередь напоминаний.
func New(cfg *config.Config, repo schedulerservice.SubscriptionRepository, notifier senderservice.Notifier, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	return &App{
		schedulerService: schedulerservice.NewSchedulerService(repo, rabbitmq.NewPublisher(ch), cfg.ReminderInterval, logger),
		senderService:    senderservice.NewSenderService(notifier, logger),
		conn:             conn,
		ch:               ch,
		logger:           logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
}

// Run запускает потребителя и планировщик и блокируется до отмены ctx.
// Возвращается, только когда оба остановились и соединение закрыто.
func (a *App) Run(ctx context.Context) error {
	consumerDone, err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.ExpiringQueue, a.logger, a.senderService.Handler(ctx))
	if err != nil {
		closeResources(a.ch, a.conn, a.logger)
		return err
	}
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		a.schedulerService.Run(ctx)
	}()

	<-ctx.Done()

	a.logger.Info("shutting down reminders")
	<-schedulerDone
	<-consumerDone
	closeResources(a.ch, a.conn, a.logger)
	return nil
}
