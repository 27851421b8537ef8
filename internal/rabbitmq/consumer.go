package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/premium-gate-bot/internal/lib/sl"
)

// ErrPermanent помечает ошибку обработчика, которая повторится при любой
// повторной доставке. Такое сообщение отбрасывается, а не возвращается в очередь.
var ErrPermanent = errors.New("permanent message failure")

// ConsumerMessage запускает потребителя очереди queueName. Сообщение
// подтверждается, если handler вернул nil. Ошибка с ErrPermanent отбрасывает
// сообщение, любая другая возвращает его в очередь.
// Возвращённый канал закрывается, когда после отмены ctx завершились все
// запущенные обработчики.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, log *slog.Logger, handler func([]byte) error) (<-chan struct{}, error) {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	done := make(chan struct{})
	sem := make(chan struct{}, 10)
	var inflight sync.WaitGroup
	go func() {
		defer close(done)
		defer inflight.Wait()
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					return
				}
				sem <- struct{}{}
				inflight.Add(1)
				go func(delivery amqp.Delivery) {
					defer inflight.Done()
					defer func() { <-sem }()
					if err := handler(delivery.Body); err != nil {
						requeue := !errors.Is(err, ErrPermanent)
						log.Warn("message handler failed",
							slog.String("queue", queueName), slog.Bool("requeue", requeue), sl.Err(err))
						if nackErr := delivery.Nack(false, requeue); nackErr != nil {
							log.Error("failed to nack message", sl.Err(nackErr))
						}
						return
					}
					if ackErr := delivery.Ack(false); ackErr != nil {
						log.Error("failed to ack message", sl.Err(ackErr))
					}
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return done, nil
}
