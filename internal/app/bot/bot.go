// Package bot собирает процесс бота: хранилище, кэш, клиент Telegram,
// маршрутизатор команд и http-сервер вебхука.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/magabrotheeeer/premium-gate-bot/internal/app/reminders"
	"github.com/magabrotheeeer/premium-gate-bot/internal/cache"
	"github.com/magabrotheeeer/premium-gate-bot/internal/config"
	"github.com/magabrotheeeer/premium-gate-bot/internal/http-server/handlers/health"
	"github.com/magabrotheeeer/premium-gate-bot/internal/http-server/handlers/webhook"
	"github.com/magabrotheeeer/premium-gate-bot/internal/lib/sl"
	"github.com/magabrotheeeer/premium-gate-bot/internal/lib/tier"
	"github.com/magabrotheeeer/premium-gate-bot/internal/metrics"
	"github.com/magabrotheeeer/premium-gate-bot/internal/migrations"
	botservice "github.com/magabrotheeeer/premium-gate-bot/internal/services/bot"
	"github.com/magabrotheeeer/premium-gate-bot/internal/storage/repository"
	"github.com/magabrotheeeer/premium-gate-bot/internal/telegram"
)

// backgroundRunner фоновый компонент, работающий до отмены ctx.
type backgroundRunner interface {
	Run(ctx context.Context) error
}

type App struct {
	server    *http.Server
	logger    *slog.Logger
	db        *repository.Storage
	cache     *cache.Cache
	reminders backgroundRunner
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err = repository.CheckDatabaseReady(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &App{logger: logger, db: db, cache: cacheRedis}

	tg, err := telegram.New(cfg.BotToken, cfg.GroupID, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	if err = tg.SetWebhook(ctx, cfg.WebhookURL, cfg.WebhookSecret); err != nil {
		a.close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	service := botservice.NewService(db, cacheRedis, tg, tg, botservice.Settings{
		AdminID:   cfg.AdminID,
		Card:      cfg.Card,
		CardOwner: cfg.CardOwner,
		Tiers:     tier.Default,
	}, metrics.New(registry), logger)

	var limiter webhook.SenderLimiter
	if cfg.SenderRate > 0 {
		limiter = cacheRedis.SenderLimiter(cfg.SenderRate)
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Routes{
		WebhookPath:  cfg.WebhookPath(),
		Webhook:      webhook.New(logger, service, limiter, cfg.WebhookSecret),
		Health:       health.New(logger, map[string]health.Pinger{"postgres": db, "redis": cacheRedis}),
		Gatherer:     registry,
		WebhookRate:  cfg.WebhookRate,
		WebhookBurst: cfg.WebhookBurst,
	})

	a.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	if cfg.RemindersEnabled() {
		r, err := reminders.New(cfg, db, tg, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("reminders: %w", err)
		}
		a.reminders = r
	} else {
		logger.Info("RABBITMQ_URL is empty, expiry reminders disabled")
	}

	return a, nil
}

// Run обслуживает вебхук до отмены ctx. Хранилище и кэш закрываются только
// после остановки http-сервера и напоминаний.
func (a *App) Run(ctx context.Context) error {
	remindersCtx, stopReminders := context.WithCancel(ctx)
	defer stopReminders()
	remindersDone := make(chan struct{})
	if a.reminders != nil {
		go func() {
			defer close(remindersDone)
			if err := a.reminders.Run(remindersCtx); err != nil {
				a.logger.Error("reminders stopped", sl.Err(err))
			}
		}()
	} else {
		close(remindersDone)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}

	stopReminders()
	<-remindersDone
	a.close()
	return err
}

func (a *App) close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
