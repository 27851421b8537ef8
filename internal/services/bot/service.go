// Package services содержит маршрутизацию команд бота: выбор тарифа,
// приём квитанций и команды администратора.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/premium-gate-bot/internal/lib/sl"
	"github.com/magabrotheeeer/premium-gate-bot/internal/lib/tier"
	"github.com/magabrotheeeer/premium-gate-bot/internal/metrics"
	"github.com/magabrotheeeer/premium-gate-bot/internal/models"
	"github.com/magabrotheeeer/premium-gate-bot/internal/storage"
)

// Repository определяет методы хранилища пользователей, подписок и квитанций.
type Repository interface {
	// GetOrCreateUser возвращает пользователя, создавая его при первом обращении.
	GetOrCreateUser(ctx context.Context, user models.User) (*models.User, error)
	// AddSubscription сохраняет или перезаписывает подписку пользователя.
	AddSubscription(ctx context.Context, sub models.Subscription) error
	// RemoveSubscription удаляет подписку и возвращает количество удалённых записей.
	RemoveSubscription(ctx context.Context, userID int64) (int, error)
	// ListSubscribers возвращает всех пользователей с подпиской.
	ListSubscribers(ctx context.Context) ([]*models.Subscriber, error)
	// CreateReceipt сохраняет новую квитанцию.
	CreateReceipt(ctx context.Context, r models.Receipt) error
	// GetReceipt возвращает квитанцию по ID.
	GetReceipt(ctx context.Context, id string) (*models.Receipt, error)
	// LatestSubmittedReceipt возвращает последнюю непроверенную квитанцию пользователя.
	LatestSubmittedReceipt(ctx context.Context, userID int64) (*models.Receipt, error)
	// ReviewReceipt переводит квитанцию из submitted в status.
	ReviewReceipt(ctx context.Context, id string, status models.ReceiptStatus, reviewedAt time.Time) (int, error)
}

// SelectionStore хранит неподтверждённый выбор тарифа.
type SelectionStore interface {
	SaveSelection(ctx context.Context, userID int64, tier string) error
	Selection(ctx context.Context, userID int64) (string, bool, error)
	ClearSelection(ctx context.Context, userID int64) error
}

// Messenger отправка сообщений через платформу.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendMenu(ctx context.Context, chatID int64, text string, buttons []string) error
	SendReviewRequest(ctx context.Context, chatID int64, text, receiptID string) error
	SendReceipt(ctx context.Context, chatID int64, r models.Receipt, fileURL string) error
	FileURL(ctx context.Context, fileID string) (string, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Channel управление доступом к премиум-каналу.
type Channel interface {
	IsMember(ctx context.Context, userID int64) (bool, error)
	Grant(ctx context.Context, userID int64) (string, error)
	Revoke(ctx context.Context, userID int64) error
}

// Settings параметры бота.
type Settings struct {
	AdminID   int64
	Card      string
	CardOwner string
	Tiers     tier.Table
}

// Маршруты входящих событий, используются как метки метрик.
const (
	RouteStart    = "start"
	RouteTier     = "tier"
	RouteReceipt  = "receipt"
	RouteConfirm  = "confirm"
	RouteReject   = "reject"
	RouteRemove   = "remove"
	RouteUsers    = "users"
	RouteCallback = "callback"
	RouteIgnored  = "ignored"
)

var errUsage = errors.New("bad command argument")

// Service маршрутизатор команд бота.
type Service struct {
	repo       Repository
	selections SelectionStore
	messenger  Messenger
	channel    Channel
	settings   Settings
	metrics    *metrics.Metrics
	log        *slog.Logger
	now        func() time.Time
	newID      func() string
}

// NewService создает новый экземпляр Service.
func NewService(repo Repository, selections SelectionStore, messenger Messenger, channel Channel,
	settings Settings, m *metrics.Metrics, log *slog.Logger) *Service {
	if settings.Tiers == nil {
		settings.Tiers = tier.Default
	}
	return &Service{
		repo:       repo,
		selections: selections,
		messenger:  messenger,
		channel:    channel,
		settings:   settings,
		metrics:    m,
		log:        log,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Handle обрабатывает одно входящее событие. Ошибки пользователя отвечаются
// в чат и не возвращаются; возвращаются только сбои платформы и хранилища.
func (s *Service) Handle(ctx context.Context, ev models.Event) error {
	const op = "services.bot.Handle"

	route := s.route(ev)
	s.metrics.Update(route)

	var err error
	switch route {
	case RouteStart:
		err = s.start(ctx, ev)
	case RouteTier:
		err = s.selectTier(ctx, ev)
	case RouteReceipt:
		err = s.receipt(ctx, ev)
	case RouteConfirm, RouteReject, RouteRemove, RouteUsers:
		if !s.isAdmin(ev.SenderID) {
			s.log.Warn("admin command from non-admin", slog.Int64("sender_id", ev.SenderID), slog.String("route", route))
			return nil
		}
		err = s.admin(ctx, route, ev)
	case RouteCallback:
		err = s.callback(ctx, ev)
	default:
		return nil
	}

	if err != nil {
		s.metrics.Failure(route)
		return fmt.Errorf("%s: %s: %w", op, route, err)
	}
	return nil
}

func (s *Service) route(ev models.Event) string {
	switch ev.Kind {
	case models.EventPhoto, models.EventDocument:
		return RouteReceipt
	case models.EventCallback:
		return RouteCallback
	}

	switch ev.Command {
	case "start":
		return RouteStart
	case "confirm":
		return RouteConfirm
	case "reject":
		return RouteReject
	case "remove":
		return RouteRemove
	case "users":
		return RouteUsers
	case "":
		if _, ok := s.settings.Tiers.Match(ev.Text); ok {
			return RouteTier
		}
	}
	return RouteIgnored
}

func (s *Service) isAdmin(userID int64) bool {
	return userID == s.settings.AdminID
}

func (s *Service) admin(ctx context.Context, route string, ev models.Event) error {
	switch route {
	case RouteUsers:
		return s.listUsers(ctx, ev.SenderID)
	case RouteRemove:
		return s.remove(ctx, ev.SenderID, ev.Args)
	}

	arg := firstArg(ev.Args)
	if arg == "" {
		return s.messenger.SendText(ctx, ev.SenderID, usageText(route))
	}
	t, err := s.resolve(ctx, arg)
	if err != nil {
		return s.replyResolveError(ctx, ev.SenderID, route, err)
	}
	if route == RouteConfirm {
		return s.approve(ctx, ev.SenderID, t)
	}
	return s.reject(ctx, ev.SenderID, t)
}

func (s *Service) callback(ctx context.Context, ev models.Event) error {
	if !s.isAdmin(ev.SenderID) {
		s.log.Warn("review callback from non-admin", slog.Int64("sender_id", ev.SenderID))
		return s.messenger.AnswerCallback(ctx, ev.CallbackID, "")
	}

	action, receiptID, _ := strings.Cut(ev.Text, ":")
	var err error
	switch action {
	case models.CallbackConfirm, models.CallbackReject:
		var t target
		t, err = s.resolve(ctx, receiptID)
		switch {
		case err != nil:
			err = s.replyResolveError(ctx, ev.SenderID, action, err)
		case action == models.CallbackConfirm:
			err = s.approve(ctx, ev.SenderID, t)
		default:
			err = s.reject(ctx, ev.SenderID, t)
		}
	default:
		s.log.Debug("unknown callback data", slog.String("data", ev.Text))
	}

	if answerErr := s.messenger.AnswerCallback(ctx, ev.CallbackID, ""); answerErr != nil {
		s.log.Warn("failed to answer callback", sl.Err(answerErr))
	}
	return err
}

// target адресат команды администратора: пользователь и, если известна,
// его квитанция.
type target struct {
	userID  int64
	receipt *models.Receipt
}

// resolve разбирает аргумент команды: ID пользователя или ID квитанции.
func (s *Service) resolve(ctx context.Context, arg string) (target, error) {
	if userID, err := strconv.ParseInt(arg, 10, 64); err == nil {
		r, err := s.repo.LatestSubmittedReceipt(ctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return target{userID: userID}, nil
		}
		if err != nil {
			return target{}, err
		}
		return target{userID: userID, receipt: r}, nil
	}

	if _, err := uuid.Parse(arg); err != nil {
		return target{}, errUsage
	}
	r, err := s.repo.GetReceipt(ctx, arg)
	if err != nil {
		return target{}, err
	}
	return target{userID: r.UserID, receipt: r}, nil
}

func (s *Service) replyResolveError(ctx context.Context, chatID int64, route string, err error) error {
	switch {
	case errors.Is(err, errUsage):
		return s.messenger.SendText(ctx, chatID, usageText(route))
	case errors.Is(err, storage.ErrNotFound):
		return s.messenger.SendText(ctx, chatID, textUserNotFound)
	default:
		return err
	}
}

func firstArg(args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
