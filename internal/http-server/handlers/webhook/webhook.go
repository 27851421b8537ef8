// Package webhook принимает обновления Telegram и передаёт их маршрутизатору.
package webhook

import (
	"context"
	"crypto/hmac"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/magabrotheeeer/premium-gate-bot/internal/http-server/response"
	"github.com/magabrotheeeer/premium-gate-bot/internal/lib/sl"
	"github.com/magabrotheeeer/premium-gate-bot/internal/models"
	"github.com/magabrotheeeer/premium-gate-bot/internal/telegram"
)

// SecretHeader заголовок, в котором Telegram передаёт secret_token,
// заданный при регистрации вебхука.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

type Dispatcher interface {
	Handle(ctx context.Context, ev models.Event) error
}

// SenderLimiter ограничение частоты обновлений от одного пользователя.
type SenderLimiter interface {
	Allow(ctx context.Context, senderID int64) (bool, error)
}

type Handler struct {
	log        *slog.Logger
	dispatcher Dispatcher
	limiter    SenderLimiter
	secret     string // secret_token вебхука
}

// New создаёт обработчик вебхука. limiter может быть nil.
func New(log *slog.Logger, dispatcher Dispatcher, limiter SenderLimiter, secret string) *Handler {
	return &Handler{
		log:        log,
		dispatcher: dispatcher,
		limiter:    limiter,
		secret:     secret,
	}
}

func (h *Handler) authorized(r *http.Request) bool {
	token := r.Header.Get(SecretHeader)
	if token == "" || h.secret == "" {
		return false
	}
	return hmac.Equal([]byte(token), []byte(h.secret))
}

// ServeHTTP отвечает 401 на запрос без верного secret_token, иначе 200 на
// любое разобранное обновление, даже если обработка завершилась ошибкой:
// Telegram не должен повторять доставку.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if !h.authorized(r) {
		log.Warn("webhook request with invalid secret token", slog.String("remote_addr", r.RemoteAddr))
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var update tgbotapi.Update
	if err := render.DecodeJSON(r.Body, &update); err != nil {
		log.Error("failed to decode update", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	ev, ok := telegram.EventFromUpdate(update)
	if !ok {
		log.Debug("update skipped", slog.Int("update_id", update.UpdateID))
		render.JSON(w, r, response.OK())
		return
	}

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(r.Context(), ev.SenderID)
		if err != nil {
			log.Warn("sender limiter failed, update passed", sl.Err(err))
		} else if !allowed {
			log.Warn("update dropped by sender limit", sl.UserID(ev.SenderID))
			render.JSON(w, r, response.OK())
			return
		}
	}

	if err := h.dispatcher.Handle(r.Context(), ev); err != nil {
		log.Error("failed to handle update",
			slog.Int("update_id", update.UpdateID), sl.UserID(ev.SenderID), sl.Err(err))
	}
	render.JSON(w, r, response.OK())
}
