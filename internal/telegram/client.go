// Package telegram адаптер над Bot API: отправка сообщений и файлов,
// проверка членства и управление доступом к премиум-каналу.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/magabrotheeeer/premium-gate-bot/internal/models"
)

// inviteLinkTTL срок жизни одноразовой ссылки-приглашения.
const inviteLinkTTL = 24 * time.Hour

// Client отправляет сообщения и управляет участниками канала groupID.
// Повторов и таймаутов нет: ошибка Bot API возвращается вызывающему.
type Client struct {
	api     *tgbotapi.BotAPI
	groupID int64
	log     *slog.Logger
}

// New авторизует бота с токеном token.
func New(token string, groupID int64, log *slog.Logger) (*Client, error) {
	return NewWithEndpoint(token, tgbotapi.APIEndpoint, nil, groupID, log)
}

// NewWithEndpoint создаёт клиента с произвольным endpoint Bot API
// (формат "https://host/bot%s/%s") и http-клиентом.
func NewWithEndpoint(token, endpoint string, httpClient tgbotapi.HTTPClient, groupID int64, log *slog.Logger) (*Client, error) {
	const op = "telegram.New"

	var (
		api *tgbotapi.BotAPI
		err error
	)
	if httpClient == nil {
		api, err = tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	} else {
		api, err = tgbotapi.NewBotAPIWithClient(token, endpoint, httpClient)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("authorized on telegram", slog.String("username", api.Self.UserName))

	return &Client{
		api:     api,
		groupID: groupID,
		log:     log,
	}, nil
}

// SetWebhook регистрирует URL, на который Telegram будет присылать обновления.
// secret приходит в каждом запросе в заголовке X-Telegram-Bot-Api-Secret-Token.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	const op = "telegram.SetWebhook"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	if _, err := c.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SendText отправляет обычное текстовое сообщение.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	const op = "telegram.SendText"
	return c.send(ctx, op, tgbotapi.NewMessage(chatID, text))
}

// SendMenu отправляет сообщение в Markdown с клавиатурой: по одной кнопке в ряд.
func (c *Client) SendMenu(ctx context.Context, chatID int64, text string, buttons []string) error {
	const op = "telegram.SendMenu"

	rows := make([][]tgbotapi.KeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(b)))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = kb
	return c.send(ctx, op, msg)
}

// SendReviewRequest отправляет администратору подсказку с командами и
// inline-кнопками подтверждения и отказа для квитанции receiptID.
func (c *Client) SendReviewRequest(ctx context.Context, chatID int64, text, receiptID string) error {
	const op = "telegram.SendReviewRequest"

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅", models.CallbackData(models.CallbackConfirm, receiptID)),
			tgbotapi.NewInlineKeyboardButtonData("❌", models.CallbackData(models.CallbackReject, receiptID)),
		),
	)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	return c.send(ctx, op, msg)
}

// SendReceipt пересылает квитанцию: фото по ссылке файлового API,
// документ по file_id.
func (c *Client) SendReceipt(ctx context.Context, chatID int64, r models.Receipt, fileURL string) error {
	const op = "telegram.SendReceipt"

	switch r.Kind {
	case models.ReceiptPhoto:
		return c.send(ctx, op, tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(fileURL)))
	case models.ReceiptDocument:
		return c.send(ctx, op, tgbotapi.NewDocument(chatID, tgbotapi.FileID(r.FileID)))
	default:
		return fmt.Errorf("%s: unknown receipt kind %q", op, r.Kind)
	}
}

// FileURL возвращает ссылку на скачивание файла через файловый API.
func (c *Client) FileURL(ctx context.Context, fileID string) (string, error) {
	const op = "telegram.FileURL"
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	link, err := c.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return link, nil
}

// AnswerCallback подтверждает получение callback-запроса.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	const op = "telegram.AnswerCallback"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := c.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IsMember проверяет, состоит ли пользователь в канале.
func (c *Client) IsMember(ctx context.Context, userID int64) (bool, error) {
	const op = "telegram.IsMember"
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: c.groupID, UserID: userID},
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	switch member.Status {
	case "creator", "administrator", "member":
		return true, nil
	default:
		return false, nil
	}
}

// Grant открывает пользователю доступ в канал: снимает возможный бан и
// создаёт одноразовую ссылку-приглашение. Возвращает ссылку.
func (c *Client) Grant(ctx context.Context, userID int64) (string, error) {
	const op = "telegram.Grant"
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	unban := tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: c.groupID, UserID: userID},
		OnlyIfBanned:     true,
	}
	if _, err := c.api.Request(unban); err != nil {
		return "", fmt.Errorf("%s: unban: %w", op, err)
	}

	resp, err := c.api.Request(tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: c.groupID},
		Name:        fmt.Sprintf("user %d", userID),
		ExpireDate:  int(time.Now().Add(inviteLinkTTL).Unix()),
		MemberLimit: 1,
	})
	if err != nil {
		return "", fmt.Errorf("%s: invite link: %w", op, err)
	}
	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return link.InviteLink, nil
}

// Revoke исключает пользователя из канала без постоянного бана:
// бан и сразу разбан.
func (c *Client) Revoke(ctx context.Context, userID int64) error {
	const op = "telegram.Revoke"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	member := tgbotapi.ChatMemberConfig{ChatID: c.groupID, UserID: userID}
	if _, err := c.api.Request(tgbotapi.BanChatMemberConfig{ChatMemberConfig: member}); err != nil {
		return fmt.Errorf("%s: ban: %w", op, err)
	}
	if _, err := c.api.Request(tgbotapi.UnbanChatMemberConfig{ChatMemberConfig: member}); err != nil {
		return fmt.Errorf("%s: unban: %w", op, err)
	}
	return nil
}

// IsPermanent сообщает, что Bot API отклонит запрос и при повторе:
// неверный запрос (400) или бот заблокирован пользователем (403).
func IsPermanent(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusBadRequest || apiErr.Code == http.StatusForbidden
}

func (c *Client) send(ctx context.Context, op string, msg tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
