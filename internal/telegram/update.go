package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/magabrotheeeer/premium-gate-bot/internal/models"
)

// EventFromUpdate приводит обновление Bot API к models.Event.
// ok=false для обновлений, которые бот не обрабатывает.
func EventFromUpdate(u tgbotapi.Update) (models.Event, bool) {
	switch {
	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		if q.From == nil {
			return models.Event{}, false
		}
		ev := fromUser(q.From)
		ev.Kind = models.EventCallback
		ev.Text = q.Data
		ev.CallbackID = q.ID
		return ev, true

	case u.Message != nil:
		m := u.Message
		if m.From == nil {
			return models.Event{}, false
		}
		ev := fromUser(m.From)
		switch {
		case len(m.Photo) > 0:
			ev.Kind = models.EventPhoto
			ev.FileID = m.Photo[len(m.Photo)-1].FileID
			ev.Text = m.Caption
		case m.Document != nil:
			ev.Kind = models.EventDocument
			ev.FileID = m.Document.FileID
			ev.Text = m.Caption
		default:
			ev.Kind = models.EventText
			ev.Text = m.Text
			if m.IsCommand() {
				ev.Command = m.Command()
				ev.Args = strings.TrimSpace(m.CommandArguments())
			}
		}
		return ev, true
	}
	return models.Event{}, false
}

func fromUser(u *tgbotapi.User) models.Event {
	return models.Event{
		SenderID: u.ID,
		FullName: strings.TrimSpace(u.FirstName + " " + u.LastName),
		Username: u.UserName,
	}
}
