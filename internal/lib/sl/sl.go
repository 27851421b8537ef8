// Package sl вспомогательные атрибуты для логгера slog.
package sl

import "log/slog"

// Err атрибут "error" с текстом ошибки. Для nil пишет пустую строку.
//
//	log.Error("failed to send message", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// UserID атрибут "user_id" с Telegram ID пользователя.
func UserID(id int64) slog.Attr {
	return slog.Int64("user_id", id)
}
