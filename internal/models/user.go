// Package models содержит доменные структуры бота: пользователя Telegram,
// его подписку на премиум-канал и квитанцию об оплате, ожидающую проверки.
package models

import "time"

// User представляет пользователя Telegram, который хотя бы раз обращался к боту.
type User struct {
	ID        int64     // Идентификатор пользователя в Telegram
	FullName  string    // Отображаемое имя
	Username  string    // @username, может быть пустым
	CreatedAt time.Time // Дата первого обращения
}
