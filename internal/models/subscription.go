package models

import "time"

// Subscription описывает активную подписку пользователя.
// Цена не хранится: она однозначно определяется тарифом.
type Subscription struct {
	UserID     int64     // Владелец подписки
	Tier       string    // Метка тарифа, например "3 Oy"
	ExpireDate time.Time // Дата окончания
	CreatedAt  time.Time // Дата подтверждения администратором
}

// Subscriber объединяет подписку с данными пользователя для вывода списков и напоминаний.
type Subscriber struct {
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	FullName   string    `json:"full_name"`
	Tier       string    `json:"tier"`
	ExpireDate time.Time `json:"expire_date"`
}
