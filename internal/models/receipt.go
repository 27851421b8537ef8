package models

import "time"

// ReceiptStatus статус проверки квитанции.
type ReceiptStatus string

const (
	ReceiptSubmitted ReceiptStatus = "submitted"
	ReceiptApproved  ReceiptStatus = "approved"
	ReceiptRejected  ReceiptStatus = "rejected"
)

// ReceiptKind тип загруженного файла.
type ReceiptKind string

const (
	ReceiptPhoto    ReceiptKind = "photo"
	ReceiptDocument ReceiptKind = "document"
)

// Receipt заявка на проверку оплаты. Переходы статуса возможны только
// из submitted в approved или rejected.
type Receipt struct {
	ID         string
	UserID     int64
	Tier       string
	FileID     string
	Kind       ReceiptKind
	Status     ReceiptStatus
	CreatedAt  time.Time
	ReviewedAt *time.Time
}
