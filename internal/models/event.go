package models

// EventKind тип входящего события.
type EventKind string

const (
	EventText     EventKind = "text"
	EventPhoto    EventKind = "photo"
	EventDocument EventKind = "document"
	EventCallback EventKind = "callback"
)

// Event нормализованное входящее событие Telegram, не зависящее от клиента Bot API.
type Event struct {
	SenderID   int64
	FullName   string
	Username   string
	Kind       EventKind
	Text       string // текст сообщения или data для callback
	Command    string // имя команды без "/", пусто для обычного текста
	Args       string // аргументы команды
	FileID     string // самый большой вариант фото или файл документа
	CallbackID string
}

// Действия в inline-кнопках проверки квитанции.
const (
	CallbackConfirm = "confirm"
	CallbackReject  = "reject"
)

// CallbackData формирует data inline-кнопки вида "confirm:<receipt_id>".
func CallbackData(action, receiptID string) string {
	return action + ":" + receiptID
}
