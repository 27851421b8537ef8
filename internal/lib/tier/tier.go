// Package tier описывает фиксированную таблицу тарифов премиум-подписки
// и арифметику срока действия.
package tier

import (
	"fmt"
	"strings"
	"time"
)

// DaysPerMonth длина "месяца" подписки в днях.
const DaysPerMonth = 30

// Tier тариф: срок в месяцах и цена в сумах.
type Tier struct {
	Months int
	Label  string
	Price  int
}

// Table упорядоченный набор тарифов.
type Table []Tier

// Default тарифы премиум-канала.
var Default = Table{
	{Months: 1, Label: "1 Oy", Price: 20000},
	{Months: 3, Label: "3 Oy", Price: 55000},
	{Months: 6, Label: "6 Oy", Price: 110000},
	{Months: 12, Label: "12 Oy", Price: 200000},
}

// Duration срок действия тарифа: ровно 30 суток на месяц.
func (t Tier) Duration() time.Duration {
	return time.Duration(DaysPerMonth*t.Months) * 24 * time.Hour
}

// ExpiresAt дата окончания подписки, оформленной в момент from.
func (t Tier) ExpiresAt(from time.Time) time.Time {
	return from.Add(t.Duration())
}

// Button текст кнопки клавиатуры для тарифа.
func (t Tier) Button() string {
	return fmt.Sprintf("💳 %s - %d so‘m", t.Label, t.Price)
}

// Buttons тексты кнопок всех тарифов в порядке таблицы.
func (tb Table) Buttons() []string {
	buttons := make([]string, 0, len(tb))
	for _, t := range tb {
		buttons = append(buttons, t.Button())
	}
	return buttons
}

// ByLabel ищет тариф по метке, например "3 Oy".
func (tb Table) ByLabel(label string) (Tier, bool) {
	for _, t := range tb {
		if t.Label == label {
			return t, true
		}
	}
	return Tier{}, false
}

// Match распознаёт выбор тарифа в тексте сообщения: принимается как сама
// метка, так и текст кнопки.
func (tb Table) Match(text string) (Tier, bool) {
	text = strings.TrimSpace(text)
	for _, t := range tb {
		if text == t.Label || text == t.Button() {
			return t, true
		}
	}
	return Tier{}, false
}
