package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/premium-gate-bot/internal/models"
)

const dateLayout = "2006-01-02 15:04"

const (
	textAlreadySubscribed = "✅ Siz premium obunaga allaqachon qo‘shilgansiz!"
	textTierSelected      = "✅ Siz %s muddatli obunani tanladingiz.\n" +
		"💵 To‘lov summasi: %d so‘m\n" +
		"🧾 Endi to‘lov kvitansiyasini rasm yoki PDF ko‘rinishida yuboring."
	textSelectTierFirst = "❌ Avval obuna muddatini tanlang."
	textNewReceipt      = "🧾 Yangi kvitansiya!\n👤 %s (%d)\n📅 Obuna: %s\n💵 Summa: %d so‘m\nTasdiqlaysizmi?"
	textReviewHint      = "/confirm %d ✅\n/reject %d ❌"
	textReceiptSent     = "✅ To‘lov kvitansiyasi yuborildi. Admin tasdiqlashini kuting."
	textUserNotFound    = "❌ Foydalanuvchi topilmadi."
	textAlreadyReviewed = "ℹ️ Bu kvitansiya allaqachon ko‘rib chiqilgan."
	textConfirmedAdmin  = "✅ %d foydalanuvchi %s muddatga qo‘shildi.\n📅 Tugash: %s"
	textConfirmedUser   = "🎉 Siz premium obunaga qo‘shildingiz!\n🔗 Kanalga kirish: %s\n📅 Tugash: %s"
	textRejectedUser    = "❌ To‘lov kvitansiyangiz rad etildi."
	textRejectedAdmin   = "⛔ %d foydalanuvchining so‘rovi rad etildi."
	textRemovedAdmin    = "❌ %d foydalanuvchi obunadan chiqarildi."
	textRemovedUser     = "❌ Siz premium obunadan chiqarildingiz."
	textNoSubscribers   = "👥 Hech qanday foydalanuvchi obuna bo‘lmagan."
)

func usageText(route string) string {
	return fmt.Sprintf("❌ User ID-ni kiriting: /%s USER_ID", route)
}

func startText(settings Settings) string {
	var b strings.Builder
	b.WriteString("👋 Salom! Premium kanalga kirish uchun to‘lov qilishingiz kerak.\n\n")
	if settings.Card != "" {
		fmt.Fprintf(&b, "💳 *Karta*: %s\n", settings.Card)
	}
	if settings.CardOwner != "" {
		fmt.Fprintf(&b, "👤 Egasi: %s\n", settings.CardOwner)
	}
	if settings.Card != "" || settings.CardOwner != "" {
		b.WriteString("\n")
	}
	b.WriteString("✅ Pastdagi obunalardan birini tanlab to‘lov qilib, chekni yuboring.\n")
	b.WriteString("Admin tekshiradi va tasdiqlasa sizga kanal linki keladi.")
	return b.String()
}

func subscribersText(subs []*models.Subscriber) string {
	if len(subs) == 0 {
		return textNoSubscribers
	}
	var b strings.Builder
	b.WriteString("📜 Obunachilar:\n")
	for _, sub := range subs {
		username := sub.Username
		if username == "" {
			username = "-"
		}
		fmt.Fprintf(&b, "👤 ID: %d, Username: %s\n📅 Tugash: %s\n\n", sub.UserID, username, formatDate(sub.ExpireDate))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}
