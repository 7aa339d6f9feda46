package handlers

import (
	"fmt"
	"strings"

	"github.com/Freeeeeet/tutor_slots/internal/model"
)

// formatPrice форматирует цену из копеек в рубли без нулевых копеек
func formatPrice(p model.Pricing) string {
	if !p.IsPaid {
		return "бесплатно"
	}
	if p.Price%100 == 0 {
		return fmt.Sprintf("%d ₽", p.Price/100)
	}
	return fmt.Sprintf("%.2f ₽", float64(p.Price)/100)
}

var weekdayShort = [...]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}

// formatRange: "Пн 10.03.2025, 14:00–15:00"
func formatRange(r model.TimeRange) string {
	return fmt.Sprintf("%s %s, %s–%s",
		weekdayShort[r.Date.Weekday()],
		r.Date.Time().Format("02.01.2006"),
		r.Start, r.End,
	)
}

var slotStatusEmoji = map[model.SlotStatus]string{
	model.SlotStatusAvailable: "🟢",
	model.SlotStatusBooked:    "🔴",
	model.SlotStatusCompleted: "✔️",
	model.SlotStatusCancelled: "⚫️",
}

var applicationStatusText = map[model.ApplicationStatus]string{
	model.ApplicationStatusPending:   "⏳ Ожидает решения",
	model.ApplicationStatusAccepted:  "✅ Принята",
	model.ApplicationStatusRejected:  "🚫 Отклонена",
	model.ApplicationStatusCancelled: "❌ Отменена",
}

func formatSlot(slot *model.Slot, teacherName string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %s\n", slotStatusEmoji[slot.Status], formatRange(slot.Range))

	subject := slot.Metadata.Subject
	if subject == "" {
		subject = "Занятие"
	}
	sb.WriteString("📚 " + subject)
	if slot.Metadata.Level != "" {
		sb.WriteString(" (" + slot.Metadata.Level + ")")
	}
	sb.WriteString("\n")

	if teacherName != "" {
		sb.WriteString("👨‍🏫 " + teacherName + "\n")
	}

	fmt.Fprintf(&sb, "👥 %d/%d · 💰 %s", len(slot.EnrolledStudents), slot.MaxStudents, formatPrice(slot.Pricing))
	if !slot.Metadata.IsPublic {
		sb.WriteString(" · 🔒")
	}
	sb.WriteString("\n")

	if slot.Metadata.Description != "" {
		sb.WriteString(slot.Metadata.Description + "\n")
	}

	sb.WriteString("ID: " + slot.ID.String())
	return sb.String()
}

func formatApplication(app *model.Application) string {
	var sb strings.Builder

	status, ok := applicationStatusText[app.Status]
	if !ok {
		status = string(app.Status)
	}
	sb.WriteString(status)
	if app.Direct {
		sb.WriteString(" · прямая запись")
	}
	sb.WriteString("\n")

	if app.Message != "" {
		sb.WriteString("💬 " + app.Message + "\n")
	}
	if app.Reason != "" && app.Reason != model.ReasonSlotCancelled {
		sb.WriteString("Причина: " + app.Reason + "\n")
	}

	fmt.Fprintf(&sb, "Слот: %s\nID: %s", app.SlotID, app.ID)
	return sb.String()
}
