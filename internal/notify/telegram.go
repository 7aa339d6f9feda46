package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// messageSender часть *bot.Bot
type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// userLookup часть repository.UserRepository
type userLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// TelegramSink отправляет сообщение каждому адресату события
type TelegramSink struct {
	sender messageSender
	users  userLookup
}

func NewTelegramSink(sender messageSender, users userLookup) *TelegramSink {
	return &TelegramSink{sender: sender, users: users}
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Send(ctx context.Context, event model.Event) error {
	text := RenderEvent(event)
	if text == "" {
		return nil
	}

	var errs []error
	for _, userID := range event.Recipients() {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			errs = append(errs, fmt.Errorf("get user %d: %w", userID, err))
			continue
		}
		// Пользователь без Telegram (создан не через бота) - пропускаем
		if user == nil || user.TelegramID == 0 {
			continue
		}

		_, err = s.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: user.TelegramID,
			Text:   text,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("send to user %d: %w", userID, err))
		}
	}

	return errors.Join(errs...)
}

// RenderEvent текст уведомления для события
func RenderEvent(e model.Event) string {
	when := fmt.Sprintf("📅 %s, %s–%s", e.Range.Date.Time().Format("02.01.2006"), e.Range.Start, e.Range.End)
	subject := e.Subject
	if subject == "" {
		subject = "занятие"
	}

	switch e.Type {
	case model.EventApplicationReceived:
		return fmt.Sprintf("📩 Новая заявка от %s\n📚 %s\n%s", e.StudentName, subject, when)
	case model.EventApplicationAccepted:
		if e.Direct {
			return fmt.Sprintf("🆕 %s записался(ась) на занятие\n📚 %s\n%s", e.StudentName, subject, when)
		}
		return fmt.Sprintf("✅ %s подтвердил(а) запись\n📚 %s\n%s", e.TeacherName, subject, when)
	case model.EventApplicationRejected:
		text := fmt.Sprintf("❌ %s отклонил(а) заявку\n📚 %s\n%s", e.TeacherName, subject, when)
		if e.Reason != "" {
			text += "\n💬 " + e.Reason
		}
		return text
	case model.EventBookingCancelled:
		return fmt.Sprintf("🚫 Запись отменена\n📚 %s\n%s", subject, when)
	case model.EventSlotCancelled:
		text := fmt.Sprintf("🚫 %s отменил(а) занятие\n📚 %s\n%s", e.TeacherName, subject, when)
		if e.Reason != "" && e.Reason != model.ReasonSlotCancelled {
			text += "\n💬 " + e.Reason
		}
		return text
	default:
		return ""
	}
}
