package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// slotsPageSize сколько слотов показывать в одном ответе /slots
const slotsPageSize = 10

// HandleSlots обрабатывает команду /slots
func (h *Handlers) HandleSlots(ctx context.Context, b *bot.Bot, update *models.Update) {
	if _, ok := h.requireUser(ctx, b, update); !ok {
		return
	}

	filter, err := parseFilter(parseCommand(update.Message.Text))
	if h.failed(ctx, b, update, "find slots", err) {
		return
	}

	var sb strings.Builder
	sb.WriteString("🗓 Свободные занятия\n")

	n := 0
	for listing, err := range h.queryService.FindAvailable(ctx, filter) {
		if h.failed(ctx, b, update, "find slots", err) {
			return
		}
		sb.WriteString("\n" + formatSlot(listing.Slot, listing.TeacherName) + "\n")
		n++
		if n == slotsPageSize {
			sb.WriteString("\nПоказаны первые результаты, уточните фильтр.")
			break
		}
	}

	if n == 0 {
		sb.WriteString("\nНичего не найдено. Попробуйте изменить фильтр.")
	} else {
		sb.WriteString("\nЗаписаться: /book <ID> или /apply <ID> [сообщение]")
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, sb.String())
}

// HandleBook обрабатывает команду /book
func (h *Handlers) HandleBook(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	slotID, err := parseID(parseCommand(update.Message.Text).arg(0))
	if h.failed(ctx, b, update, "direct book", err) {
		return
	}

	app, err := h.bookingService.DirectBook(ctx, model.Student(user.ID), slotID)
	if h.failed(ctx, b, update, "direct book", err) {
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Вы записаны!\n\n"+formatApplication(app))
}

// HandleApply обрабатывает команду /apply
func (h *Handlers) HandleApply(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	cmd := parseCommand(update.Message.Text)
	slotID, err := parseID(cmd.arg(0))
	if h.failed(ctx, b, update, "apply", err) {
		return
	}

	app, err := h.bookingService.Apply(ctx, model.Student(user.ID), slotID, cmd.text(1))
	if h.failed(ctx, b, update, "apply", err) {
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID,
		"📨 Заявка отправлена учителю. Мы сообщим о решении.\n\n"+formatApplication(app))
}

// HandleCancel обрабатывает команду /cancel.
// Заявку может отменить её студент или учитель слота.
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	cmd := parseCommand(update.Message.Text)
	appID, err := parseID(cmd.arg(0))
	if h.failed(ctx, b, update, "cancel application", err) {
		return
	}

	reason := cmd.text(1)
	app, err := h.bookingService.Cancel(ctx, model.Student(user.ID), appID, reason)
	if errors.Is(err, model.ErrForbidden) && user.IsTeacher {
		app, err = h.bookingService.Cancel(ctx, model.Teacher(user.ID), appID, reason)
	}
	if h.failed(ctx, b, update, "cancel application", err) {
		return
	}

	h.logger.Info("Application cancelled via bot",
		zap.String("application_id", app.ID.String()),
		zap.Int64("user_id", user.ID),
	)
	h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Заявка отменена\n\n"+formatApplication(app))
}

// HandleMyApplications обрабатывает команду /myapplications
func (h *Handlers) HandleMyApplications(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	apps, err := h.bookingService.ListStudentApplications(ctx, model.Student(user.ID))
	if h.failed(ctx, b, update, "list applications", err) {
		return
	}

	if len(apps) == 0 {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "📭 У вас пока нет заявок.\n\nНайти занятие: /slots")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Мои заявки (%d)\n", len(apps))
	for _, app := range apps {
		sb.WriteString("\n" + formatApplication(app) + "\n")
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, sb.String())
}
