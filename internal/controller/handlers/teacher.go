package handlers

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/tutor_slots/internal/controller/weekimage"
	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleNewSlot обрабатывает команду /newslot
func (h *Handlers) HandleNewSlot(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}

	in, err := parseSlotInput(parseCommand(update.Message.Text))
	if h.failed(ctx, b, update, "create slot", err) {
		return
	}

	slot, err := h.slotService.CreateSlot(ctx, model.Teacher(user.ID), in)
	if h.failed(ctx, b, update, "create slot", err) {
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Слот создан\n\n"+formatSlot(slot, ""))
}

// HandleRecurring обрабатывает команду /recurring
func (h *Handlers) HandleRecurring(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}

	tpl, err := parseTemplate(parseCommand(update.Message.Text))
	if h.failed(ctx, b, update, "create recurring", err) {
		return
	}

	result, err := h.recurrenceService.CreateRecurring(ctx, model.Teacher(user.ID), tpl)
	if h.failed(ctx, b, update, "create recurring", err) {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔁 Создано слотов: %d\nГруппа: %s\n", len(result.Created), result.GroupID)
	if len(result.Skipped) > 0 {
		fmt.Fprintf(&sb, "\n⚠️ Пропущено: %d\n", len(result.Skipped))
		for _, s := range result.Skipped {
			sb.WriteString("• " + formatRange(s.Range) + ": " + errorMessage(s.Err) + "\n")
		}
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, sb.String())
}

// HandleMySlots обрабатывает команду /myslots: предстоящие слоты учителя
func (h *Handlers) HandleMySlots(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}

	today := model.DateOf(h.now())
	slots, err := h.slotService.ListTeacherSlots(ctx, model.Teacher(user.ID), today, model.Date{})
	if h.failed(ctx, b, update, "list teacher slots", err) {
		return
	}

	if len(slots) == 0 {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "📭 Предстоящих слотов нет.\n\nСоздать: /newslot")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🗓 Моё расписание (%d)\n", len(slots))
	for _, slot := range slots {
		sb.WriteString("\n" + formatSlot(slot, "") + "\n")
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, sb.String())
}

// HandleWeek обрабатывает команду /week [дата]: картинка недели со слотами учителя
func (h *Handlers) HandleWeek(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}

	now := h.now()
	day := model.DateOf(now)
	if arg := parseCommand(update.Message.Text).arg(0); arg != "" {
		d, err := model.ParseDate(arg)
		if err != nil {
			h.failed(ctx, b, update, "week image", fmt.Errorf("%w: %v", errBadArgs, err))
			return
		}
		day = d
	}

	monday := weekimage.WeekStart(day)
	slots, err := h.slotService.ListTeacherSlots(ctx, model.Teacher(user.ID), monday, monday.AddDays(6))
	if h.failed(ctx, b, update, "week image", err) {
		return
	}

	data, err := weekimage.Render(day, slots, now)
	if err != nil {
		h.logger.Error("Failed to render week image", zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Не удалось построить расписание")
		return
	}

	_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  update.Message.Chat.ID,
		Photo:   &models.InputFileUpload{Filename: "week.png", Data: bytes.NewReader(data)},
		Caption: fmt.Sprintf("🗓 Неделя с %s, слотов: %d", monday.Time().Format("02.01.2006"), len(slots)),
	})
	if err != nil {
		h.logger.Error("Failed to send week image", zap.Int64("chat_id", update.Message.Chat.ID), zap.Error(err))
	}
}

// HandleApplications обрабатывает команду /applications
func (h *Handlers) HandleApplications(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}

	slotID, err := parseID(parseCommand(update.Message.Text).arg(0))
	if h.failed(ctx, b, update, "list slot applications", err) {
		return
	}

	apps, err := h.bookingService.ListSlotApplications(ctx, model.Teacher(user.ID), slotID)
	if h.failed(ctx, b, update, "list slot applications", err) {
		return
	}

	if len(apps) == 0 {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "📭 Заявок нет")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Заявки (%d)\n", len(apps))
	for _, app := range apps {
		student, err := h.userService.GetByID(ctx, app.StudentID)
		if err != nil {
			h.logger.Warn("Failed to get student", zap.Int64("student_id", app.StudentID), zap.Error(err))
		}
		sb.WriteString("\n👤 " + student.DisplayName() + "\n" + formatApplication(app) + "\n")
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, sb.String())
}

// HandleAccept обрабатывает команду /accept
func (h *Handlers) HandleAccept(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}

	appID, err := parseID(parseCommand(update.Message.Text).arg(0))
	if h.failed(ctx, b, update, "accept application", err) {
		return
	}

	app, err := h.bookingService.Accept(ctx, model.Teacher(user.ID), appID)
	if h.failed(ctx, b, update, "accept application", err) {
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Заявка принята\n\n"+formatApplication(app))
}

// HandleReject обрабатывает команду /reject
func (h *Handlers) HandleReject(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}

	cmd := parseCommand(update.Message.Text)
	appID, err := parseID(cmd.arg(0))
	if h.failed(ctx, b, update, "reject application", err) {
		return
	}

	app, err := h.bookingService.Reject(ctx, model.Teacher(user.ID), appID, cmd.text(1))
	if h.failed(ctx, b, update, "reject application", err) {
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, "🚫 Заявка отклонена\n\n"+formatApplication(app))
}

// HandleCancelSlot обрабатывает команду /cancelslot
func (h *Handlers) HandleCancelSlot(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}

	cmd := parseCommand(update.Message.Text)
	slotID, err := parseID(cmd.arg(0))
	if h.failed(ctx, b, update, "cancel slot", err) {
		return
	}

	slot, err := h.slotService.CancelSlot(ctx, model.Teacher(user.ID), slotID, cmd.text(1))
	if h.failed(ctx, b, update, "cancel slot", err) {
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID,
		"⚫️ Слот отменён, записанные студенты получат уведомление\n\n"+formatSlot(slot, ""))
}

// HandleCancelGroup обрабатывает команду /cancelgroup
func (h *Handlers) HandleCancelGroup(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}

	cmd := parseCommand(update.Message.Text)
	groupID, err := parseID(cmd.arg(0))
	if h.failed(ctx, b, update, "cancel group", err) {
		return
	}

	// без даты отменяются все будущие слоты группы
	from := model.DateOf(h.now())
	reasonFrom := 1
	if d, err := model.ParseDate(cmd.arg(1)); err == nil {
		from = d
		reasonFrom = 2
	}

	n, err := h.slotService.CancelGroup(ctx, model.Teacher(user.ID), groupID, from, cmd.text(reasonFrom))
	if h.failed(ctx, b, update, "cancel group", err) {
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, fmt.Sprintf("⚫️ Отменено слотов: %d", n))
}

// HandleDeleteSlot обрабатывает команду /deleteslot
func (h *Handlers) HandleDeleteSlot(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}

	slotID, err := parseID(parseCommand(update.Message.Text).arg(0))
	if h.failed(ctx, b, update, "delete slot", err) {
		return
	}

	err = h.slotService.DeleteSlot(ctx, model.Teacher(user.ID), slotID)
	if h.failed(ctx, b, update, "delete slot", err) {
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, "🗑 Слот удалён")
}
