package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const helpText = "📚 Справка по командам:\n\n" +
	"Для студентов:\n" +
	"/slots [subject=S] [level=L] [date=ГГГГ-ММ-ДД] [price=free|0-20|20-50|50+] [текст] - Свободные занятия\n" +
	"/book <слот> - Записаться сразу\n" +
	"/apply <слот> [сообщение] - Подать заявку учителю\n" +
	"/cancel <заявка> [причина] - Отменить заявку или запись\n" +
	"/myapplications - Мои заявки\n\n" +
	"Для учителей:\n" +
	"/becometeacher - Стать учителем\n" +
	"/newslot ГГГГ-ММ-ДД ЧЧ:ММ-ЧЧ:ММ [max=N] [price=Р] [subject=S] [level=L] [public=false] [описание]\n" +
	"/recurring ГГГГ-ММ-ДД ЧЧ:ММ-ЧЧ:ММ days=пн,ср [weeks=N] [max=N] [price=Р] [subject=S]\n" +
	"/myslots - Мои слоты\n" +
	"/week [ГГГГ-ММ-ДД] - Неделя картинкой\n" +
	"/applications <слот> - Заявки на слот\n" +
	"/accept <заявка>, /reject <заявка> [причина]\n" +
	"/cancelslot <слот> [причина], /deleteslot <слот>\n" +
	"/cancelgroup <группа> [с ГГГГ-ММ-ДД] [причина]\n\n" +
	"В названии предмета вместо пробелов используйте _"

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	user := update.Message.From

	// Регистрируем пользователя
	registeredUser, err := h.userService.RegisterUser(
		ctx,
		user.ID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.LanguageCode,
	)
	if err != nil {
		h.logger.Error("Failed to register user", zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка при регистрации. Попробуйте позже.")
		return
	}

	welcomeText := fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Здесь можно найти занятие и записаться к учителю.\n\n"+
			"/slots - Свободные занятия\n"+
			"/myapplications - Мои заявки\n"+
			"/becometeacher - Стать учителем\n"+
			"/help - Справка",
		registeredUser.DisplayName(),
	)

	h.sendMessage(ctx, b, update.Message.Chat.ID, welcomeText)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText)
}

// HandleBecomeTeacher обрабатывает команду /becometeacher
func (h *Handlers) HandleBecomeTeacher(ctx context.Context, b *bot.Bot, update *models.Update) {
	if _, ok := h.requireUser(ctx, b, update); !ok {
		return
	}

	_, err := h.userService.BecomeTeacher(ctx, update.Message.From.ID)
	if h.failed(ctx, b, update, "become teacher", err) {
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID,
		"🎓 Теперь вы учитель!\n\nСоздайте первый слот: /newslot\nСправка: /help")
}
