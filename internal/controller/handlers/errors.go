package handlers

import (
	"errors"

	"github.com/Freeeeeet/tutor_slots/internal/model"
)

// errorMessage возвращает пользовательское сообщение для ошибки
func errorMessage(err error) string {
	switch {
	case errors.Is(err, errBadArgs):
		return "❌ Неверный формат команды. Примеры: /help"
	case errors.Is(err, model.ErrInvalidRange):
		return "❌ Неверное время: конец должен быть позже начала, а занятие в будущем"
	case errors.Is(err, model.ErrInvalidCapacity):
		return "❌ Количество мест должно быть не меньше 1"
	case errors.Is(err, model.ErrInvalidPricing):
		return "❌ Для платного занятия укажите цену больше нуля"
	case errors.Is(err, model.ErrSlotConflict):
		return "❌ Это время пересекается с другим вашим занятием"
	case errors.Is(err, model.ErrSlotLocked):
		return "❌ На слот уже есть заявки, время и количество мест менять нельзя"
	case errors.Is(err, model.ErrSlotFull):
		return "❌ Свободных мест нет"
	case errors.Is(err, model.ErrSlotNotAvailable):
		return "❌ Запись на это занятие закрыта"
	case errors.Is(err, model.ErrSlotCancelled):
		return "❌ Занятие отменено"
	case errors.Is(err, model.ErrSlotNotDeletable):
		return "❌ По слоту были заявки, его можно только отменить: /cancelslot"
	case errors.Is(err, model.ErrDuplicateApplication):
		return "❌ Вы уже записаны или ожидаете решения по этому занятию"
	case errors.Is(err, model.ErrAlreadyDecided):
		return "❌ По заявке уже принято решение"
	case errors.Is(err, model.ErrNotFound):
		return "❌ Не найдено"
	case errors.Is(err, model.ErrForbidden):
		return "❌ Нет доступа"
	default:
		return "❌ Произошла ошибка. Попробуйте позже."
	}
}
