// Package service ядро записи на занятия: слоты, заявки, регулярное расписание и поиск.
// Все изменения одного слота идут через repository.Store.Atomic, уведомления и оплата
// запускаются только после коммита.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/Freeeeeet/tutor_slots/internal/payment"
	"github.com/Freeeeeet/tutor_slots/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier принимает события ядра, доставка асинхронная (notify.Dispatcher)
type Notifier interface {
	Notify(ctx context.Context, event model.Event) error
}

type options struct {
	now func() time.Time
	loc *time.Location
}

type Option func(*options)

// WithClock подменяет часы, используется в тестах
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLocation часовой пояс, в котором сравниваются дата и время слотов
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

func newOptions(opts []Option) options {
	o := options{now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Now текущее время в настроенном поясе
func (o options) Now() time.Time {
	return o.now().In(o.loc)
}

// effects побочные эффекты после коммита. Ошибки не откатывают операцию,
// а возвращаются как *model.SideEffectError.
type effects struct {
	notifier Notifier
	payments payment.Requester
	users    repository.UserRepository
	logger   *zap.Logger
}

func (e *effects) emit(ctx context.Context, events ...model.Event) error {
	if e.notifier == nil {
		return nil
	}

	var errs []error
	for _, event := range events {
		if err := e.notifier.Notify(ctx, event); err != nil {
			e.logger.Warn("Failed to enqueue event",
				zap.String("event", string(event.Type)),
				zap.String("slot_id", event.SlotID.String()),
				zap.Error(err),
			)
			errs = append(errs, &model.SideEffectError{Effect: "notify " + string(event.Type), Err: err})
		}
	}
	return errors.Join(errs...)
}

// requestPayment передаёт оплату за принятую заявку на платный слот
func (e *effects) requestPayment(ctx context.Context, slot *model.Slot, app *model.Application) error {
	if e.payments == nil || !slot.Pricing.IsPaid {
		return nil
	}

	err := e.payments.Request(ctx, payment.Request{
		ApplicationID: app.ID,
		SlotID:        slot.ID,
		StudentID:     app.StudentID,
		TeacherID:     slot.TeacherID,
		Amount:        slot.Pricing.Price,
	})
	if err != nil {
		e.logger.Warn("Failed to request payment",
			zap.String("application_id", app.ID.String()),
			zap.Error(err),
		)
		return &model.SideEffectError{Effect: "payment", Err: err}
	}
	return nil
}

// name имя пользователя для текста уведомления, пустая строка если не нашли
func (e *effects) name(ctx context.Context, userID int64) string {
	if e.users == nil {
		return ""
	}
	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		e.logger.Warn("Failed to get user name", zap.Int64("user_id", userID), zap.Error(err))
		return ""
	}
	return user.DisplayName()
}

// slotEvent заполняет общие поля события по слоту
func (e *effects) slotEvent(ctx context.Context, t model.EventType, slot *model.Slot, now time.Time) model.Event {
	return model.Event{
		Type:        t,
		SlotID:      slot.ID,
		TeacherID:   slot.TeacherID,
		TeacherName: e.name(ctx, slot.TeacherID),
		Range:       slot.Range,
		Subject:     slot.Metadata.Subject,
		OccurredAt:  now,
	}
}

func (e *effects) applicationEvent(ctx context.Context, t model.EventType, slot *model.Slot, app *model.Application, now time.Time) model.Event {
	event := e.slotEvent(ctx, t, slot, now)
	id := app.ID
	event.ApplicationID = &id
	event.StudentIDs = []int64{app.StudentID}
	event.StudentName = e.name(ctx, app.StudentID)
	event.Reason = app.Reason
	event.Direct = app.Direct
	return event
}

func requireTeacher(op string, actor model.Actor) error {
	if !actor.IsTeacher() {
		return model.NewOpError(op, model.ErrForbidden, "user %d is not a teacher", actor.UserID)
	}
	return nil
}

func requireStudent(op string, actor model.Actor) error {
	if !actor.IsStudent() {
		return model.NewOpError(op, model.ErrForbidden, "user %d is not a student", actor.UserID)
	}
	return nil
}

// visible: приватный слот виден только владельцу
func visible(slot *model.Slot, actor model.Actor) bool {
	return slot.Metadata.IsPublic || slot.TeacherID == actor.UserID
}

// loadSlot возвращает NotFound и для отсутствующего, и для чужого приватного слота
func loadSlot(ctx context.Context, slots repository.SlotRepository, op string, id uuid.UUID, actor model.Actor) (*model.Slot, error) {
	slot, err := slots.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil || !visible(slot, actor) {
		return nil, model.NewOpError(op, model.ErrNotFound, "slot %s", id)
	}
	return slot, nil
}

// loadOwnedSlot дополнительно требует, чтобы actor был владельцем
func loadOwnedSlot(ctx context.Context, slots repository.SlotRepository, op string, id uuid.UUID, actor model.Actor) (*model.Slot, error) {
	slot, err := loadSlot(ctx, slots, op, id, actor)
	if err != nil {
		return nil, err
	}
	if slot.TeacherID != actor.UserID {
		return nil, model.NewOpError(op, model.ErrForbidden, "slot %s belongs to another teacher", id)
	}
	return slot, nil
}
