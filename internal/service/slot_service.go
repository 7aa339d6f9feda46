package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/Freeeeeet/tutor_slots/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SlotInput поля нового слота
type SlotInput struct {
	Range       model.TimeRange
	MaxStudents int
	Pricing     model.Pricing
	Metadata    model.SlotMetadata
}

// SlotPatch изменяемые поля, nil означает "не менять"
type SlotPatch struct {
	Range       *model.TimeRange
	MaxStudents *int
	Pricing     *model.Pricing
	Metadata    *model.SlotMetadata
}

type SlotService struct {
	store repository.Store
	fx    *effects
	opts  options
}

func NewSlotService(store repository.Store, notifier Notifier, logger *zap.Logger, opts ...Option) *SlotService {
	return &SlotService{
		store: store,
		fx: &effects{
			notifier: notifier,
			users:    store.Users(),
			logger:   logger,
		},
		opts: newOptions(opts),
	}
}

// validateSlot общие проверки создания и редактирования
func validateSlot(op string, in SlotInput, now time.Time, requireFuture bool) error {
	if _, err := model.NewTimeRange(in.Range.Date, in.Range.Start, in.Range.End); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if requireFuture && !in.Range.StartsAfter(now) {
		return model.NewOpError(op, model.ErrInvalidRange, "slot %s is not in the future", in.Range)
	}
	if in.MaxStudents < 1 {
		return model.NewOpError(op, model.ErrInvalidCapacity, "max students must be at least 1, got %d", in.MaxStudents)
	}
	if err := in.Pricing.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CreateSlot создаёт слот учителя после проверки пересечений
func (s *SlotService) CreateSlot(ctx context.Context, actor model.Actor, in SlotInput) (*model.Slot, error) {
	const op = "create slot"

	if err := requireTeacher(op, actor); err != nil {
		return nil, err
	}

	now := s.opts.Now()
	if err := validateSlot(op, in, now, true); err != nil {
		return nil, err
	}

	var slot *model.Slot
	err := s.store.Atomic(ctx, repository.LockTeacher(actor.UserID), func(ctx context.Context, tx repository.Tx) error {
		created, err := insertSlot(ctx, tx, op, actor.UserID, in, nil, now)
		slot = created
		return err
	})
	if err != nil {
		return nil, err
	}

	s.fx.logger.Info("Slot created",
		zap.String("slot_id", slot.ID.String()),
		zap.Int64("teacher_id", slot.TeacherID),
		zap.Stringer("range", slot.Range),
		zap.Int("max_students", slot.MaxStudents),
	)

	return slot, s.fx.emit(ctx, s.fx.slotEvent(ctx, model.EventSlotCreated, slot, now))
}

// insertSlot вызывается под блокировкой учителя: проверка пересечений и запись атомарны
func insertSlot(ctx context.Context, tx repository.Tx, op string, teacherID int64, in SlotInput, groupID *uuid.UUID, now time.Time) (*model.Slot, error) {
	existing, err := tx.Slots().GetByTeacherID(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get teacher slots: %w", err)
	}
	if conflict := FindConflict(existing, in.Range, nil); conflict != nil {
		return nil, model.NewOpError(op, model.ErrSlotConflict, "%s overlaps slot %s at %s", in.Range, conflict.ID, conflict.Range)
	}

	slot := &model.Slot{
		ID:                uuid.New(),
		TeacherID:         teacherID,
		Range:             in.Range,
		MaxStudents:       in.MaxStudents,
		EnrolledStudents:  []int64{},
		Pricing:           in.Pricing,
		Metadata:          in.Metadata,
		RecurrenceGroupID: groupID,
	}
	slot.Refresh(now)

	if err := tx.Slots().Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}
	return slot, nil
}

// UpdateSlot меняет слот. Время и вместимость нельзя менять, пока есть живые заявки.
func (s *SlotService) UpdateSlot(ctx context.Context, actor model.Actor, slotID uuid.UUID, patch SlotPatch) (*model.Slot, error) {
	const op = "update slot"

	if err := requireTeacher(op, actor); err != nil {
		return nil, err
	}

	now := s.opts.Now()
	var slot *model.Slot
	err := s.store.Atomic(ctx, repository.LockTeacherSlot(actor.UserID, slotID), func(ctx context.Context, tx repository.Tx) error {
		current, err := loadOwnedSlot(ctx, tx.Slots(), op, slotID, actor)
		if err != nil {
			return err
		}
		if current.IsCancelled() {
			return model.NewOpError(op, model.ErrSlotCancelled, "slot %s", slotID)
		}

		in := SlotInput{
			Range:       current.Range,
			MaxStudents: current.MaxStudents,
			Pricing:     current.Pricing,
			Metadata:    current.Metadata,
		}
		if patch.Range != nil {
			in.Range = *patch.Range
		}
		if patch.MaxStudents != nil {
			in.MaxStudents = *patch.MaxStudents
		}
		if patch.Pricing != nil {
			in.Pricing = *patch.Pricing
		}
		if patch.Metadata != nil {
			in.Metadata = *patch.Metadata
		}

		rangeChanged := in.Range != current.Range
		if rangeChanged || in.MaxStudents != current.MaxStudents {
			apps, err := tx.Applications().GetBySlotID(ctx, slotID)
			if err != nil {
				return fmt.Errorf("get slot applications: %w", err)
			}
			for _, app := range apps {
				if app.IsLive() {
					return model.NewOpError(op, model.ErrSlotLocked, "application %s is %s", app.ID, app.Status)
				}
			}
		}

		if err := validateSlot(op, in, now, rangeChanged); err != nil {
			return err
		}

		if rangeChanged {
			existing, err := tx.Slots().GetByTeacherID(ctx, actor.UserID)
			if err != nil {
				return fmt.Errorf("get teacher slots: %w", err)
			}
			if conflict := FindConflict(existing, in.Range, &current.ID); conflict != nil {
				return model.NewOpError(op, model.ErrSlotConflict, "%s overlaps slot %s at %s", in.Range, conflict.ID, conflict.Range)
			}
		}

		current.Range = in.Range
		current.MaxStudents = in.MaxStudents
		current.Pricing = in.Pricing
		current.Metadata = in.Metadata
		current.Refresh(now)

		if err := tx.Slots().Update(ctx, current); err != nil {
			return fmt.Errorf("update slot: %w", err)
		}
		slot = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.fx.logger.Info("Slot updated",
		zap.String("slot_id", slot.ID.String()),
		zap.Int64("teacher_id", slot.TeacherID),
		zap.Stringer("range", slot.Range),
		zap.String("status", string(slot.Status)),
	)

	return slot, nil
}

// CancelSlot отменяет слот и все живые заявки на него. Повторная отмена ничего не делает.
func (s *SlotService) CancelSlot(ctx context.Context, actor model.Actor, slotID uuid.UUID, reason string) (*model.Slot, error) {
	const op = "cancel slot"

	if err := requireTeacher(op, actor); err != nil {
		return nil, err
	}

	slot, event, err := s.cancelOne(ctx, op, actor, slotID, reason)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return slot, nil
	}
	return slot, s.fx.emit(ctx, *event)
}

// cancelOne отменяет слот в своей транзакции, event nil если слот уже был отменён
func (s *SlotService) cancelOne(ctx context.Context, op string, actor model.Actor, slotID uuid.UUID, reason string) (*model.Slot, *model.Event, error) {
	now := s.opts.Now()

	var (
		slot     *model.Slot
		students []int64
		changed  bool
	)
	err := s.store.Atomic(ctx, repository.LockTeacherSlot(actor.UserID, slotID), func(ctx context.Context, tx repository.Tx) error {
		current, err := loadOwnedSlot(ctx, tx.Slots(), op, slotID, actor)
		if err != nil {
			return err
		}
		slot = current
		if current.IsCancelled() {
			return nil
		}

		current.Status = model.SlotStatusCancelled
		if err := tx.Slots().Update(ctx, current); err != nil {
			return fmt.Errorf("update slot: %w", err)
		}

		students, err = cancelLiveApplications(ctx, tx, slotID, now)
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if !changed {
		return slot, nil, nil
	}

	s.fx.logger.Info("Slot cancelled",
		zap.String("slot_id", slot.ID.String()),
		zap.Int64("teacher_id", slot.TeacherID),
		zap.Int("cancelled_applications", len(students)),
		zap.String("reason", reason),
	)

	event := s.fx.slotEvent(ctx, model.EventSlotCancelled, slot, now)
	event.StudentIDs = students
	event.Reason = reason
	event.CancelledBy = actor.UserID
	return slot, &event, nil
}

// CancelGroup отменяет слоты регулярной группы начиная с даты from
func (s *SlotService) CancelGroup(ctx context.Context, actor model.Actor, groupID uuid.UUID, from model.Date, reason string) (int, error) {
	const op = "cancel group"

	if err := requireTeacher(op, actor); err != nil {
		return 0, err
	}

	slots, err := s.store.Slots().GetByGroupID(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("get group slots: %w", err)
	}
	if len(slots) == 0 {
		return 0, model.NewOpError(op, model.ErrNotFound, "recurrence group %s", groupID)
	}
	if slots[0].TeacherID != actor.UserID {
		return 0, model.NewOpError(op, model.ErrForbidden, "recurrence group %s belongs to another teacher", groupID)
	}

	var (
		cancelled int
		fxErrs    []error
	)
	for _, slot := range slots {
		if slot.IsCancelled() || slot.Range.Date.Before(from) {
			continue
		}
		_, event, err := s.cancelOne(ctx, op, actor, slot.ID, reason)
		if err != nil {
			return cancelled, err
		}
		if event == nil {
			continue
		}
		cancelled++
		fxErrs = append(fxErrs, s.fx.emit(ctx, *event))
	}

	s.fx.logger.Info("Recurrence group cancelled",
		zap.String("group_id", groupID.String()),
		zap.Int64("teacher_id", actor.UserID),
		zap.Int("cancelled_slots", cancelled),
		zap.Stringer("from", from),
	)

	return cancelled, errors.Join(fxErrs...)
}

// DeleteSlot удаляет слот без истории: ни одной заявки и ни одного записанного студента
func (s *SlotService) DeleteSlot(ctx context.Context, actor model.Actor, slotID uuid.UUID) error {
	const op = "delete slot"

	if err := requireTeacher(op, actor); err != nil {
		return err
	}

	err := s.store.Atomic(ctx, repository.LockTeacherSlot(actor.UserID, slotID), func(ctx context.Context, tx repository.Tx) error {
		slot, err := loadOwnedSlot(ctx, tx.Slots(), op, slotID, actor)
		if err != nil {
			return err
		}

		count, err := tx.Applications().CountBySlotID(ctx, slotID)
		if err != nil {
			return fmt.Errorf("count slot applications: %w", err)
		}
		if count > 0 || len(slot.EnrolledStudents) > 0 {
			return model.NewOpError(op, model.ErrSlotNotDeletable, "slot %s has %d applications, cancel it instead", slotID, count)
		}

		if err := tx.Slots().Delete(ctx, slotID); err != nil {
			return fmt.Errorf("delete slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.fx.logger.Info("Slot deleted",
		zap.String("slot_id", slotID.String()),
		zap.Int64("teacher_id", actor.UserID),
	)

	return nil
}

// GetSlot возвращает слот со статусом, пересчитанным на текущий момент
func (s *SlotService) GetSlot(ctx context.Context, actor model.Actor, slotID uuid.UUID) (*model.Slot, error) {
	slot, err := loadSlot(ctx, s.store.Slots(), "get slot", slotID, actor)
	if err != nil {
		return nil, err
	}
	slot.Refresh(s.opts.Now())
	return slot, nil
}

// ListTeacherSlots слоты самого учителя в диапазоне дат [from, to], включая отменённые
func (s *SlotService) ListTeacherSlots(ctx context.Context, actor model.Actor, from, to model.Date) ([]*model.Slot, error) {
	if err := requireTeacher("list teacher slots", actor); err != nil {
		return nil, err
	}

	slots, err := s.store.Slots().GetByTeacherID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("get teacher slots: %w", err)
	}

	now := s.opts.Now()
	result := make([]*model.Slot, 0, len(slots))
	for _, slot := range slots {
		d := slot.Range.Date
		if d.Before(from) || (!to.IsZero() && to.Before(d)) {
			continue
		}
		slot.Refresh(now)
		result = append(result, slot)
	}
	return result, nil
}

// CompleteEnded переводит закончившиеся слоты в completed, вызывается фоновым планировщиком
func (s *SlotService) CompleteEnded(ctx context.Context) (int64, error) {
	now := s.opts.Now()
	clock := model.Clock(now.Hour()*60 + now.Minute())

	count, err := s.store.Slots().CompleteEnded(ctx, model.DateOf(now), clock)
	if err != nil {
		return 0, fmt.Errorf("complete ended slots: %w", err)
	}

	if count > 0 {
		s.fx.logger.Info("Ended slots completed", zap.Int64("count", count))
	}
	return count, nil
}
