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

// BookingService жизненный цикл заявок: apply -> accept/reject, прямое бронирование и отмена.
// Проверка мест и запись студента выполняются под блокировкой слота.
type BookingService struct {
	store repository.Store
	fx    *effects
	opts  options
}

func NewBookingService(
	store repository.Store,
	notifier Notifier,
	payments payment.Requester,
	logger *zap.Logger,
	opts ...Option,
) *BookingService {
	return &BookingService{
		store: store,
		fx: &effects{
			notifier: notifier,
			payments: payments,
			users:    store.Users(),
			logger:   logger,
		},
		opts: newOptions(opts),
	}
}

// Apply создаёт заявку в статусе pending
func (s *BookingService) Apply(ctx context.Context, actor model.Actor, slotID uuid.UUID, message string) (*model.Application, error) {
	const op = "apply"

	if err := requireStudent(op, actor); err != nil {
		return nil, err
	}

	now := s.opts.Now()
	var (
		slot *model.Slot
		app  *model.Application
	)
	err := s.store.Atomic(ctx, repository.LockSlot(slotID), func(ctx context.Context, tx repository.Tx) error {
		var err error
		slot, err = s.loadBookable(ctx, tx, op, slotID, actor, now)
		if err != nil {
			return err
		}
		if status := slot.DeriveStatus(now); status != model.SlotStatusAvailable {
			return model.NewOpError(op, model.ErrSlotNotAvailable, "slot %s is %s", slotID, status)
		}

		app = &model.Application{
			ID:        uuid.New(),
			SlotID:    slotID,
			StudentID: actor.UserID,
			Message:   message,
			Status:    model.ApplicationStatusPending,
			CreatedAt: now,
		}
		if err := tx.Applications().Create(ctx, app); err != nil {
			return fmt.Errorf("create application: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.fx.logger.Info("Application created",
		zap.String("application_id", app.ID.String()),
		zap.String("slot_id", slotID.String()),
		zap.Int64("student_id", actor.UserID),
	)

	return app, s.fx.emit(ctx, s.fx.applicationEvent(ctx, model.EventApplicationReceived, slot, app, now))
}

// DirectBook сразу записывает студента без подтверждения учителя.
// Из двух одновременных попыток занять последнее место успешна ровно одна.
func (s *BookingService) DirectBook(ctx context.Context, actor model.Actor, slotID uuid.UUID) (*model.Application, error) {
	const op = "direct book"

	if err := requireStudent(op, actor); err != nil {
		return nil, err
	}

	now := s.opts.Now()
	var (
		slot *model.Slot
		app  *model.Application
	)
	err := s.store.Atomic(ctx, repository.LockSlot(slotID), func(ctx context.Context, tx repository.Tx) error {
		var err error
		slot, err = s.loadBookable(ctx, tx, op, slotID, actor, now)
		if err != nil {
			return err
		}
		switch status := slot.DeriveStatus(now); status {
		case model.SlotStatusAvailable:
		case model.SlotStatusBooked:
			return model.NewOpError(op, model.ErrSlotFull, "slot %s has no free seats", slotID)
		default:
			return model.NewOpError(op, model.ErrSlotNotAvailable, "slot %s is %s", slotID, status)
		}

		if err := slot.Enroll(actor.UserID); err != nil {
			return err
		}

		app = &model.Application{
			ID:        uuid.New(),
			SlotID:    slotID,
			StudentID: actor.UserID,
			Status:    model.ApplicationStatusAccepted,
			Direct:    true,
			CreatedAt: now,
			DecidedAt: &now,
		}
		if err := tx.Applications().Create(ctx, app); err != nil {
			return fmt.Errorf("create application: %w", err)
		}

		slot.Refresh(now)
		if err := tx.Slots().Update(ctx, slot); err != nil {
			return fmt.Errorf("update slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.fx.logger.Info("Slot booked directly",
		zap.String("application_id", app.ID.String()),
		zap.String("slot_id", slotID.String()),
		zap.Int64("student_id", actor.UserID),
		zap.String("slot_status", string(slot.Status)),
	)

	return app, errors.Join(
		s.fx.emit(ctx, s.fx.applicationEvent(ctx, model.EventApplicationAccepted, slot, app, now)),
		s.fx.requestPayment(ctx, slot, app),
	)
}

// loadBookable: слот виден студенту, это не его собственный слот и у студента нет живой заявки
func (s *BookingService) loadBookable(ctx context.Context, tx repository.Tx, op string, slotID uuid.UUID, actor model.Actor, now time.Time) (*model.Slot, error) {
	slot, err := loadSlot(ctx, tx.Slots(), op, slotID, actor)
	if err != nil {
		return nil, err
	}
	if slot.TeacherID == actor.UserID {
		return nil, model.NewOpError(op, model.ErrForbidden, "teacher cannot book own slot %s", slotID)
	}

	live, err := tx.Applications().GetLive(ctx, slotID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("get live application: %w", err)
	}
	if live != nil || slot.IsEnrolled(actor.UserID) {
		return nil, model.NewOpError(op, model.ErrDuplicateApplication, "student %d already applied to slot %s", actor.UserID, slotID)
	}
	return slot, nil
}

// Accept подтверждает заявку. Места перепроверяются в момент подтверждения:
// при ErrSlotFull заявка остаётся pending.
func (s *BookingService) Accept(ctx context.Context, actor model.Actor, applicationID uuid.UUID) (*model.Application, error) {
	const op = "accept"

	now := s.opts.Now()
	slot, app, err := s.decide(ctx, op, actor, applicationID, func(slot *model.Slot, app *model.Application) error {
		if !app.IsPending() {
			return model.NewOpError(op, model.ErrAlreadyDecided, "application %s is %s", app.ID, app.Status)
		}
		if status := slot.DeriveStatus(now); status == model.SlotStatusCompleted || status == model.SlotStatusCancelled {
			return model.NewOpError(op, model.ErrSlotNotAvailable, "slot %s is %s", slot.ID, status)
		}
		if err := slot.Enroll(app.StudentID); err != nil {
			return err
		}
		slot.Refresh(now)
		return app.Accept(now)
	}, true)
	if err != nil {
		return nil, err
	}

	s.fx.logger.Info("Application accepted",
		zap.String("application_id", app.ID.String()),
		zap.String("slot_id", slot.ID.String()),
		zap.Int64("student_id", app.StudentID),
		zap.Int("enrolled", len(slot.EnrolledStudents)),
		zap.String("slot_status", string(slot.Status)),
	)

	return app, errors.Join(
		s.fx.emit(ctx, s.fx.applicationEvent(ctx, model.EventApplicationAccepted, slot, app, now)),
		s.fx.requestPayment(ctx, slot, app),
	)
}

// Reject отклоняет pending заявку, слот не меняется
func (s *BookingService) Reject(ctx context.Context, actor model.Actor, applicationID uuid.UUID, reason string) (*model.Application, error) {
	const op = "reject"

	now := s.opts.Now()
	slot, app, err := s.decide(ctx, op, actor, applicationID, func(slot *model.Slot, app *model.Application) error {
		return app.Reject(reason, now)
	}, false)
	if err != nil {
		return nil, err
	}

	s.fx.logger.Info("Application rejected",
		zap.String("application_id", app.ID.String()),
		zap.String("slot_id", slot.ID.String()),
		zap.Int64("student_id", app.StudentID),
		zap.String("reason", reason),
	)

	return app, s.fx.emit(ctx, s.fx.applicationEvent(ctx, model.EventApplicationRejected, slot, app, now))
}

// decide общий путь решений учителя: заявка и слот перечитываются под блокировкой слота
func (s *BookingService) decide(
	ctx context.Context,
	op string,
	actor model.Actor,
	applicationID uuid.UUID,
	apply func(slot *model.Slot, app *model.Application) error,
	slotChanged bool,
) (*model.Slot, *model.Application, error) {
	if err := requireTeacher(op, actor); err != nil {
		return nil, nil, err
	}

	slotID, err := s.slotOf(ctx, op, applicationID)
	if err != nil {
		return nil, nil, err
	}

	var (
		slot *model.Slot
		app  *model.Application
	)
	err = s.store.Atomic(ctx, repository.LockSlot(slotID), func(ctx context.Context, tx repository.Tx) error {
		var err error
		app, err = tx.Applications().GetByID(ctx, applicationID)
		if err != nil {
			return fmt.Errorf("get application: %w", err)
		}
		if app == nil {
			return model.NewOpError(op, model.ErrNotFound, "application %s", applicationID)
		}

		slot, err = loadOwnedSlot(ctx, tx.Slots(), op, slotID, actor)
		if err != nil {
			return err
		}

		if err := apply(slot, app); err != nil {
			return err
		}

		if err := tx.Applications().Update(ctx, app); err != nil {
			return fmt.Errorf("update application: %w", err)
		}
		if slotChanged {
			if err := tx.Slots().Update(ctx, slot); err != nil {
				return fmt.Errorf("update slot: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return slot, app, nil
}

// Cancel отменяет живую заявку. Отменить может сам студент или учитель-владелец слота.
// Если студент был записан, место освобождается.
func (s *BookingService) Cancel(ctx context.Context, actor model.Actor, applicationID uuid.UUID, reason string) (*model.Application, error) {
	const op = "cancel"

	slotID, err := s.slotOf(ctx, op, applicationID)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	var (
		slot *model.Slot
		app  *model.Application
	)
	err = s.store.Atomic(ctx, repository.LockSlot(slotID), func(ctx context.Context, tx repository.Tx) error {
		var err error
		app, err = tx.Applications().GetByID(ctx, applicationID)
		if err != nil {
			return fmt.Errorf("get application: %w", err)
		}
		if app == nil {
			return model.NewOpError(op, model.ErrNotFound, "application %s", applicationID)
		}

		slot, err = tx.Slots().GetByID(ctx, slotID)
		if err != nil {
			return fmt.Errorf("get slot: %w", err)
		}
		if slot == nil {
			return model.NewOpError(op, model.ErrNotFound, "slot %s", slotID)
		}

		isStudent := actor.IsStudent() && app.StudentID == actor.UserID
		isTeacher := actor.IsTeacher() && slot.TeacherID == actor.UserID
		if !isStudent && !isTeacher {
			return model.NewOpError(op, model.ErrForbidden, "user %d cannot cancel application %s", actor.UserID, applicationID)
		}

		wasAccepted := app.Status == model.ApplicationStatusAccepted
		if err := app.Cancel(reason, now); err != nil {
			return err
		}
		if err := tx.Applications().Update(ctx, app); err != nil {
			return fmt.Errorf("update application: %w", err)
		}

		if wasAccepted && !slot.IsCancelled() {
			slot.Unenroll(app.StudentID)
			slot.Refresh(now)
			if err := tx.Slots().Update(ctx, slot); err != nil {
				return fmt.Errorf("update slot: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.fx.logger.Info("Application cancelled",
		zap.String("application_id", app.ID.String()),
		zap.String("slot_id", slotID.String()),
		zap.Int64("student_id", app.StudentID),
		zap.Int64("cancelled_by", actor.UserID),
		zap.String("slot_status", string(slot.Status)),
	)

	event := s.fx.applicationEvent(ctx, model.EventBookingCancelled, slot, app, now)
	event.CancelledBy = actor.UserID
	return app, s.fx.emit(ctx, event)
}

// slotOf находит слот заявки до захвата блокировки; slot_id заявки не меняется
func (s *BookingService) slotOf(ctx context.Context, op string, applicationID uuid.UUID) (uuid.UUID, error) {
	app, err := s.store.Applications().GetByID(ctx, applicationID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("get application: %w", err)
	}
	if app == nil {
		return uuid.Nil, model.NewOpError(op, model.ErrNotFound, "application %s", applicationID)
	}
	return app.SlotID, nil
}

// ListSlotApplications заявки на слот для его владельца
func (s *BookingService) ListSlotApplications(ctx context.Context, actor model.Actor, slotID uuid.UUID) ([]*model.Application, error) {
	const op = "list slot applications"

	if err := requireTeacher(op, actor); err != nil {
		return nil, err
	}
	if _, err := loadOwnedSlot(ctx, s.store.Slots(), op, slotID, actor); err != nil {
		return nil, err
	}

	apps, err := s.store.Applications().GetBySlotID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot applications: %w", err)
	}
	return apps, nil
}

// ListStudentApplications заявки студента, новые первыми
func (s *BookingService) ListStudentApplications(ctx context.Context, actor model.Actor) ([]*model.Application, error) {
	apps, err := s.store.Applications().GetByStudentID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("get student applications: %w", err)
	}
	return apps, nil
}

// cancelLiveApplications каскадная отмена при отмене слота, возвращает студентов отменённых заявок
func cancelLiveApplications(ctx context.Context, tx repository.Tx, slotID uuid.UUID, now time.Time) ([]int64, error) {
	apps, err := tx.Applications().GetBySlotID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot applications: %w", err)
	}

	var students []int64
	for _, app := range apps {
		if !app.IsLive() {
			continue
		}
		if err := app.Cancel(model.ReasonSlotCancelled, now); err != nil {
			return nil, err
		}
		if err := tx.Applications().Update(ctx, app); err != nil {
			return nil, fmt.Errorf("update application: %w", err)
		}
		students = append(students, app.StudentID)
	}
	return students, nil
}
