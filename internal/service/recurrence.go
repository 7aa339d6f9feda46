package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/Freeeeeet/tutor_slots/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxRecurringWeeks горизонт регулярного расписания
const MaxRecurringWeeks = 52

// ExpandRecurrence возвращает интервалы по выбранным дням недели в [StartDate, StartDate + недели*7)
func ExpandRecurrence(t model.RecurrenceTemplate) ([]model.TimeRange, error) {
	const op = "expand recurrence"

	if t.RecurringWeeks < 1 || t.RecurringWeeks > MaxRecurringWeeks {
		return nil, model.NewOpError(op, model.ErrInvalidRange, "recurring weeks must be 1..%d, got %d", MaxRecurringWeeks, t.RecurringWeeks)
	}
	if len(t.RecurringDays) == 0 {
		return nil, model.NewOpError(op, model.ErrInvalidRange, "no recurring days")
	}
	for _, day := range t.RecurringDays {
		if day < time.Sunday || day > time.Saturday {
			return nil, model.NewOpError(op, model.ErrInvalidRange, "unknown weekday %d", day)
		}
	}
	if _, err := model.NewTimeRange(t.StartDate, t.StartTime, t.EndTime); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var ranges []model.TimeRange
	for offset := 0; offset < t.RecurringWeeks*7; offset++ {
		date := t.StartDate.AddDays(offset)
		if !slices.Contains(t.RecurringDays, date.Weekday()) {
			continue
		}
		ranges = append(ranges, model.TimeRange{Date: date, Start: t.StartTime, End: t.EndTime})
	}
	return ranges, nil
}

// RecurrenceService создаёт группу слотов по шаблону.
// Экземпляр с пересечением или в прошлом пропускается, остальные создаются.
type RecurrenceService struct {
	store repository.Store
	fx    *effects
	opts  options
}

func NewRecurrenceService(store repository.Store, notifier Notifier, logger *zap.Logger, opts ...Option) *RecurrenceService {
	return &RecurrenceService{
		store: store,
		fx: &effects{
			notifier: notifier,
			users:    store.Users(),
			logger:   logger,
		},
		opts: newOptions(opts),
	}
}

// CreateRecurring создаёт слоты шаблона с общим RecurrenceGroupID
func (s *RecurrenceService) CreateRecurring(ctx context.Context, actor model.Actor, t model.RecurrenceTemplate) (*model.RecurrenceResult, error) {
	const op = "create recurring"

	if err := requireTeacher(op, actor); err != nil {
		return nil, err
	}

	ranges, err := ExpandRecurrence(t)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	// Вместимость и цена одинаковы для всех экземпляров, проверяем один раз
	probe := SlotInput{Range: ranges[0], MaxStudents: t.MaxStudents, Pricing: t.Pricing}
	if err := validateSlot(op, probe, now, false); err != nil {
		return nil, err
	}

	groupID := uuid.New()
	result := &model.RecurrenceResult{GroupID: groupID}

	for _, r := range ranges {
		in := SlotInput{
			Range:       r,
			MaxStudents: t.MaxStudents,
			Pricing:     t.Pricing,
			Metadata:    t.Metadata,
		}
		if err := validateSlot(op, in, now, true); err != nil {
			result.Skipped = append(result.Skipped, model.SkippedInstance{Range: r, Err: err})
			continue
		}

		var slot *model.Slot
		err := s.store.Atomic(ctx, repository.LockTeacher(actor.UserID), func(ctx context.Context, tx repository.Tx) error {
			created, err := insertSlot(ctx, tx, op, actor.UserID, in, &groupID, now)
			slot = created
			return err
		})
		switch {
		case errors.Is(err, model.ErrSlotConflict):
			result.Skipped = append(result.Skipped, model.SkippedInstance{Range: r, Err: err})
		case err != nil:
			return result, err
		default:
			result.Created = append(result.Created, slot)
		}
	}

	s.fx.logger.Info("Recurring slots created",
		zap.String("group_id", groupID.String()),
		zap.Int64("teacher_id", actor.UserID),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
	)

	events := make([]model.Event, 0, len(result.Created))
	for _, slot := range result.Created {
		events = append(events, s.fx.slotEvent(ctx, model.EventSlotCreated, slot, now))
	}
	return result, s.fx.emit(ctx, events...)
}
