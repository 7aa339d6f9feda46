package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/google/uuid"
)

// FindConflict возвращает первый неотменённый слот, пересекающийся с candidate.
// exclude пропускает сам редактируемый слот.
func FindConflict(slots []*model.Slot, candidate model.TimeRange, exclude *uuid.UUID) *model.Slot {
	for _, slot := range slots {
		if slot.IsCancelled() {
			continue
		}
		if exclude != nil && slot.ID == *exclude {
			continue
		}
		if slot.Range.Overlaps(candidate) {
			return slot
		}
	}
	return nil
}

// HasConflict проверяет пересечение со слотами учителя
func (s *SlotService) HasConflict(ctx context.Context, teacherID int64, candidate model.TimeRange, exclude *uuid.UUID) (bool, error) {
	slots, err := s.store.Slots().GetByTeacherID(ctx, teacherID)
	if err != nil {
		return false, fmt.Errorf("get teacher slots: %w", err)
	}
	return FindConflict(slots, candidate, exclude) != nil, nil
}
