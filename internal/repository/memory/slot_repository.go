package memory

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/google/uuid"
)

type SlotRepository struct {
	store *Store
	undo  *undoLog
}

// Create сохраняет копию слота
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.slots[slot.ID]; exists {
		return fmt.Errorf("create slot: id %s already exists", slot.ID)
	}

	now := time.Now()
	slot.CreatedAt, slot.UpdatedAt = now, now
	if slot.EnrolledStudents == nil {
		slot.EnrolledStudents = []int64{}
	}
	s.slots[slot.ID] = slot.Clone()

	id := slot.ID
	r.undo.record(func() { delete(s.slots, id) })

	return nil
}

func (r *SlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.slots[id].Clone(), nil
}

func (r *SlotRepository) GetByTeacherID(ctx context.Context, teacherID int64) ([]*model.Slot, error) {
	return r.filter(func(slot *model.Slot) bool { return slot.TeacherID == teacherID }), nil
}

func (r *SlotRepository) GetByGroupID(ctx context.Context, groupID uuid.UUID) ([]*model.Slot, error) {
	return r.filter(func(slot *model.Slot) bool {
		return slot.RecurrenceGroupID != nil && *slot.RecurrenceGroupID == groupID
	}), nil
}

// filter возвращает копии подходящих слотов по дате и времени начала
func (r *SlotRepository) filter(match func(*model.Slot) bool) []*model.Slot {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var slots []*model.Slot
	for _, slot := range s.slots {
		if match(slot) {
			slots = append(slots, slot.Clone())
		}
	}
	sortSlots(slots)

	return slots
}

func (r *SlotRepository) Update(ctx context.Context, slot *model.Slot) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.slots[slot.ID]
	if !ok {
		return fmt.Errorf("update slot: %w", model.ErrNotFound)
	}

	slot.UpdatedAt = time.Now()
	s.slots[slot.ID] = slot.Clone()
	r.undo.record(func() { s.slots[prev.ID] = prev })

	return nil
}

func (r *SlotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.slots[id]
	if !ok {
		return fmt.Errorf("delete slot: %w", model.ErrNotFound)
	}

	delete(s.slots, id)
	r.undo.record(func() { s.slots[id] = prev })

	return nil
}

// ListPublicAvailable делает снимок на каждый обход
func (r *SlotRepository) ListPublicAvailable(ctx context.Context, from model.Date) iter.Seq2[model.SlotListing, error] {
	return func(yield func(model.SlotListing, error) bool) {
		s := r.store
		s.mu.RLock()
		var listings []model.SlotListing
		for _, slot := range s.slots {
			if !slot.Metadata.IsPublic || slot.Status != model.SlotStatusAvailable || slot.Range.Date.Before(from) {
				continue
			}
			listings = append(listings, model.SlotListing{
				Slot:        slot.Clone(),
				TeacherName: s.users[slot.TeacherID].DisplayName(),
			})
		}
		s.mu.RUnlock()

		slices.SortFunc(listings, func(a, b model.SlotListing) int {
			return compareSlots(a.Slot, b.Slot)
		})

		for _, listing := range listings {
			if err := ctx.Err(); err != nil {
				yield(model.SlotListing{}, err)
				return
			}
			if !yield(listing, nil) {
				return
			}
		}
	}
}

func (r *SlotRepository) CompleteEnded(ctx context.Context, today model.Date, now model.Clock) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, slot := range s.slots {
		if slot.Status != model.SlotStatusAvailable && slot.Status != model.SlotStatusBooked {
			continue
		}
		d := slot.Range.Date
		if d.Before(today) || (d == today && slot.Range.End <= now) {
			slot.Status = model.SlotStatusCompleted
			slot.UpdatedAt = time.Now()
			count++
		}
	}

	return count, nil
}

func compareSlots(a, b *model.Slot) int {
	switch {
	case a.Range.Less(b.Range):
		return -1
	case b.Range.Less(a.Range):
		return 1
	default:
		return cmp.Compare(a.ID.String(), b.ID.String())
	}
}

func sortSlots(slots []*model.Slot) {
	slices.SortFunc(slots, compareSlots)
}
