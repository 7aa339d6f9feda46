package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/google/uuid"
)

type ApplicationRepository struct {
	store *Store
	undo  *undoLog
}

// Create повторяет частичный уникальный индекс postgres: одна живая заявка на пару
func (r *ApplicationRepository) Create(ctx context.Context, app *model.Application) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.apps[app.ID]; exists {
		return fmt.Errorf("create application: id %s already exists", app.ID)
	}
	if app.IsLive() && s.liveLocked(app.SlotID, app.StudentID, app.ID) != nil {
		return model.NewOpError("create application", model.ErrDuplicateApplication, "slot %s, student %d", app.SlotID, app.StudentID)
	}

	s.apps[app.ID] = app.Clone()
	id := app.ID
	r.undo.record(func() { delete(s.apps, id) })

	return nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.apps[id].Clone(), nil
}

// GetBySlotID заявки в порядке подачи
func (r *ApplicationRepository) GetBySlotID(ctx context.Context, slotID uuid.UUID) ([]*model.Application, error) {
	apps := r.filter(func(app *model.Application) bool { return app.SlotID == slotID })
	slices.SortStableFunc(apps, func(a, b *model.Application) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return apps, nil
}

// GetByStudentID заявки студента, новые первыми
func (r *ApplicationRepository) GetByStudentID(ctx context.Context, studentID int64) ([]*model.Application, error) {
	apps := r.filter(func(app *model.Application) bool { return app.StudentID == studentID })
	slices.SortStableFunc(apps, func(a, b *model.Application) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return apps, nil
}

func (r *ApplicationRepository) filter(match func(*model.Application) bool) []*model.Application {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var apps []*model.Application
	for _, app := range s.apps {
		if match(app) {
			apps = append(apps, app.Clone())
		}
	}
	return apps
}

func (r *ApplicationRepository) GetLive(ctx context.Context, slotID uuid.UUID, studentID int64) (*model.Application, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.liveLocked(slotID, studentID, uuid.Nil).Clone(), nil
}

func (r *ApplicationRepository) CountBySlotID(ctx context.Context, slotID uuid.UUID) (int, error) {
	return len(r.filter(func(app *model.Application) bool { return app.SlotID == slotID })), nil
}

func (r *ApplicationRepository) Update(ctx context.Context, app *model.Application) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.apps[app.ID]
	if !ok {
		return fmt.Errorf("update application: %w", model.ErrNotFound)
	}
	if app.IsLive() && s.liveLocked(app.SlotID, app.StudentID, app.ID) != nil {
		return model.NewOpError("update application", model.ErrDuplicateApplication, "slot %s, student %d", app.SlotID, app.StudentID)
	}

	s.apps[app.ID] = app.Clone()
	r.undo.record(func() { s.apps[prev.ID] = prev })

	return nil
}

// liveLocked ищет живую заявку пары кроме exclude; вызывается под s.mu
func (s *Store) liveLocked(slotID uuid.UUID, studentID int64, exclude uuid.UUID) *model.Application {
	for _, app := range s.apps {
		if app.ID != exclude && app.SlotID == slotID && app.StudentID == studentID && app.IsLive() {
			return app
		}
	}
	return nil
}
