// Package repository описывает хранилище слотов, заявок и пользователей.
// Реализации: postgres (pgx) и memory (для тестов и локального запуска).
package repository

import (
	"context"
	"iter"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/google/uuid"
)

// SlotRepository таблица slots, вторичный индекс по teacher_id.
// GetByID возвращает nil, nil если слота нет.
type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	GetByTeacherID(ctx context.Context, teacherID int64) ([]*model.Slot, error)
	GetByGroupID(ctx context.Context, groupID uuid.UUID) ([]*model.Slot, error)
	Update(ctx context.Context, slot *model.Slot) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListPublicAvailable отдаёт публичные слоты со статусом available начиная с from,
	// упорядоченные по дате и времени начала. Каждый обход заново читает хранилище.
	ListPublicAvailable(ctx context.Context, from model.Date) iter.Seq2[model.SlotListing, error]

	// CompleteEnded помечает completed все неотменённые слоты, закончившиеся к моменту (today, now)
	CompleteEnded(ctx context.Context, today model.Date, now model.Clock) (int64, error)
}

// ApplicationRepository таблица applications, индексы по slot_id и (slot_id, student_id)
type ApplicationRepository interface {
	Create(ctx context.Context, app *model.Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Application, error)
	GetBySlotID(ctx context.Context, slotID uuid.UUID) ([]*model.Application, error)
	GetByStudentID(ctx context.Context, studentID int64) ([]*model.Application, error)
	// GetLive возвращает pending или accepted заявку пары, либо nil
	GetLive(ctx context.Context, slotID uuid.UUID, studentID int64) (*model.Application, error)
	CountBySlotID(ctx context.Context, slotID uuid.UUID) (int, error)
	Update(ctx context.Context, app *model.Application) error
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}

// Tx репозитории внутри атомарного блока
type Tx interface {
	Slots() SlotRepository
	Applications() ApplicationRepository
}

// Lock что захватить на время атомарного блока.
// Порядок захвата всегда учитель, затем слот.
type Lock struct {
	TeacherID *int64
	SlotID    *uuid.UUID
}

func LockTeacher(teacherID int64) Lock { return Lock{TeacherID: &teacherID} }
func LockSlot(slotID uuid.UUID) Lock   { return Lock{SlotID: &slotID} }

func LockTeacherSlot(teacherID int64, slotID uuid.UUID) Lock {
	return Lock{TeacherID: &teacherID, SlotID: &slotID}
}

// Store точка входа в хранилище
type Store interface {
	Slots() SlotRepository
	Applications() ApplicationRepository
	Users() UserRepository

	// Atomic выполняет fn под блокировками lock. Ошибка fn откатывает все изменения.
	// Операции над разными слотами не блокируют друг друга.
	Atomic(ctx context.Context, lock Lock, fn func(ctx context.Context, tx Tx) error) error

	Close()
}
