// Package memory хранилище в памяти процесса.
// Атомарность: мьютекс на ключ (учитель, слот) и журнал отката для ошибок внутри блока.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/Freeeeeet/tutor_slots/internal/repository"
	"github.com/google/uuid"
)

type Store struct {
	mu         sync.RWMutex // защищает карты, не операции целиком
	slots      map[uuid.UUID]*model.Slot
	apps       map[uuid.UUID]*model.Application
	users      map[int64]*model.User
	nextUserID int64

	locks keyedMutex
}

func NewStore() *Store {
	return &Store{
		slots: make(map[uuid.UUID]*model.Slot),
		apps:  make(map[uuid.UUID]*model.Application),
		users: make(map[int64]*model.User),
		locks: keyedMutex{entries: make(map[string]*keyedEntry)},
	}
}

func (s *Store) Slots() repository.SlotRepository               { return &SlotRepository{store: s} }
func (s *Store) Applications() repository.ApplicationRepository { return &ApplicationRepository{store: s} }
func (s *Store) Users() repository.UserRepository               { return &UserRepository{store: s} }

func (s *Store) Close() {}

type tx struct {
	slots *SlotRepository
	apps  *ApplicationRepository
}

func (t *tx) Slots() repository.SlotRepository               { return t.slots }
func (t *tx) Applications() repository.ApplicationRepository { return t.apps }

// Atomic захватывает мьютексы учителя и слота (в этом порядке) и откатывает записи fn при ошибке
func (s *Store) Atomic(ctx context.Context, lock repository.Lock, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if lock.TeacherID != nil {
		unlock := s.locks.Lock("teacher:" + strconv.FormatInt(*lock.TeacherID, 10))
		defer unlock()
	}
	if lock.SlotID != nil {
		unlock := s.locks.Lock("slot:" + lock.SlotID.String())
		defer unlock()
	}

	journal := &undoLog{}
	err := fn(ctx, &tx{
		slots: &SlotRepository{store: s, undo: journal},
		apps:  &ApplicationRepository{store: s, undo: journal},
	})
	if err != nil {
		s.mu.Lock()
		journal.rollback()
		s.mu.Unlock()
		return err
	}

	return nil
}

// undoLog записи для отката, применяются в обратном порядке под s.mu
type undoLog struct {
	steps []func()
}

func (u *undoLog) record(step func()) {
	if u != nil {
		u.steps = append(u.steps, step)
	}
}

func (u *undoLog) rollback() {
	for i := len(u.steps) - 1; i >= 0; i-- {
		u.steps[i]()
	}
	u.steps = nil
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex мьютекс на строковый ключ, записи удаляются когда не нужны
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
