package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_slots/internal/model"
)

type UserRepository struct {
	store *Store
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.TelegramID != 0 {
		for _, existing := range s.users {
			if existing.TelegramID == user.TelegramID {
				return fmt.Errorf("create user: telegram id %d already registered", user.TelegramID)
			}
		}
	}

	s.nextUserID++
	user.ID = s.nextUserID
	user.CreatedAt = time.Now()
	stored := *user
	s.users[user.ID] = &stored

	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	found := *user
	return &found, nil
}

func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.TelegramID == telegramID {
			found := *user
			return &found, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return fmt.Errorf("update user: %w", model.ErrNotFound)
	}
	stored := *user
	s.users[user.ID] = &stored

	return nil
}
