// Package postgres реализация хранилища на pgx/v5.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/tutor_slots/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier общий интерфейс *pgxpool.Pool и pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// scanner общий интерфейс pgx.Row и pgx.Rows
type scanner interface {
	Scan(dest ...any) error
}

const uniqueViolation = "23505"

// Store хранилище поверх пула соединений
type Store struct {
	pool  *pgxpool.Pool
	slots *SlotRepository
	apps  *ApplicationRepository
	users *UserRepository
}

// Connect открывает пул и проверяет соединение
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// NewStore создаёт хранилище
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:  pool,
		slots: NewSlotRepository(pool),
		apps:  NewApplicationRepository(pool),
		users: NewUserRepository(pool),
	}
}

// Pool возвращает пул соединений
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) Slots() repository.SlotRepository               { return s.slots }
func (s *Store) Applications() repository.ApplicationRepository { return s.apps }
func (s *Store) Users() repository.UserRepository               { return s.users }

// Close закрывает пул
func (s *Store) Close() {
	s.pool.Close()
}

type tx struct {
	slots *SlotRepository
	apps  *ApplicationRepository
}

func (t *tx) Slots() repository.SlotRepository               { return t.slots }
func (t *tx) Applications() repository.ApplicationRepository { return t.apps }

// Atomic выполняет fn в транзакции. Учитель блокируется advisory-локом на время транзакции,
// слот - блокировкой строки SELECT ... FOR UPDATE.
func (s *Store) Atomic(ctx context.Context, lock repository.Lock, fn func(ctx context.Context, tx repository.Tx) error) error {
	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer pgTx.Rollback(ctx)

	if lock.TeacherID != nil {
		_, err = pgTx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended('teacher:' || $1::text, 0))`, *lock.TeacherID)
		if err != nil {
			return fmt.Errorf("lock teacher: %w", err)
		}
	}

	if lock.SlotID != nil {
		var locked bool
		err = pgTx.QueryRow(ctx, `SELECT true FROM slots WHERE id = $1 FOR UPDATE`, *lock.SlotID).Scan(&locked)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("lock slot: %w", err)
		}
	}

	err = fn(ctx, &tx{
		slots: NewSlotRepository(pgTx),
		apps:  NewApplicationRepository(pgTx),
	})
	if err != nil {
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// isUniqueViolation проверяет нарушение уникального индекса
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}
