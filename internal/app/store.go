package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_slots/internal/config"
	"github.com/Freeeeeet/tutor_slots/internal/payment"
	"github.com/Freeeeeet/tutor_slots/internal/repository"
	"github.com/Freeeeeet/tutor_slots/internal/repository/memory"
	"github.com/Freeeeeet/tutor_slots/internal/repository/postgres"
	"github.com/Freeeeeet/tutor_slots/internal/service"
	"go.uber.org/zap"
)

// OpenStore открывает хранилище из конфига. Для postgres сначала применяются миграции.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("Using in-memory storage, data will be lost on restart")
		return memory.NewStore(), nil
	}

	pool, err := postgres.Connect(ctx, cfg.GetDBDSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("✅ Connected to database")

	migrator, err := NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return postgres.NewStore(pool), nil
}

// Services сервисы ядра над одним хранилищем
type Services struct {
	Users      *service.UserService
	Slots      *service.SlotService
	Bookings   *service.BookingService
	Recurrence *service.RecurrenceService
	Query      *service.QueryService
}

func NewServices(
	store repository.Store,
	notifier service.Notifier,
	payments payment.Requester,
	loc *time.Location,
	logger *zap.Logger,
) *Services {
	opts := []service.Option{service.WithLocation(loc)}

	return &Services{
		Users:      service.NewUserService(store.Users(), logger),
		Slots:      service.NewSlotService(store, notifier, logger, opts...),
		Bookings:   service.NewBookingService(store, notifier, payments, logger, opts...),
		Recurrence: service.NewRecurrenceService(store, notifier, logger, opts...),
		Query:      service.NewQueryService(store.Slots(), opts...),
	}
}
