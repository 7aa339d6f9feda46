package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Sweeper фоновая работа над слотами (service.SlotService)
type Sweeper interface {
	CompleteEnded(ctx context.Context) (int64, error)
}

// Scheduler периодически переводит закончившиеся слоты в completed,
// чтобы в поиске не оставались устаревшие available
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	started  atomic.Bool
}

func NewScheduler(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run блокируется до Stop или отмены ctx, повторный вызов сразу возвращается
func (s *Scheduler) Run(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	defer close(s.done)

	s.logger.Info("Starting background scheduler", zap.Duration("interval", s.interval))

	// Первый запуск сразу при старте
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			s.logger.Info("Status sweep stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Status sweep cancelled")
			return
		}
	}
}

// Stop останавливает Run и ждёт его завершения; без запущенного Run не блокируется
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	if s.started.Load() {
		<-s.done
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	count, err := s.sweeper.CompleteEnded(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("Failed to complete ended slots", zap.Error(err))
		}
		return
	}
	s.logger.Debug("Status sweep finished", zap.Int64("completed", count))
}
