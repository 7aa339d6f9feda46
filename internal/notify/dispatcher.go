// Package notify доставка событий ядра участникам: асинхронно и по возможности.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"go.uber.org/zap"
)

var (
	ErrDispatcherClosed = errors.New("notify: dispatcher is closed")
	ErrQueueFull        = errors.New("notify: queue is full")
)

// Sink один канал доставки
type Sink interface {
	Name() string
	Send(ctx context.Context, event model.Event) error
}

type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:     4,
		QueueSize:   256,
		SendTimeout: 10 * time.Second,
	}
}

// Dispatcher ставит события в очередь и раздаёт их всем sink'ам в фоновых воркерах.
// Notify не блокируется: переполнение очереди возвращается как ошибка.
type Dispatcher struct {
	sinks  []Sink
	queue  chan model.Event
	cfg    DispatcherConfig
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(cfg DispatcherConfig, logger *zap.Logger, sinks ...Sink) *Dispatcher {
	defaults := DefaultDispatcherConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaults.SendTimeout
	}

	d := &Dispatcher{
		sinks:  sinks,
		queue:  make(chan model.Event, cfg.QueueSize),
		cfg:    cfg,
		logger: logger,
	}

	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	return d
}

// Notify ставит событие в очередь
func (d *Dispatcher) Notify(ctx context.Context, event model.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close дожидается доставки уже поставленных событий
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("Notification dispatcher stopped")
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event model.Event) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
		err := sink.Send(ctx, event)
		cancel()

		if err != nil {
			d.logger.Warn("Failed to deliver event",
				zap.String("sink", sink.Name()),
				zap.String("event", string(event.Type)),
				zap.String("slot_id", event.SlotID.String()),
				zap.Error(err),
			)
		}
	}
}
