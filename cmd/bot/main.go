package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/tutor_slots/internal/app"
	"github.com/Freeeeeet/tutor_slots/internal/config"
	"github.com/Freeeeeet/tutor_slots/internal/controller"
	"github.com/Freeeeeet/tutor_slots/internal/controller/handlers"
	"github.com/Freeeeeet/tutor_slots/internal/notify"
	"github.com/Freeeeeet/tutor_slots/internal/payment"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Bot stopped with error", zap.Error(err))
	}
	logger.Info("Bot stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting tutor slots bot",
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.Storage),
		zap.String("timezone", cfg.Location.String()),
	)

	if cfg.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}

	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	b, err := bot.New(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	sinks := []notify.Sink{
		notify.NewLogSink(logger.Named("events")),
		notify.NewTelegramSink(b, store.Users()),
	}
	if cfg.RedisAddr != "" {
		client, err := notify.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()

		sinks = append(sinks, notify.NewRedisSink(client, cfg.RedisChannel))
		logger.Info("✅ Publishing events to Redis",
			zap.String("addr", cfg.RedisAddr),
			zap.String("channel", cfg.RedisChannel),
		)
	}

	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueue,
	}, logger.Named("notify"), sinks...)
	defer dispatcher.Close()

	services := app.NewServices(store, dispatcher, payment.NewLogRequester(logger.Named("payment")), cfg.Location, logger)

	cmdHandlers := handlers.NewHandlers(
		services.Users,
		services.Slots,
		services.Bookings,
		services.Recurrence,
		services.Query,
		cfg.Location,
		logger,
	)
	botController := controller.NewBotController(b, cmdHandlers, logger)
	if err := botController.RegisterHandlers(ctx); err != nil {
		// меню команд не критично для работы
		logger.Warn("Failed to register bot commands menu", zap.Error(err))
	}

	scheduler := app.NewScheduler(services.Slots, cfg.SweepInterval, logger.Named("sweeper"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return botController.Start(gctx)
	})
	g.Go(func() error {
		scheduler.Run(gctx)
		return nil
	})

	return g.Wait()
}
