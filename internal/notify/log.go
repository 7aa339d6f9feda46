package notify

import (
	"context"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"go.uber.org/zap"
)

// LogSink пишет события в лог, используется когда нет Telegram и Redis
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(ctx context.Context, event model.Event) error {
	fields := []zap.Field{
		zap.String("event", string(event.Type)),
		zap.String("slot_id", event.SlotID.String()),
		zap.Int64("teacher_id", event.TeacherID),
		zap.Int64s("recipients", event.Recipients()),
		zap.Stringer("range", event.Range),
	}
	if event.ApplicationID != nil {
		fields = append(fields, zap.String("application_id", event.ApplicationID.String()))
	}
	if event.Reason != "" {
		fields = append(fields, zap.String("reason", event.Reason))
	}

	s.logger.Info("Event", fields...)
	return nil
}
