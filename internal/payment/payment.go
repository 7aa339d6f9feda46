// Package payment передача оплаты во внешний сервис.
// Бронирование не ждёт оплату: запрос отправляется после коммита по id заявки.
package payment

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Request запрос на списание за принятую заявку
type Request struct {
	ApplicationID uuid.UUID
	SlotID        uuid.UUID
	StudentID     int64
	TeacherID     int64
	Amount        int // в копейках/центах
}

type Requester interface {
	Request(ctx context.Context, req Request) error
}

// LogRequester только логирует запросы, пока нет платёжного провайдера
type LogRequester struct {
	logger *zap.Logger
}

func NewLogRequester(logger *zap.Logger) *LogRequester {
	return &LogRequester{logger: logger}
}

func (r *LogRequester) Request(ctx context.Context, req Request) error {
	r.logger.Info("Payment requested",
		zap.String("application_id", req.ApplicationID.String()),
		zap.String("slot_id", req.SlotID.String()),
		zap.Int64("student_id", req.StudentID),
		zap.Int64("teacher_id", req.TeacherID),
		zap.Int("amount", req.Amount),
	)
	return nil
}
