package handlers

import (
	"time"

	"github.com/Freeeeeet/tutor_slots/internal/service"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	userService       *service.UserService
	slotService       *service.SlotService
	bookingService    *service.BookingService
	recurrenceService *service.RecurrenceService
	queryService      *service.QueryService
	loc               *time.Location
	logger            *zap.Logger

	routes map[string]bot.HandlerFunc
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	userService *service.UserService,
	slotService *service.SlotService,
	bookingService *service.BookingService,
	recurrenceService *service.RecurrenceService,
	queryService *service.QueryService,
	loc *time.Location,
	logger *zap.Logger,
) *Handlers {
	if loc == nil {
		loc = time.UTC
	}

	h := &Handlers{
		userService:       userService,
		slotService:       slotService,
		bookingService:    bookingService,
		recurrenceService: recurrenceService,
		queryService:      queryService,
		loc:               loc,
		logger:            logger,
	}

	h.routes = map[string]bot.HandlerFunc{
		"start":          h.HandleStart,
		"help":           h.HandleHelp,
		"becometeacher":  h.HandleBecomeTeacher,
		"slots":          h.HandleSlots,
		"book":           h.HandleBook,
		"apply":          h.HandleApply,
		"cancel":         h.HandleCancel,
		"myapplications": h.HandleMyApplications,
		"newslot":        h.HandleNewSlot,
		"recurring":      h.HandleRecurring,
		"myslots":        h.HandleMySlots,
		"week":           h.HandleWeek,
		"applications":   h.HandleApplications,
		"accept":         h.HandleAccept,
		"reject":         h.HandleReject,
		"cancelslot":     h.HandleCancelSlot,
		"cancelgroup":    h.HandleCancelGroup,
		"deleteslot":     h.HandleDeleteSlot,
	}

	return h
}

func (h *Handlers) now() time.Time {
	return time.Now().In(h.loc)
}
