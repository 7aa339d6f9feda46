package model

import (
	"time"

	"github.com/google/uuid"
)

type ApplicationStatus string

const (
	ApplicationStatusPending   ApplicationStatus = "pending"   // Ожидает решения учителя
	ApplicationStatusAccepted  ApplicationStatus = "accepted"  // Принята, студент записан
	ApplicationStatusRejected  ApplicationStatus = "rejected"  // Отклонена учителем
	ApplicationStatusCancelled ApplicationStatus = "cancelled" // Отменена студентом, учителем или вместе со слотом
)

// ReasonSlotCancelled причина каскадной отмены
const ReasonSlotCancelled = "slot cancelled"

// Application заявка студента на слот. Не удаляется, хранится для аудита.
type Application struct {
	ID        uuid.UUID         `json:"id"`
	SlotID    uuid.UUID         `json:"slot_id"`
	StudentID int64             `json:"student_id"`
	Message   string            `json:"message"`
	Status    ApplicationStatus `json:"status"`
	Direct    bool              `json:"direct"` // прямое бронирование без одобрения
	Reason    string            `json:"reason"` // причина отклонения или отмены
	CreatedAt time.Time         `json:"created_at"`
	DecidedAt *time.Time        `json:"decided_at"` // выставляется при выходе из pending
}

// IsLive: pending или accepted, не больше одной такой на пару (слот, студент)
func (a *Application) IsLive() bool {
	return a.Status == ApplicationStatusPending || a.Status == ApplicationStatusAccepted
}

func (a *Application) IsPending() bool {
	return a.Status == ApplicationStatusPending
}

// transition переводит заявку в новый статус и фиксирует время решения
func (a *Application) transition(to ApplicationStatus, reason string, now time.Time) {
	a.Status = to
	a.Reason = reason
	if a.DecidedAt == nil {
		a.DecidedAt = &now
	}
}

// Accept: только из pending
func (a *Application) Accept(now time.Time) error {
	if !a.IsPending() {
		return NewOpError("accept application", ErrAlreadyDecided, "status is %s", a.Status)
	}
	a.transition(ApplicationStatusAccepted, "", now)
	return nil
}

// Reject: только из pending
func (a *Application) Reject(reason string, now time.Time) error {
	if !a.IsPending() {
		return NewOpError("reject application", ErrAlreadyDecided, "status is %s", a.Status)
	}
	a.transition(ApplicationStatusRejected, reason, now)
	return nil
}

// Cancel: из pending или accepted
func (a *Application) Cancel(reason string, now time.Time) error {
	if !a.IsLive() {
		return NewOpError("cancel application", ErrAlreadyDecided, "status is %s", a.Status)
	}
	a.transition(ApplicationStatusCancelled, reason, now)
	return nil
}

func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	c := *a
	if a.DecidedAt != nil {
		t := *a.DecidedAt
		c.DecidedAt = &t
	}
	return &c
}
