package model

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSlotCreated         EventType = "slotCreated"
	EventApplicationReceived EventType = "applicationReceived"
	EventApplicationAccepted EventType = "applicationAccepted"
	EventApplicationRejected EventType = "applicationRejected"
	EventBookingCancelled    EventType = "bookingCancelled"
	EventSlotCancelled       EventType = "slotCancelled"
)

// Event содержит достаточно контекста, чтобы отрисовать сообщение получателю
type Event struct {
	Type          EventType  `json:"type"`
	SlotID        uuid.UUID  `json:"slot_id"`
	ApplicationID *uuid.UUID `json:"application_id,omitempty"`
	TeacherID     int64      `json:"teacher_id"`
	TeacherName   string     `json:"teacher_name"`
	StudentIDs    []int64    `json:"student_ids,omitempty"`
	StudentName   string     `json:"student_name,omitempty"`
	Range         TimeRange  `json:"range"`
	Subject       string     `json:"subject,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	CancelledBy   int64      `json:"cancelled_by,omitempty"`
	Direct        bool       `json:"direct,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// Recipients: кому адресовано событие
func (e Event) Recipients() []int64 {
	switch e.Type {
	case EventApplicationReceived:
		return []int64{e.TeacherID}
	case EventApplicationAccepted:
		// прямую запись студент сделал сам, узнать о ней должен учитель
		if e.Direct {
			return []int64{e.TeacherID}
		}
		return e.StudentIDs
	case EventBookingCancelled:
		recipients := make([]int64, 0, len(e.StudentIDs)+1)
		if e.CancelledBy != e.TeacherID {
			recipients = append(recipients, e.TeacherID)
		}
		for _, id := range e.StudentIDs {
			if id != e.CancelledBy {
				recipients = append(recipients, id)
			}
		}
		return recipients
	case EventSlotCreated:
		return nil
	default:
		return e.StudentIDs
	}
}
