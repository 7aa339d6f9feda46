package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusBooked    SlotStatus = "booked"
	SlotStatusCompleted SlotStatus = "completed"
	SlotStatusCancelled SlotStatus = "cancelled"
)

// MaxPrice верхняя граница цены, колонка price в БД 32-битная
const MaxPrice = 1<<31 - 1

// Pricing цена в копейках/центах, Price > 0 только для платных слотов
type Pricing struct {
	IsPaid bool `json:"is_paid"`
	Price  int  `json:"price"`
}

// Validate: платный слот требует цену > 0, бесплатный не должен иметь цену
func (p Pricing) Validate() error {
	if p.IsPaid && p.Price <= 0 {
		return NewOpError("validate pricing", ErrInvalidPricing, "paid slot requires price > 0")
	}
	if p.Price > MaxPrice {
		return NewOpError("validate pricing", ErrInvalidPricing, "price %d exceeds %d", p.Price, MaxPrice)
	}
	if !p.IsPaid && p.Price != 0 {
		return NewOpError("validate pricing", ErrInvalidPricing, "free slot cannot have a price")
	}
	return nil
}

// SlotMetadata необязательные поля без инвариантов
type SlotMetadata struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Level       string `json:"level"`
	IsPublic    bool   `json:"is_public"`
}

type Slot struct {
	ID                uuid.UUID    `json:"id"`
	TeacherID         int64        `json:"teacher_id"`
	Range             TimeRange    `json:"range"`
	MaxStudents       int          `json:"max_students"`
	EnrolledStudents  []int64      `json:"enrolled_students"` // порядок записи сохраняется
	Pricing           Pricing      `json:"pricing"`
	Metadata          SlotMetadata `json:"metadata"`
	Status            SlotStatus   `json:"status"`
	RecurrenceGroupID *uuid.UUID   `json:"recurrence_group_id"` // nil для одиночных слотов
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// DeriveStatus вычисляет статус из записанных студентов и времени.
// cancelled - единственное хранимое значение, которое перекрывает вычисление.
func (s *Slot) DeriveStatus(now time.Time) SlotStatus {
	switch {
	case s.Status == SlotStatusCancelled:
		return SlotStatusCancelled
	case s.Range.IsInPast(now):
		return SlotStatusCompleted
	case len(s.EnrolledStudents) >= s.MaxStudents:
		return SlotStatusBooked
	default:
		return SlotStatusAvailable
	}
}

// Refresh пересчитывает кэшированный статус
func (s *Slot) Refresh(now time.Time) {
	s.Status = s.DeriveStatus(now)
}

func (s *Slot) IsCancelled() bool {
	return s.Status == SlotStatusCancelled
}

func (s *Slot) FreeSeats() int {
	return max(s.MaxStudents-len(s.EnrolledStudents), 0)
}

func (s *Slot) IsEnrolled(studentID int64) bool {
	return slices.Contains(s.EnrolledStudents, studentID)
}

// Enroll добавляет студента, если есть место
func (s *Slot) Enroll(studentID int64) error {
	if s.IsEnrolled(studentID) {
		return NewOpError("enroll", ErrDuplicateApplication, "student %d already enrolled", studentID)
	}
	if s.FreeSeats() == 0 {
		return NewOpError("enroll", ErrSlotFull, "%d of %d seats taken", len(s.EnrolledStudents), s.MaxStudents)
	}
	s.EnrolledStudents = append(s.EnrolledStudents, studentID)
	return nil
}

// Unenroll убирает студента, сохраняя порядок остальных
func (s *Slot) Unenroll(studentID int64) {
	s.EnrolledStudents = slices.DeleteFunc(s.EnrolledStudents, func(id int64) bool {
		return id == studentID
	})
}

// Clone возвращает глубокую копию
func (s *Slot) Clone() *Slot {
	if s == nil {
		return nil
	}
	c := *s
	c.EnrolledStudents = slices.Clone(s.EnrolledStudents)
	if s.RecurrenceGroupID != nil {
		g := *s.RecurrenceGroupID
		c.RecurrenceGroupID = &g
	}
	return &c
}

// SlotListing слот вместе с именем учителя для поиска
type SlotListing struct {
	Slot        *Slot
	TeacherName string
}
