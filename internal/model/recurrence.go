package model

import (
	"time"

	"github.com/google/uuid"
)

// RecurrenceTemplate шаблон регулярного расписания: одинаковое время по выбранным дням недели
type RecurrenceTemplate struct {
	StartDate      Date           `json:"start_date"`
	StartTime      Clock          `json:"start_time"`
	EndTime        Clock          `json:"end_time"`
	MaxStudents    int            `json:"max_students"`
	Pricing        Pricing        `json:"pricing"`
	Metadata       SlotMetadata   `json:"metadata"`
	RecurringDays  []time.Weekday `json:"recurring_days"`
	RecurringWeeks int            `json:"recurring_weeks"` // горизонт в неделях от StartDate
}

// SkippedInstance экземпляр шаблона, который не удалось создать
type SkippedInstance struct {
	Range TimeRange `json:"range"`
	Err   error     `json:"-"`
}

// RecurrenceResult частичный успех: созданные и пропущенные экземпляры
type RecurrenceResult struct {
	GroupID uuid.UUID         `json:"group_id"`
	Created []*Slot           `json:"created"`
	Skipped []SkippedInstance `json:"skipped"`
}
