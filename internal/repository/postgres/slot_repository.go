package postgres

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const slotColumns = `
	s.id, s.teacher_id, s.slot_date, s.start_minute, s.end_minute, s.max_students, s.enrolled_students,
	s.is_paid, s.price, s.subject, s.description, s.level, s.is_public, s.status, s.recurrence_group_id,
	s.created_at, s.updated_at`

type SlotRepository struct {
	db querier
}

func NewSlotRepository(db querier) *SlotRepository {
	return &SlotRepository{db: db}
}

// scanSlot читает строку slotColumns, extra - дополнительные колонки после неё
func scanSlot(row scanner, extra ...any) (*model.Slot, error) {
	var (
		slot     model.Slot
		date     time.Time
		start    int
		end      int
		enrolled []int64
	)

	dest := []any{
		&slot.ID,
		&slot.TeacherID,
		&date,
		&start,
		&end,
		&slot.MaxStudents,
		&enrolled,
		&slot.Pricing.IsPaid,
		&slot.Pricing.Price,
		&slot.Metadata.Subject,
		&slot.Metadata.Description,
		&slot.Metadata.Level,
		&slot.Metadata.IsPublic,
		&slot.Status,
		&slot.RecurrenceGroupID,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	}

	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	slot.Range = model.TimeRange{Date: model.DateOf(date), Start: model.Clock(start), End: model.Clock(end)}
	slot.EnrolledStudents = enrolled
	if slot.EnrolledStudents == nil {
		slot.EnrolledStudents = []int64{}
	}

	return &slot, nil
}

func collectSlots(rows pgx.Rows) ([]*model.Slot, error) {
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}

	return slots, nil
}

// Create сохраняет новый слот
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO slots (id, teacher_id, slot_date, start_minute, end_minute, max_students, enrolled_students,
			is_paid, price, subject, description, level, is_public, status, recurrence_group_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		slot.ID,
		slot.TeacherID,
		slot.Range.Date.Time(),
		int(slot.Range.Start),
		int(slot.Range.End),
		slot.MaxStudents,
		enrolledOrEmpty(slot.EnrolledStudents),
		slot.Pricing.IsPaid,
		slot.Pricing.Price,
		slot.Metadata.Subject,
		slot.Metadata.Description,
		slot.Metadata.Level,
		slot.Metadata.IsPublic,
		slot.Status,
		slot.RecurrenceGroupID,
	).Scan(&slot.CreatedAt, &slot.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots s WHERE s.id = $1`

	slot, err := scanSlot(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// GetByTeacherID получает все слоты учителя
func (r *SlotRepository) GetByTeacherID(ctx context.Context, teacherID int64) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots s
		WHERE s.teacher_id = $1
		ORDER BY s.slot_date, s.start_minute
	`

	rows, err := r.db.Query(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get slots by teacher: %w", err)
	}

	return collectSlots(rows)
}

// GetByGroupID получает все слоты одной группы повторений
func (r *SlotRepository) GetByGroupID(ctx context.Context, groupID uuid.UUID) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots s
		WHERE s.recurrence_group_id = $1
		ORDER BY s.slot_date, s.start_minute
	`

	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("get slots by group: %w", err)
	}

	return collectSlots(rows)
}

// Update перезаписывает изменяемые поля слота
func (r *SlotRepository) Update(ctx context.Context, slot *model.Slot) error {
	query := `
		UPDATE slots
		SET slot_date = $1, start_minute = $2, end_minute = $3, max_students = $4, enrolled_students = $5,
			is_paid = $6, price = $7, subject = $8, description = $9, level = $10, is_public = $11,
			status = $12, updated_at = now()
		WHERE id = $13
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		slot.Range.Date.Time(),
		int(slot.Range.Start),
		int(slot.Range.End),
		slot.MaxStudents,
		enrolledOrEmpty(slot.EnrolledStudents),
		slot.Pricing.IsPaid,
		slot.Pricing.Price,
		slot.Metadata.Subject,
		slot.Metadata.Description,
		slot.Metadata.Level,
		slot.Metadata.IsPublic,
		slot.Status,
		slot.ID,
	).Scan(&slot.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("update slot: %w", model.ErrNotFound)
		}
		return fmt.Errorf("update slot: %w", err)
	}

	return nil
}

// Delete удаляет слот
func (r *SlotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete slot: %w", model.ErrNotFound)
	}

	return nil
}

// ListPublicAvailable читает строки лениво: прерывание обхода закрывает курсор
func (r *SlotRepository) ListPublicAvailable(ctx context.Context, from model.Date) iter.Seq2[model.SlotListing, error] {
	query := `
		SELECT ` + slotColumns + `,
			COALESCE(NULLIF(TRIM(CONCAT(u.first_name, ' ', u.last_name)), ''), u.username, '')
		FROM slots s
		LEFT JOIN users u ON u.id = s.teacher_id
		WHERE s.is_public AND s.status = 'available' AND s.slot_date >= $1
		ORDER BY s.slot_date, s.start_minute, s.id
	`

	return func(yield func(model.SlotListing, error) bool) {
		rows, err := r.db.Query(ctx, query, from.Time())
		if err != nil {
			yield(model.SlotListing{}, fmt.Errorf("list available slots: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var teacherName string
			slot, err := scanSlot(rows, &teacherName)
			if err != nil {
				yield(model.SlotListing{}, fmt.Errorf("scan slot: %w", err))
				return
			}
			if !yield(model.SlotListing{Slot: slot, TeacherName: teacherName}, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(model.SlotListing{}, fmt.Errorf("iterate available slots: %w", err))
		}
	}
}

// CompleteEnded переводит закончившиеся слоты в completed
func (r *SlotRepository) CompleteEnded(ctx context.Context, today model.Date, now model.Clock) (int64, error) {
	query := `
		UPDATE slots
		SET status = 'completed', updated_at = now()
		WHERE status IN ('available', 'booked')
		  AND (slot_date < $1 OR (slot_date = $1 AND end_minute <= $2))
	`

	result, err := r.db.Exec(ctx, query, today.Time(), int(now))
	if err != nil {
		return 0, fmt.Errorf("complete ended slots: %w", err)
	}

	return result.RowsAffected(), nil
}

func enrolledOrEmpty(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
