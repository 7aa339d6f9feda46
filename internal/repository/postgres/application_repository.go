package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	applicationColumns = `id, slot_id, student_id, message, status, direct, reason, created_at, decided_at`

	// частичный уникальный индекс: одна живая заявка на пару (slot_id, student_id)
	liveApplicationIndex = "applications_live_slot_student_idx"
)

type ApplicationRepository struct {
	db querier
}

func NewApplicationRepository(db querier) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func scanApplication(row scanner) (*model.Application, error) {
	var app model.Application
	err := row.Scan(
		&app.ID,
		&app.SlotID,
		&app.StudentID,
		&app.Message,
		&app.Status,
		&app.Direct,
		&app.Reason,
		&app.CreatedAt,
		&app.DecidedAt,
	)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func collectApplications(rows pgx.Rows) ([]*model.Application, error) {
	defer rows.Close()

	var apps []*model.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}

	return apps, nil
}

// Create создаёт заявку. Нарушение индекса живых заявок - ErrDuplicateApplication.
func (r *ApplicationRepository) Create(ctx context.Context, app *model.Application) error {
	query := `
		INSERT INTO applications (id, slot_id, student_id, message, status, direct, reason, created_at, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(
		ctx, query,
		app.ID,
		app.SlotID,
		app.StudentID,
		app.Message,
		app.Status,
		app.Direct,
		app.Reason,
		app.CreatedAt,
		app.DecidedAt,
	)

	if err != nil {
		if isUniqueViolation(err, liveApplicationIndex) {
			return model.NewOpError("create application", model.ErrDuplicateApplication, "slot %s, student %d", app.SlotID, app.StudentID)
		}
		return fmt.Errorf("create application: %w", err)
	}

	return nil
}

// GetByID получает заявку по ID
func (r *ApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	app, err := scanApplication(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get application by id: %w", err)
	}

	return app, nil
}

// GetBySlotID получает все заявки на слот в порядке подачи
func (r *ApplicationRepository) GetBySlotID(ctx context.Context, slotID uuid.UUID) ([]*model.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE slot_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, slotID)
	if err != nil {
		return nil, fmt.Errorf("get applications by slot: %w", err)
	}

	return collectApplications(rows)
}

// GetByStudentID получает все заявки студента, новые первыми
func (r *ApplicationRepository) GetByStudentID(ctx context.Context, studentID int64) ([]*model.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE student_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("get applications by student: %w", err)
	}

	return collectApplications(rows)
}

// GetLive получает живую заявку пары (слот, студент)
func (r *ApplicationRepository) GetLive(ctx context.Context, slotID uuid.UUID, studentID int64) (*model.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE slot_id = $1 AND student_id = $2 AND status IN ('pending', 'accepted')
		LIMIT 1
	`

	app, err := scanApplication(r.db.QueryRow(ctx, query, slotID, studentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get live application: %w", err)
	}

	return app, nil
}

// CountBySlotID считает заявки любого статуса
func (r *ApplicationRepository) CountBySlotID(ctx context.Context, slotID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM applications WHERE slot_id = $1`, slotID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count applications: %w", err)
	}
	return count, nil
}

// Update сохраняет статус, причину и время решения
func (r *ApplicationRepository) Update(ctx context.Context, app *model.Application) error {
	query := `
		UPDATE applications
		SET status = $1, reason = $2, decided_at = $3
		WHERE id = $4
	`

	result, err := r.db.Exec(ctx, query, app.Status, app.Reason, app.DecidedAt, app.ID)
	if err != nil {
		if isUniqueViolation(err, liveApplicationIndex) {
			return model.NewOpError("update application", model.ErrDuplicateApplication, "slot %s, student %d", app.SlotID, app.StudentID)
		}
		return fmt.Errorf("update application status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update application: %w", model.ErrNotFound)
	}

	return nil
}
