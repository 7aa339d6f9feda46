package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSlot_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	future := mustRange(t, "2025-03-10", "14:00", "15:00")

	tests := []struct {
		name  string
		actor model.Actor
		in    SlotInput
		want  error
	}{
		{
			name:  "zero capacity",
			actor: env.teacher,
			in:    SlotInput{Range: future, MaxStudents: 0},
			want:  model.ErrInvalidCapacity,
		},
		{
			name:  "paid without price",
			actor: env.teacher,
			in:    SlotInput{Range: future, MaxStudents: 1, Pricing: model.Pricing{IsPaid: true}},
			want:  model.ErrInvalidPricing,
		},
		{
			name:  "free with price",
			actor: env.teacher,
			in:    SlotInput{Range: future, MaxStudents: 1, Pricing: model.Pricing{Price: 100}},
			want:  model.ErrInvalidPricing,
		},
		{
			name:  "end before start",
			actor: env.teacher,
			in: SlotInput{
				Range:       model.TimeRange{Date: future.Date, Start: 900, End: 840},
				MaxStudents: 1,
			},
			want: model.ErrInvalidRange,
		},
		{
			name:  "in the past",
			actor: env.teacher,
			in:    SlotInput{Range: mustRange(t, "2025-02-28", "14:00", "15:00"), MaxStudents: 1},
			want:  model.ErrInvalidRange,
		},
		{
			name:  "started today",
			actor: env.teacher,
			in:    SlotInput{Range: mustRange(t, "2025-03-01", "08:30", "10:00"), MaxStudents: 1},
			want:  model.ErrInvalidRange,
		},
		{
			name:  "student cannot create",
			actor: env.studentA,
			in:    SlotInput{Range: future, MaxStudents: 1},
			want:  model.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.slots.CreateSlot(ctx, tt.actor, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateSlot_InitialState(t *testing.T) {
	env := newTestEnv(t)
	slot := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 2)

	assert.Equal(t, model.SlotStatusAvailable, slot.Status)
	assert.Empty(t, slot.EnrolledStudents)
	assert.Nil(t, slot.RecurrenceGroupID)

	events := env.notifier.ofType(model.EventSlotCreated)
	require.Len(t, events, 1)
	assert.Equal(t, "Анна Петрова", events[0].TeacherName)
	assert.Empty(t, events[0].Recipients())
}

func TestCreateSlot_Conflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 1)

	_, err := env.slots.CreateSlot(ctx, env.teacher, SlotInput{
		Range:       mustRange(t, "2025-03-10", "14:30", "15:30"),
		MaxStudents: 1,
	})
	assert.ErrorIs(t, err, model.ErrSlotConflict)

	// встык без пересечения
	_, err = env.slots.CreateSlot(ctx, env.teacher, SlotInput{
		Range:       mustRange(t, "2025-03-10", "15:00", "16:00"),
		MaxStudents: 1,
	})
	assert.NoError(t, err)

	// у другого учителя пересечение не считается
	_, err = env.slots.CreateSlot(ctx, model.Teacher(42), SlotInput{
		Range:       mustRange(t, "2025-03-10", "14:00", "15:00"),
		MaxStudents: 1,
	})
	assert.NoError(t, err)
}

func TestCreateSlot_CancelledSlotDoesNotConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	slot := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 1)

	_, err := env.slots.CancelSlot(ctx, env.teacher, slot.ID, "")
	require.NoError(t, err)

	env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 1)
}

func TestUpdateSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	slot := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 1)
	env.createSlot(t, mustRange(t, "2025-03-10", "16:00", "17:00"), 1)

	t.Run("move onto itself", func(t *testing.T) {
		r := mustRange(t, "2025-03-10", "14:30", "15:30")
		updated, err := env.slots.UpdateSlot(ctx, env.teacher, slot.ID, SlotPatch{Range: &r})
		require.NoError(t, err)
		assert.Equal(t, r, updated.Range)
	})

	t.Run("conflict with other slot", func(t *testing.T) {
		r := mustRange(t, "2025-03-10", "15:30", "16:30")
		_, err := env.slots.UpdateSlot(ctx, env.teacher, slot.ID, SlotPatch{Range: &r})
		assert.ErrorIs(t, err, model.ErrSlotConflict)
	})

	t.Run("into the past", func(t *testing.T) {
		r := mustRange(t, "2025-02-10", "14:00", "15:00")
		_, err := env.slots.UpdateSlot(ctx, env.teacher, slot.ID, SlotPatch{Range: &r})
		assert.ErrorIs(t, err, model.ErrInvalidRange)
	})

	t.Run("capacity", func(t *testing.T) {
		capacity := 3
		updated, err := env.slots.UpdateSlot(ctx, env.teacher, slot.ID, SlotPatch{MaxStudents: &capacity})
		require.NoError(t, err)
		assert.Equal(t, 3, updated.MaxStudents)

		zero := 0
		_, err = env.slots.UpdateSlot(ctx, env.teacher, slot.ID, SlotPatch{MaxStudents: &zero})
		assert.ErrorIs(t, err, model.ErrInvalidCapacity)
	})

	t.Run("other teacher", func(t *testing.T) {
		meta := model.SlotMetadata{Subject: "Физика"}
		_, err := env.slots.UpdateSlot(ctx, model.Teacher(42), slot.ID, SlotPatch{Metadata: &meta})
		assert.ErrorIs(t, err, model.ErrForbidden)
	})
}

// Начавшийся слот: правки без смены времени проходят остальные проверки создания,
// требование будущего времени действует только при переносе.
func TestUpdateSlot_StartedSlotKeepsTimeButAllowsEdits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	slot := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 1)

	env.clock.Set(time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC))

	meta := model.SlotMetadata{Subject: "Физика", IsPublic: true}
	price := model.Pricing{IsPaid: true, Price: 150000}
	updated, err := env.slots.UpdateSlot(ctx, env.teacher, slot.ID, SlotPatch{Metadata: &meta, Pricing: &price})
	require.NoError(t, err)
	assert.Equal(t, "Физика", updated.Metadata.Subject)
	assert.Equal(t, price, updated.Pricing)

	bad := model.Pricing{IsPaid: true}
	_, err = env.slots.UpdateSlot(ctx, env.teacher, slot.ID, SlotPatch{Pricing: &bad})
	assert.ErrorIs(t, err, model.ErrInvalidPricing)

	started := mustRange(t, "2025-03-10", "14:15", "15:00")
	_, err = env.slots.UpdateSlot(ctx, env.teacher, slot.ID, SlotPatch{Range: &started})
	assert.ErrorIs(t, err, model.ErrInvalidRange)

	later := mustRange(t, "2025-03-11", "14:00", "15:00")
	moved, err := env.slots.UpdateSlot(ctx, env.teacher, slot.ID, SlotPatch{Range: &later})
	require.NoError(t, err)
	assert.Equal(t, later, moved.Range)
}

func TestUpdateSlot_LockedByLiveApplication(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	slot := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 2)

	app, err := env.bookings.Apply(ctx, env.studentA, slot.ID, "")
	require.NoError(t, err)

	r := mustRange(t, "2025-03-11", "14:00", "15:00")
	_, err = env.slots.UpdateSlot(ctx, env.teacher, slot.ID, SlotPatch{Range: &r})
	assert.ErrorIs(t, err, model.ErrSlotLocked)

	capacity := 5
	_, err = env.slots.UpdateSlot(ctx, env.teacher, slot.ID, SlotPatch{MaxStudents: &capacity})
	assert.ErrorIs(t, err, model.ErrSlotLocked)

	// метаданные можно менять всегда
	meta := model.SlotMetadata{Subject: "Алгебра", IsPublic: true}
	updated, err := env.slots.UpdateSlot(ctx, env.teacher, slot.ID, SlotPatch{Metadata: &meta})
	require.NoError(t, err)
	assert.Equal(t, "Алгебра", updated.Metadata.Subject)

	// после отклонения заявки время снова можно менять
	_, err = env.bookings.Reject(ctx, env.teacher, app.ID, "")
	require.NoError(t, err)
	_, err = env.slots.UpdateSlot(ctx, env.teacher, slot.ID, SlotPatch{Range: &r})
	assert.NoError(t, err)
}

func TestCancelSlot_Cascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	slot := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 3)

	appA, err := env.bookings.Apply(ctx, env.studentA, slot.ID, "")
	require.NoError(t, err)
	appB, err := env.bookings.Apply(ctx, env.studentB, slot.ID, "")
	require.NoError(t, err)

	cancelled, err := env.slots.CancelSlot(ctx, env.teacher, slot.ID, "заболела")
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusCancelled, cancelled.Status)

	apps, err := env.bookings.ListSlotApplications(ctx, env.teacher, slot.ID)
	require.NoError(t, err)
	require.Len(t, apps, 2)
	for _, app := range apps {
		assert.Equal(t, model.ApplicationStatusCancelled, app.Status)
		assert.Equal(t, model.ReasonSlotCancelled, app.Reason)
		assert.NotNil(t, app.DecidedAt)
	}

	_, err = env.bookings.Accept(ctx, env.teacher, appA.ID)
	assert.ErrorIs(t, err, model.ErrAlreadyDecided)
	_, err = env.bookings.Reject(ctx, env.teacher, appB.ID, "")
	assert.ErrorIs(t, err, model.ErrAlreadyDecided)

	_, err = env.bookings.Apply(ctx, env.studentA, slot.ID, "")
	assert.ErrorIs(t, err, model.ErrSlotNotAvailable)

	events := env.notifier.ofType(model.EventSlotCancelled)
	require.Len(t, events, 1)
	assert.ElementsMatch(t, []int64{env.studentA.UserID, env.studentB.UserID}, events[0].Recipients())
	assert.Equal(t, "заболела", events[0].Reason)

	// повторная отмена ничего не меняет и не шлёт событий
	_, err = env.slots.CancelSlot(ctx, env.teacher, slot.ID, "")
	require.NoError(t, err)
	assert.Len(t, env.notifier.ofType(model.EventSlotCancelled), 1)

	_, err = env.slots.UpdateSlot(ctx, env.teacher, slot.ID, SlotPatch{})
	assert.ErrorIs(t, err, model.ErrSlotCancelled)
}

func TestDeleteSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	empty := env.createSlot(t, mustRange(t, "2025-03-10", "10:00", "11:00"), 1)
	require.NoError(t, env.slots.DeleteSlot(ctx, env.teacher, empty.ID))
	_, err := env.slots.GetSlot(ctx, env.teacher, empty.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	used := env.createSlot(t, mustRange(t, "2025-03-10", "12:00", "13:00"), 1)
	app, err := env.bookings.Apply(ctx, env.studentA, used.ID, "")
	require.NoError(t, err)
	_, err = env.bookings.Cancel(ctx, env.studentA, app.ID, "")
	require.NoError(t, err)

	// отменённая заявка всё равно остаётся историей
	err = env.slots.DeleteSlot(ctx, env.teacher, used.ID)
	assert.ErrorIs(t, err, model.ErrSlotNotDeletable)

	err = env.slots.DeleteSlot(ctx, model.Teacher(42), used.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)
}

func TestGetSlot_Visibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	private, err := env.slots.CreateSlot(ctx, env.teacher, SlotInput{
		Range:       mustRange(t, "2025-03-10", "14:00", "15:00"),
		MaxStudents: 1,
	})
	require.NoError(t, err)

	_, err = env.slots.GetSlot(ctx, env.teacher, private.ID)
	assert.NoError(t, err)
	_, err = env.slots.GetSlot(ctx, env.studentA, private.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGetSlot_DerivesCompleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	slot := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 1)

	env.clock.Set(time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC))

	got, err := env.slots.GetSlot(ctx, env.studentA, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusCompleted, got.Status)

	_, err = env.bookings.DirectBook(ctx, env.studentA, slot.ID)
	assert.ErrorIs(t, err, model.ErrSlotNotAvailable)
}

func TestCompleteEnded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ended := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 1)
	running := env.createSlot(t, mustRange(t, "2025-03-10", "15:00", "16:00"), 1)
	later := env.createSlot(t, mustRange(t, "2025-03-11", "09:00", "10:00"), 1)

	env.clock.Set(time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC))

	count, err := env.slots.CompleteEnded(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	stored, err := env.store.Slots().GetByID(ctx, ended.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusCompleted, stored.Status)

	for _, slot := range []*model.Slot{running, later} {
		stored, err := env.store.Slots().GetByID(ctx, slot.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SlotStatusAvailable, stored.Status)
	}
}

func TestListTeacherSlots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createSlot(t, mustRange(t, "2025-03-12", "10:00", "11:00"), 1)
	env.createSlot(t, mustRange(t, "2025-03-10", "10:00", "11:00"), 1)
	env.createSlot(t, mustRange(t, "2025-03-20", "10:00", "11:00"), 1)

	from, _ := model.ParseDate("2025-03-10")
	to, _ := model.ParseDate("2025-03-12")
	slots, err := env.slots.ListTeacherSlots(ctx, env.teacher, from, to)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, from, slots[0].Range.Date)
	assert.Equal(t, to, slots[1].Range.Date)

	all, err := env.slots.ListTeacherSlots(ctx, env.teacher, from, model.Date{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCancelGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	start, _ := model.ParseDate("2025-03-03")
	result, err := env.recurrence.CreateRecurring(ctx, env.teacher, model.RecurrenceTemplate{
		StartDate:      start,
		StartTime:      600,
		EndTime:        660,
		MaxStudents:    1,
		Metadata:       model.SlotMetadata{IsPublic: true},
		RecurringDays:  []time.Weekday{time.Monday},
		RecurringWeeks: 4,
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 4)

	_, err = env.bookings.DirectBook(ctx, env.studentA, result.Created[3].ID)
	require.NoError(t, err)

	from, _ := model.ParseDate("2025-03-17")
	count, err := env.slots.CancelGroup(ctx, env.teacher, result.GroupID, from, "отпуск")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	slots, err := env.store.Slots().GetByGroupID(ctx, result.GroupID)
	require.NoError(t, err)
	for _, slot := range slots {
		wantCancelled := !slot.Range.Date.Before(from)
		assert.Equal(t, wantCancelled, slot.IsCancelled(), slot.Range.String())
	}

	events := env.notifier.ofType(model.EventSlotCancelled)
	require.Len(t, events, 2)

	_, err = env.slots.CancelGroup(ctx, model.Teacher(42), result.GroupID, from, "")
	assert.ErrorIs(t, err, model.ErrForbidden)
}
