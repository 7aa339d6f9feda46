package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestDirectBook_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	slot := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 1)

	app, err := env.bookings.DirectBook(ctx, env.studentA, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusAccepted, app.Status)
	assert.True(t, app.Direct)
	assert.NotNil(t, app.DecidedAt)

	got := env.getSlot(t, slot)
	assert.Equal(t, model.SlotStatusBooked, got.Status)
	assert.Equal(t, []int64{env.studentA.UserID}, got.EnrolledStudents)

	_, err = env.bookings.DirectBook(ctx, env.studentB, slot.ID)
	assert.ErrorIs(t, err, model.ErrSlotFull)

	// бесплатный слот: оплата не запрашивается
	assert.Empty(t, env.payments.requests)
	events := env.notifier.ofType(model.EventApplicationAccepted)
	require.Len(t, events, 1)
	assert.True(t, events[0].Direct)
	assert.Equal(t, []int64{env.teacher.UserID}, events[0].Recipients())
	assert.Equal(t, "Иван", events[0].StudentName)
}

func TestAccept_NotifiesStudentOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	slot := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 1)

	app, err := env.bookings.Apply(ctx, env.studentA, slot.ID, "")
	require.NoError(t, err)
	_, err = env.bookings.Accept(ctx, env.teacher, app.ID)
	require.NoError(t, err)

	events := env.notifier.ofType(model.EventApplicationAccepted)
	require.Len(t, events, 1)
	assert.False(t, events[0].Direct)
	assert.Equal(t, []int64{env.studentA.UserID}, events[0].Recipients())
}

func TestDirectBook_RaceForLastSeat(t *testing.T) {
	for i := 0; i < 50; i++ {
		env := newTestEnv(t)
		slot := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 1)

		var g errgroup.Group
		results := make([]error, 2)
		for n, student := range []model.Actor{env.studentA, env.studentB} {
			g.Go(func() error {
				_, err := env.bookings.DirectBook(context.Background(), student, slot.ID)
				results[n] = err
				return nil
			})
		}
		require.NoError(t, g.Wait())

		var ok, full int
		for _, err := range results {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, model.ErrSlotFull):
				full++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		require.Equal(t, 1, ok)
		require.Equal(t, 1, full)
		require.Len(t, env.getSlot(t, slot).EnrolledStudents, 1)
	}
}

func TestDirectBook_SameStudentTwice(t *testing.T) {
	env := newTestEnv(t)
	slot := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 3)

	var g errgroup.Group
	results := make([]error, 4)
	for n := range results {
		g.Go(func() error {
			_, results[n] = env.bookings.DirectBook(context.Background(), env.studentA, slot.ID)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var ok int
	for _, err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, model.ErrDuplicateApplication)
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, env.getSlot(t, slot).EnrolledStudents, 1)
}

func TestDirectBook_PaidSlotRequestsPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	slot, err := env.slots.CreateSlot(ctx, env.teacher, SlotInput{
		Range:       mustRange(t, "2025-03-10", "14:00", "15:00"),
		MaxStudents: 1,
		Pricing:     model.Pricing{IsPaid: true, Price: 2500},
		Metadata:    model.SlotMetadata{IsPublic: true},
	})
	require.NoError(t, err)

	app, err := env.bookings.DirectBook(ctx, env.studentA, slot.ID)
	require.NoError(t, err)

	require.Len(t, env.payments.requests, 1)
	req := env.payments.requests[0]
	assert.Equal(t, app.ID, req.ApplicationID)
	assert.Equal(t, 2500, req.Amount)
	assert.Equal(t, env.teacher.UserID, req.TeacherID)
}

func TestDirectBook_PaymentFailureIsSideEffect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.payments.err = errors.New("provider down")

	slot, err := env.slots.CreateSlot(ctx, env.teacher, SlotInput{
		Range:       mustRange(t, "2025-03-10", "14:00", "15:00"),
		MaxStudents: 1,
		Pricing:     model.Pricing{IsPaid: true, Price: 900},
		Metadata:    model.SlotMetadata{IsPublic: true},
	})
	require.NoError(t, err)

	app, err := env.bookings.DirectBook(ctx, env.studentA, slot.ID)
	require.ErrorIs(t, err, model.ErrSideEffectFailed)
	require.NotNil(t, app)
	assert.Equal(t, model.SlotStatusBooked, env.getSlot(t, slot).Status)
}

func TestApplyAcceptFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	slot := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 2)

	appA, err := env.bookings.Apply(ctx, env.studentA, slot.ID, "хочу подготовиться к ЕГЭ")
	require.NoError(t, err)
	appB, err := env.bookings.Apply(ctx, env.studentB, slot.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusPending, appA.Status)
	assert.Equal(t, model.ApplicationStatusPending, appB.Status)
	assert.Len(t, env.notifier.ofType(model.EventApplicationReceived), 2)

	appA, err = env.bookings.Accept(ctx, env.teacher, appA.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusAccepted, appA.Status)
	got := env.getSlot(t, slot)
	assert.Equal(t, []int64{env.studentA.UserID}, got.EnrolledStudents)
	assert.Equal(t, model.SlotStatusAvailable, got.Status)

	appB, err = env.bookings.Accept(ctx, env.teacher, appB.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusAccepted, appB.Status)
	got = env.getSlot(t, slot)
	assert.Equal(t, []int64{env.studentA.UserID, env.studentB.UserID}, got.EnrolledStudents)
	assert.Equal(t, model.SlotStatusBooked, got.Status)
}

func TestApply_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	slot := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 1)

	_, err := env.bookings.Apply(ctx, env.studentA, slot.ID, "")
	require.NoError(t, err)

	_, err = env.bookings.Apply(ctx, env.studentA, slot.ID, "ещё раз")
	assert.ErrorIs(t, err, model.ErrDuplicateApplication)

	_, err = env.bookings.DirectBook(ctx, env.studentA, slot.ID)
	assert.ErrorIs(t, err, model.ErrDuplicateApplication)

	_, err = env.bookings.DirectBook(ctx, env.studentB, slot.ID)
	require.NoError(t, err)

	third := model.Student(999)
	_, err = env.bookings.Apply(ctx, third, slot.ID, "")
	assert.ErrorIs(t, err, model.ErrSlotNotAvailable)

	_, err = env.bookings.Apply(ctx, env.teacher, slot.ID, "")
	assert.ErrorIs(t, err, model.ErrForbidden)
}

func TestApply_PrivateSlotIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	slot, err := env.slots.CreateSlot(ctx, env.teacher, SlotInput{
		Range:       mustRange(t, "2025-03-10", "14:00", "15:00"),
		MaxStudents: 1,
	})
	require.NoError(t, err)

	_, err = env.bookings.Apply(ctx, env.studentA, slot.ID, "")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestAccept_SlotFullLeavesApplicationPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	slot := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 1)

	appA, err := env.bookings.Apply(ctx, env.studentA, slot.ID, "")
	require.NoError(t, err)
	appB, err := env.bookings.Apply(ctx, env.studentB, slot.ID, "")
	require.NoError(t, err)

	_, err = env.bookings.Accept(ctx, env.teacher, appA.ID)
	require.NoError(t, err)

	_, err = env.bookings.Accept(ctx, env.teacher, appB.ID)
	require.ErrorIs(t, err, model.ErrSlotFull)

	apps, err := env.bookings.ListStudentApplications(ctx, env.studentB)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, model.ApplicationStatusPending, apps[0].Status)

	// учитель может отклонить оставшуюся заявку
	rejected, err := env.bookings.Reject(ctx, env.teacher, appB.ID, "нет мест")
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusRejected, rejected.Status)
	assert.Equal(t, "нет мест", rejected.Reason)
}

func TestDecisions_AlreadyDecided(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	slot := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 2)

	app, err := env.bookings.Apply(ctx, env.studentA, slot.ID, "")
	require.NoError(t, err)
	_, err = env.bookings.Reject(ctx, env.teacher, app.ID, "")
	require.NoError(t, err)

	_, err = env.bookings.Reject(ctx, env.teacher, app.ID, "")
	assert.ErrorIs(t, err, model.ErrAlreadyDecided)
	_, err = env.bookings.Accept(ctx, env.teacher, app.ID)
	assert.ErrorIs(t, err, model.ErrAlreadyDecided)
	_, err = env.bookings.Cancel(ctx, env.studentA, app.ID, "")
	assert.ErrorIs(t, err, model.ErrAlreadyDecided)

	// после отклонения можно подать новую заявку
	_, err = env.bookings.Apply(ctx, env.studentA, slot.ID, "")
	assert.NoError(t, err)
}

func TestDecisions_OnlyOwningTeacher(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	slot := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 2)

	app, err := env.bookings.Apply(ctx, env.studentA, slot.ID, "")
	require.NoError(t, err)

	other := model.Teacher(777)
	_, err = env.bookings.Accept(ctx, other, app.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = env.bookings.Reject(ctx, env.studentA, app.ID, "")
	assert.ErrorIs(t, err, model.ErrForbidden)
	_, err = env.bookings.Cancel(ctx, env.studentB, app.ID, "")
	assert.ErrorIs(t, err, model.ErrForbidden)
}

func TestCancel_AcceptedFreesSeat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	slot := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 1)

	app, err := env.bookings.DirectBook(ctx, env.studentA, slot.ID)
	require.NoError(t, err)
	require.Equal(t, model.SlotStatusBooked, env.getSlot(t, slot).Status)

	cancelled, err := env.bookings.Cancel(ctx, env.studentA, app.ID, "заболел")
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusCancelled, cancelled.Status)

	got := env.getSlot(t, slot)
	assert.Equal(t, model.SlotStatusAvailable, got.Status)
	assert.Empty(t, got.EnrolledStudents)

	events := env.notifier.ofType(model.EventBookingCancelled)
	require.Len(t, events, 1)
	assert.Equal(t, env.studentA.UserID, events[0].CancelledBy)
	assert.Equal(t, []int64{env.teacher.UserID}, events[0].Recipients())

	_, err = env.bookings.DirectBook(ctx, env.studentB, slot.ID)
	assert.NoError(t, err)
}

func TestCancel_ByTeacher(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	slot := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 1)

	app, err := env.bookings.Apply(ctx, env.studentA, slot.ID, "")
	require.NoError(t, err)

	_, err = env.bookings.Cancel(ctx, env.teacher, app.ID, "")
	require.NoError(t, err)

	events := env.notifier.ofType(model.EventBookingCancelled)
	require.Len(t, events, 1)
	assert.Equal(t, []int64{env.studentA.UserID}, events[0].Recipients())
}

func TestListSlotApplications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	slot := env.createSlot(t, mustRange(t, "2025-03-10", "14:00", "15:00"), 2)

	_, err := env.bookings.Apply(ctx, env.studentA, slot.ID, "")
	require.NoError(t, err)
	_, err = env.bookings.Apply(ctx, env.studentB, slot.ID, "")
	require.NoError(t, err)

	apps, err := env.bookings.ListSlotApplications(ctx, env.teacher, slot.ID)
	require.NoError(t, err)
	assert.Len(t, apps, 2)

	_, err = env.bookings.ListSlotApplications(ctx, model.Teacher(777), slot.ID)
	assert.ErrorIs(t, err, model.ErrForbidden)
}

func TestAccept_UnknownApplication(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.bookings.Accept(context.Background(), env.teacher, uuid.New())
	assert.ErrorIs(t, err, model.ErrNotFound)
}
