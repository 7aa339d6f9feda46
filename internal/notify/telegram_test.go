package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []*bot.SendMessageParams
	err  error
}

func (s *fakeSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.sent = append(s.sent, params)
	return &models.Message{}, nil
}

type fakeUsers map[int64]*model.User

func (u fakeUsers) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return u[id], nil
}

func TestTelegramSink_SendsToRecipients(t *testing.T) {
	sender := &fakeSender{}
	users := fakeUsers{
		1: {ID: 1, TelegramID: 1001, FirstName: "Анна"},
		2: {ID: 2, TelegramID: 1002, FirstName: "Иван"},
		3: {ID: 3}, // без Telegram
	}
	sink := NewTelegramSink(sender, users)

	event := testEvent(model.EventSlotCancelled)
	event.StudentIDs = []int64{2, 3, 4}
	event.TeacherName = "Анна"
	event.Range = model.TimeRange{Date: model.NewDate(2025, 1, 6), Start: 600, End: 660}

	require.NoError(t, sink.Send(context.Background(), event))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(1002), sender.sent[0].ChatID)
	assert.Contains(t, sender.sent[0].Text, "06.01.2025, 10:00–11:00")
}

func TestTelegramSink_SkipsSlotCreated(t *testing.T) {
	sender := &fakeSender{}
	sink := NewTelegramSink(sender, fakeUsers{})

	require.NoError(t, sink.Send(context.Background(), testEvent(model.EventSlotCreated)))
	assert.Empty(t, sender.sent)
}

func TestTelegramSink_JoinsErrors(t *testing.T) {
	sender := &fakeSender{err: errors.New("bot blocked")}
	users := fakeUsers{2: {ID: 2, TelegramID: 1002}}
	sink := NewTelegramSink(sender, users)

	err := sink.Send(context.Background(), testEvent(model.EventApplicationAccepted))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send to user 2")
}

func TestRenderEvent(t *testing.T) {
	event := testEvent(model.EventApplicationRejected)
	event.TeacherName = "Анна"
	event.Reason = "нет мест"

	text := RenderEvent(event)
	assert.Contains(t, text, "Анна")
	assert.Contains(t, text, "нет мест")
	assert.Contains(t, text, "занятие")

	assert.Empty(t, RenderEvent(testEvent(model.EventSlotCreated)))
}

func TestTelegramSink_DirectBookingGoesToTeacher(t *testing.T) {
	sender := &fakeSender{}
	users := fakeUsers{
		1: {ID: 1, TelegramID: 1001},
		2: {ID: 2, TelegramID: 1002},
	}
	sink := NewTelegramSink(sender, users)

	event := testEvent(model.EventApplicationAccepted)
	event.TeacherID = 1
	event.StudentIDs = []int64{2}
	event.StudentName = "Иван"
	event.Direct = true

	require.NoError(t, sink.Send(context.Background(), event))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(1001), sender.sent[0].ChatID)
	assert.Contains(t, sender.sent[0].Text, "Иван записался")
}
