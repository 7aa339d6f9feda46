package weekimage

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slotAt(t *testing.T, date string, start, end model.Clock, status model.SlotStatus) *model.Slot {
	t.Helper()

	d, err := model.ParseDate(date)
	require.NoError(t, err)
	r, err := model.NewTimeRange(d, start, end)
	require.NoError(t, err)

	return &model.Slot{
		ID:          uuid.New(),
		Range:       r,
		MaxStudents: 2,
		Status:      status,
		Metadata:    model.SlotMetadata{Subject: "Очень длинное название предмета"},
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct{ in, want string }{
		{"2025-03-10", "2025-03-10"}, // понедельник
		{"2025-03-12", "2025-03-10"},
		{"2025-03-16", "2025-03-10"}, // воскресенье
		{"2025-03-01", "2025-02-24"}, // через границу месяца
	}
	for _, tt := range tests {
		d, err := model.ParseDate(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, WeekStart(d).String(), tt.in)
	}
}

func TestHoursFor(t *testing.T) {
	assert.Equal(t, hourRange{start: defaultMinHour, end: defaultMaxHour}, hoursFor(nil))

	slots := []*model.Slot{
		slotAt(t, "2025-03-10", 9*60+30, 10*60+30, model.SlotStatusAvailable),
		slotAt(t, "2025-03-12", 18*60, 19*60, model.SlotStatusBooked),
	}
	assert.Equal(t, hourRange{start: 8, end: 20}, hoursFor(slots))

	edge := []*model.Slot{slotAt(t, "2025-03-10", 0, 24*60, model.SlotStatusAvailable)}
	assert.Equal(t, hourRange{start: 0, end: 24}, hoursFor(edge))
}

func TestRender(t *testing.T) {
	slots := []*model.Slot{
		slotAt(t, "2025-03-10", 9*60, 10*60, model.SlotStatusAvailable),
		slotAt(t, "2025-03-11", 12*60, 13*60+30, model.SlotStatusBooked),
		slotAt(t, "2025-03-13", 15*60, 15*60+15, model.SlotStatusCancelled),
		slotAt(t, "2025-03-14", 17*60, 18*60, model.SlotStatusCompleted),
	}

	day, err := model.ParseDate("2025-03-12")
	require.NoError(t, err)

	data, err := Render(day, slots, time.Date(2025, 3, 12, 11, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, ImageWidth, img.Bounds().Dx())
	assert.Equal(t, ImageHeight, img.Bounds().Dy())
}
