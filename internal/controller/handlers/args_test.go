package handlers

import (
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/Freeeeeet/tutor_slots/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	cmd := parseCommand("/NewSlot@tutor_bot 2025-03-10 14:00-15:00 max=3 Subject=Math  разбор задач")

	assert.Equal(t, "newslot", cmd.name)
	assert.Equal(t, []string{"2025-03-10", "14:00-15:00", "разбор", "задач"}, cmd.args)
	assert.Equal(t, map[string]string{"max": "3", "subject": "Math"}, cmd.opts)
	assert.Equal(t, "разбор задач", cmd.text(2))
	assert.Equal(t, "", cmd.text(10))
	assert.Equal(t, "", cmd.arg(10))

	assert.Equal(t, "", parseCommand("   ").name)
}

func TestParseSlotInput(t *testing.T) {
	in, err := parseSlotInput(parseCommand("/newslot 2025-03-10 14:00–15:30 max=3 price=15,5 subject=Высшая_математика level=uni public=false"))
	require.NoError(t, err)

	assert.Equal(t, "2025-03-10", in.Range.Date.String())
	assert.Equal(t, model.Clock(14*60), in.Range.Start)
	assert.Equal(t, model.Clock(15*60+30), in.Range.End)
	assert.Equal(t, 3, in.MaxStudents)
	assert.Equal(t, model.Pricing{IsPaid: true, Price: 1550}, in.Pricing)
	assert.Equal(t, model.SlotMetadata{Subject: "Высшая математика", Level: "uni"}, in.Metadata)

	in, err = parseSlotInput(parseCommand("/newslot 2025-03-10 14:00-15:00"))
	require.NoError(t, err)
	assert.Equal(t, 1, in.MaxStudents)
	assert.Equal(t, model.Pricing{}, in.Pricing)
	assert.True(t, in.Metadata.IsPublic)
}

func TestParseSlotInput_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind error
	}{
		{"missing args", "/newslot 2025-03-10", errBadArgs},
		{"bad date", "/newslot 10.03.2025 14:00-15:00", errBadArgs},
		{"no dash", "/newslot 2025-03-10 14:00", errBadArgs},
		{"bad clock", "/newslot 2025-03-10 25:00-26:00", errBadArgs},
		{"end before start", "/newslot 2025-03-10 15:00-14:00", model.ErrInvalidRange},
		{"bad max", "/newslot 2025-03-10 14:00-15:00 max=two", errBadArgs},
		{"negative price", "/newslot 2025-03-10 14:00-15:00 price=-1", errBadArgs},
		{"bad public", "/newslot 2025-03-10 14:00-15:00 public=maybe", errBadArgs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSlotInput(parseCommand(tt.text))
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestParseTemplate(t *testing.T) {
	tpl, err := parseTemplate(parseCommand("/recurring 2025-03-03 18:00-19:00 days=пн,Wed weeks=6 price=20"))
	require.NoError(t, err)

	assert.Equal(t, "2025-03-03", tpl.StartDate.String())
	assert.Equal(t, model.Clock(18*60), tpl.StartTime)
	assert.Equal(t, model.Clock(19*60), tpl.EndTime)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday}, tpl.RecurringDays)
	assert.Equal(t, 6, tpl.RecurringWeeks)
	assert.Equal(t, model.Pricing{IsPaid: true, Price: 2000}, tpl.Pricing)

	tpl, err = parseTemplate(parseCommand("/recurring 2025-03-03 18:00-19:00 days=fri"))
	require.NoError(t, err)
	assert.Equal(t, defaultRecurringWeeks, tpl.RecurringWeeks)

	_, err = parseTemplate(parseCommand("/recurring 2025-03-03 18:00-19:00"))
	assert.ErrorIs(t, err, errBadArgs)

	_, err = parseTemplate(parseCommand("/recurring 2025-03-03 18:00-19:00 days=mon,funday"))
	assert.ErrorIs(t, err, errBadArgs)
}

func TestParseFilter(t *testing.T) {
	f, err := parseFilter(parseCommand("/slots subject=english level=B2 date=2025-03-10 price=20-50 анна"))
	require.NoError(t, err)

	assert.Equal(t, "english", f.Subject)
	assert.Equal(t, "B2", f.Level)
	assert.Equal(t, service.Price20To50, f.Price)
	assert.Equal(t, "анна", f.Query)
	require.NotNil(t, f.Date)
	assert.Equal(t, "2025-03-10", f.Date.String())

	f, err = parseFilter(parseCommand("/slots q=петрова"))
	require.NoError(t, err)
	assert.Equal(t, "петрова", f.Query)
	assert.Nil(t, f.Date)

	_, err = parseFilter(parseCommand("/slots price=cheap"))
	assert.ErrorIs(t, err, errBadArgs)

	_, err = parseFilter(parseCommand("/slots date=tomorrow"))
	assert.ErrorIs(t, err, errBadArgs)
}

func TestParseID(t *testing.T) {
	id := uuid.New()

	got, err := parseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = parseID("")
	assert.ErrorIs(t, err, errBadArgs)

	_, err = parseID("slot-1")
	assert.ErrorIs(t, err, errBadArgs)
}

func TestParsePricing(t *testing.T) {
	tests := []struct {
		in   string
		want model.Pricing
	}{
		{"", model.Pricing{}},
		{"0", model.Pricing{}},
		{"1500", model.Pricing{IsPaid: true, Price: 150000}},
		{"19.99", model.Pricing{IsPaid: true, Price: 1999}},
		{"0,01", model.Pricing{IsPaid: true, Price: 1}},
	}
	for _, tt := range tests {
		got, err := parsePricing(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, huge := range []string{"21474837", "1e30"} {
		_, err := parsePricing(huge)
		assert.ErrorIs(t, err, model.ErrInvalidPricing, huge)
	}
	_, err := parsePricing("-1")
	assert.ErrorIs(t, err, errBadArgs)
}
