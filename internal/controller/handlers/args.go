package handlers

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/Freeeeeet/tutor_slots/internal/service"
	"github.com/google/uuid"
)

// Ограничения на аргументы команд
const (
	defaultRecurringWeeks = 4
	maxTextLength         = 500
)

var errBadArgs = errors.New("bad arguments")

// command разобранный текст сообщения: /name позиционные key=value
type command struct {
	name string
	args []string
	opts map[string]string
}

// parseCommand разбирает "/newslot@bot 2025-03-10 14:00-15:00 max=3"
func parseCommand(text string) command {
	fields := strings.Fields(text)
	cmd := command{opts: make(map[string]string)}
	if len(fields) == 0 {
		return cmd
	}

	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	cmd.name = strings.ToLower(name)

	for _, f := range fields[1:] {
		key, value, ok := strings.Cut(f, "=")
		if ok && key != "" && !strings.ContainsAny(key, " :") {
			cmd.opts[strings.ToLower(key)] = value
			continue
		}
		cmd.args = append(cmd.args, f)
	}

	return cmd
}

// arg возвращает позиционный аргумент или ""
func (c command) arg(i int) string {
	if i < len(c.args) {
		return c.args[i]
	}
	return ""
}

// text склеивает позиционные аргументы начиная с from
func (c command) text(from int) string {
	if from >= len(c.args) {
		return ""
	}
	s := strings.Join(c.args[from:], " ")
	if len([]rune(s)) > maxTextLength {
		s = string([]rune(s)[:maxTextLength])
	}
	return s
}

func parseID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, fmt.Errorf("%w: missing id", errBadArgs)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: parse id %q: %v", errBadArgs, s, err)
	}
	return id, nil
}

// parseTimes разбирает "14:00-15:30"
func parseTimes(s string) (model.Clock, model.Clock, error) {
	s = strings.ReplaceAll(s, "–", "-")
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: time range %q, expected HH:MM-HH:MM", errBadArgs, s)
	}

	start, err := model.ParseClock(from)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", errBadArgs, err)
	}
	end, err := model.ParseClock(to)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", errBadArgs, err)
	}

	return start, end, nil
}

func parseRange(date, times string) (model.TimeRange, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return model.TimeRange{}, fmt.Errorf("%w: %v", errBadArgs, err)
	}

	start, end, err := parseTimes(times)
	if err != nil {
		return model.TimeRange{}, err
	}

	return model.NewTimeRange(d, start, end)
}

// parsePricing переводит цену в рублях в копейки, 0 или пусто означает бесплатно
func parsePricing(s string) (model.Pricing, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return model.Pricing{}, nil
	}

	rub, err := strconv.ParseFloat(s, 64)
	if err != nil || rub < 0 || math.IsInf(rub, 0) || math.IsNaN(rub) {
		return model.Pricing{}, fmt.Errorf("%w: price %q", errBadArgs, s)
	}

	// проверяем до перевода в int, иначе большие значения переполняются
	if math.Round(rub*100) > model.MaxPrice {
		return model.Pricing{}, model.NewOpError("parse price", model.ErrInvalidPricing, "price %q is too large", s)
	}

	cents := int(math.Round(rub * 100))
	if cents == 0 {
		return model.Pricing{}, nil
	}
	return model.Pricing{IsPaid: true, Price: cents}, nil
}

func parsePositive(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: number %q", errBadArgs, s)
	}
	return n, nil
}

func parseMetadata(c command, description string) (model.SlotMetadata, error) {
	public := true
	if v, ok := c.opts["public"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return model.SlotMetadata{}, fmt.Errorf("%w: public=%q", errBadArgs, v)
		}
		public = b
	}

	return model.SlotMetadata{
		Subject:     strings.ReplaceAll(c.opts["subject"], "_", " "),
		Level:       c.opts["level"],
		Description: description,
		IsPublic:    public,
	}, nil
}

// parseSlotInput: /newslot 2025-03-10 14:00-15:00 [max=N] [price=R] [subject=S] [level=L] [public=false] [описание]
func parseSlotInput(c command) (service.SlotInput, error) {
	if len(c.args) < 2 {
		return service.SlotInput{}, fmt.Errorf("%w: expected date and time range", errBadArgs)
	}

	r, err := parseRange(c.arg(0), c.arg(1))
	if err != nil {
		return service.SlotInput{}, err
	}

	maxStudents, err := parsePositive(c.opts["max"], 1)
	if err != nil {
		return service.SlotInput{}, err
	}

	pricing, err := parsePricing(c.opts["price"])
	if err != nil {
		return service.SlotInput{}, err
	}

	meta, err := parseMetadata(c, c.text(2))
	if err != nil {
		return service.SlotInput{}, err
	}

	return service.SlotInput{
		Range:       r,
		MaxStudents: maxStudents,
		Pricing:     pricing,
		Metadata:    meta,
	}, nil
}

var weekdays = map[string]time.Weekday{
	"mon": time.Monday, "пн": time.Monday,
	"tue": time.Tuesday, "вт": time.Tuesday,
	"wed": time.Wednesday, "ср": time.Wednesday,
	"thu": time.Thursday, "чт": time.Thursday,
	"fri": time.Friday, "пт": time.Friday,
	"sat": time.Saturday, "сб": time.Saturday,
	"sun": time.Sunday, "вс": time.Sunday,
}

// parseWeekdays разбирает "mon,wed" или "пн,ср"
func parseWeekdays(s string) ([]time.Weekday, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: days= is required", errBadArgs)
	}

	var days []time.Weekday
	for _, part := range strings.Split(strings.ToLower(s), ",") {
		d, ok := weekdays[strings.TrimSpace(part)]
		if !ok {
			return nil, fmt.Errorf("%w: weekday %q", errBadArgs, part)
		}
		days = append(days, d)
	}
	return days, nil
}

// parseTemplate: /recurring 2025-03-10 14:00-15:00 days=mon,wed [weeks=N] [max=N] [price=R] [subject=S]
func parseTemplate(c command) (model.RecurrenceTemplate, error) {
	if len(c.args) < 2 {
		return model.RecurrenceTemplate{}, fmt.Errorf("%w: expected start date and time range", errBadArgs)
	}

	startDate, err := model.ParseDate(c.arg(0))
	if err != nil {
		return model.RecurrenceTemplate{}, fmt.Errorf("%w: %v", errBadArgs, err)
	}

	start, end, err := parseTimes(c.arg(1))
	if err != nil {
		return model.RecurrenceTemplate{}, err
	}

	days, err := parseWeekdays(c.opts["days"])
	if err != nil {
		return model.RecurrenceTemplate{}, err
	}

	weeks, err := parsePositive(c.opts["weeks"], defaultRecurringWeeks)
	if err != nil {
		return model.RecurrenceTemplate{}, err
	}

	maxStudents, err := parsePositive(c.opts["max"], 1)
	if err != nil {
		return model.RecurrenceTemplate{}, err
	}

	pricing, err := parsePricing(c.opts["price"])
	if err != nil {
		return model.RecurrenceTemplate{}, err
	}

	meta, err := parseMetadata(c, c.text(2))
	if err != nil {
		return model.RecurrenceTemplate{}, err
	}

	return model.RecurrenceTemplate{
		StartDate:      startDate,
		StartTime:      start,
		EndTime:        end,
		MaxStudents:    maxStudents,
		Pricing:        pricing,
		Metadata:       meta,
		RecurringDays:  days,
		RecurringWeeks: weeks,
	}, nil
}

// parseFilter: /slots [subject=S] [level=L] [date=YYYY-MM-DD] [price=free|0-20|20-50|50+] [текст]
func parseFilter(c command) (service.Filter, error) {
	price, err := service.ParsePriceRange(c.opts["price"])
	if err != nil {
		return service.Filter{}, fmt.Errorf("%w: %v", errBadArgs, err)
	}

	f := service.Filter{
		Subject: strings.ReplaceAll(c.opts["subject"], "_", " "),
		Level:   c.opts["level"],
		Price:   price,
		Query:   c.opts["q"],
	}
	if f.Query == "" {
		f.Query = c.text(0)
	}

	if s := c.opts["date"]; s != "" {
		d, err := model.ParseDate(s)
		if err != nil {
			return service.Filter{}, fmt.Errorf("%w: %v", errBadArgs, err)
		}
		f.Date = &d
	}

	return f, nil
}
