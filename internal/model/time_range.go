package model

import (
	"fmt"
	"strconv"
	"time"
)

const (
	dateLayout      = "2006-01-02"
	minutesInDay    = 24 * 60
	clockDisplayFmt = "%02d:%02d"
)

// Date календарный день без часового пояса (как поле date в исходных данных)
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate нормализует день (например 32 января -> 1 февраля)
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf берёт календарный день из t в его собственной локации
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate разбирает дату в формате YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time возвращает полночь этого дня в UTC
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return d.Time().Format(dateLayout)
}

// Clock время суток в минутах от полуночи, 0..1440
type Clock int

// NewClock собирает время суток из часов и минут
func NewClock(hour, minute int) (Clock, error) {
	if hour < 0 || minute < 0 || minute > 59 || hour > 24 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("%w: %02d:%02d is not a time of day", ErrInvalidRange, hour, minute)
	}
	return Clock(hour*60 + minute), nil
}

// ParseClock разбирает время в формате HH:MM
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' || !isDigits(s[:2]) || !isDigits(s[3:]) {
		return 0, fmt.Errorf("%w: parse time %q", ErrInvalidRange, s)
	}
	hour, _ := strconv.Atoi(s[:2])
	minute, _ := strconv.Atoi(s[3:])
	return NewClock(hour, minute)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf(clockDisplayFmt, c.Hour(), c.Minute())
}

// TimeRange полуоткрытый интервал [Start, End) внутри одного календарного дня
type TimeRange struct {
	Date  Date
	Start Clock
	End   Clock
}

// NewTimeRange проверяет что End > Start и оба значения внутри суток
func NewTimeRange(date Date, start, end Clock) (TimeRange, error) {
	if start < 0 || end > minutesInDay {
		return TimeRange{}, fmt.Errorf("%w: %s-%s is outside of a day", ErrInvalidRange, start, end)
	}
	if end <= start {
		return TimeRange{}, fmt.Errorf("%w: end %s must be after start %s", ErrInvalidRange, end, start)
	}
	return TimeRange{Date: date, Start: start, End: end}, nil
}

// Overlaps: один и тот же день и startA < endB && startB < endA
func (r TimeRange) Overlaps(other TimeRange) bool {
	if r.Date != other.Date {
		return false
	}
	return r.Start < other.End && other.Start < r.End
}

// StartAt переводит начало интервала в момент времени в локации now
func (r TimeRange) StartAt(loc *time.Location) time.Time {
	return r.at(r.Start, loc)
}

// EndAt переводит конец интервала в момент времени в локации now
func (r TimeRange) EndAt(loc *time.Location) time.Time {
	return r.at(r.End, loc)
}

func (r TimeRange) at(c Clock, loc *time.Location) time.Time {
	return time.Date(r.Date.Year, r.Date.Month, r.Date.Day, 0, int(c), 0, 0, loc)
}

// IsInPast истинно когда конец интервала уже наступил
func (r TimeRange) IsInPast(now time.Time) bool {
	return !r.EndAt(now.Location()).After(now)
}

// StartsAfter истинно когда интервал ещё не начался
func (r TimeRange) StartsAfter(now time.Time) bool {
	return r.StartAt(now.Location()).After(now)
}

func (r TimeRange) DurationMinutes() int {
	return int(r.End - r.Start)
}

// Less задаёт порядок выдачи: дата, затем время начала
func (r TimeRange) Less(other TimeRange) bool {
	if r.Date != other.Date {
		return r.Date.Before(other.Date)
	}
	return r.Start < other.Start
}

func (r TimeRange) String() string {
	return fmt.Sprintf("%s %s-%s", r.Date, r.Start, r.End)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
