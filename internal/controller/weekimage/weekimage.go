// Package weekimage рисует недельное расписание учителя в PNG.
package weekimage

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Константы размеров и отступов
const (
	ImageWidth       = 1400
	ImageHeight      = 900
	headerHeight     = 100
	leftLabelsWidth  = 80
	legendWidth      = 120
	dayPaddingX      = 8
	minSlotHeight    = 8.0
	slotBorderRadius = 6.0
	shadowOffset     = 3.0
	daysInWeek       = 7
	hourPadding      = 1
	defaultMinHour   = 8
	defaultMaxHour   = 20
)

// Константы шрифтов
const (
	titleFontSize     = 25.0
	dayFontSize       = 24.0
	hourLabelFontSize = 16.0
	slotFontSize      = 15.0
	legendFontSize    = 12.0
)

// Цветовая схема
var (
	bgColor          = color.RGBA{245, 246, 248, 255}
	textColor        = color.RGBA{80, 85, 90, 220}
	hourLabelColor   = color.RGBA{110, 115, 120, 200}
	hourLineColor    = color.NRGBA{150, 150, 150, 255}
	todayBgColor     = color.NRGBA{255, 99, 71, 125}
	evenDayColor     = color.NRGBA{240, 240, 240, 255}
	oddDayColor      = color.NRGBA{220, 220, 220, 255}
	currentTimeColor = color.NRGBA{255, 80, 80, 200}
	slotShadowColor  = color.RGBA{0, 0, 0, 20}
	slotTextColor    = color.RGBA{20, 24, 28, 230}
	legendTextColor  = color.RGBA{70, 74, 78, 220}

	slotColors = map[model.SlotStatus]color.RGBA{
		model.SlotStatusAvailable: {133, 193, 85, 220},
		model.SlotStatusBooked:    {255, 182, 193, 255},
		model.SlotStatusCompleted: {170, 190, 215, 220},
		model.SlotStatusCancelled: {158, 158, 158, 200},
	}
)

var weekdayShort = [...]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}

var monthNames = [...]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

type hourRange struct {
	start int
	end   int
}

func (h hourRange) total() int { return h.end - h.start }

// WeekStart понедельник недели, в которую входит d
func WeekStart(d model.Date) model.Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// Render рисует неделю, содержащую day. now нужен для подсветки сегодняшнего дня
// и линии текущего времени, он должен быть в часовом поясе расписания.
func Render(day model.Date, slots []*model.Slot, now time.Time) ([]byte, error) {
	monday := WeekStart(day)
	today := model.DateOf(now)

	byDay := make(map[model.Date][]*model.Slot)
	for _, slot := range slots {
		byDay[slot.Range.Date] = append(byDay[slot.Range.Date], slot)
	}

	hours := hoursFor(slots)
	dayWidth := (ImageWidth - leftLabelsWidth - legendWidth) / daysInWeek
	dayHeight := ImageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(hours.total())

	dc := gg.NewContext(ImageWidth, ImageHeight)
	dc.SetColor(bgColor)
	dc.Clear()

	drawHeader(dc, monday)
	drawHourLabels(dc, hours, cellHeight)

	for i := range daysInWeek {
		date := monday.AddDays(i)
		x := float64(leftLabelsWidth + i*dayWidth)

		drawDayBackground(dc, x, dayWidth, dayHeight, i, date == today)
		drawDayHeader(dc, date, x, dayWidth)
		drawHourLines(dc, x, dayWidth, hours, cellHeight)
		for _, slot := range byDay[date] {
			drawSlot(dc, slot, x, dayWidth, hours, cellHeight)
		}
	}

	if !today.Before(monday) && today.Before(monday.AddDays(daysInWeek)) {
		drawCurrentTimeLine(dc, now, hours, cellHeight, dayWidth)
	}
	drawLegend(dc, dayWidth)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// hoursFor диапазон часов, покрывающий все слоты недели с запасом
func hoursFor(slots []*model.Slot) hourRange {
	if len(slots) == 0 {
		return hourRange{start: defaultMinHour, end: defaultMaxHour}
	}

	minHour, maxHour := 24, 0
	for _, slot := range slots {
		minHour = min(minHour, slot.Range.Start.Hour())
		endHour := slot.Range.End.Hour()
		if slot.Range.End.Minute() > 0 {
			endHour++
		}
		maxHour = max(maxHour, endHour)
	}

	return hourRange{
		start: max(minHour-hourPadding, 0),
		end:   min(maxHour+hourPadding, 24),
	}
}

var (
	fontsOnce sync.Once
	regular   *opentype.Font
	bold      *opentype.Font
)

// setFont выставляет шрифт Go (с кириллицей), при сбое разбора basicfont
func setFont(dc *gg.Context, size float64, isBold bool) {
	fontsOnce.Do(func() {
		regular, _ = opentype.Parse(goregular.TTF)
		bold, _ = opentype.Parse(gobold.TTF)
	})

	f := regular
	if isBold {
		f = bold
	}
	if f == nil {
		dc.SetFontFace(basicfont.Face7x13)
		return
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		dc.SetFontFace(basicfont.Face7x13)
		return
	}
	dc.SetFontFace(face)
}

func drawHeader(dc *gg.Context, monday model.Date) {
	sunday := monday.AddDays(daysInWeek - 1)
	start, end := monday.Time().Month(), sunday.Time().Month()

	title := fmt.Sprintf("%s %d", monthNames[start-1], monday.Time().Year())
	if start != end {
		title = fmt.Sprintf("%s - %s %d", monthNames[start-1], monthNames[end-1], sunday.Time().Year())
	}

	setFont(dc, titleFontSize, true)
	dc.SetColor(textColor)
	w, h := dc.MeasureString(title)
	dc.DrawStringAnchored(title, w/2+10, float64(headerHeight)/8+h/2, 0, 0)
}

func drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	setFont(dc, hourLabelFontSize, false)
	dc.SetColor(hourLabelColor)

	for i := 0; i <= hours.total(); i++ {
		y := float64(headerHeight) + float64(i)*cellHeight
		dc.DrawStringAnchored(fmt.Sprintf("%02d:00", hours.start+i), float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

func drawDayBackground(dc *gg.Context, x float64, dayWidth, dayHeight, index int, isToday bool) {
	switch {
	case isToday:
		dc.SetColor(todayBgColor)
	case index%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, headerHeight, float64(dayWidth), float64(dayHeight))
	dc.Fill()
}

func drawDayHeader(dc *gg.Context, date model.Date, x float64, dayWidth int) {
	setFont(dc, dayFontSize, true)
	dc.SetColor(textColor)
	cx := x + float64(dayWidth)/2
	dc.DrawStringAnchored(date.Time().Format("02.01"), cx, headerHeight, 0.5, -1)
	dc.DrawStringAnchored(weekdayShort[date.Weekday()], cx, headerHeight, 0.5, -0.2)
}

func drawHourLines(dc *gg.Context, x float64, dayWidth int, hours hourRange, cellHeight float64) {
	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)

	for i := 0; i <= hours.total(); i++ {
		y := float64(headerHeight) + float64(i)*cellHeight
		dc.DrawLine(x, y, x+float64(dayWidth), y)
		dc.Stroke()
	}
}

func drawSlot(dc *gg.Context, slot *model.Slot, x float64, dayWidth int, hours hourRange, cellHeight float64) {
	offset := float64(int(slot.Range.Start)-hours.start*60) / 60
	y := float64(headerHeight) + offset*cellHeight
	height := max(float64(slot.Range.DurationMinutes())/60*cellHeight, minSlotHeight)
	width := float64(dayWidth) - dayPaddingX*2

	fill, ok := slotColors[slot.Status]
	if !ok {
		fill = slotColors[model.SlotStatusCancelled]
	}

	dc.SetColor(slotShadowColor)
	dc.DrawRoundedRectangle(x+dayPaddingX+shadowOffset, y+2+shadowOffset, width, height-4, slotBorderRadius)
	dc.Fill()

	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x+dayPaddingX, y+2, width, height-4, slotBorderRadius)
	dc.Fill()

	dc.SetColor(darken(fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x+dayPaddingX, y+2, width, height-4, slotBorderRadius)
	dc.Stroke()

	setFont(dc, slotFontSize, true)
	dc.SetColor(slotTextColor)
	tx, ty := x+dayPaddingX+8, y+18
	dc.DrawStringAnchored(fmt.Sprintf("%s %d/%d", slot.Range.Start, len(slot.EnrolledStudents), slot.MaxStudents), tx, ty, 0, 0)

	if subject := []rune(slot.Metadata.Subject); len(subject) > 0 && height > 40 {
		if len(subject) > 16 {
			subject = append(subject[:15], '…')
		}
		setFont(dc, slotFontSize-2, false)
		dc.DrawStringAnchored(string(subject), tx, ty+16, 0, 0)
	}
}

func darken(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

func drawCurrentTimeLine(dc *gg.Context, now time.Time, hours hourRange, cellHeight float64, dayWidth int) {
	current := float64(now.Hour()) + float64(now.Minute())/60
	if current < float64(hours.start) || current > float64(hours.end) {
		return
	}

	y := float64(headerHeight) + (current-float64(hours.start))*cellHeight
	dc.SetColor(currentTimeColor)
	dc.SetLineWidth(2)
	dc.DrawLine(leftLabelsWidth, y, float64(leftLabelsWidth+daysInWeek*dayWidth), y)
	dc.Stroke()
}

func drawLegend(dc *gg.Context, dayWidth int) {
	items := []struct {
		label  string
		status model.SlotStatus
	}{
		{"Свободно", model.SlotStatusAvailable},
		{"Занято", model.SlotStatusBooked},
		{"Прошло", model.SlotStatusCompleted},
		{"Отменено", model.SlotStatusCancelled},
	}

	const boxW, boxH = 20.0, 14.0
	x := float64(leftLabelsWidth + daysInWeek*dayWidth + 10)
	y := float64(ImageHeight) - 130

	setFont(dc, legendFontSize, false)
	for _, item := range items {
		dc.SetColor(slotColors[item.status])
		dc.DrawRoundedRectangle(x, y, boxW, boxH, 3)
		dc.Fill()

		dc.SetColor(legendTextColor)
		dc.DrawStringAnchored(item.label, x+boxW+8, y+boxH/2+1, 0, 0.2)
		y += boxH + 14
	}
}
