package worktime

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout - формат календарной даты во всех командах и логах
const DateLayout = "2006-01-02"

// DefaultShiftMinutes - длительность смены, если в плане нет времени окончания (8 часов)
const DefaultShiftMinutes = 480

var nanosPerHour = decimal.NewFromInt(int64(time.Hour))

// Day - нормализует момент времени до календарного дня (полночь UTC)
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayIn - календарный день момента t в часовом поясе loc
func DayIn(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Day(t.In(loc))
}

// At - момент времени для дня day и времени суток tod в поясе loc
func At(day time.Time, tod time.Duration, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	// настенное время: в день перевода часов 08:00 остается 08:00
	h := tod / time.Hour
	m := tod % time.Hour / time.Minute
	s := tod % time.Minute / time.Second
	ns := tod % time.Second
	return time.Date(day.Year(), day.Month(), day.Day(), int(h), int(m), int(s), int(ns), loc)
}

// EndOfDay - первый момент следующего дня в поясе loc
func EndOfDay(day time.Time, loc *time.Location) time.Time {
	return At(day, 0, loc).AddDate(0, 0, 1)
}

// Hours - переводит длительность в часы, округляя до 2 знаков
func Hours(d time.Duration) decimal.Decimal {
	if d <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(d)).Div(nanosPerHour).Round(2)
}

// HoursBetween - отработанные часы между открытием и закрытием;
// незакрытая отметка считается до now
func HoursBetween(openedAt time.Time, closedAt *time.Time, now time.Time) decimal.Decimal {
	end := now
	if closedAt != nil && !closedAt.IsZero() {
		end = *closedAt
	}
	return Hours(end.Sub(openedAt))
}

// PlannedDuration - плановая длительность смены по времени начала и окончания.
// Окончание не позже начала означает ночную смену. Без окончания берется
// defaultMinutes.
func PlannedDuration(start time.Duration, end *time.Duration, defaultMinutes int) time.Duration {
	if end == nil {
		if defaultMinutes <= 0 {
			defaultMinutes = DefaultShiftMinutes
		}
		return time.Duration(defaultMinutes) * time.Minute
	}
	d := *end - start
	if d <= 0 {
		d += 24 * time.Hour
	}
	return d
}

// ParseDate - разбирает дату в формате 2006-01-02
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Day(t), nil
}

// FormatDate - форматирует календарный день
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
