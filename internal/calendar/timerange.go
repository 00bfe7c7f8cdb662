package calendar

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrSlotDuration     = errors.New("slot duration must be positive")
)

// TimeRange представляет временной интервал [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange создаёт интервал и проверяет, что Start строго раньше End.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return TimeRange{}, ErrInvalidTimeRange
	}
	return TimeRange{Start: start, End: end}, nil
}

// Duration длительность интервала.
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// Minutes длительность интервала в целых минутах.
func (tr TimeRange) Minutes() int {
	return int(tr.Duration() / time.Minute)
}

// OnDay собирает интервал из даты и двух смещений от полуночи.
func OnDay(day time.Time, start, end time.Duration) TimeRange {
	d := DateOnly(day)
	return TimeRange{Start: d.Add(start), End: d.Add(end)}
}

// SplitToTimeSlots разбивает интервал на слоты фиксированной длительности.
// "Хвост" меньшей длительности, чем slotDuration, отбрасывается.
func SplitToTimeSlots(tr TimeRange, slotDuration time.Duration) ([]TimeRange, error) {
	if slotDuration <= 0 {
		return nil, ErrSlotDuration
	}
	if !tr.End.After(tr.Start) {
		return []TimeRange{}, nil
	}

	var slots []TimeRange
	for cur := tr.Start; !cur.Add(slotDuration).After(tr.End); cur = cur.Add(slotDuration) {
		slots = append(slots, TimeRange{Start: cur, End: cur.Add(slotDuration)})
	}
	return slots, nil
}

// HasOverlap проверяет, пересекается ли newRange с existing.
// inclusive = true — касание концами считается пересечением.
func HasOverlap(
	newRange TimeRange,
	existing []TimeRange,
	inclusive bool,
) (bool, []TimeRange) {
	var conflicts []TimeRange

	for _, tr := range existing {
		if rangesOverlap(newRange, tr, inclusive) {
			conflicts = append(conflicts, tr)
		}
	}

	return len(conflicts) > 0, conflicts
}

func rangesOverlap(a, b TimeRange, inclusive bool) bool {
	if inclusive {
		// [a.Start, a.End] и [b.Start, b.End] пересекаются,
		// если a.Start <= b.End && b.Start <= a.End
		return !a.Start.After(b.End) && !b.Start.After(a.End)
	}

	// Полуоткрытые интервалы [Start, End)
	// пересекаются, если a.Start < b.End && b.Start < a.End
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// OpeningHoursViolation проверяет интервал против часов работы [openHour, closeHour).
// Сравнение идёт только по часам: минуты внутри граничного часа не проверяются.
// Возвращает пустую строку, если интервал допустим.
func OpeningHoursViolation(start, end time.Duration, openHour, closeHour int) string {
	startHour := int(start / time.Hour)
	endHour := int(end / time.Hour)

	if startHour < openHour {
		return fmt.Sprintf("start hour (%02d:00) is before terrain opening hour (%02d:00)", startHour, openHour)
	}
	if endHour > closeHour {
		return fmt.Sprintf("end hour (%02d:00) is after terrain closing hour (%02d:00)", endHour, closeHour)
	}
	return ""
}

// CancellationAllowed сообщает, можно ли ещё отменить бронь, начинающуюся в start:
// до начала должно оставаться не меньше window.
func CancellationAllowed(now, start time.Time, window time.Duration) bool {
	return !now.Add(window).After(start)
}

// DateOnly отбрасывает время, сохраняя часовой пояс.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// UTCDate — календарная дата t как полночь UTC. В таком виде даты
// хранятся и сравниваются в базе.
func UTCDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// InLocation интерпретирует календарную дату и смещение от полуночи в поясе loc.
func InLocation(day time.Time, offset time.Duration, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	year, month, d := day.Date()
	return time.Date(year, month, d, 0, 0, 0, 0, loc).Add(offset)
}

// ===== Форматирование слота для пользователя =====

var frWeekdays = map[time.Weekday]string{
	time.Monday:    "Lundi",
	time.Tuesday:   "Mardi",
	time.Wednesday: "Mercredi",
	time.Thursday:  "Jeudi",
	time.Friday:    "Vendredi",
	time.Saturday:  "Samedi",
	time.Sunday:    "Dimanche",
}

// FormatSlotForUser форматирует интервал в человекочитаемую строку.
func FormatSlotForUser(tr TimeRange) string {
	weekday := frWeekdays[tr.Start.Weekday()]
	return fmt.Sprintf("%s, %s, %s–%s",
		weekday,
		tr.Start.Format("02/01/2006"),
		tr.Start.Format("15:04"),
		tr.End.Format("15:04"),
	)
}
