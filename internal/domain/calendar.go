package domain

import (
	"fmt"
	"time"
)

// DateOf truncates t to its calendar date at 00:00 UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// dateClamped builds a date, pulling day back to the last day of the month when it overflows.
func dateClamped(year int, month time.Month, day int) time.Time {
	// normalise month overflow first so DaysIn sees a real month
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	year, month = first.Year(), first.Month()
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// AddMonthsClamped adds n calendar months keeping the day inside the target month.
func AddMonthsClamped(date time.Time, n int) time.Time {
	date = DateOf(date)
	return dateClamped(date.Year(), date.Month()+time.Month(n), date.Day())
}

// AddDays adds n calendar days.
func AddDays(date time.Time, n int) time.Time {
	return DateOf(date).AddDate(0, 0, n)
}

// monthIndex counts months since year zero.
func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// MonthPrecedes reports whether the month/year of a is strictly before that of b.
func MonthPrecedes(a, b time.Time) bool {
	return monthIndex(a) < monthIndex(b)
}

// NextDueDate places dueDay in the reference month and rolls forward one period when that
// date has already elapsed. The day is clamped to the length of the resulting month.
func NextDueDate(reference time.Time, dueDay int, periodicity Periodicity) time.Time {
	reference = DateOf(reference)
	candidate := dateClamped(reference.Year(), reference.Month(), dueDay)
	if !candidate.Before(reference) {
		return candidate
	}
	if periodicity == PeriodicityAnnual {
		return dateClamped(reference.Year()+1, reference.Month(), dueDay)
	}
	return dateClamped(reference.Year(), reference.Month()+1, dueDay)
}

// PeriodKey tags the billing cycle a due date belongs to, as MM/YYYY.
func PeriodKey(dueDate time.Time) string {
	return fmt.Sprintf("%02d/%04d", int(dueDate.Month()), dueDate.Year())
}
