package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// AddMonths shifts d by n calendar months. The day of month is clamped to the
// length of the target month, so Jan 31 + 1 month lands on the last day of
// February.
func AddMonths(d civil.Date, n int) civil.Date {
	total := int(d.Month) - 1 + n
	year := d.Year + total/12
	idx := total % 12
	if idx < 0 {
		idx += 12
		year--
	}
	month := time.Month(idx + 1)
	day := d.Day
	if last := daysIn(year, month); day > last {
		day = last
	}
	return civil.Date{Year: year, Month: month, Day: day}
}

// AddYears shifts d by n calendar years using the same clamping as AddMonths.
func AddYears(d civil.Date, n int) civil.Date {
	return AddMonths(d, 12*n)
}

// MonthsBetween returns the whole number of calendar months separating start
// and end, and whether end is exactly that many months after start.
func MonthsBetween(start, end civil.Date) (int, bool) {
	n := (end.Year-start.Year)*12 + int(end.Month) - int(start.Month)
	return n, AddMonths(start, n) == end
}

// MinDate returns the earlier of a and b.
func MinDate(a, b civil.Date) civil.Date {
	if b.Before(a) {
		return b
	}
	return a
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
