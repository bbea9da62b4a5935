package domain

import (
	"fmt"
	"time"
)

// Fiscal years are named by their ending calendar year: fiscal year N
// runs [Date(N-1, startMonth, 1), Date(N, startMonth, 1)). Fiscal-month
// indices are 0..11 from the start month. All fiscal math happens in the
// client's configured timezone, never the host's.

// FiscalYearOf returns the fiscal year containing date.
func FiscalYearOf(date time.Time, startMonth int) int {
	if int(date.Month()) >= startMonth {
		return date.Year() + 1
	}
	return date.Year()
}

// FiscalYearBounds returns the half-open [start, end) calendar window of
// a fiscal year.
func FiscalYearBounds(year, startMonth int, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year-1, time.Month(startMonth), 1, 0, 0, 0, 0, loc)
	end := time.Date(year, time.Month(startMonth), 1, 0, 0, 0, 0, loc)
	return start, end
}

// FiscalMonthIndexOf returns the 0-based fiscal month index of date.
func FiscalMonthIndexOf(date time.Time, startMonth int) int {
	return (int(date.Month()) - startMonth + 12) % 12
}

// CalendarMonthOf maps a fiscal (year, index) to its calendar year and month.
func CalendarMonthOf(year, index, startMonth int) (int, time.Month) {
	m := (startMonth - 1) + index
	return year - 1 + m/12, time.Month(m%12 + 1)
}

// DueDateOfFiscalMonth returns the first day of the calendar month for
// fiscal month index 0..11 of the given fiscal year.
func DueDateOfFiscalMonth(year, index, startMonth int, loc *time.Location) time.Time {
	cy, cm := CalendarMonthOf(year, index, startMonth)
	return time.Date(cy, cm, 1, 0, 0, 0, 0, loc)
}

// DueDateOfFiscalQuarter returns the first day of the first calendar
// month of fiscal quarter q (1..4).
func DueDateOfFiscalQuarter(year, q, startMonth int, loc *time.Location) time.Time {
	return DueDateOfFiscalMonth(year, (q-1)*3, startMonth, loc)
}

// FiscalQuarterOf returns the fiscal quarter (1..4) containing date.
func FiscalQuarterOf(date time.Time, startMonth int) int {
	return FiscalMonthIndexOf(date, startMonth)/3 + 1
}

// QuarterOfIndex returns the fiscal quarter (1..4) a fiscal month index
// belongs to.
func QuarterOfIndex(index int) int {
	return index/3 + 1
}

// MonthPeriod formats a fiscal-month billing period ("2026-00".."2026-11").
func MonthPeriod(year, index int) string {
	return fmt.Sprintf("%04d-%02d", year, index)
}

// QuarterPeriod formats a fiscal-quarter billing period ("2026-Q1").
func QuarterPeriod(year, q int) string {
	return fmt.Sprintf("%04d-Q%d", year, q)
}

// WholeMonthsBetween returns the number of complete calendar months from
// start to end. Negative spans return 0.
func WholeMonthsBetween(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	months := 0
	for !start.AddDate(0, months+1, 0).After(end) {
		months++
	}
	return months
}
