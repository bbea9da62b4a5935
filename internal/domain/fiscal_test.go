package domain

import (
	"testing"
	"time"
)

var cancun = time.FixedZone("EST", -5*3600)

func TestFiscalYearOf(t *testing.T) {
	tests := []struct {
		date       time.Time
		startMonth int
		want       int
	}{
		// July start: FY 2026 is Jul 2025 .. Jun 2026
		{time.Date(2025, 7, 1, 0, 0, 0, 0, cancun), 7, 2026},
		{time.Date(2025, 6, 30, 0, 0, 0, 0, cancun), 7, 2025},
		{time.Date(2026, 6, 30, 0, 0, 0, 0, cancun), 7, 2026},
		{time.Date(2026, 1, 15, 0, 0, 0, 0, cancun), 7, 2026},
		// January start
		{time.Date(2026, 1, 1, 0, 0, 0, 0, cancun), 1, 2027},
		{time.Date(2025, 12, 31, 0, 0, 0, 0, cancun), 1, 2026},
	}
	for _, tt := range tests {
		if got := FiscalYearOf(tt.date, tt.startMonth); got != tt.want {
			t.Errorf("FiscalYearOf(%s, %d) = %d, want %d", tt.date.Format("2006-01-02"), tt.startMonth, got, tt.want)
		}
	}
}

func TestFiscalYearBounds(t *testing.T) {
	start, end := FiscalYearBounds(2026, 7, cancun)
	if !start.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, cancun)) {
		t.Errorf("start = %s", start)
	}
	if !end.Equal(time.Date(2026, 7, 1, 0, 0, 0, 0, cancun)) {
		t.Errorf("end = %s", end)
	}
	// every instant inside the bounds maps back to the same fiscal year
	for _, d := range []time.Time{start, end.Add(-time.Second)} {
		if got := FiscalYearOf(d, 7); got != 2026 {
			t.Errorf("FiscalYearOf(%s) = %d, want 2026", d, got)
		}
	}
}

func TestCalendarMonthOf(t *testing.T) {
	tests := []struct {
		index     int
		wantYear  int
		wantMonth time.Month
	}{
		{0, 2025, time.July},
		{5, 2025, time.December},
		{6, 2026, time.January},
		{11, 2026, time.June},
	}
	for _, tt := range tests {
		y, m := CalendarMonthOf(2026, tt.index, 7)
		if y != tt.wantYear || m != tt.wantMonth {
			t.Errorf("CalendarMonthOf(2026, %d, 7) = (%d, %s), want (%d, %s)",
				tt.index, y, m, tt.wantYear, tt.wantMonth)
		}
	}
}

func TestDueDateOfFiscalQuarter(t *testing.T) {
	// Q1 of FY2026 with July start is due July 1st 2025
	got := DueDateOfFiscalQuarter(2026, 1, 7, cancun)
	if !got.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, cancun)) {
		t.Errorf("Q1 due = %s", got)
	}
	// Q3 begins fiscal month 6 -> January 2026
	got = DueDateOfFiscalQuarter(2026, 3, 7, cancun)
	if !got.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, cancun)) {
		t.Errorf("Q3 due = %s", got)
	}
}

func TestFiscalQuarterOf(t *testing.T) {
	tests := []struct {
		date time.Time
		want int
	}{
		{time.Date(2025, 7, 15, 0, 0, 0, 0, cancun), 1},
		{time.Date(2025, 10, 1, 0, 0, 0, 0, cancun), 2},
		{time.Date(2026, 2, 28, 0, 0, 0, 0, cancun), 3},
		{time.Date(2026, 6, 30, 0, 0, 0, 0, cancun), 4},
	}
	for _, tt := range tests {
		if got := FiscalQuarterOf(tt.date, 7); got != tt.want {
			t.Errorf("FiscalQuarterOf(%s) = %d, want %d", tt.date.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestWholeMonthsBetween(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, cancun)
	tests := []struct {
		end  time.Time
		want int
	}{
		{base, 0},
		{base.AddDate(0, 0, 15), 0},
		{base.AddDate(0, 1, 0), 1},
		{base.AddDate(0, 1, 5), 1},
		{base.AddDate(0, 4, 0), 4},
		{base.AddDate(0, -1, 0), 0},
	}
	for _, tt := range tests {
		if got := WholeMonthsBetween(base, tt.end); got != tt.want {
			t.Errorf("WholeMonthsBetween(%s, %s) = %d, want %d",
				base.Format("2006-01-02"), tt.end.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestPeriodFormats(t *testing.T) {
	if got := MonthPeriod(2026, 0); got != "2026-00" {
		t.Errorf("MonthPeriod = %q", got)
	}
	if got := MonthPeriod(2026, 11); got != "2026-11" {
		t.Errorf("MonthPeriod = %q", got)
	}
	if got := QuarterPeriod(2026, 3); got != "2026-Q3" {
		t.Errorf("QuarterPeriod = %q", got)
	}
}
