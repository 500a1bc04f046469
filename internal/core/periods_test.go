package core

import (
	"testing"
	"time"
)

func TestDayStart(t *testing.T) {
	now := time.Date(2026, 8, 31, 17, 42, 3, 500, time.Local)
	got := DayStart(now)
	want := time.Date(2026, 8, 31, 0, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Fatalf("DayStart = %v, want %v", got, want)
	}
}

func TestWeekStartBacksUpToSunday(t *testing.T) {
	// 2026-08-31 is a Monday; the week began Sunday the 30th.
	monday := time.Date(2026, 8, 31, 10, 0, 0, 0, time.Local)
	got := WeekStart(monday)
	want := time.Date(2026, 8, 30, 0, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Fatalf("WeekStart(monday) = %v, want %v", got, want)
	}

	// On a Sunday the week starts that same midnight.
	sunday := time.Date(2026, 8, 30, 23, 59, 0, 0, time.Local)
	if got := WeekStart(sunday); !got.Equal(want) {
		t.Fatalf("WeekStart(sunday) = %v, want %v", got, want)
	}
}

func TestMonthStart(t *testing.T) {
	now := time.Date(2026, 2, 28, 9, 0, 0, 0, time.Local)
	want := time.Date(2026, 2, 1, 0, 0, 0, 0, time.Local)
	if got := MonthStart(now); !got.Equal(want) {
		t.Fatalf("MonthStart = %v, want %v", got, want)
	}
}

func TestPeriodStartsOrdering(t *testing.T) {
	// Month start can precede week start (e.g. mid-month Sundays); both
	// always precede or equal the day start.
	now := time.Date(2026, 8, 19, 12, 0, 0, 0, time.Local) // a Wednesday
	day, week, month := DayStart(now), WeekStart(now), MonthStart(now)
	if week.After(day) || month.After(day) {
		t.Fatalf("window starts after day start: day=%v week=%v month=%v", day, week, month)
	}
	if !month.Before(week) {
		t.Fatalf("expected month start %v before week start %v for mid-month date", month, week)
	}
}
