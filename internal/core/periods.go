package core

import "time"

// PeriodTotals is the day/week/month rollup returned to the dashboard.
// For TIMER trackers the numbers are seconds, for COUNTER/AMOUNT they are
// value sums, for OCCURRENCE/CUSTOM they are entry counts.
type PeriodTotals struct {
	Today float64 `json:"today"`
	Week  float64 `json:"week"`
	Month float64 `json:"month"`
}

// DayStart returns midnight of now's day in now's location.
func DayStart(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// WeekStart returns midnight of the most recent Sunday, in now's location.
// On a Sunday it returns that day's midnight.
func WeekStart(now time.Time) time.Time {
	day := DayStart(now)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// MonthStart returns midnight of the first day of now's month.
func MonthStart(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
}
