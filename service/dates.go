package service

import (
	"time"
	_ "time/tzdata"

	"github.com/goodsign/monday"
)

// reinspectionYears is the validity period of an inspection certificate.
const reinspectionYears = 2

// AddYears moves t by the given number of calendar years, keeping month and
// time of day. A day that does not exist in the target month is clamped to
// the month's last day, so 29 February becomes 28 February in common years.
func AddYears(t time.Time, years int) time.Time {
	y, m, d := t.Date()
	y += years
	if last := daysInMonth(y, m); d > last {
		d = last
	}
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ReinspectionDate is the date the installation must be inspected again.
func ReinspectionDate(inspection time.Time) time.Time {
	return AddYears(inspection, reinspectionYears)
}

// FormatLongDate renders t in loc as an Indonesian long date, e.g.
// "29 Februari 2024".
func FormatLongDate(t time.Time, loc *time.Location) string {
	return monday.Format(t.In(loc), "2 January 2006", monday.LocaleIdID)
}
