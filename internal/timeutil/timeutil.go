// Package timeutil presents every date in the app as a fixed UTC+7 civil
// calendar (Indochina Time), regardless of the host timezone. Vietnam has
// no DST and no historical offset churn worth a tz database, so the
// offset is hard-coded.
package timeutil

import (
	"time"
)

// Location is the fixed UTC+7 zone used for all civil dates.
var Location = time.FixedZone("ICT", 7*60*60)

// ISODate is the wire format for civil dates.
const ISODate = "2006-01-02"

// Components holds the civil fields of an instant in UTC+7.
type Components struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

// Now returns the current instant in UTC+7.
func Now() time.Time {
	return time.Now().In(Location)
}

// In reinterprets an arbitrary instant in UTC+7.
func In(t time.Time) time.Time {
	return t.In(Location)
}

// Date constructs an instant from UTC+7 civil fields.
func Date(year int, month time.Month, day, hour, min, sec, nsec int) time.Time {
	return time.Date(year, month, day, hour, min, sec, nsec, Location)
}

// Split breaks an instant into its UTC+7 civil fields.
func Split(t time.Time) Components {
	t = t.In(Location)
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	return Components{Year: year, Month: month, Day: day, Hour: hour, Minute: min, Second: sec}
}

// Time rebuilds the instant described by the components.
func (c Components) Time() time.Time {
	return Date(c.Year, c.Month, c.Day, c.Hour, c.Minute, c.Second, 0)
}

// FormatISODate renders t as YYYY-MM-DD in UTC+7.
func FormatISODate(t time.Time) string {
	return t.In(Location).Format(ISODate)
}

// ParseISODate parses YYYY-MM-DD into midnight UTC+7 of that day.
func ParseISODate(s string) (time.Time, error) {
	return time.ParseInLocation(ISODate, s, Location)
}

// StartOfDay returns midnight UTC+7 of t's civil day.
func StartOfDay(t time.Time) time.Time {
	t = t.In(Location)
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, Location)
}

// EndOfDay returns the last representable instant of t's civil day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// StartOfWeek returns midnight UTC+7 of the Monday of t's week.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	// time.Weekday counts from Sunday; shift so Monday is day zero.
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// EndOfWeek returns the last instant of the Sunday closing t's week.
func EndOfWeek(t time.Time) time.Time {
	return StartOfWeek(t).AddDate(0, 0, 7).Add(-time.Nanosecond)
}

// FirstOfMonth returns midnight UTC+7 of the first day of t's month.
func FirstOfMonth(t time.Time) time.Time {
	t = t.In(Location)
	year, month, _ := t.Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, Location)
}

// LastOfMonth returns the last instant of t's month.
func LastOfMonth(t time.Time) time.Time {
	return FirstOfMonth(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// DaysInMonth reports how many days t's civil month has.
func DaysInMonth(t time.Time) int {
	return FirstOfMonth(t).AddDate(0, 1, -1).Day()
}

// WeekRange returns [Monday 00:00, Sunday 23:59:59.999…] around t.
func WeekRange(t time.Time) (time.Time, time.Time) {
	return StartOfWeek(t), EndOfWeek(t)
}

// MonthRange returns [first 00:00, last 23:59:59.999…] of t's month.
func MonthRange(t time.Time) (time.Time, time.Time) {
	return FirstOfMonth(t), LastOfMonth(t)
}

// SameDay reports whether two instants fall on the same UTC+7 civil day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.In(Location).Date()
	by, bm, bd := b.In(Location).Date()
	return ay == by && am == bm && ad == bd
}
