// Package format renders amounts and dates the way Vietnamese users
// read them: dot-grouped digits, dd/MM dates, Vietnamese weekday names.
package format

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tm-quang/bofinance-sub000/internal/timeutil"
)

var printer = message.NewPrinter(language.Vietnamese)

var weekdays = [...]string{
	time.Sunday:    "Chủ Nhật",
	time.Monday:    "Thứ Hai",
	time.Tuesday:   "Thứ Ba",
	time.Wednesday: "Thứ Tư",
	time.Thursday:  "Thứ Năm",
	time.Friday:    "Thứ Sáu",
	time.Saturday:  "Thứ Bảy",
}

// Amount renders an integer with Vietnamese digit grouping: 1.234.567.
func Amount(v int64) string {
	return printer.Sprintf("%d", v)
}

// Money renders an amount with its currency. VND gets the đồng sign.
func Money(v int64, currency string) string {
	if currency == "" || currency == "VND" {
		return Amount(v) + " ₫"
	}
	return Amount(v) + " " + currency
}

// Date renders a civil date as dd/MM/yyyy in UTC+7.
func Date(t time.Time) string {
	return timeutil.In(t).Format("02/01/2006")
}

// Weekday names t's UTC+7 weekday in Vietnamese.
func Weekday(t time.Time) string {
	return weekdays[timeutil.In(t).Weekday()]
}

// DayHeader combines weekday and date: "Thứ Hai, 25/08/2025".
func DayHeader(t time.Time) string {
	return Weekday(t) + ", " + Date(t)
}
