package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tm-quang/bofinance-sub000/internal/timeutil"
)

func TestAmountGrouping(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0", Amount(0))
	assert.Equal(t, "999", Amount(999))
	assert.Equal(t, "1.000", Amount(1000))
	assert.Equal(t, "1.234.567", Amount(1234567))
	assert.Equal(t, "-50.000", Amount(-50000))
}

func TestMoney(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "120.000 ₫", Money(120000, "VND"))
	assert.Equal(t, "120.000 ₫", Money(120000, ""))
	assert.Equal(t, "99 USD", Money(99, "USD"))
}

func TestDayHeader(t *testing.T) {
	t.Parallel()

	// 2025-08-25 is a Monday in UTC+7.
	monday := timeutil.Date(2025, time.August, 25, 10, 0, 0, 0)
	assert.Equal(t, "Thứ Hai, 25/08/2025", DayHeader(monday))

	sunday := timeutil.Date(2025, time.August, 31, 10, 0, 0, 0)
	assert.Equal(t, "Chủ Nhật, 31/08/2025", DayHeader(sunday))
}
