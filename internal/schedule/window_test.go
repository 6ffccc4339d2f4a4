package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokyo(t *testing.T) *Locale {
	t.Helper()
	locale, err := NewLocale("Asia/Tokyo")
	require.NoError(t, err)
	return locale
}

func TestNewLocaleUnknownZone(t *testing.T) {
	_, err := NewLocale("Mars/Olympus")
	assert.Error(t, err)
}

func TestDayWindow(t *testing.T) {
	locale := tokyo(t)

	window, err := locale.DayWindow("2024-01-01")
	require.NoError(t, err)

	// Local midnight in Tokyo is 15:00 UTC the previous day.
	assert.Equal(t, time.Date(2023, 12, 31, 15, 0, 0, 0, time.UTC), window.Start)
	assert.Equal(t, time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC), window.End)

	assert.True(t, window.Contains(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, window.Contains(window.End))
}

func TestDayWindowInvalidDate(t *testing.T) {
	locale := tokyo(t)

	_, err := locale.DayWindow("01-01-2024")
	assert.Error(t, err)
	_, err = locale.DayWindow("2024-13-01")
	assert.Error(t, err)
}

func TestRangeWindow(t *testing.T) {
	locale := tokyo(t)

	window, err := locale.RangeWindow("2024-01-01", "2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 31, 15, 0, 0, 0, time.UTC), window.Start)
	assert.Equal(t, time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC), window.End)

	_, err = locale.RangeWindow("2024-01-03", "2024-01-01")
	assert.Error(t, err, "reversed range must be rejected")
}

func TestMonthWindow(t *testing.T) {
	locale := tokyo(t)

	window, days, err := locale.MonthWindow("2024-02-14")
	require.NoError(t, err)

	assert.Len(t, days, 29, "2024 is a leap year")
	assert.Equal(t, "2024-02-01", days[0])
	assert.Equal(t, "2024-02-29", days[len(days)-1])
	assert.Equal(t, time.Date(2024, 1, 31, 15, 0, 0, 0, time.UTC), window.Start)
	assert.Equal(t, time.Date(2024, 2, 29, 15, 0, 0, 0, time.UTC), window.End)
}

func TestAt(t *testing.T) {
	locale := tokyo(t)

	instant, err := locale.At("2024-01-01", "09:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), instant)

	_, err = locale.At("2024-01-01", "25:00")
	assert.Error(t, err)
}

func TestDateKeyRoundTrip(t *testing.T) {
	locale := tokyo(t)

	// 23:30 JST still belongs to the local date even though it is the
	// next day in UTC terms before conversion.
	instant, err := locale.At("2024-03-10", "23:30")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", locale.DateKey(instant))
}

func TestWeekday(t *testing.T) {
	locale := tokyo(t)

	day, err := locale.Weekday("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, day)
}

func TestDefaultWeekSchedule(t *testing.T) {
	ws := DefaultWeekSchedule()
	require.NoError(t, ws.Validate())

	sunday, open := ws.HoursFor(time.Sunday)
	require.True(t, open)
	assert.Equal(t, Hours{Open: "15:00", Close: "20:00"}, sunday)

	monday, open := ws.HoursFor(time.Monday)
	require.True(t, open)
	assert.Equal(t, Hours{Open: "09:00", Close: "20:00"}, monday)
}

func TestWeekScheduleValidate(t *testing.T) {
	bad := WeekSchedule{time.Monday: {Open: "20:00", Close: "09:00"}}
	assert.Error(t, bad.Validate())

	unparsable := WeekSchedule{time.Monday: {Open: "nine", Close: "20:00"}}
	assert.Error(t, unparsable.Validate())

	closedDay := WeekSchedule{}
	_, open := closedDay.HoursFor(time.Wednesday)
	assert.False(t, open)
}
