package schedule

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Window is a half-open UTC interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Locale resolves calendar dates in the clinic's timezone to UTC
// instants. All day and month boundaries in the system go through it so
// that the offset math lives in exactly one place.
type Locale struct {
	loc *time.Location
}

// NewLocale loads the named timezone, e.g. "Asia/Tokyo".
func NewLocale(name string) (*Locale, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	return &Locale{loc: loc}, nil
}

// Location exposes the underlying timezone for display formatting.
func (l *Locale) Location() *time.Location {
	return l.loc
}

// ParseDate parses a "2006-01-02" string as a local calendar date.
func (l *Locale) ParseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, date, l.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t, nil
}

// DayWindow returns local-midnight-to-local-midnight bounds for the
// given date, as UTC instants.
func (l *Locale) DayWindow(date string) (Window, error) {
	day, err := l.ParseDate(date)
	if err != nil {
		return Window{}, err
	}
	return Window{
		Start: day.UTC(),
		End:   day.AddDate(0, 0, 1).UTC(),
	}, nil
}

// RangeWindow spans local midnight of startDate to the local midnight
// following endDate (inclusive date range).
func (l *Locale) RangeWindow(startDate, endDate string) (Window, error) {
	start, err := l.ParseDate(startDate)
	if err != nil {
		return Window{}, err
	}
	end, err := l.ParseDate(endDate)
	if err != nil {
		return Window{}, err
	}
	if end.Before(start) {
		return Window{}, fmt.Errorf("end date %s precedes start date %s", endDate, startDate)
	}
	return Window{
		Start: start.UTC(),
		End:   end.AddDate(0, 0, 1).UTC(),
	}, nil
}

// MonthWindow returns the local month containing the given date as a
// UTC window, plus every date key in that month in order.
func (l *Locale) MonthWindow(date string) (Window, []string, error) {
	day, err := l.ParseDate(date)
	if err != nil {
		return Window{}, nil, err
	}
	first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, l.loc)
	next := first.AddDate(0, 1, 0)

	var days []string
	for d := first; d.Before(next); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(dateLayout))
	}

	return Window{Start: first.UTC(), End: next.UTC()}, days, nil
}

// DateKey formats an instant as its local calendar date.
func (l *Locale) DateKey(t time.Time) string {
	return t.In(l.loc).Format(dateLayout)
}

// At resolves a local date + "15:04" wall-clock time to a UTC instant.
func (l *Locale) At(date, hhmm string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout+" 15:04", date+" "+hhmm, l.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid local time %s %s: %w", date, hhmm, err)
	}
	return t.UTC(), nil
}

// Weekday returns the local weekday of the given date.
func (l *Locale) Weekday(date string) (time.Weekday, error) {
	day, err := l.ParseDate(date)
	if err != nil {
		return 0, err
	}
	return day.Weekday(), nil
}
