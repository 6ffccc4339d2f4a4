package schedule

import (
	"fmt"
	"time"
)

// Hours is a single weekday's open/close window, as local wall-clock
// times in "15:04" form.
type Hours struct {
	Open  string `mapstructure:"open" json:"open"`
	Close string `mapstructure:"close" json:"close"`
}

// WeekSchedule maps a weekday (time.Sunday..time.Saturday) to its
// clinic hours. A missing weekday means the clinic is closed that day.
type WeekSchedule map[time.Weekday]Hours

// DefaultWeekSchedule returns the standing clinic hours: Sunday
// afternoons only, all other days 09:00-20:00.
func DefaultWeekSchedule() WeekSchedule {
	ws := WeekSchedule{
		time.Sunday: {Open: "15:00", Close: "20:00"},
	}
	for d := time.Monday; d <= time.Saturday; d++ {
		ws[d] = Hours{Open: "09:00", Close: "20:00"}
	}
	return ws
}

// HoursFor returns the window for the given weekday and whether the
// clinic opens at all that day.
func (ws WeekSchedule) HoursFor(day time.Weekday) (Hours, bool) {
	h, ok := ws[day]
	return h, ok
}

// Validate checks every configured window parses and closes after it opens.
func (ws WeekSchedule) Validate() error {
	for day, h := range ws {
		open, err := time.Parse("15:04", h.Open)
		if err != nil {
			return fmt.Errorf("invalid open time for %s: %w", day, err)
		}
		close, err := time.Parse("15:04", h.Close)
		if err != nil {
			return fmt.Errorf("invalid close time for %s: %w", day, err)
		}
		if !close.After(open) {
			return fmt.Errorf("close time must be after open time for %s", day)
		}
	}
	return nil
}
