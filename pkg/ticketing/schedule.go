package ticketing

import (
	"fmt"
	"time"
)

// Schedule is the daily operating-hours window for ticket creation. The start
// hour is inclusive and the end hour exclusive, evaluated in the configured
// timezone.
type Schedule struct {
	startHour int
	endHour   int
	loc       *time.Location
}

// NewSchedule builds an operating-hours schedule. An end hour of 24 means
// "until midnight".
func NewSchedule(startHour, endHour int, timezone string) (*Schedule, error) {
	if startHour < 0 || startHour > 23 {
		return nil, fmt.Errorf("invalid start hour %d", startHour)
	}
	if endHour < 1 || endHour > 24 {
		return nil, fmt.Errorf("invalid end hour %d", endHour)
	}
	if endHour <= startHour {
		return nil, fmt.Errorf("end hour %d must be after start hour %d", endHour, startHour)
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("error loading timezone %q: %w", timezone, err)
	}

	return &Schedule{
		startHour: startHour,
		endHour:   endHour,
		loc:       loc,
	}, nil
}

// Within reports whether t falls inside the operating window.
func (s *Schedule) Within(t time.Time) bool {
	h := t.In(s.loc).Hour()
	return h >= s.startHour && h < s.endHour
}

// NextOpening returns the next time the window opens at or after t. If t is
// already inside the window it is returned unchanged.
func (s *Schedule) NextOpening(t time.Time) time.Time {
	local := t.In(s.loc)
	if s.Within(t) {
		return t
	}

	open := time.Date(local.Year(), local.Month(), local.Day(), s.startHour, 0, 0, 0, s.loc)
	if !local.Before(open) {
		// Past today's window; opens tomorrow.
		open = open.AddDate(0, 0, 1)
	}
	return open
}

// Hours returns the configured window for display.
func (s *Schedule) Hours() (start, end int) {
	return s.startHour, s.endHour
}

// Location returns the schedule's timezone.
func (s *Schedule) Location() *time.Location {
	return s.loc
}
