package ticketing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewSchedule_Validation(t *testing.T) {
	tests := []struct {
		name      string
		start     int
		end       int
		timezone  string
		wantError bool
	}{
		{name: "Valid", start: 9, end: 24, timezone: "Asia/Bangkok"},
		{name: "FullDay", start: 0, end: 24, timezone: "UTC"},
		{name: "StartTooLarge", start: 24, end: 24, timezone: "UTC", wantError: true},
		{name: "EndBeforeStart", start: 10, end: 9, timezone: "UTC", wantError: true},
		{name: "EndEqualsStart", start: 10, end: 10, timezone: "UTC", wantError: true},
		{name: "BadTimezone", start: 9, end: 18, timezone: "Mars/Olympus", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchedule(tt.start, tt.end, tt.timezone)
			if tt.wantError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSchedule_Within(t *testing.T) {
	s, err := NewSchedule(9, 18, "UTC")
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "ExactlyAtOpen", at: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), want: true},
		{name: "OneMinuteBeforeOpen", at: time.Date(2025, 6, 2, 8, 59, 0, 0, time.UTC), want: false},
		{name: "MidWindow", at: time.Date(2025, 6, 2, 13, 30, 0, 0, time.UTC), want: true},
		{name: "LastMinute", at: time.Date(2025, 6, 2, 17, 59, 0, 0, time.UTC), want: true},
		{name: "ExactlyAtClose", at: time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, s.Within(tt.at))
		})
	}
}

func TestSchedule_WithinHonoursTimezone(t *testing.T) {
	s, err := NewSchedule(9, 18, "Asia/Bangkok")
	require.NoError(t, err)

	// 03:00 UTC is 10:00 in Bangkok (UTC+7).
	require.True(t, s.Within(time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)))

	// 13:00 UTC is 20:00 in Bangkok.
	require.False(t, s.Within(time.Date(2025, 6, 2, 13, 0, 0, 0, time.UTC)))
}

func TestSchedule_NextOpening(t *testing.T) {
	s, err := NewSchedule(9, 18, "UTC")
	require.NoError(t, err)

	// Before today's window: opens today at 09:00.
	got := s.NextOpening(time.Date(2025, 6, 2, 7, 15, 0, 0, time.UTC))
	require.Equal(t, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), got)

	// After today's window: opens tomorrow.
	got = s.NextOpening(time.Date(2025, 6, 2, 19, 0, 0, 0, time.UTC))
	require.Equal(t, time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC), got)

	// Inside the window: unchanged.
	at := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	require.Equal(t, at, s.NextOpening(at))
}
