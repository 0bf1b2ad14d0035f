package ticketing

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCategory is returned when a category key is not in the
	// configured set.
	ErrUnknownCategory = errors.New("unknown ticket category")

	// ErrOutsideOperatingHours is returned when ticket creation is attempted
	// outside the configured daily window.
	ErrOutsideOperatingHours = errors.New("outside operating hours")

	// ErrDuplicateActiveTicket is returned when the owner already has a
	// non-closed ticket.
	ErrDuplicateActiveTicket = errors.New("user already has an active ticket")

	// ErrTicketLimitReached is returned when the owner is at the configured
	// concurrent ticket limit.
	ErrTicketLimitReached = errors.New("ticket limit reached")

	// ErrTicketNotFound is returned when no live ticket matches the channel.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrAlreadyPaused is returned when pausing a paused ticket.
	ErrAlreadyPaused = errors.New("ticket is already paused")

	// ErrNotPaused is returned when resuming a ticket that is not paused.
	ErrNotPaused = errors.New("ticket is not paused")

	// ErrHistoryFetchFailed is returned when paging the channel history fails.
	// Partial transcripts are never returned.
	ErrHistoryFetchFailed = errors.New("history fetch failed")
)

// ChannelCreationError wraps a gateway failure while creating the ticket
// channel. The ticket number allocated before the attempt is not rolled back;
// number density is an explicit non-goal.
type ChannelCreationError struct {
	Cause error
}

func (e *ChannelCreationError) Error() string {
	return fmt.Sprintf("channel creation failed: %v", e.Cause)
}

func (e *ChannelCreationError) Unwrap() error {
	return e.Cause
}
