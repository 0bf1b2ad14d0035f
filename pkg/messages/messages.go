// Package messages holds every user-facing string the bot sends. Keeping them
// in one place means the error taxonomy in pkg/ticketing maps one-to-one onto a
// distinct message for the user.
package messages

const (
	// ErrUserErrorProcessing is the generic failure response for an interaction.
	ErrUserErrorProcessing = "Something went wrong while processing that. Please try again or contact an administrator."

	// ErrNotStaff is sent when a non-staff member uses a staff-only control.
	ErrNotStaff = "Only staff members can use this control."

	// ErrNotAdmin is sent when a non-administrator uses an admin command.
	ErrNotAdmin = "You must be an administrator to use this command."

	// ErrNotTicketChannel is sent when a ticket command runs outside a ticket channel.
	ErrNotTicketChannel = "This command only works inside a ticket channel."

	// ErrOutsideHours is sent when ticket creation is attempted outside the
	// operating window. The command layer appends the configured hours.
	ErrOutsideHours = "Ticket creation is closed right now."

	// ErrDuplicateTicket is sent when the user already holds an open ticket.
	ErrDuplicateTicket = "You already have an open ticket! Please use your existing ticket channel."

	// ErrTicketLimit is sent when the user is at their concurrent ticket limit.
	ErrTicketLimit = "You have reached the maximum number of open tickets."

	// ErrTicketNotFound is sent when no ticket is registered for the channel.
	ErrTicketNotFound = "No ticket is registered for this channel."

	// ErrAlreadyPaused is sent when pausing an already paused ticket.
	ErrAlreadyPaused = "This ticket is already paused."

	// ErrNotPaused is sent when resuming a ticket that is not paused.
	ErrNotPaused = "This ticket is not paused."

	// ErrCreateFailed is sent when the ticket channel could not be created.
	ErrCreateFailed = "Your ticket channel could not be created. Please try again in a moment."

	// ErrRateLimited is sent when ticket creation is being retried too quickly.
	ErrRateLimited = "You are doing that too fast. Please wait a moment and try again."

	// TicketPaused is the warning shown to the owner of a paused ticket.
	TicketPaused = "This ticket has been paused by staff. You cannot send messages right now."

	// ClosingTicket announces the close sequence inside the ticket channel.
	ClosingTicket = "Closing this ticket. A transcript is being generated and this channel will be deleted in 15 seconds."
)
