package entities

import (
	"fmt"

	"github.com/thaiesports/ticketbot/pkg/custom"
)

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	// TicketOpen is a live ticket accepting messages.
	TicketOpen TicketStatus = "open"

	// TicketPaused is a live ticket whose owner has been muted by staff.
	TicketPaused TicketStatus = "paused"

	// TicketClosed is terminal. Closed tickets are removed from the live
	// registry and only survive as a mirrored copy in the ticket store.
	TicketClosed TicketStatus = "closed"
)

// Ticket is one support interaction, backed by a dedicated private channel.
type Ticket struct {
	// TicketNumber is the category-namespaced sequential number. Category
	// ordinal k issues numbers k*1000+1, k*1000+2, ...
	TicketNumber int `json:"ticket_number" bson:"ticket_number"`

	// ChannelID is the ID of the dedicated channel. Unique among open tickets.
	ChannelID string `json:"channel_id" bson:"channel_id"`

	// OwnerID is the ID of the user that opened the ticket. A user holds at
	// most one non-closed ticket at a time.
	OwnerID string `json:"owner_id" bson:"owner_id"`

	// OwnerName is the username of the owner at creation time.
	OwnerName string `json:"owner_name" bson:"owner_name"`

	// Category is the configured category key the ticket was opened under.
	Category string `json:"category" bson:"category"`

	// Status is the lifecycle state.
	Status TicketStatus `json:"status" bson:"status"`

	// WelcomeMessageID is the ID of the pinned welcome message holding the
	// pause/close buttons.
	WelcomeMessageID string `json:"welcome_message_id" bson:"welcome_message_id"`

	// CreatedAt is set once at creation.
	CreatedAt custom.Datetime `json:"created_at" bson:"created_at"`

	// PausedBy and PausedAt are set while the ticket is paused and cleared on
	// resume.
	PausedBy string          `json:"paused_by,omitempty" bson:"paused_by,omitempty"`
	PausedAt custom.Datetime `json:"paused_at,omitempty" bson:"paused_at,omitempty"`

	// ClosedBy and ClosedAt are set exactly once, on close.
	ClosedBy string          `json:"closed_by,omitempty" bson:"closed_by,omitempty"`
	ClosedAt custom.Datetime `json:"closed_at,omitempty" bson:"closed_at,omitempty"`
}

// Name returns the channel name for the ticket, e.g. "ticket-1001".
func (t *Ticket) Name() string {
	return fmt.Sprintf("ticket-%d", t.TicketNumber)
}

// IsPaused reports whether the ticket is paused. This is derived from Status
// so the two can never diverge.
func (t *Ticket) IsPaused() bool {
	return t.Status == TicketPaused
}
