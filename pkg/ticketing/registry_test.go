package ticketing

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thaiesports/ticketbot/pkg/entities"
)

func newTicket(number int, owner, channel, category string) *entities.Ticket {
	return &entities.Ticket{
		TicketNumber: number,
		ChannelID:    channel,
		OwnerID:      owner,
		Category:     category,
		Status:       entities.TicketOpen,
	}
}

func TestRegistry_Lookups(t *testing.T) {
	r := NewRegistry()

	r.Put(newTicket(1001, "owner-a", "chan-a", "member_edit"))
	r.Put(newTicket(2001, "owner-b", "chan-b", "schedule_report"))

	require.Equal(t, 2, r.Count())

	byOwner := r.ByOwner("owner-a")
	require.NotNil(t, byOwner)
	require.Equal(t, 1001, byOwner.TicketNumber)

	// Both lookups read the same underlying record, but each caller gets its
	// own copy.
	byChannel := r.ByChannel("chan-a")
	require.Equal(t, byOwner, byChannel)
	require.NotSame(t, byOwner, byChannel)

	require.Nil(t, r.ByOwner("owner-c"))
	require.Nil(t, r.ByChannel("chan-c"))
}

func TestRegistry_CopiesIsolateCallers(t *testing.T) {
	r := NewRegistry()

	in := newTicket(1001, "owner-a", "chan-a", "member_edit")
	r.Put(in)

	// Mutating the argument after Put does not touch the stored record.
	in.Status = entities.TicketClosed
	require.Equal(t, entities.TicketOpen, r.ByOwner("owner-a").Status)

	// Mutating a returned copy does not touch the stored record either.
	got := r.ByOwner("owner-a")
	got.Status = entities.TicketPaused
	require.Equal(t, entities.TicketOpen, r.ByChannel("chan-a").Status)
}

func TestRegistry_Update(t *testing.T) {
	r := NewRegistry()
	r.Put(newTicket(1001, "owner-a", "chan-a", "member_edit"))

	got := r.Update("owner-a", func(live *entities.Ticket) {
		live.Status = entities.TicketPaused
		live.PausedBy = "staff-1"
	})
	require.NotNil(t, got)
	require.Equal(t, entities.TicketPaused, got.Status)
	require.Equal(t, "staff-1", got.PausedBy)

	// The change stuck on the stored record.
	require.Equal(t, entities.TicketPaused, r.ByOwner("owner-a").Status)

	require.Nil(t, r.Update("owner-b", func(live *entities.Ticket) {
		live.Status = entities.TicketClosed
	}))
}

func TestRegistry_PutReplacesOwnerRecord(t *testing.T) {
	r := NewRegistry()

	r.Put(newTicket(1001, "owner-a", "chan-a", "member_edit"))
	r.Put(newTicket(1002, "owner-a", "chan-x", "member_edit"))

	require.Equal(t, 1, r.Count())
	require.Equal(t, 1002, r.ByOwner("owner-a").TicketNumber)
	require.Nil(t, r.ByChannel("chan-a"))
	require.NotNil(t, r.ByChannel("chan-x"))
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()

	r.Put(newTicket(1001, "owner-a", "chan-a", "member_edit"))
	r.Remove("owner-a")

	require.Equal(t, 0, r.Count())
	require.Nil(t, r.ByOwner("owner-a"))
	require.Nil(t, r.ByChannel("chan-a"))
	require.Empty(t, r.All())
}

func TestRegistry_CountByCategory(t *testing.T) {
	r := NewRegistry()

	r.Put(newTicket(1001, "owner-a", "chan-a", "member_edit"))
	r.Put(newTicket(1002, "owner-b", "chan-b", "member_edit"))
	r.Put(newTicket(4001, "owner-c", "chan-c", "technical_issue"))

	require.Equal(t, map[string]int{
		"member_edit":     2,
		"technical_issue": 1,
	}, r.CountByCategory())
}

func TestRegistry_OwnerTicketCount(t *testing.T) {
	r := NewRegistry()
	require.Equal(t, 0, r.OwnerTicketCount("owner-a"))

	r.Put(newTicket(1001, "owner-a", "chan-a", "member_edit"))
	require.Equal(t, 1, r.OwnerTicketCount("owner-a"))
}
