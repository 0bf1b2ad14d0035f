package ticketing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/thaiesports/ticketbot/pkg/entities"
)

// fakeGateway hands out channel IDs and records creations.
type fakeGateway struct {
	mu      sync.Mutex
	created []string
	fail    error
}

func (f *fakeGateway) factory() ChannelFactory {
	return func(_ context.Context, _ Actor, _ entities.Category, ticketNumber int) (*CreatedChannel, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.fail != nil {
			return nil, f.fail
		}
		id := fmt.Sprintf("chan-%d", ticketNumber)
		f.created = append(f.created, id)
		return &CreatedChannel{ID: id, Name: fmt.Sprintf("ticket-%d", ticketNumber)}, nil
	}
}

// recordingMirror captures fire-and-forget mirror calls.
type recordingMirror struct {
	mu      sync.Mutex
	saved   []int
	updated []entities.TicketStatus
	err     error
}

func (m *recordingMirror) SaveTicket(_ context.Context, t *entities.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, t.TicketNumber)
	return nil
}

func (m *recordingMirror) UpdateTicketStatus(_ context.Context, ticketNumber int, status entities.TicketStatus, _ map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.updated = append(m.updated, status)
	return nil
}

func newTestCoordinator(t *testing.T, opts ...CoordinatorOption) *Coordinator {
	t.Helper()

	categories := testCategories(t)
	allocator, err := NewAllocator(context.Background(), testLogger(), categories, &memCounterStore{})
	require.NoError(t, err)

	return NewCoordinator(testLogger(), categories, NewRegistry(), allocator, NewGenerator(), opts...)
}

func TestCoordinator_CreateTicket(t *testing.T) {
	c := newTestCoordinator(t)
	gw := new(fakeGateway)

	ticket, err := c.CreateTicket(context.Background(), Actor{ID: "owner-a", Name: "alice"}, "member_edit", gw.factory())
	require.NoError(t, err)
	require.Equal(t, 1001, ticket.TicketNumber)
	require.Equal(t, "chan-1001", ticket.ChannelID)
	require.Equal(t, entities.TicketOpen, ticket.Status)
	require.Equal(t, "ticket-1001", ticket.Name())
	require.False(t, ticket.CreatedAt.IsZero())

	live := c.TicketByOwner("owner-a")
	require.NotNil(t, live)
	require.Equal(t, 1001, live.TicketNumber)
	require.Equal(t, live.OwnerID, c.TicketByChannel("chan-1001").OwnerID)
}

func TestCoordinator_CreateTicket_DuplicateOwner(t *testing.T) {
	c := newTestCoordinator(t)
	gw := new(fakeGateway)
	owner := Actor{ID: "owner-a", Name: "alice"}

	_, err := c.CreateTicket(context.Background(), owner, "member_edit", gw.factory())
	require.NoError(t, err)

	_, err = c.CreateTicket(context.Background(), owner, "technical_issue", gw.factory())
	require.ErrorIs(t, err, ErrDuplicateActiveTicket)

	// Only the first channel was ever created.
	require.Len(t, gw.created, 1)
}

func TestCoordinator_CreateTicket_UnknownCategory(t *testing.T) {
	c := newTestCoordinator(t)

	_, err := c.CreateTicket(context.Background(), Actor{ID: "owner-a"}, "nope", new(fakeGateway).factory())
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestCoordinator_CreateTicket_OperatingHours(t *testing.T) {
	schedule, err := NewSchedule(9, 18, "UTC")
	require.NoError(t, err)

	now := time.Date(2025, 6, 2, 8, 59, 0, 0, time.UTC)
	c := newTestCoordinator(t,
		WithSchedule(schedule),
		WithClock(func() time.Time { return now }),
	)
	gw := new(fakeGateway)

	// One minute before opening.
	_, err = c.CreateTicket(context.Background(), Actor{ID: "owner-a"}, "member_edit", gw.factory())
	require.ErrorIs(t, err, ErrOutsideOperatingHours)

	// Exactly at the start hour.
	now = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	_, err = c.CreateTicket(context.Background(), Actor{ID: "owner-a"}, "member_edit", gw.factory())
	require.NoError(t, err)
}

func TestCoordinator_CreateTicket_ChannelFailureKeepsNumber(t *testing.T) {
	c := newTestCoordinator(t)
	gw := &fakeGateway{fail: errors.New("missing permissions")}

	_, err := c.CreateTicket(context.Background(), Actor{ID: "owner-a"}, "member_edit", gw.factory())

	ccErr := new(ChannelCreationError)
	require.ErrorAs(t, err, &ccErr)
	require.Nil(t, c.TicketByOwner("owner-a"))

	// The burnt number is not rolled back: the next ticket gets 1002.
	gw.fail = nil
	ticket, err := c.CreateTicket(context.Background(), Actor{ID: "owner-a"}, "member_edit", gw.factory())
	require.NoError(t, err)
	require.Equal(t, 1002, ticket.TicketNumber)
}

func TestCoordinator_PauseUnpauseCycle(t *testing.T) {
	c := newTestCoordinator(t)
	staff := Actor{ID: "staff-1", Name: "mod"}

	ticket, err := c.CreateTicket(context.Background(), Actor{ID: "owner-a"}, "member_edit", new(fakeGateway).factory())
	require.NoError(t, err)

	paused, err := c.PauseTicket(ticket.ChannelID, staff)
	require.NoError(t, err)
	require.Equal(t, entities.TicketPaused, paused.Status)
	require.True(t, paused.IsPaused())
	require.Equal(t, "staff-1", paused.PausedBy)
	require.False(t, paused.PausedAt.IsZero())

	// Pausing twice fails the second time.
	_, err = c.PauseTicket(ticket.ChannelID, staff)
	require.ErrorIs(t, err, ErrAlreadyPaused)

	resumed, err := c.UnpauseTicket(ticket.ChannelID, staff)
	require.NoError(t, err)
	require.Equal(t, entities.TicketOpen, resumed.Status)
	require.False(t, resumed.IsPaused())
	require.Empty(t, resumed.PausedBy)
	require.True(t, resumed.PausedAt.IsZero())

	// Unpausing twice fails the second time.
	_, err = c.UnpauseTicket(ticket.ChannelID, staff)
	require.ErrorIs(t, err, ErrNotPaused)
}

func TestCoordinator_PauseUnknownChannel(t *testing.T) {
	c := newTestCoordinator(t)

	_, err := c.PauseTicket("chan-missing", Actor{ID: "staff-1"})
	require.ErrorIs(t, err, ErrTicketNotFound)

	_, err = c.UnpauseTicket("chan-missing", Actor{ID: "staff-1"})
	require.ErrorIs(t, err, ErrTicketNotFound)
}

func TestCoordinator_CloseTicket_RoundTrip(t *testing.T) {
	c := newTestCoordinator(t)
	staff := Actor{ID: "staff-1", Name: "mod"}

	ticket, err := c.CreateTicket(context.Background(), Actor{ID: "owner-a", Name: "alice"}, "member_edit", new(fakeGateway).factory())
	require.NoError(t, err)

	_, err = c.PauseTicket(ticket.ChannelID, staff)
	require.NoError(t, err)
	_, err = c.UnpauseTicket(ticket.ChannelID, staff)
	require.NoError(t, err)

	history := &fakeHistory{pages: [][]HistoryMessage{
		{msgAt("1", "alice", "please fix my name", time.Now())},
	}}

	result, err := c.CloseTicket(context.Background(), ticket.ChannelID, staff, history)
	require.NoError(t, err)
	require.False(t, result.TranscriptFailed())
	require.Equal(t, 1, result.Transcript.MessageCount)
	require.Equal(t, entities.TicketClosed, result.Ticket.Status)
	require.Equal(t, "staff-1", result.Ticket.ClosedBy)
	require.False(t, result.Ticket.ClosedAt.IsZero())

	// Closure is terminal: the ticket is gone from the live registry.
	require.Nil(t, c.TicketByOwner("owner-a"))
	require.Nil(t, c.TicketByChannel(ticket.ChannelID))
	require.Empty(t, c.ActiveTickets())

	// Closing again reports not found.
	_, err = c.CloseTicket(context.Background(), ticket.ChannelID, staff, history)
	require.ErrorIs(t, err, ErrTicketNotFound)
}

func TestCoordinator_CloseTicket_TranscriptFailureIsNonFatal(t *testing.T) {
	c := newTestCoordinator(t)

	ticket, err := c.CreateTicket(context.Background(), Actor{ID: "owner-a"}, "member_edit", new(fakeGateway).factory())
	require.NoError(t, err)

	broken := &fakeHistory{err: errors.New("gateway 502"), errOn: 1}
	result, err := c.CloseTicket(context.Background(), ticket.ChannelID, Actor{ID: "staff-1"}, broken)
	require.NoError(t, err)
	require.True(t, result.TranscriptFailed())
	require.ErrorIs(t, result.TranscriptErr, ErrHistoryFetchFailed)
	require.Nil(t, result.Transcript)

	// The ticket still closed.
	require.Equal(t, entities.TicketClosed, result.Ticket.Status)
	require.Nil(t, c.TicketByOwner("owner-a"))
}

func TestCoordinator_NumbersNeverReused(t *testing.T) {
	c := newTestCoordinator(t)
	gw := new(fakeGateway)

	first, err := c.CreateTicket(context.Background(), Actor{ID: "owner-a"}, "member_edit", gw.factory())
	require.NoError(t, err)
	require.Equal(t, 1001, first.TicketNumber)

	second, err := c.CreateTicket(context.Background(), Actor{ID: "owner-b"}, "member_edit", gw.factory())
	require.NoError(t, err)
	require.Equal(t, 1002, second.TicketNumber)

	_, err = c.CloseTicket(context.Background(), first.ChannelID, Actor{ID: "staff-1"}, &fakeHistory{})
	require.NoError(t, err)

	// 1001 is free in the registry but its number is never reissued.
	third, err := c.CreateTicket(context.Background(), Actor{ID: "owner-c"}, "member_edit", gw.factory())
	require.NoError(t, err)
	require.Equal(t, 1003, third.TicketNumber)
}

func TestCoordinator_Stats(t *testing.T) {
	c := newTestCoordinator(t)
	gw := new(fakeGateway)

	_, err := c.CreateTicket(context.Background(), Actor{ID: "owner-a"}, "member_edit", gw.factory())
	require.NoError(t, err)
	_, err = c.CreateTicket(context.Background(), Actor{ID: "owner-b"}, "technical_issue", gw.factory())
	require.NoError(t, err)

	stats := c.Stats()
	require.Equal(t, 2, stats.ActiveTickets)
	require.Equal(t, map[string]int{"member_edit": 1, "technical_issue": 1}, stats.ByCategory)
	require.Equal(t, 1001, stats.Counters["member_edit"].Current)
}

func TestCoordinator_MirrorFailuresNeverSurface(t *testing.T) {
	mirror := &recordingMirror{err: errors.New("firestore down")}
	c := newTestCoordinator(t, WithMirror(mirror))

	ticket, err := c.CreateTicket(context.Background(), Actor{ID: "owner-a"}, "member_edit", new(fakeGateway).factory())
	require.NoError(t, err)

	result, err := c.CloseTicket(context.Background(), ticket.ChannelID, Actor{ID: "staff-1"}, &fakeHistory{})
	require.NoError(t, err)
	require.Equal(t, entities.TicketClosed, result.Ticket.Status)
}

func TestCoordinator_ConcurrentCreatesSameOwner(t *testing.T) {
	c := newTestCoordinator(t)
	gw := new(fakeGateway)

	const attempts = 8
	errs := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.CreateTicket(context.Background(), Actor{ID: "owner-a"}, "member_edit", gw.factory())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ErrDuplicateActiveTicket)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Len(t, gw.created, 1)
}

func TestCoordinator_ConcurrentReadsDuringStateChanges(t *testing.T) {
	c := newTestCoordinator(t)
	staff := Actor{ID: "staff-1"}

	ticket, err := c.CreateTicket(context.Background(), Actor{ID: "owner-a"}, "member_edit", new(fakeGateway).factory())
	require.NoError(t, err)

	// Readers hammer the lookup paths while pause and unpause flip the
	// status. Run with -race: readers must only ever see a fully open or
	// fully paused record, never a torn one.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if got := c.TicketByChannel(ticket.ChannelID); got != nil {
					paused := got.Status == entities.TicketPaused
					require.Equal(t, paused, got.PausedBy != "")
					require.Equal(t, paused, !got.PausedAt.IsZero())
				}
				c.TicketByOwner("owner-a")
				c.ActiveTickets()
				c.Stats()
			}
		}()
	}

	for i := 0; i < 50; i++ {
		_, err := c.PauseTicket(ticket.ChannelID, staff)
		require.NoError(t, err)
		_, err = c.UnpauseTicket(ticket.ChannelID, staff)
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
}

func TestCoordinator_OutsideHoursBeforeCategoryCheck(t *testing.T) {
	schedule, err := NewSchedule(9, 18, "UTC")
	require.NoError(t, err)

	now := time.Date(2025, 6, 2, 20, 0, 0, 0, time.UTC)
	c := newTestCoordinator(t,
		WithSchedule(schedule),
		WithClock(func() time.Time { return now }),
	)

	// Outside the window the closed message wins even for a key that was
	// never configured.
	_, err = c.CreateTicket(context.Background(), Actor{ID: "owner-a"}, "nope", new(fakeGateway).factory())
	require.ErrorIs(t, err, ErrOutsideOperatingHours)

	// Inside the window the same key is reported as unknown.
	now = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	_, err = c.CreateTicket(context.Background(), Actor{ID: "owner-a"}, "nope", new(fakeGateway).factory())
	require.ErrorIs(t, err, ErrUnknownCategory)
}
