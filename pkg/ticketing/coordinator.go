package ticketing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/thaiesports/ticketbot/pkg/custom"
	"github.com/thaiesports/ticketbot/pkg/entities"
	"github.com/thaiesports/ticketbot/pkg/logging"
)

// Actor identifies the user performing an operation.
type Actor struct {
	ID   string
	Name string
}

// CreatedChannel is the gateway's result for a new ticket channel.
type CreatedChannel struct {
	ID   string
	Name string
}

// ChannelFactory creates the dedicated private channel for a ticket. It is
// supplied per call so the command layer can scope permissions to the owner
// and staff role.
type ChannelFactory func(ctx context.Context, owner Actor, category entities.Category, ticketNumber int) (*CreatedChannel, error)

// TicketMirror is the optional durability collaborator. Every call is
// fire-and-forget from the coordinator's perspective: failures are logged and
// never surfaced.
type TicketMirror interface {
	SaveTicket(ctx context.Context, t *entities.Ticket) error
	UpdateTicketStatus(ctx context.Context, ticketNumber int, status entities.TicketStatus, fields map[string]any) error
}

// CloseResult is what CloseTicket hands back to the command layer: the closed
// record plus the transcript outcome, so the caller can archive and notify.
type CloseResult struct {
	Ticket *entities.Ticket

	// Transcript is nil when generation failed; TranscriptErr then carries
	// the cause. Transcript failure does not prevent closing.
	Transcript    *Transcript
	TranscriptErr error
}

// TranscriptFailed reports whether the close completed without a transcript.
func (r *CloseResult) TranscriptFailed() bool {
	return r.TranscriptErr != nil
}

// Coordinator is the ticket lifecycle state machine. It exclusively owns the
// mutation of ticket records; the registry and allocator are never touched by
// other code paths. Operations for the same owner are serialized with a
// per-owner mutex, and all field changes go through the registry's write lock,
// so dispatches on overlapping goroutines can neither race the registry nor
// observe a half-applied state change.
type Coordinator struct {
	l          *slog.Logger
	categories *CategorySet
	registry   *Registry
	allocator  *Allocator
	generator  *Generator
	schedule   *Schedule
	mirror     TicketMirror

	maxPerOwner int
	now         func() time.Time

	mu       sync.Mutex
	ownerMus map[string]*sync.Mutex
}

// CoordinatorOption customises a coordinator.
type CoordinatorOption func(*Coordinator)

// WithMirror attaches a best-effort durability store.
func WithMirror(m TicketMirror) CoordinatorOption {
	return func(c *Coordinator) { c.mirror = m }
}

// WithSchedule gates ticket creation to the operating-hours window.
func WithSchedule(s *Schedule) CoordinatorOption {
	return func(c *Coordinator) { c.schedule = s }
}

// WithMaxTicketsPerOwner sets the concurrent ticket limit (default 1).
func WithMaxTicketsPerOwner(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxPerOwner = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator builds the lifecycle coordinator.
func NewCoordinator(l *slog.Logger, categories *CategorySet, registry *Registry, allocator *Allocator, generator *Generator, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		l:           l.With(slog.String("component", "coordinator")),
		categories:  categories,
		registry:    registry,
		allocator:   allocator,
		generator:   generator,
		maxPerOwner: 1,
		now:         time.Now,
		ownerMus:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Categories returns the coordinator's category table.
func (c *Coordinator) Categories() *CategorySet {
	return c.categories
}

// Schedule returns the operating-hours gate, or nil when creation is ungated.
func (c *Coordinator) Schedule() *Schedule {
	return c.schedule
}

// CreateTicket runs the full creation sequence: operating-hours gate,
// duplicate and limit checks, number allocation, channel creation, and
// registration. The allocated number is not rolled back when channel creation
// fails; number density is a non-goal.
func (c *Coordinator) CreateTicket(ctx context.Context, owner Actor, categoryKey string, factory ChannelFactory) (*entities.Ticket, error) {
	// The operating-hours gate comes first; an unconfigured key outside the
	// window still reads as "closed" to the user.
	if c.schedule != nil && !c.schedule.Within(c.now()) {
		return nil, ErrOutsideOperatingHours
	}

	category, err := c.categories.Get(categoryKey)
	if err != nil {
		return nil, err
	}

	lock := c.ownerLock(owner.ID)
	lock.Lock()
	defer lock.Unlock()

	if c.registry.ByOwner(owner.ID) != nil {
		return nil, ErrDuplicateActiveTicket
	}
	if c.registry.OwnerTicketCount(owner.ID) >= c.maxPerOwner {
		return nil, ErrTicketLimitReached
	}

	number, err := c.allocator.NextNumber(ctx, categoryKey)
	if err != nil {
		return nil, err
	}

	channel, err := factory(ctx, owner, category, number)
	if err != nil {
		return nil, &ChannelCreationError{Cause: err}
	}

	ticket := &entities.Ticket{
		TicketNumber: number,
		ChannelID:    channel.ID,
		OwnerID:      owner.ID,
		OwnerName:    owner.Name,
		Category:     categoryKey,
		Status:       entities.TicketOpen,
		CreatedAt:    custom.Datetime(c.now().UTC()),
	}
	c.registry.Put(ticket)

	c.l.Info("Ticket created",
		slog.Int(logging.KeyTicket, number),
		slog.String(logging.KeyUser, owner.ID),
		slog.String(logging.KeyCategory, categoryKey),
		slog.String(logging.KeyChannel, channel.ID),
	)

	c.mirrorSave(ticket)
	return ticket, nil
}

// SetWelcomeMessage records the ID of the pinned welcome message on the live
// ticket so the command layer can find its buttons later.
func (c *Coordinator) SetWelcomeMessage(channelID, messageID string) error {
	t, unlock, err := c.lockTicketByChannel(channelID)
	if err != nil {
		return err
	}
	defer unlock()

	if c.registry.Update(t.OwnerID, func(live *entities.Ticket) {
		live.WelcomeMessageID = messageID
	}) == nil {
		return ErrTicketNotFound
	}
	return nil
}

// PauseTicket moves an open ticket to paused. The caller is responsible for
// revoking the owner's send permission on the channel; the coordinator only
// tracks state.
func (c *Coordinator) PauseTicket(channelID string, actor Actor) (*entities.Ticket, error) {
	t, unlock, err := c.lockTicketByChannel(channelID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if t.Status == entities.TicketPaused {
		return nil, ErrAlreadyPaused
	}

	pausedAt := custom.Datetime(c.now().UTC())
	t = c.registry.Update(t.OwnerID, func(live *entities.Ticket) {
		live.Status = entities.TicketPaused
		live.PausedBy = actor.ID
		live.PausedAt = pausedAt
	})
	if t == nil {
		return nil, ErrTicketNotFound
	}

	c.l.Info("Ticket paused",
		slog.Int(logging.KeyTicket, t.TicketNumber),
		slog.String(logging.KeyUser, actor.ID),
	)

	c.mirrorStatus(t.TicketNumber, entities.TicketPaused, map[string]any{
		"paused_by": t.PausedBy,
		"paused_at": t.PausedAt,
	})
	return t, nil
}

// UnpauseTicket returns a paused ticket to open and clears the pause fields.
func (c *Coordinator) UnpauseTicket(channelID string, actor Actor) (*entities.Ticket, error) {
	t, unlock, err := c.lockTicketByChannel(channelID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if t.Status != entities.TicketPaused {
		return nil, ErrNotPaused
	}

	t = c.registry.Update(t.OwnerID, func(live *entities.Ticket) {
		live.Status = entities.TicketOpen
		live.PausedBy = ""
		live.PausedAt = custom.Datetime{}
	})
	if t == nil {
		return nil, ErrTicketNotFound
	}

	c.l.Info("Ticket unpaused",
		slog.Int(logging.KeyTicket, t.TicketNumber),
		slog.String(logging.KeyUser, actor.ID),
	)

	c.mirrorStatus(t.TicketNumber, entities.TicketOpen, map[string]any{
		"paused_by": "",
		"paused_at": nil,
	})
	return t, nil
}

// CloseTicket generates the transcript, marks the ticket closed and removes
// it from the live registry. Transcript failure is non-fatal: the ticket
// still closes and the result reports the failure. Closing does not delete
// the channel; scheduling deletion is the caller's responsibility.
func (c *Coordinator) CloseTicket(ctx context.Context, channelID string, actor Actor, reader HistoryReader) (*CloseResult, error) {
	t, unlock, err := c.lockTicketByChannel(channelID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	result := new(CloseResult)

	transcript, err := c.generator.Generate(ctx, reader, channelID, TranscriptMeta{
		TicketNumber:  t.TicketNumber,
		CategoryLabel: c.categories.Label(t.Category),
		CategoryEmoji: categoryEmoji(c.categories, t.Category),
		ChannelName:   t.Name(),
		CreatedAt:     t.CreatedAt.Time(),
	})
	if err != nil {
		c.l.Warn("Transcript generation failed, closing without transcript",
			slog.Int(logging.KeyTicket, t.TicketNumber),
			slog.String(logging.KeyError, err.Error()),
		)
		result.TranscriptErr = err
	} else {
		result.Transcript = transcript
	}

	// The lookup handed back a private copy; fill in the close fields on it
	// and drop the live record.
	t.Status = entities.TicketClosed
	t.ClosedBy = actor.ID
	t.ClosedAt = custom.Datetime(c.now().UTC())
	c.registry.Remove(t.OwnerID)

	c.l.Info("Ticket closed",
		slog.Int(logging.KeyTicket, t.TicketNumber),
		slog.String(logging.KeyUser, actor.ID),
	)

	c.mirrorStatus(t.TicketNumber, entities.TicketClosed, map[string]any{
		"closed_by": t.ClosedBy,
		"closed_at": t.ClosedAt,
	})

	result.Ticket = t
	return result, nil
}

// TicketByChannel returns a copy of the live ticket for the channel, or nil.
func (c *Coordinator) TicketByChannel(channelID string) *entities.Ticket {
	return c.registry.ByChannel(channelID)
}

// TicketByOwner returns a copy of the owner's live ticket, or nil.
func (c *Coordinator) TicketByOwner(ownerID string) *entities.Ticket {
	return c.registry.ByOwner(ownerID)
}

// ActiveTickets returns copies of all live tickets.
func (c *Coordinator) ActiveTickets() []*entities.Ticket {
	return c.registry.All()
}

// Stats is a point-in-time view over the registry and allocator.
type Stats struct {
	ActiveTickets int
	ByCategory    map[string]int
	Counters      map[string]CategoryStats
}

// Stats returns the live ticket counts and allocator counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		ActiveTickets: c.registry.Count(),
		ByCategory:    c.registry.CountByCategory(),
		Counters:      c.allocator.Stats(),
	}
}

// ResetCounters rewinds every category counter to its base. The caller
// enforces that only privileged users reach this.
func (c *Coordinator) ResetCounters(ctx context.Context) error {
	return c.allocator.Reset(ctx)
}

// lockTicketByChannel resolves the channel to its live ticket, takes the
// owner lock, and re-validates the lookup under the lock.
func (c *Coordinator) lockTicketByChannel(channelID string) (*entities.Ticket, func(), error) {
	t := c.registry.ByChannel(channelID)
	if t == nil {
		return nil, nil, ErrTicketNotFound
	}

	lock := c.ownerLock(t.OwnerID)
	lock.Lock()

	// The ticket may have closed between the lookup and taking the lock.
	t = c.registry.ByChannel(channelID)
	if t == nil {
		lock.Unlock()
		return nil, nil, ErrTicketNotFound
	}

	return t, lock.Unlock, nil
}

func (c *Coordinator) ownerLock(ownerID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.ownerMus[ownerID]
	if !ok {
		m = new(sync.Mutex)
		c.ownerMus[ownerID] = m
	}
	return m
}

func (c *Coordinator) mirrorSave(t *entities.Ticket) {
	if c.mirror == nil {
		return
	}

	record := copyTicket(t)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mirror.SaveTicket(ctx, record); err != nil {
			c.l.Warn("Error mirroring ticket",
				slog.Int(logging.KeyTicket, record.TicketNumber),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}()
}

func (c *Coordinator) mirrorStatus(ticketNumber int, status entities.TicketStatus, fields map[string]any) {
	if c.mirror == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mirror.UpdateTicketStatus(ctx, ticketNumber, status, fields); err != nil {
			c.l.Warn("Error mirroring ticket status",
				slog.Int(logging.KeyTicket, ticketNumber),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}()
}

func categoryEmoji(s *CategorySet, key string) string {
	c, err := s.Get(key)
	if err != nil {
		return ""
	}
	return c.Emoji
}
