package ticketing

import (
	"sync"

	"github.com/thaiesports/ticketbot/pkg/entities"
)

// Registry is the in-memory source of truth for live (open or paused)
// tickets. It is a single map keyed by owner; channel lookups scan that same
// map so the two views can never diverge. Restart loses all live state by
// design.
//
// The registry owns the stored records outright: Put copies on the way in,
// every accessor copies on the way out, and field mutation only happens
// through Update under the write lock. Readers therefore never share memory
// with a concurrent state change.
type Registry struct {
	mu      sync.RWMutex
	byOwner map[string]*entities.Ticket
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byOwner: make(map[string]*entities.Ticket),
	}
}

// Put inserts or replaces the record for the ticket's owner. The registry
// stores its own copy; later changes to the argument are not seen.
func (r *Registry) Put(t *entities.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byOwner[t.OwnerID] = copyTicket(t)
}

// ByOwner returns a copy of the live ticket for the owner, or nil.
func (r *Registry) ByOwner(ownerID string) *entities.Ticket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyTicket(r.byOwner[ownerID])
}

// ByChannel returns a copy of the live ticket backed by the channel, or nil.
func (r *Registry) ByChannel(channelID string) *entities.Ticket {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.byOwner {
		if t.ChannelID == channelID {
			return copyTicket(t)
		}
	}
	return nil
}

// Update applies fn to the owner's live record under the write lock and
// returns a copy of the result, or nil when the owner has no live ticket.
// This is the only way stored fields change after Put.
func (r *Registry) Update(ownerID string, fn func(*entities.Ticket)) *entities.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byOwner[ownerID]
	if !ok {
		return nil
	}
	fn(t)
	return copyTicket(t)
}

// Remove deletes the owner's record. Used on close.
func (r *Registry) Remove(ownerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byOwner, ownerID)
}

// All returns copies of the live tickets.
func (r *Registry) All() []*entities.Ticket {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Ticket, 0, len(r.byOwner))
	for _, t := range r.byOwner {
		out = append(out, copyTicket(t))
	}
	return out
}

// Count returns the number of live tickets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byOwner)
}

// CountByCategory returns the number of live tickets per category key.
func (r *Registry) CountByCategory() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int)
	for _, t := range r.byOwner {
		out[t.Category]++
	}
	return out
}

// OwnerTicketCount returns how many live tickets the owner holds. The registry
// stores one record per owner, so this is 0 or 1 today; the coordinator's
// limit check is written against the count so the contract supports N.
func (r *Registry) OwnerTicketCount(ownerID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.byOwner[ownerID]; ok {
		return 1
	}
	return 0
}

func copyTicket(t *entities.Ticket) *entities.Ticket {
	if t == nil {
		return nil
	}
	out := *t
	return &out
}
