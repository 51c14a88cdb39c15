package booking

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/salon-scheduler/internal/schedule"
)

// WindowCache holds the appointments of the currently visible date window.
// Mutations patch it optimistically for a responsive view; Replace installs
// the authoritative store result wholesale, so stale partial state cannot
// linger. Each owner (screen, session) holds its own cache; there is no
// ambient shared instance.
type WindowCache struct {
	mu           sync.RWMutex
	from, to     time.Time
	appointments map[uuid.UUID]Appointment
}

func NewWindowCache() *WindowCache {
	return &WindowCache{appointments: make(map[uuid.UUID]Appointment)}
}

// Window returns the date range the cache currently covers.
func (c *WindowCache) Window() (from, to time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.from, c.to
}

// Replace swaps in the authoritative appointment list for a window,
// discarding everything held before.
func (c *WindowCache) Replace(from, to time.Time, appts []Appointment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.from, c.to = from, to
	c.appointments = make(map[uuid.UUID]Appointment, len(appts))
	for _, a := range appts {
		c.appointments[a.ID] = a
	}
}

// Upsert patches one appointment in place. Used for the optimistic phase
// of a mutation.
func (c *WindowCache) Upsert(a Appointment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appointments[a.ID] = a
}

// Get returns a held appointment by id.
func (c *WindowCache) Get(id uuid.UUID) (Appointment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.appointments[id]
	return a, ok
}

// Remove drops one appointment, rolling back an optimistic insert.
func (c *WindowCache) Remove(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.appointments, id)
}

// Snapshot returns the held appointments ordered by day then start.
func (c *WindowCache) Snapshot() []Appointment {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Appointment, 0, len(c.appointments))
	for _, a := range c.appointments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Day.Equal(out[j].Day) {
			return out[i].Day.Before(out[j].Day)
		}
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// ForStaffDay returns the held appointments of one staff member on one day.
func (c *WindowCache) ForStaffDay(staffID uuid.UUID, day time.Time) []Appointment {
	var out []Appointment
	for _, a := range c.Snapshot() {
		if a.StaffID == staffID && schedule.SameDay(a.Day, day) {
			out = append(out, a)
		}
	}
	return out
}
