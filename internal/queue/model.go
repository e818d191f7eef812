package queue

import (
	"sort"
	"time"
)

const (
	StatusWaiting   = "waiting"
	StatusCalled    = "called"
	StatusServed    = "served"
	StatusAbandoned = "abandoned"
)

// Entry is one customer's claim on a position in a service point's line.
type Entry struct {
	ID             int64 `json:"id"`
	ServicePointID int64 `json:"service_point_id"`
	// copied from the service point at join time; survives point deletion
	OrganizationType string     `json:"organization_type"`
	UserID           int64      `json:"user_id"`
	ServiceTypeID    *int64     `json:"service_type_id,omitempty"`
	Reference        string     `json:"reference"`
	TicketNumber     int        `json:"ticket_number"`
	Status           string     `json:"status"`
	Priority         bool       `json:"priority"`
	Position         int        `json:"position"`
	JoinedAt         time.Time  `json:"joined_at"`
	CalledAt         *time.Time `json:"called_at,omitempty"`
	ServedAt         *time.Time `json:"served_at,omitempty"`
	AbandonedAt      *time.Time `json:"abandoned_at,omitempty"`
}

func (e *Entry) Active() bool {
	return e.Status == StatusWaiting || e.Status == StatusCalled
}

func (e *Entry) Terminal() bool {
	return e.Status == StatusServed || e.Status == StatusAbandoned
}

// canTransition encodes the entry state machine:
// waiting → called → served, waiting/called → abandoned.
func canTransition(from, to string) bool {
	switch from {
	case StatusWaiting:
		return to == StatusCalled || to == StatusAbandoned
	case StatusCalled:
		return to == StatusServed || to == StatusAbandoned
	}
	return false
}

// entryBefore is the queue ordering: priority entries first, then ticket
// number ascending. Ticket numbers are monotonic per service point, so this
// is also join order within a tier.
func entryBefore(a, b *Entry) bool {
	if a.Priority != b.Priority {
		return a.Priority
	}
	return a.TicketNumber < b.TicketNumber
}

// recomputePositions sorts the active set and assigns 1..N. It returns the
// entries whose position actually changed, so callers persist and broadcast
// only real movement.
func recomputePositions(entries []*Entry) (changed []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entryBefore(entries[i], entries[j])
	})

	for i, e := range entries {
		if pos := i + 1; e.Position != pos {
			e.Position = pos
			changed = append(changed, e)
		}
	}
	return changed
}
