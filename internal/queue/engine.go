package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"queueflow/internal/monitoring"
	"queueflow/internal/servicepoint"
)

// Store is the durable side of the engine. WithinTx runs the given mutation
// as one atomic unit; the engine layers per-service-point serialization on
// top, so a Tx never races another Tx for the same service point.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	ActiveEntriesForUser(ctx context.Context, userID int64) ([]*Entry, error)
	HistoryForUser(ctx context.Context, userID int64) ([]*Entry, error)
	EntryByID(ctx context.Context, id int64) (*Entry, error)
	ServicePointIDsByOrg(ctx context.Context, orgType string) ([]int64, error)
}

type Tx interface {
	ServicePoint(ctx context.Context, id int64) (*servicepoint.ServicePoint, error)
	ActiveEntries(ctx context.Context, servicePointID int64) ([]*Entry, error)

	// ActiveEntryForUser returns the user's non-terminal entry at the given
	// service point, or anywhere when servicePointID is 0. nil when none.
	ActiveEntryForUser(ctx context.Context, userID, servicePointID int64) (*Entry, error)

	EntryByID(ctx context.Context, id int64) (*Entry, error)

	// ServiceTypeExists reports whether an active service type with the given
	// id is offered by the given service point.
	ServiceTypeExists(ctx context.Context, serviceTypeID, servicePointID int64) (bool, error)

	NextTicketNumber(ctx context.Context, servicePointID int64) (int, error)
	InsertEntry(ctx context.Context, e *Entry) error
	UpdateEntry(ctx context.Context, e *Entry) error
	UpdatePositions(ctx context.Context, entries []*Entry) error
	DeleteServicePoint(ctx context.Context, id int64) error
}

// Notifier persists user-facing messages. Fire-and-forget from the engine's
// point of view.
type Notifier interface {
	Notify(ctx context.Context, userID int64, message string)
}

// Publisher fans queue state out to WebSocket subscribers. Called only after
// the triggering transaction has committed, never inside the critical section.
type Publisher interface {
	PublishQueueLength(servicePointID int64, length int)
	PublishPosition(servicePointID, userID int64, position int)
	PublishDeleted(servicePointID int64)
}

// Estimator supplies the rolling per-entry service duration; the engine only
// multiplies it by queue rank.
type Estimator interface {
	Average(ctx context.Context, servicePointID int64) time.Duration
	Record(ctx context.Context, servicePointID int64, d time.Duration)
}

type Options struct {
	// SingleActivePolicy: one non-terminal entry per user system-wide
	// instead of per (user, service point).
	SingleActivePolicy bool

	// PositionNotifyThreshold creates an "almost up" notification when a
	// waiting entry's position drops to the threshold or below. 0 disables.
	PositionNotifyThreshold int
}

type Engine struct {
	store     Store
	notifier  Notifier
	publisher Publisher
	wait      Estimator
	opts      Options

	mu    sync.Mutex
	locks map[int64]*sync.Mutex // service_point_id → critical section
}

func NewEngine(store Store, notifier Notifier, publisher Publisher, wait Estimator, opts Options) *Engine {
	return &Engine{
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		wait:      wait,
		opts:      opts,
		locks:     make(map[int64]*sync.Mutex),
	}
}

// lockServicePoint serializes mutations per service point. Different service
// points proceed in parallel.
func (g *Engine) lockServicePoint(id int64) func() {
	g.mu.Lock()
	l, ok := g.locks[id]
	if !ok {
		l = &sync.Mutex{}
		g.locks[id] = l
	}
	g.mu.Unlock()

	l.Lock()
	return l.Unlock
}

type JoinRequest struct {
	ServicePointID int64  `json:"service_point_id"`
	ServiceTypeID  *int64 `json:"service_type_id,omitempty"`
	Priority       bool   `json:"priority,omitempty"`
}

type JoinResult struct {
	Entry            *Entry        `json:"entry"`
	QueueLength      int           `json:"queue_length"`
	EstimatedWait    time.Duration `json:"-"`
	EstimatedWaitMin int           `json:"estimated_wait_minutes"`
}

// Join creates a waiting entry, assigns the next ticket number and
// recomputes positions as one serialized atomic unit per service point.
func (g *Engine) Join(ctx context.Context, userID int64, req JoinRequest) (*JoinResult, error) {
	if req.ServicePointID == 0 {
		return nil, fmt.Errorf("%w: service_point_id is required", ErrValidation)
	}

	var (
		entry  *Entry
		spName string
		length int
		moved  []*Entry
	)

	unlock := g.lockServicePoint(req.ServicePointID)
	err := g.store.WithinTx(ctx, func(tx Tx) error {
		sp, err := tx.ServicePoint(ctx, req.ServicePointID)
		if err != nil {
			return err
		}
		if !sp.IsActive || sp.IsPaused {
			return ErrServicePointUnavailable
		}

		dupScope := req.ServicePointID
		if g.opts.SingleActivePolicy {
			dupScope = 0
		}
		dup, err := tx.ActiveEntryForUser(ctx, userID, dupScope)
		if err != nil {
			return err
		}
		if dup != nil {
			return ErrAlreadyQueued
		}

		active, err := tx.ActiveEntries(ctx, req.ServicePointID)
		if err != nil {
			return err
		}
		if len(active) >= sp.MaxQueueLength {
			return ErrServicePointUnavailable
		}

		if req.ServiceTypeID != nil {
			ok, err := tx.ServiceTypeExists(ctx, *req.ServiceTypeID, req.ServicePointID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: unknown service type", ErrValidation)
			}
		}

		ticket, err := tx.NextTicketNumber(ctx, req.ServicePointID)
		if err != nil {
			return err
		}

		entry = &Entry{
			ServicePointID:   req.ServicePointID,
			OrganizationType: sp.OrganizationType,
			UserID:           userID,
			ServiceTypeID:    req.ServiceTypeID,
			Reference:        uuid.NewString(),
			TicketNumber:     ticket,
			Status:           StatusWaiting,
			Priority:         req.Priority && sp.SupportsPriority,
			JoinedAt:         time.Now().UTC(),
		}
		if err := tx.InsertEntry(ctx, entry); err != nil {
			return err
		}

		active = append(active, entry)
		moved = recomputePositions(active)
		if err := tx.UpdatePositions(ctx, moved); err != nil {
			return err
		}

		length = len(active)
		spName = sp.Name
		return nil
	})
	unlock()

	if err != nil {
		monitoring.TrackQueueOperation("join", "error")
		return nil, err
	}
	monitoring.TrackQueueOperation("join", "ok")
	monitoring.SetQueueLength(req.ServicePointID, length)

	g.publisher.PublishQueueLength(req.ServicePointID, length)
	for _, e := range moved {
		g.publisher.PublishPosition(req.ServicePointID, e.UserID, e.Position)
	}
	g.notifier.Notify(ctx, userID,
		fmt.Sprintf("You joined the queue at %s. Your ticket number is %d.", spName, entry.TicketNumber))

	wait := g.estimatedWait(ctx, req.ServicePointID, entry.Position)
	return &JoinResult{
		Entry:            entry,
		QueueLength:      length,
		EstimatedWait:    wait,
		EstimatedWaitMin: int(wait.Minutes()),
	}, nil
}

// Leave abandons the caller's active entry, found either by explicit entry
// id or by service point. Calling it twice fails with ErrNoActiveEntry the
// second time; the first abandonment stays untouched.
func (g *Engine) Leave(ctx context.Context, userID, servicePointID, entryID int64) error {
	if servicePointID == 0 && entryID == 0 {
		return fmt.Errorf("%w: service_point_id or queue_entry_id is required", ErrValidation)
	}

	if entryID != 0 {
		e, err := g.store.EntryByID(ctx, entryID)
		if err != nil {
			return err
		}
		if e == nil {
			return ErrNoActiveEntry
		}
		if e.UserID != userID {
			return ErrNotFoundOrForbidden
		}
		servicePointID = e.ServicePointID
	}

	var (
		length int
		moved  []*Entry
		spName string
	)

	unlock := g.lockServicePoint(servicePointID)
	err := g.store.WithinTx(ctx, func(tx Tx) error {
		var target *Entry
		var err error
		if entryID != 0 {
			target, err = tx.EntryByID(ctx, entryID)
		} else {
			target, err = tx.ActiveEntryForUser(ctx, userID, servicePointID)
		}
		if err != nil {
			return err
		}
		if target == nil || !target.Active() || target.UserID != userID {
			return ErrNoActiveEntry
		}

		sp, err := tx.ServicePoint(ctx, servicePointID)
		if err != nil {
			return err
		}
		spName = sp.Name

		now := time.Now().UTC()
		target.Status = StatusAbandoned
		target.AbandonedAt = &now
		if err := tx.UpdateEntry(ctx, target); err != nil {
			return err
		}

		length, moved, err = g.recomputeTx(ctx, tx, servicePointID)
		return err
	})
	unlock()

	if err != nil {
		monitoring.TrackQueueOperation("leave", "error")
		return err
	}
	monitoring.TrackQueueOperation("leave", "ok")
	monitoring.SetQueueLength(servicePointID, length)

	g.publishMovement(ctx, servicePointID, spName, length, moved)
	return nil
}

// CallNext advances the line: the earliest-joined waiting entry, priority
// tier first, becomes called.
func (g *Engine) CallNext(ctx context.Context, servicePointID int64, staffOrgType string) (*Entry, error) {
	if servicePointID == 0 {
		return nil, fmt.Errorf("%w: service_point_id is required", ErrValidation)
	}

	var (
		called *Entry
		length int
		moved  []*Entry
		spName string
	)

	unlock := g.lockServicePoint(servicePointID)
	err := g.store.WithinTx(ctx, func(tx Tx) error {
		sp, err := tx.ServicePoint(ctx, servicePointID)
		if err != nil {
			return err
		}
		if staffOrgType != "" && sp.OrganizationType != staffOrgType {
			return ErrNotFoundOrForbidden
		}
		spName = sp.Name

		active, err := tx.ActiveEntries(ctx, servicePointID)
		if err != nil {
			return err
		}

		for _, e := range active {
			if e.Status != StatusWaiting {
				continue
			}
			if called == nil || entryBefore(e, called) {
				called = e
			}
		}
		if called == nil {
			return ErrQueueEmpty
		}

		now := time.Now().UTC()
		called.Status = StatusCalled
		called.CalledAt = &now
		if err := tx.UpdateEntry(ctx, called); err != nil {
			return err
		}

		moved = recomputePositions(active)
		if err := tx.UpdatePositions(ctx, moved); err != nil {
			return err
		}
		length = len(active)
		return nil
	})
	unlock()

	if err != nil {
		monitoring.TrackQueueOperation("call_next", "error")
		return nil, err
	}
	monitoring.TrackQueueOperation("call_next", "ok")
	monitoring.SetQueueLength(servicePointID, length)

	g.notifier.Notify(ctx, called.UserID,
		fmt.Sprintf("It's your turn at %s. Please proceed to the counter.", spName))
	g.publishMovement(ctx, servicePointID, spName, length, moved)
	return called, nil
}

// MarkServed finishes a called entry. Terminal entries reject any further
// transition.
func (g *Engine) MarkServed(ctx context.Context, entryID int64) (*Entry, error) {
	if entryID == 0 {
		return nil, fmt.Errorf("%w: queue_entry_id is required", ErrValidation)
	}

	peek, err := g.store.EntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if peek == nil {
		return nil, ErrNotFoundOrForbidden
	}
	servicePointID := peek.ServicePointID

	var (
		entry  *Entry
		length int
		moved  []*Entry
		spName string
	)

	unlock := g.lockServicePoint(servicePointID)
	err = g.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		entry, err = tx.EntryByID(ctx, entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return ErrNotFoundOrForbidden
		}
		if entry.Terminal() {
			return ErrEntryTerminal
		}
		if !canTransition(entry.Status, StatusServed) {
			return fmt.Errorf("%w: entry has not been called", ErrConflict)
		}

		sp, err := tx.ServicePoint(ctx, servicePointID)
		if err != nil {
			return err
		}
		spName = sp.Name

		now := time.Now().UTC()
		entry.Status = StatusServed
		entry.ServedAt = &now
		if err := tx.UpdateEntry(ctx, entry); err != nil {
			return err
		}

		length, moved, err = g.recomputeTx(ctx, tx, servicePointID)
		return err
	})
	unlock()

	if err != nil {
		monitoring.TrackQueueOperation("mark_served", "error")
		return nil, err
	}
	monitoring.TrackQueueOperation("mark_served", "ok")
	monitoring.SetQueueLength(servicePointID, length)

	if entry.CalledAt != nil && entry.ServedAt != nil {
		d := entry.ServedAt.Sub(*entry.CalledAt)
		g.wait.Record(ctx, servicePointID, d)
		monitoring.ObserveServiceDuration(d)
	}

	g.publishMovement(ctx, servicePointID, spName, length, moved)
	return entry, nil
}

// DeleteServicePoint cascades: every non-terminal entry becomes abandoned
// and its user is notified, subscribers get a deleted event, then the record
// itself is removed. Terminal entries are retained for analytics.
func (g *Engine) DeleteServicePoint(ctx context.Context, servicePointID int64, staffOrgType string) error {
	if servicePointID == 0 {
		return fmt.Errorf("%w: service_point_id is required", ErrValidation)
	}

	var (
		affected []*Entry
		spName   string
	)

	unlock := g.lockServicePoint(servicePointID)
	err := g.store.WithinTx(ctx, func(tx Tx) error {
		sp, err := tx.ServicePoint(ctx, servicePointID)
		if err != nil {
			return err
		}
		if staffOrgType != "" && sp.OrganizationType != staffOrgType {
			return ErrNotFoundOrForbidden
		}
		spName = sp.Name

		affected, err = tx.ActiveEntries(ctx, servicePointID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, e := range affected {
			e.Status = StatusAbandoned
			e.AbandonedAt = &now
			if err := tx.UpdateEntry(ctx, e); err != nil {
				return err
			}
		}

		return tx.DeleteServicePoint(ctx, servicePointID)
	})
	unlock()

	if err != nil {
		monitoring.TrackQueueOperation("delete_service_point", "error")
		return err
	}
	monitoring.TrackQueueOperation("delete_service_point", "ok")
	monitoring.DropQueueLength(servicePointID)

	for _, e := range affected {
		g.notifier.Notify(ctx, e.UserID,
			fmt.Sprintf("Service point %s has been closed. Your queue entry was cancelled.", spName))
	}
	g.publisher.PublishDeleted(servicePointID)

	logrus.Infof("service point deleted: %q (id=%d), %d entries abandoned", spName, servicePointID, len(affected))
	return nil
}

// DeleteAllForOrg removes every service point of one organization. One
// transaction per service point, sequential across points.
func (g *Engine) DeleteAllForOrg(ctx context.Context, orgType string) (int, error) {
	ids, err := g.store.ServicePointIDsByOrg(ctx, orgType)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, id := range ids {
		if err := g.DeleteServicePoint(ctx, id, orgType); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// AbandonAllForUser is the account-deletion cascade: every active entry the
// user holds is abandoned through the regular per-service-point critical
// section. Entries that turn terminal mid-flight are skipped, not errors.
func (g *Engine) AbandonAllForUser(ctx context.Context, userID int64) error {
	entries, err := g.store.ActiveEntriesForUser(ctx, userID)
	if err != nil {
		return err
	}

	for _, e := range entries {
		err := g.Leave(ctx, userID, 0, e.ID)
		if err != nil && err != ErrNoActiveEntry {
			return err
		}
	}
	return nil
}

type PositionResult struct {
	Entry            *Entry `json:"entry"`
	EstimatedWaitMin int    `json:"estimated_wait_minutes"`
}

// MyPosition returns the caller's earliest active entry with its 1-based
// rank and wait estimate. Reads a committed snapshot, no critical section.
func (g *Engine) MyPosition(ctx context.Context, userID int64) (*PositionResult, error) {
	entries, err := g.store.ActiveEntriesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoActiveEntry
	}

	e := entries[0]
	wait := g.estimatedWait(ctx, e.ServicePointID, e.Position)
	return &PositionResult{Entry: e, EstimatedWaitMin: int(wait.Minutes())}, nil
}

// MyQueues returns every active entry the caller holds, for multi-queue
// membership views.
func (g *Engine) MyQueues(ctx context.Context, userID int64) ([]PositionResult, error) {
	entries, err := g.store.ActiveEntriesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]PositionResult, 0, len(entries))
	for _, e := range entries {
		wait := g.estimatedWait(ctx, e.ServicePointID, e.Position)
		out = append(out, PositionResult{Entry: e, EstimatedWaitMin: int(wait.Minutes())})
	}
	return out, nil
}

func (g *Engine) History(ctx context.Context, userID int64) ([]*Entry, error) {
	return g.store.HistoryForUser(ctx, userID)
}

// recomputeTx reloads the active set and persists fresh 1..N positions.
func (g *Engine) recomputeTx(ctx context.Context, tx Tx, servicePointID int64) (int, []*Entry, error) {
	active, err := tx.ActiveEntries(ctx, servicePointID)
	if err != nil {
		return 0, nil, err
	}
	moved := recomputePositions(active)
	if err := tx.UpdatePositions(ctx, moved); err != nil {
		return 0, nil, err
	}
	return len(active), moved, nil
}

// publishMovement fans out the committed state: new queue length to the
// whole channel, position updates to the affected users only, plus the
// optional "almost up" notification when a waiting entry crosses the
// configured threshold.
func (g *Engine) publishMovement(ctx context.Context, servicePointID int64, spName string, length int, moved []*Entry) {
	g.publisher.PublishQueueLength(servicePointID, length)

	for _, e := range moved {
		g.publisher.PublishPosition(servicePointID, e.UserID, e.Position)

		if t := g.opts.PositionNotifyThreshold; t > 0 && e.Status == StatusWaiting && e.Position <= t {
			g.notifier.Notify(ctx, e.UserID,
				fmt.Sprintf("You're almost up at %s: position %d.", spName, e.Position))
		}
	}
}

func (g *Engine) estimatedWait(ctx context.Context, servicePointID int64, position int) time.Duration {
	return g.wait.Average(ctx, servicePointID) * time.Duration(position)
}
