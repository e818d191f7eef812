package broadcast

import "sync"

// Event is one JSON message on a service point channel. Exactly one of the
// fields is set per event.
type Event struct {
	QueueLength *int `json:"queue_length,omitempty"`
	Position    *int `json:"position,omitempty"`
	Deleted     bool `json:"deleted,omitempty"`
}

func QueueLengthEvent(n int) Event { return Event{QueueLength: &n} }
func PositionEvent(p int) Event    { return Event{Position: &p} }
func DeletedEvent() Event          { return Event{Deleted: true} }

// Subscriber is one WebSocket connection listening on a service point
// channel. UserID scopes targeted position events.
type Subscriber struct {
	UserID int64
	C      chan Event
}

// Hub keeps one logical channel per service point. Delivery is best-effort,
// at-most-once: a subscriber whose buffer is full misses the event and is
// expected to re-fetch authoritative state on reconnect.
type Hub struct {
	mu sync.RWMutex

	// service_point_id → subscribers
	subscribers map[int64][]*Subscriber
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[int64][]*Subscriber),
	}
}

func (h *Hub) Subscribe(servicePointID, userID int64) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscriber{UserID: userID, C: make(chan Event, 16)}
	h.subscribers[servicePointID] = append(h.subscribers[servicePointID], sub)
	return sub
}

func (h *Hub) Unsubscribe(servicePointID int64, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[servicePointID]
	for i, s := range subs {
		if s == sub {
			h.subscribers[servicePointID] = append(subs[:i], subs[i+1:]...)
			close(s.C)
			break
		}
	}
	if len(h.subscribers[servicePointID]) == 0 {
		delete(h.subscribers, servicePointID)
	}
}

// PublishQueueLength fans out the new derived queue length to every
// subscriber of the service point's channel.
func (h *Hub) PublishQueueLength(servicePointID int64, length int) {
	h.publish(servicePointID, QueueLengthEvent(length), 0)
}

// PublishPosition delivers a position update only to connections owned by
// the entry's user, never to the rest of the channel.
func (h *Hub) PublishPosition(servicePointID, userID int64, position int) {
	h.publish(servicePointID, PositionEvent(position), userID)
}

// PublishDeleted tells every subscriber the service point is gone.
func (h *Hub) PublishDeleted(servicePointID int64) {
	h.publish(servicePointID, DeletedEvent(), 0)
}

func (h *Hub) publish(servicePointID int64, ev Event, onlyUserID int64) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers[servicePointID] {
		if onlyUserID != 0 && sub.UserID != onlyUserID {
			continue
		}
		select {
		case sub.C <- ev:
		default:
		}
	}
}

func (h *Hub) SubscriberCount(servicePointID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[servicePointID])
}
