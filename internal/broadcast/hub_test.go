package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_QueueLengthFanOut(t *testing.T) {
	hub := NewHub()

	a := hub.Subscribe(1, 10)
	b := hub.Subscribe(1, 20)
	other := hub.Subscribe(2, 30)

	hub.PublishQueueLength(1, 4)

	for _, sub := range []*Subscriber{a, b} {
		ev := <-sub.C
		require.NotNil(t, ev.QueueLength)
		assert.Equal(t, 4, *ev.QueueLength)
	}

	select {
	case ev := <-other.C:
		t.Fatalf("subscriber of another service point got event %+v", ev)
	default:
	}
}

func TestHub_PositionTargetsOwnerOnly(t *testing.T) {
	hub := NewHub()

	owner := hub.Subscribe(1, 10)
	bystander := hub.Subscribe(1, 20)

	hub.PublishPosition(1, 10, 2)

	ev := <-owner.C
	require.NotNil(t, ev.Position)
	assert.Equal(t, 2, *ev.Position)

	select {
	case ev := <-bystander.C:
		t.Fatalf("position event leaked to another user: %+v", ev)
	default:
	}
}

func TestHub_DeletedReachesAll(t *testing.T) {
	hub := NewHub()

	a := hub.Subscribe(7, 10)
	b := hub.Subscribe(7, 20)

	hub.PublishDeleted(7)

	assert.True(t, (<-a.C).Deleted)
	assert.True(t, (<-b.C).Deleted)
}

func TestHub_SlowSubscriberDropsNotBlocks(t *testing.T) {
	hub := NewHub()

	sub := hub.Subscribe(1, 10)

	// Overflow the buffer; publish must never block.
	for i := 0; i < 100; i++ {
		hub.PublishQueueLength(1, i)
	}

	received := 0
	for {
		select {
		case <-sub.C:
			received++
			continue
		default:
		}
		break
	}
	assert.LessOrEqual(t, received, cap(sub.C))
	assert.Greater(t, received, 0)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()

	sub := hub.Subscribe(1, 10)
	require.Equal(t, 1, hub.SubscriberCount(1))

	hub.Unsubscribe(1, sub)
	assert.Equal(t, 0, hub.SubscriberCount(1))

	// Channel is closed so the ws writer loop can exit.
	_, open := <-sub.C
	assert.False(t, open)

	// Publishing afterwards is a no-op, not a panic.
	hub.PublishQueueLength(1, 3)
}
