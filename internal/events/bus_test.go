package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_SubscribeReceivesMatchingType(t *testing.T) {
	b := NewBus()
	ch, unsub := b.Subscribe("task.completed")
	defer unsub()

	b.Publish(NewEvent("task.completed", "t1", nil))
	b.Publish(NewEvent("task.failed", "t1", nil))

	select {
	case ev := <-ch:
		assert.Equal(t, "task.completed", ev.Type)
		assert.Equal(t, "t1", ev.TaskID)
		assert.NotEmpty(t, ev.ID)
	case <-time.After(time.Second):
		t.Fatal("expected a matching event")
	}

	select {
	case ev := <-ch:
		t.Fatalf("did not expect a second delivery, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_SubscribeAllTypes(t *testing.T) {
	b := NewBus()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Publish(NewEvent("anything", "t2", "payload"))

	select {
	case ev := <-ch:
		assert.Equal(t, "anything", ev.Type)
		assert.Equal(t, "payload", ev.Data)
	case <-time.After(time.Second):
		t.Fatal("expected delivery for unfiltered subscriber")
	}
}

func TestBus_NewEventAssignsUniqueIDs(t *testing.T) {
	a := NewEvent("x", "t", nil)
	b := NewEvent("x", "t", nil)
	require.NotEqual(t, a.ID, b.ID)
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	ch, unsub := b.Subscribe()
	unsub()

	_, ok := <-ch
	assert.False(t, ok)
}

func TestBus_DropsUnderSustainedBackpressure(t *testing.T) {
	b := NewBus()
	ch, unsub := b.Subscribe("noisy")
	defer unsub()

	for i := 0; i < subscriberBuffer+5; i++ {
		b.Publish(NewEvent("noisy", "t", i))
	}

	drained := 0
	for {
		select {
		case <-ch:
			drained++
		default:
			assert.LessOrEqual(t, drained, subscriberBuffer)
			return
		}
	}
}
