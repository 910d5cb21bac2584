package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func TestPublishDelivers(t *testing.T) {
	bus := New(50 * time.Millisecond)
	ch1, unsub1 := bus.Subscribe("sidecar-status", 1)
	defer unsub1()
	ch2, unsub2 := bus.Subscribe("*", 1)
	defer unsub2()

	n := bus.Publish("sidecar-status", "running")
	assert.Equal(t, 2, n)
	assert.Equal(t, Event{Name: "sidecar-status", Payload: "running"}, recv(t, ch1))
	assert.Equal(t, Event{Name: "sidecar-status", Payload: "running"}, recv(t, ch2))
}

func TestPublishWithoutSubscribersDrops(t *testing.T) {
	bus := New(0)
	assert.Equal(t, 0, bus.Publish("sidecar-status", "stopped"))
}

func TestSlowSubscriberIsSkipped(t *testing.T) {
	bus := New(10 * time.Millisecond)
	ch, unsub := bus.Subscribe("a", 1)
	defer unsub()

	assert.Equal(t, 1, bus.Publish("a", 1))
	assert.Equal(t, 0, bus.Publish("a", 2), "buffer full, event dropped after timeout")
	assert.Equal(t, 1, recv(t, ch).Payload)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(0)
	ch, unsub := bus.Subscribe("a", 1)
	assert.Equal(t, 1, bus.SubscriberCount())
	unsub()
	unsub()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, bus.SubscriberCount())
	assert.Equal(t, 0, bus.Publish("a", nil))
}

func TestShutdown(t *testing.T) {
	bus := New(0)
	ch, unsub := bus.Subscribe("*", 1)
	bus.Shutdown()
	_, ok := <-ch
	assert.False(t, ok)
	unsub()
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestMatchName(t *testing.T) {
	tests := []struct {
		pattern, name string
		want          bool
	}{
		{"*", "sidecar-status", true},
		{"sidecar-status", "sidecar-status", true},
		{"sidecar.*", "sidecar.status", true},
		{"sidecar.*", "sidecar.status.x", false},
		{"config", "sidecar-status", false},
		{"", "x", false},
		{"x", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchName(tt.pattern, tt.name), "%s vs %s", tt.pattern, tt.name)
	}
}
