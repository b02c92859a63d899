package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanConn delivers written events to a channel so tests can wait on the
// asynchronous fan-out.
type chanConn struct {
	ch chan DashboardEvent
}

func newChanConn() *chanConn {
	return &chanConn{ch: make(chan DashboardEvent, 8)}
}

func (c *chanConn) WriteJSON(v interface{}) error {
	c.ch <- v.(DashboardEvent)
	return nil
}

func (c *chanConn) Close() error { return nil }

func (c *chanConn) receive(t *testing.T) DashboardEvent {
	t.Helper()
	select {
	case evt := <-c.ch:
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for fanned-out event")
		return DashboardEvent{}
	}
}

func (c *chanConn) expectNone(t *testing.T) {
	t.Helper()
	select {
	case evt := <-c.ch:
		t.Fatalf("unexpected event delivered: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFanOutDeliversToAllUserConnections(t *testing.T) {
	bus := NewEventBus(nil)

	tab1 := newChanConn()
	tab2 := newChanConn()
	other := newChanConn()
	bus.Register("user-1", tab1)
	bus.Register("user-1", tab2)
	bus.Register("user-2", other)

	bus.FanOut(DashboardEvent{Type: EventTypeRecords, UserID: "user-1", Action: "created", RecordID: "abc"})

	for _, conn := range []*chanConn{tab1, tab2} {
		evt := conn.receive(t)
		assert.Equal(t, EventTypeRecords, evt.Type)
		assert.Equal(t, "created", evt.Action)
		assert.Equal(t, "abc", evt.RecordID)
	}
	other.expectNone(t)
}

func TestFanOutAfterUnregister(t *testing.T) {
	bus := NewEventBus(nil)

	conn := newChanConn()
	bus.Register("user-1", conn)
	bus.Unregister("user-1", conn)

	bus.FanOut(DashboardEvent{Type: EventTypeRecords, UserID: "user-1", Action: "deleted"})
	conn.expectNone(t)
}

func TestFanOutIgnoresMissingUserID(t *testing.T) {
	bus := NewEventBus(nil)

	conn := newChanConn()
	bus.Register("user-1", conn)

	bus.FanOut(DashboardEvent{Type: EventTypeRecords, Action: "created"})
	conn.expectNone(t)
}

func TestUnregisterUnknownConnection(t *testing.T) {
	bus := NewEventBus(nil)

	// Must not panic for users or connections that were never registered.
	bus.Unregister("ghost", newChanConn())

	conn := newChanConn()
	bus.Register("user-1", conn)
	bus.Unregister("user-1", newChanConn())

	bus.FanOut(DashboardEvent{Type: EventTypeAuth, UserID: "user-1", Action: "signed-in"})
	evt := conn.receive(t)
	require.Equal(t, EventTypeAuth, evt.Type)
}
