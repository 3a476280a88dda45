package connection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(id, table, playerID string) *Client {
	return &Client{
		ID:        id,
		Send:      make(chan []byte, 4),
		TableName: table,
		PlayerID:  playerID,
	}
}

func TestRegisterAndBroadcast(t *testing.T) {
	m := NewManager()
	a := newTestClient("c1", "links", "p1")
	b := newTestClient("c2", "links", "")
	other := newTestClient("c3", "back9", "p2")
	m.Register(a)
	m.Register(b)
	m.Register(other)

	assert.Equal(t, 2, m.SubscriberCount("links"))
	assert.Equal(t, 1, m.SubscriberCount("back9"))

	m.BroadcastTable("links", []byte("snap"))
	assert.Equal(t, []byte("snap"), <-a.Send)
	assert.Equal(t, []byte("snap"), <-b.Send)
	assert.Empty(t, other.Send, "other tables hear nothing")
}

func TestSendToClient(t *testing.T) {
	m := NewManager()
	a := newTestClient("c1", "links", "p1")
	m.Register(a)

	assert.True(t, m.SendToClient("c1", []byte("hi")))
	assert.Equal(t, []byte("hi"), <-a.Send)

	assert.False(t, m.SendToClient("nope", []byte("hi")))
}

func TestSlowConsumerDropsMessages(t *testing.T) {
	m := NewManager()
	a := newTestClient("c1", "links", "p1")
	m.Register(a)

	for i := 0; i < cap(a.Send); i++ {
		require.True(t, m.SendToClient("c1", []byte("x")))
	}
	assert.False(t, m.SendToClient("c1", []byte("overflow")), "full buffers drop, never block")

	m.BroadcastTable("links", []byte("overflow"))
	assert.Len(t, a.Send, cap(a.Send))
}

func TestUnregister(t *testing.T) {
	m := NewManager()
	a := newTestClient("c1", "links", "p1")
	m.Register(a)
	m.Unregister(a)

	assert.Equal(t, 0, m.SubscriberCount("links"))
	_, open := <-a.Send
	assert.False(t, open, "send channel closes on unregister")

	// Unregistering twice must not close the channel twice.
	m.Unregister(a)
}

func TestCloseTable(t *testing.T) {
	m := NewManager()
	a := newTestClient("c1", "links", "p1")
	b := newTestClient("c2", "links", "")
	keep := newTestClient("c3", "back9", "p2")
	m.Register(a)
	m.Register(b)
	m.Register(keep)

	m.CloseTable("links")

	assert.Equal(t, 0, m.SubscriberCount("links"))
	assert.Equal(t, 1, m.SubscriberCount("back9"))
	_, open := <-a.Send
	assert.False(t, open)
	_, open = <-b.Send
	assert.False(t, open)
	assert.True(t, m.SendToClient("c3", []byte("still here")))
}
