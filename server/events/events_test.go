package events

import (
	"encoding/json"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazharichir/playnine/game"
	"github.com/lazharichir/playnine/server/connection"
	"github.com/lazharichir/playnine/session"
)

func newTestClient(id, table string) *connection.Client {
	return &connection.Client{ID: id, Send: make(chan []byte, 4), TableName: table}
}

func TestSnapshotFansOutToTable(t *testing.T) {
	m := connection.NewManager()
	d := NewDispatcher(m, slog.Disabled)
	a, b := newTestClient("c1", "links"), newTestClient("c2", "links")
	other := newTestClient("c3", "back9")
	m.Register(a)
	m.Register(b)
	m.Register(other)

	d.HandleEvent(session.SnapshotUpdated{TableName: "links", Data: []byte(`{"phase":"play"}`)})

	assert.Equal(t, []byte(`{"phase":"play"}`), <-a.Send)
	assert.Equal(t, []byte(`{"phase":"play"}`), <-b.Send)
	assert.Empty(t, other.Send)
}

func TestRejectionGoesToOriginatorOnly(t *testing.T) {
	m := connection.NewManager()
	d := NewDispatcher(m, slog.Disabled)
	a, b := newTestClient("c1", "links"), newTestClient("c2", "links")
	m.Register(a)
	m.Register(b)

	d.HandleEvent(session.IntentRejected{
		TableName: "links",
		ClientID:  "c1",
		Err:       game.NewError(game.KindNotYourTurn, "not your turn"),
	})

	data := <-a.Send
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, string(game.KindNotYourTurn), decoded["error"])
	assert.Equal(t, "not your turn", decoded["detail"])
	assert.Empty(t, b.Send, "rejections are private")
}

func TestTableClosedDropsSubscribers(t *testing.T) {
	m := connection.NewManager()
	d := NewDispatcher(m, slog.Disabled)
	a := newTestClient("c1", "links")
	m.Register(a)

	d.HandleEvent(session.TableClosed{TableName: "links"})

	assert.Equal(t, 0, m.SubscriberCount("links"))
	_, open := <-a.Send
	assert.False(t, open)
}
