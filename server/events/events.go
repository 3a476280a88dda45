package events

import (
	"encoding/json"

	"github.com/decred/slog"

	"github.com/lazharichir/playnine/server/connection"
	"github.com/lazharichir/playnine/session"
)

// Dispatcher routes session events to the right connections: snapshots fan
// out to a table's subscribers, rejections go back to their originator only.
type Dispatcher struct {
	connMgr *connection.Manager
	log     slog.Logger
}

// NewDispatcher creates a new event dispatcher.
func NewDispatcher(connMgr *connection.Manager, log slog.Logger) *Dispatcher {
	return &Dispatcher{connMgr: connMgr, log: log}
}

// HandleEvent processes one session event.
func (d *Dispatcher) HandleEvent(event session.Event) {
	switch e := event.(type) {
	case session.SnapshotUpdated:
		d.connMgr.BroadcastTable(e.TableName, e.Data)

	case session.IntentRejected:
		data, err := json.Marshal(e.Err)
		if err != nil {
			d.log.Errorf("Failed to marshal rejection for %s: %v", e.TableName, err)
			return
		}
		d.connMgr.SendToClient(e.ClientID, data)

	case session.TableClosed:
		d.connMgr.CloseTable(e.TableName)

	default:
		d.log.Warnf("Unhandled session event %s", event.EventName())
	}
}
