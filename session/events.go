package session

import "github.com/lazharichir/playnine/game"

// Event is emitted by sessions for the server layer to route to connections.
type Event interface {
	EventName() string
}

// SnapshotUpdated carries a freshly committed, already-redacted snapshot for
// every subscriber of a table.
type SnapshotUpdated struct {
	TableName string
	Data      []byte
}

func (SnapshotUpdated) EventName() string { return "snapshot_updated" }

// IntentRejected is surfaced to the originating connection only.
type IntentRejected struct {
	TableName string
	ClientID  string
	Err       *game.Error
}

func (IntentRejected) EventName() string { return "intent_rejected" }

// TableClosed tells the hub to drop every remaining subscriber of a
// destroyed table.
type TableClosed struct {
	TableName string
}

func (TableClosed) EventName() string { return "table_closed" }
