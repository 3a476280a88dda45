package handlers

import (
	"github.com/lazharichir/playnine/game"
	"github.com/lazharichir/playnine/server/connection"
	"github.com/lazharichir/playnine/session"
)

// IntentRouter parses inbound wire messages and enqueues them on the right
// table session. Returned errors go back to the sending connection only.
type IntentRouter struct {
	registry *session.Registry
}

// NewIntentRouter creates a new intent router.
func NewIntentRouter(registry *session.Registry) *IntentRouter {
	return &IntentRouter{registry: registry}
}

// HandleMessage processes one inbound message from a connection. The actor
// is always the connection's bound player id; a client cannot act for
// anybody else.
func (r *IntentRouter) HandleMessage(client *connection.Client, message []byte) *game.Error {
	intent, err := game.ParseIntent(message)
	if err != nil {
		return err
	}

	if client.PlayerID == "" {
		if _, ok := intent.(game.Heartbeat); !ok {
			return game.NewError(game.KindNotAPlayer, "spectators may only send heartbeats")
		}
	}

	sess, ok := r.registry.Get(client.TableName)
	if !ok {
		return game.NewError(game.KindIllegalTarget, "table %s not found", client.TableName)
	}

	sess.SubmitIntent(client.ID, client.PlayerID, intent)
	return nil
}
