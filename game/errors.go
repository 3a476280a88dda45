package game

import "fmt"

// ErrorKind tags a rejection with its wire-visible category.
type ErrorKind string

const (
	KindInvalidInput       ErrorKind = "invalid_input"
	KindInvalidName        ErrorKind = "invalid_name"
	KindAlreadyConnected   ErrorKind = "already_connected"
	KindNotAPlayer         ErrorKind = "not_a_player"
	KindWrongPhase         ErrorKind = "wrong_phase"
	KindNotYourTurn        ErrorKind = "not_your_turn"
	KindIllegalTarget      ErrorKind = "illegal_target"
	KindTableFull          ErrorKind = "table_full"
	KindGameAlreadyStarted ErrorKind = "game_already_started"
	KindInternal           ErrorKind = "internal"
)

// Error is a rejected intent. Rejections never mutate state and are surfaced
// only to the originating connection.
type Error struct {
	Kind ErrorKind `json:"error"`
	Msg  string    `json:"detail"`
}

// NewError creates a rejection of the given kind.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}
