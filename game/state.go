package game

import (
	"regexp"
	"strings"

	"github.com/lazharichir/playnine/cards"
)

// Phase represents the lifecycle phase of a table.
type Phase string

const (
	PhaseEmpty   Phase = "empty"
	PhaseWaiting Phase = "waiting"
	PhaseReveal  Phase = "reveal"
	PhasePlay    Phase = "play"
	PhaseScoring Phase = "scoring"
)

// DrawSource records which pile the in-flight drawn card came from.
type DrawSource string

const (
	DrawSourceDraw    DrawSource = "draw"
	DrawSourceDiscard DrawSource = "discard"
)

// Rounds per game. Nine holes, like the real thing.
const RoundsPerGame = 9

// MaxPlayers per table. Two packs cover six players, a third covers eight.
const MaxPlayers = 8

// MinPlayers required to start a round.
const MinPlayers = 2

var (
	tableNameRe  = regexp.MustCompile(`^[a-z0-9_-]{1,20}$`)
	playerNameRe = regexp.MustCompile(`^[A-Za-z0-9 ]{1,20}$`)
)

// ValidateTableName lowercases and trims the name, then checks it against the
// table-name rules. Returns the sanitized name.
func ValidateTableName(name string) (string, *Error) {
	sanitized := strings.ToLower(strings.TrimSpace(name))
	if !tableNameRe.MatchString(sanitized) {
		return "", NewError(KindInvalidName, "table name: lowercase letters, digits, -, _ only; max 20 characters")
	}
	return sanitized, nil
}

// ValidatePlayerName trims the name and checks it against the player-name
// rules. Returns the sanitized name.
func ValidatePlayerName(name string) (string, *Error) {
	sanitized := strings.TrimSpace(name)
	if !playerNameRe.MatchString(sanitized) {
		return "", NewError(KindInvalidName, "player name: letters, digits, space only; max 20 characters")
	}
	return sanitized, nil
}

// Player is a seated player. Disconnection does not remove a player; presence
// is tracked separately by the session.
type Player struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Hand           []cards.Card `json:"hand"`
	RevealedCount  int          `json:"revealed_count"`
	FinalTurnTaken bool         `json:"final_turn_taken,omitempty"`
}

// CardRef identifies a single card in a player's hand, for UI highlighting.
type CardRef struct {
	PlayerID  string `json:"player_id"`
	CardIndex int    `json:"card_index"`
}

// TableState is the full authoritative state of one table. The engine is the
// only mutator; the session serializes access.
type TableState struct {
	Name                 string           `json:"name"`
	Phase                Phase            `json:"phase"`
	Players              []Player         `json:"players"`
	DealerIdx            int              `json:"dealer_idx"`
	CurrentPlayerIdx     int              `json:"current_player_idx"`
	DrawPile             []cards.Card     `json:"draw_pile"`
	DiscardPile          []cards.Card     `json:"discard_pile"`
	DrawnCard            *cards.Card      `json:"drawn_card,omitempty"`
	DrawnFrom            DrawSource       `json:"drawn_from,omitempty"`
	MustFlipAfterDiscard bool             `json:"must_flip_after_discard,omitempty"`
	LastAffectedCard     *CardRef         `json:"last_affected_card,omitempty"`
	RoundNum             int              `json:"round_num"`
	RoundScores          map[string]int   `json:"round_scores,omitempty"`
	Scores               map[string]int   `json:"scores"`
	FinalLapTriggerIdx   *int             `json:"final_lap_trigger_idx,omitempty"`
	RestartRequestedBy   string           `json:"restart_requested_by,omitempty"`
	RestartRequestedAt   int64            `json:"restart_requested_at,omitempty"`
	RestartYesVotes      []string         `json:"restart_yes_votes,omitempty"`
	PlayerLastActive     map[string]int64 `json:"player_last_active,omitempty"`
}

// NewTableState creates an empty table with the given (already validated) name.
func NewTableState(name string) *TableState {
	return &TableState{
		Name:             name,
		Phase:            PhaseEmpty,
		Players:          []Player{},
		Scores:           map[string]int{},
		PlayerLastActive: map[string]int64{},
	}
}

// PlayerIndexByID returns the seat index for a player id, or -1.
func (st *TableState) PlayerIndexByID(playerID string) int {
	for i := range st.Players {
		if st.Players[i].ID == playerID {
			return i
		}
	}
	return -1
}

// PlayerByName returns the seated player with the given display name, or nil.
func (st *TableState) PlayerByName(name string) *Player {
	for i := range st.Players {
		if st.Players[i].Name == name {
			return &st.Players[i]
		}
	}
	return nil
}

// CurrentPlayer returns the active turn holder, or nil outside of a round.
func (st *TableState) CurrentPlayer() *Player {
	if st.CurrentPlayerIdx < 0 || st.CurrentPlayerIdx >= len(st.Players) {
		return nil
	}
	return &st.Players[st.CurrentPlayerIdx]
}

// CardsInPlay counts every card currently dealt into the table: draw pile,
// discard pile, hands, and the in-flight drawn card.
func (st *TableState) CardsInPlay() int {
	total := len(st.DrawPile) + len(st.DiscardPile)
	for i := range st.Players {
		total += len(st.Players[i].Hand)
	}
	if st.DrawnCard != nil {
		total++
	}
	return total
}

// Clone deep-copies the state. The session applies every intent against a
// clone and swaps it in only once the transition has been committed.
func (st *TableState) Clone() *TableState {
	out := *st

	out.Players = make([]Player, len(st.Players))
	for i, p := range st.Players {
		out.Players[i] = p
		out.Players[i].Hand = append([]cards.Card(nil), p.Hand...)
	}
	out.DrawPile = append([]cards.Card(nil), st.DrawPile...)
	out.DiscardPile = append([]cards.Card(nil), st.DiscardPile...)
	if st.DrawnCard != nil {
		c := *st.DrawnCard
		out.DrawnCard = &c
	}
	if st.LastAffectedCard != nil {
		ref := *st.LastAffectedCard
		out.LastAffectedCard = &ref
	}
	if st.FinalLapTriggerIdx != nil {
		idx := *st.FinalLapTriggerIdx
		out.FinalLapTriggerIdx = &idx
	}
	out.RoundScores = copyIntMap(st.RoundScores)
	out.Scores = copyIntMap(st.Scores)
	out.RestartYesVotes = append([]string(nil), st.RestartYesVotes...)
	out.PlayerLastActive = copyInt64Map(st.PlayerLastActive)

	return &out
}

func copyIntMap(in map[string]int) map[string]int {
	if in == nil {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyInt64Map(in map[string]int64) map[string]int64 {
	if in == nil {
		return nil
	}
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
