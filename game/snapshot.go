package game

import (
	"sort"

	"github.com/lazharichir/playnine/cards"
)

// PlayerView is a player as observers see them: face-down card values are
// masked, including the player's own.
type PlayerView struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Hand           []cards.Card `json:"hand"`
	RevealedCount  int          `json:"revealed_count"`
	FinalTurnTaken bool         `json:"final_turn_taken,omitempty"`
}

// Snapshot is the full observable state of a table, sent to every subscriber
// whenever anything observable changes. The same snapshot goes to everyone:
// the server never leaks a face-down value, not even to its owner.
type Snapshot struct {
	Name                 string           `json:"name"`
	Phase                Phase            `json:"phase"`
	Players              []PlayerView     `json:"players"`
	DealerIdx            int              `json:"dealer_idx"`
	CurrentPlayerIdx     int              `json:"current_player_idx"`
	DrawPileCount        int              `json:"draw_pile_count"`
	DiscardPileCount     int              `json:"discard_pile_count"`
	DiscardPileTop       []int            `json:"discard_pile_top"`
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
	ActivePlayerIDs      []string         `json:"active_player_ids"`
	PlayerLastActive     map[string]int64 `json:"player_last_active,omitempty"`
	InactiveTurnName     string           `json:"inactive_turn_name,omitempty"`
}

// BuildSnapshot redacts the state for observers. Redaction happens here, at
// serialization time; stored state always knows every value.
func BuildSnapshot(st *TableState, activeIDs []string, inactiveTurnName string) *Snapshot {
	players := make([]PlayerView, len(st.Players))
	for i := range st.Players {
		p := &st.Players[i]
		hand := make([]cards.Card, len(p.Hand))
		for j, c := range p.Hand {
			if !c.FaceUp {
				c.Value = cards.FaceDownValue
			}
			hand[j] = c
		}
		players[i] = PlayerView{
			ID:             p.ID,
			Name:           p.Name,
			Hand:           hand,
			RevealedCount:  p.RevealedCount,
			FinalTurnTaken: p.FinalTurnTaken,
		}
	}

	// Top two discard values, top first.
	discardTop := []int{}
	for i := len(st.DiscardPile) - 1; i >= 0 && len(discardTop) < 2; i-- {
		discardTop = append(discardTop, st.DiscardPile[i].Value)
	}

	var drawn *cards.Card
	if st.DrawnCard != nil {
		// The drawn card is public: revealing the draw is part of the
		// gesture, and a discard draw was already face-up.
		c := *st.DrawnCard
		c.FaceUp = true
		drawn = &c
	}

	if activeIDs == nil {
		activeIDs = []string{}
	}
	sorted := append([]string(nil), activeIDs...)
	sort.Strings(sorted)

	return &Snapshot{
		Name:                 st.Name,
		Phase:                st.Phase,
		Players:              players,
		DealerIdx:            st.DealerIdx,
		CurrentPlayerIdx:     st.CurrentPlayerIdx,
		DrawPileCount:        len(st.DrawPile),
		DiscardPileCount:     len(st.DiscardPile),
		DiscardPileTop:       discardTop,
		DrawnCard:            drawn,
		DrawnFrom:            st.DrawnFrom,
		MustFlipAfterDiscard: st.MustFlipAfterDiscard,
		LastAffectedCard:     st.LastAffectedCard,
		RoundNum:             st.RoundNum,
		RoundScores:          copyIntMap(st.RoundScores),
		Scores:               copyIntMap(st.Scores),
		FinalLapTriggerIdx:   st.FinalLapTriggerIdx,
		RestartRequestedBy:   st.RestartRequestedBy,
		RestartRequestedAt:   st.RestartRequestedAt,
		RestartYesVotes:      append([]string(nil), st.RestartYesVotes...),
		ActivePlayerIDs:      sorted,
		PlayerLastActive:     copyInt64Map(st.PlayerLastActive),
		InactiveTurnName:     inactiveTurnName,
	}
}
