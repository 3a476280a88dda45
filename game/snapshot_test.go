package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazharichir/playnine/cards"
)

func TestBuildSnapshotMasksFaceDownCards(t *testing.T) {
	e := newTestEngine(30)
	st, ids := seatPlayers(t, e, 2)
	startRound(t, e, st, ids)

	snap := BuildSnapshot(st, []string{ids[0]}, "")

	require.Len(t, snap.Players, 2)
	for _, pv := range snap.Players {
		require.Len(t, pv.Hand, cards.HandSize)
		for i, c := range pv.Hand {
			if i < 2 {
				// The two revealed cards carry their real value.
				assert.True(t, c.FaceUp)
				assert.NotEqual(t, cards.FaceDownValue, c.Value)
			} else {
				assert.False(t, c.FaceUp)
				assert.Equal(t, cards.FaceDownValue, c.Value, "face-down values never leave the server")
			}
		}
	}

	// Masking is serialization-only; the state keeps the real values.
	for _, p := range st.Players {
		for _, c := range p.Hand {
			assert.True(t, cards.ValidValue(c.Value))
		}
	}
}

func TestBuildSnapshotPiles(t *testing.T) {
	st := NewTableState("links")
	st.DrawPile = make([]cards.Card, 40)
	st.DiscardPile = []cards.Card{
		{Value: 4, FaceUp: true},
		{Value: 7, FaceUp: true},
		{Value: 11, FaceUp: true},
	}

	snap := BuildSnapshot(st, nil, "")
	assert.Equal(t, 40, snap.DrawPileCount)
	assert.Equal(t, 3, snap.DiscardPileCount)
	assert.Equal(t, []int{11, 7}, snap.DiscardPileTop, "top of the pile comes first")

	st.DiscardPile = st.DiscardPile[:1]
	snap = BuildSnapshot(st, nil, "")
	assert.Equal(t, []int{4}, snap.DiscardPileTop)

	st.DiscardPile = nil
	snap = BuildSnapshot(st, nil, "")
	assert.Empty(t, snap.DiscardPileTop)
}

func TestBuildSnapshotDrawnCardIsPublic(t *testing.T) {
	st := NewTableState("links")
	st.DrawnCard = &cards.Card{Value: 9, FaceUp: true}
	st.DrawnFrom = DrawSourceDraw

	snap := BuildSnapshot(st, nil, "")
	require.NotNil(t, snap.DrawnCard)
	assert.Equal(t, 9, snap.DrawnCard.Value)
	assert.True(t, snap.DrawnCard.FaceUp)
	assert.Equal(t, DrawSourceDraw, snap.DrawnFrom)
}

func TestBuildSnapshotActivePlayers(t *testing.T) {
	st := NewTableState("links")

	snap := BuildSnapshot(st, []string{"zeta", "alpha"}, "Alice")
	assert.Equal(t, []string{"alpha", "zeta"}, snap.ActivePlayerIDs)
	assert.Equal(t, "Alice", snap.InactiveTurnName)

	snap = BuildSnapshot(st, nil, "")
	assert.NotNil(t, snap.ActivePlayerIDs)
	assert.Empty(t, snap.ActivePlayerIDs)
}

func TestSnapshotJSONShape(t *testing.T) {
	e := newTestEngine(30)
	st, ids := seatPlayers(t, e, 2)
	startRound(t, e, st, ids)

	data, err := json.Marshal(BuildSnapshot(st, []string{ids[1]}, ""))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	for _, key := range []string{
		"name", "phase", "players", "dealer_idx", "current_player_idx",
		"draw_pile_count", "discard_pile_count", "discard_pile_top",
		"round_num", "scores", "active_player_ids",
	} {
		assert.Contains(t, decoded, key)
	}
	assert.Equal(t, "play", decoded["phase"])
	assert.NotContains(t, decoded, "draw_pile", "raw piles never hit the wire")
	assert.NotContains(t, decoded, "discard_pile")
}
