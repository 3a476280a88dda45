package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazharichir/playnine/cards"
)

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"links", "links", true},
		{"  Links  ", "links", true},
		{"table_9-a", "table_9-a", true},
		{"", "", false},
		{"has space", "", false},
		{"emoji⛳", "", false},
		{"way-too-long-table-name-x", "", false},
	}

	for _, tc := range tests {
		got, err := ValidateTableName(tc.in)
		if tc.ok {
			require.Nil(t, err, "%q", tc.in)
			assert.Equal(t, tc.want, got)
		} else {
			require.NotNil(t, err, "%q", tc.in)
			assert.Equal(t, KindInvalidName, err.Kind)
		}
	}
}

func TestValidatePlayerName(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Alice", "Alice", true},
		{" Bobby Jones ", "Bobby Jones", true},
		{"Par4", "Par4", true},
		{"", "", false},
		{"under_score", "", false},
		{"this name is too long", "", false},
	}

	for _, tc := range tests {
		got, err := ValidatePlayerName(tc.in)
		if tc.ok {
			require.Nil(t, err, "%q", tc.in)
			assert.Equal(t, tc.want, got)
		} else {
			require.NotNil(t, err, "%q", tc.in)
			assert.Equal(t, KindInvalidName, err.Kind)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	e := newTestEngine(20)
	st, ids := seatPlayers(t, e, 2)
	startRound(t, e, st, ids)
	require.Nil(t, e.Apply(st, ids[0], DrawFromDraw{}, testEnv()))

	clone := st.Clone()
	require.Nil(t, e.Apply(clone, ids[0], PlayReplace{CardIndex: 7}, testEnv()))
	clone.Scores[ids[0]] = 99
	clone.Players[0].Hand[0].FaceUp = false
	clone.PlayerLastActive[ids[0]] = 1

	assert.NotNil(t, st.DrawnCard, "the original still holds the drawn card")
	assert.Equal(t, 0, st.CurrentPlayerIdx)
	assert.True(t, st.Players[0].Hand[0].FaceUp)
	assert.NotEqual(t, 99, st.Scores[ids[0]])
	assert.NotEqual(t, int64(1), st.PlayerLastActive[ids[0]])
}

func TestCurrentPlayer(t *testing.T) {
	st := NewTableState("links")
	assert.Nil(t, st.CurrentPlayer())

	e := newTestEngine(20)
	st, ids := seatPlayers(t, e, 2)
	startRound(t, e, st, ids)
	require.NotNil(t, st.CurrentPlayer())
	assert.Equal(t, ids[0], st.CurrentPlayer().ID)
}

func TestCardsInPlay(t *testing.T) {
	st := NewTableState("links")
	assert.Equal(t, 0, st.CardsInPlay())

	st.DrawPile = make([]cards.Card, 5)
	st.DiscardPile = make([]cards.Card, 2)
	st.Players = []Player{{Hand: make([]cards.Card, 8)}}
	st.DrawnCard = &cards.Card{Value: 3}
	assert.Equal(t, 16, st.CardsInPlay())
}
