package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazharichir/playnine/cards"
	"github.com/lazharichir/playnine/game"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), slog.Disabled)
	require.NoError(t, err)
	return s
}

func sampleState() *game.TableState {
	st := game.NewTableState("links")
	st.Phase = game.PhasePlay
	st.RoundNum = 3
	st.Players = []game.Player{
		{
			ID:   "p1",
			Name: "Alice",
			Hand: []cards.Card{
				{Value: -5, FaceUp: true},
				{Value: 12},
			},
			RevealedCount: 1,
		},
	}
	st.DrawPile = []cards.Card{{Value: 7}}
	st.DiscardPile = []cards.Card{{Value: 3, FaceUp: true}}
	st.Scores = map[string]int{"p1": 21}
	st.PlayerLastActive = map[string]int64{"p1": 1700000000}
	return st
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	st := sampleState()

	require.NoError(t, s.Save(st))
	loaded, err := s.Load("links")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, st, loaded, "face-down values survive persistence intact")
}

func TestLoadMissing(t *testing.T) {
	s := newTestStore(t)
	st, err := s.Load("nowhere")
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestLoadSkipsUnknownVersion(t *testing.T) {
	s := newTestStore(t)
	data, err := json.Marshal(map[string]any{"version": 99, "name": "links", "phase": "play"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "links.json"), data, 0o644))

	st, err := s.Load("links")
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestLoadRejectsGarbage(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "links.json"), []byte("not json"), 0o644))

	_, err := s.Load("links")
	assert.Error(t, err)
}

func TestLoadNormalizesSparseSnapshot(t *testing.T) {
	s := newTestStore(t)
	data, err := json.Marshal(map[string]any{"version": SchemaVersion, "name": "links"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "links.json"), data, 0o644))

	st, err := s.Load("links")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, game.PhaseEmpty, st.Phase)
	assert.NotNil(t, st.Players)
	assert.NotNil(t, st.Scores)
	assert.NotNil(t, st.PlayerLastActive)
}

func TestSaveOverwrites(t *testing.T) {
	s := newTestStore(t)
	st := sampleState()
	require.NoError(t, s.Save(st))

	st.RoundNum = 4
	require.NoError(t, s.Save(st))

	loaded, err := s.Load("links")
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.RoundNum)

	// No temp files left behind.
	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "links.json", entries[0].Name())
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(sampleState()))
	require.NoError(t, s.Delete("links"))

	st, err := s.Load("links")
	require.NoError(t, err)
	assert.Nil(t, st)

	// Deleting again is fine.
	require.NoError(t, s.Delete("links"))
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	names, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	a, b := sampleState(), sampleState()
	b.Name = "back9"
	require.NoError(t, s.Save(a))
	require.NoError(t, s.Save(b))
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "notes.txt"), []byte("x"), 0o644))

	names, err = s.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"links", "back9"}, names)
}
