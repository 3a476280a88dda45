package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Intent
	}{
		{"start", `{"type":"start"}`, Start{}},
		{"reveal", `{"type":"reveal","card_index":3}`, Reveal{CardIndex: 3}},
		{"draw from draw", `{"type":"draw_from_draw"}`, DrawFromDraw{}},
		{"draw from discard", `{"type":"draw_from_discard"}`, DrawFromDiscard{}},
		{"replace", `{"type":"play_replace","card_index":0}`, PlayReplace{}},
		{"discard only", `{"type":"play_discard_only"}`, PlayDiscardOnly{}},
		{"flip after discard", `{"type":"play_flip_after_discard","card_index":7}`, PlayFlipAfterDiscard{CardIndex: 7}},
		{"put back", `{"type":"play_put_back"}`, PlayPutBack{}},
		{"advance scoring", `{"type":"advance_scoring"}`, AdvanceScoring{}},
		{"request restart", `{"type":"request_restart"}`, RequestRestart{}},
		{"vote restart", `{"type":"vote_restart"}`, VoteRestart{}},
		{"vote restart no", `{"type":"vote_restart_no"}`, VoteRestartNo{}},
		{"heartbeat", `{"type":"heartbeat"}`, Heartbeat{}},
		{"leave", `{"type":"leave"}`, Leave{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			intent, err := ParseIntent([]byte(tc.raw))
			require.Nil(t, err)
			assert.Equal(t, tc.want, intent)
		})
	}
}

func TestParseIntentRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{"type":`},
		{"unknown type", `{"type":"fold"}`},
		{"empty type", `{}`},
		{"reveal without index", `{"type":"reveal"}`},
		{"replace without index", `{"type":"play_replace"}`},
		{"flip without index", `{"type":"play_flip_after_discard"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseIntent([]byte(tc.raw))
			require.NotNil(t, err)
			assert.Equal(t, KindInvalidInput, err.Kind)
		})
	}
}
