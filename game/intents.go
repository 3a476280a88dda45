package game

import "encoding/json"

// Intent is a client-originated message describing a desired state change.
// Concrete intents mirror the wire `type` field one to one.
type Intent interface {
	Kind() string
}

type Start struct{}

func (Start) Kind() string { return "start" }

type Reveal struct {
	CardIndex int `json:"card_index"`
}

func (Reveal) Kind() string { return "reveal" }

type DrawFromDraw struct{}

func (DrawFromDraw) Kind() string { return "draw_from_draw" }

type DrawFromDiscard struct{}

func (DrawFromDiscard) Kind() string { return "draw_from_discard" }

type PlayReplace struct {
	CardIndex int `json:"card_index"`
}

func (PlayReplace) Kind() string { return "play_replace" }

type PlayDiscardOnly struct{}

func (PlayDiscardOnly) Kind() string { return "play_discard_only" }

type PlayFlipAfterDiscard struct {
	CardIndex int `json:"card_index"`
}

func (PlayFlipAfterDiscard) Kind() string { return "play_flip_after_discard" }

type PlayPutBack struct{}

func (PlayPutBack) Kind() string { return "play_put_back" }

type AdvanceScoring struct{}

func (AdvanceScoring) Kind() string { return "advance_scoring" }

type RequestRestart struct{}

func (RequestRestart) Kind() string { return "request_restart" }

type VoteRestart struct{}

func (VoteRestart) Kind() string { return "vote_restart" }

type VoteRestartNo struct{}

func (VoteRestartNo) Kind() string { return "vote_restart_no" }

type Heartbeat struct{}

func (Heartbeat) Kind() string { return "heartbeat" }

type Leave struct{}

func (Leave) Kind() string { return "leave" }

// ParseIntent decodes a wire message into its typed intent. Unknown types and
// malformed JSON are invalid_input rejections.
func ParseIntent(raw []byte) (Intent, *Error) {
	var msg struct {
		Type      string `json:"type"`
		CardIndex *int   `json:"card_index"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, NewError(KindInvalidInput, "malformed message: %v", err)
	}

	cardIndex := func() (int, *Error) {
		if msg.CardIndex == nil {
			return 0, NewError(KindInvalidInput, "%s requires card_index", msg.Type)
		}
		return *msg.CardIndex, nil
	}

	switch msg.Type {
	case Start{}.Kind():
		return Start{}, nil
	case Reveal{}.Kind():
		idx, err := cardIndex()
		if err != nil {
			return nil, err
		}
		return Reveal{CardIndex: idx}, nil
	case DrawFromDraw{}.Kind():
		return DrawFromDraw{}, nil
	case DrawFromDiscard{}.Kind():
		return DrawFromDiscard{}, nil
	case PlayReplace{}.Kind():
		idx, err := cardIndex()
		if err != nil {
			return nil, err
		}
		return PlayReplace{CardIndex: idx}, nil
	case PlayDiscardOnly{}.Kind():
		return PlayDiscardOnly{}, nil
	case PlayFlipAfterDiscard{}.Kind():
		idx, err := cardIndex()
		if err != nil {
			return nil, err
		}
		return PlayFlipAfterDiscard{CardIndex: idx}, nil
	case PlayPutBack{}.Kind():
		return PlayPutBack{}, nil
	case AdvanceScoring{}.Kind():
		return AdvanceScoring{}, nil
	case RequestRestart{}.Kind():
		return RequestRestart{}, nil
	case VoteRestart{}.Kind():
		return VoteRestart{}, nil
	case VoteRestartNo{}.Kind():
		return VoteRestartNo{}, nil
	case Heartbeat{}.Kind():
		return Heartbeat{}, nil
	case Leave{}.Kind():
		return Leave{}, nil
	default:
		return nil, NewError(KindInvalidInput, "unknown intent type %q", msg.Type)
	}
}
