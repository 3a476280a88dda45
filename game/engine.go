package game

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/lazharichir/playnine/cards"
)

// Env carries the per-application facts the engine cannot know by itself:
// the wall clock and which seated players currently hold a live connection.
// The session fills it in; tests pin it.
type Env struct {
	Now    int64
	Active map[string]bool
}

// Engine applies intents to table state. It holds the only randomness source
// for its table, so a fixed seed makes every shuffle reproducible.
type Engine struct {
	rng *rand.Rand
}

// NewEngine creates an engine seeded with the given source.
func NewEngine(rng *rand.Rand) *Engine {
	return &Engine{rng: rng}
}

// AddPlayer seats a player at the table, creating their id. Joining with a
// name already seated reuses that seat. New seats are only legal before a
// game has started.
func (e *Engine) AddPlayer(st *TableState, name string, env Env) (*Player, *Error) {
	if existing := st.PlayerByName(name); existing != nil {
		return existing, nil
	}
	if st.Phase != PhaseEmpty && st.Phase != PhaseWaiting {
		return nil, NewError(KindGameAlreadyStarted, "game already started on table %s", st.Name)
	}
	if len(st.Players) >= MaxPlayers {
		return nil, NewError(KindTableFull, "table %s is full", st.Name)
	}

	st.Players = append(st.Players, Player{
		ID:   uuid.NewString(),
		Name: name,
		Hand: []cards.Card{},
	})
	player := &st.Players[len(st.Players)-1]
	st.PlayerLastActive[player.ID] = env.Now
	if st.Phase == PhaseEmpty {
		st.Phase = PhaseWaiting
	}
	return player, nil
}

// Apply routes one intent through its transition. On rejection the state is
// untouched; callers therefore apply against a clone and commit on success.
func (e *Engine) Apply(st *TableState, actorID string, intent Intent, env Env) *Error {
	if actorID != "" {
		if idx := st.PlayerIndexByID(actorID); idx >= 0 {
			st.PlayerLastActive[actorID] = env.Now
		}
	}

	switch in := intent.(type) {
	case Start:
		return e.applyStart(st, actorID)
	case Reveal:
		return e.applyReveal(st, actorID, in.CardIndex)
	case DrawFromDraw:
		return e.applyDrawFromDraw(st, actorID)
	case DrawFromDiscard:
		return e.applyDrawFromDiscard(st, actorID)
	case PlayReplace:
		return e.applyPlayReplace(st, actorID, in.CardIndex)
	case PlayDiscardOnly:
		return e.applyPlayDiscardOnly(st, actorID)
	case PlayFlipAfterDiscard:
		return e.applyPlayFlipAfterDiscard(st, actorID, in.CardIndex)
	case PlayPutBack:
		return e.applyPlayPutBack(st, actorID)
	case AdvanceScoring:
		return e.applyAdvanceScoring(st, actorID)
	case RequestRestart:
		return e.applyRequestRestart(st, actorID, env)
	case VoteRestart:
		return e.applyVoteRestart(st, actorID, env)
	case VoteRestartNo:
		return e.applyVoteRestartNo(st, actorID)
	case Heartbeat:
		// Last-active already refreshed above; nothing else changes.
		return nil
	case Leave:
		return e.applyLeave(st, actorID)
	default:
		return NewError(KindInvalidInput, "unknown intent %T", intent)
	}
}

func (e *Engine) seatedActor(st *TableState, actorID string) (int, *Error) {
	idx := st.PlayerIndexByID(actorID)
	if idx < 0 {
		return -1, NewError(KindNotAPlayer, "not a player at table %s", st.Name)
	}
	return idx, nil
}

func (e *Engine) currentActor(st *TableState, actorID string) (int, *Error) {
	idx, err := e.seatedActor(st, actorID)
	if err != nil {
		return -1, err
	}
	if idx != st.CurrentPlayerIdx {
		return -1, NewError(KindNotYourTurn, "not your turn")
	}
	return idx, nil
}

func (e *Engine) applyStart(st *TableState, actorID string) *Error {
	if _, err := e.seatedActor(st, actorID); err != nil {
		return err
	}
	if st.Phase != PhaseWaiting {
		return NewError(KindWrongPhase, "game already started")
	}
	if len(st.Players) < MinPlayers {
		return NewError(KindIllegalTarget, "need at least %d players", MinPlayers)
	}
	e.dealRound(st, 1)
	return nil
}

// dealRound shuffles a fresh deck sized for the seat count, deals eight
// face-down cards to every player, and flips the top of the draw pile onto
// the discard pile.
func (e *Engine) dealRound(st *TableState, roundNum int) {
	deck := cards.ShuffleDeck(cards.NewDeck(cards.PacksFor(len(st.Players))), e.rng)

	for i := range st.Players {
		p := &st.Players[i]
		p.Hand = make([]cards.Card, cards.HandSize)
		for j := 0; j < cards.HandSize; j++ {
			p.Hand[j], deck = deck[len(deck)-1], deck[:len(deck)-1]
		}
		p.RevealedCount = 0
		p.FinalTurnTaken = false
	}

	top := deck[len(deck)-1]
	top.FaceUp = true
	st.DrawPile = deck[:len(deck)-1]
	st.DiscardPile = []cards.Card{top}

	st.DrawnCard = nil
	st.DrawnFrom = ""
	st.MustFlipAfterDiscard = false
	st.LastAffectedCard = nil
	st.FinalLapTriggerIdx = nil
	st.RoundScores = map[string]int{}

	if roundNum == 1 {
		// Round one: the dealer is the last joiner, so play opens on seat 0.
		st.DealerIdx = len(st.Players) - 1
	} else {
		st.DealerIdx = (st.DealerIdx + 1) % len(st.Players)
	}
	st.CurrentPlayerIdx = (st.DealerIdx + 1) % len(st.Players)
	st.RoundNum = roundNum
	st.Phase = PhaseReveal
}

func (e *Engine) applyReveal(st *TableState, actorID string, cardIndex int) *Error {
	if st.Phase != PhaseReveal {
		return NewError(KindWrongPhase, "not in reveal phase")
	}
	idx, err := e.seatedActor(st, actorID)
	if err != nil {
		return err
	}
	player := &st.Players[idx]
	if player.RevealedCount >= 2 {
		return NewError(KindIllegalTarget, "already revealed 2 cards")
	}
	if cardIndex < 0 || cardIndex >= len(player.Hand) {
		return NewError(KindInvalidInput, "card_index out of range")
	}
	if player.Hand[cardIndex].FaceUp {
		return NewError(KindIllegalTarget, "card already face-up")
	}

	player.Hand[cardIndex].FaceUp = true
	player.RevealedCount++
	st.LastAffectedCard = &CardRef{PlayerID: actorID, CardIndex: cardIndex}

	for i := range st.Players {
		if st.Players[i].RevealedCount < 2 {
			return nil
		}
	}
	st.Phase = PhasePlay
	return nil
}

func (e *Engine) checkMayDraw(st *TableState, actorID string) (int, *Error) {
	if st.Phase != PhasePlay {
		return -1, NewError(KindWrongPhase, "not in play phase")
	}
	idx, err := e.currentActor(st, actorID)
	if err != nil {
		return -1, err
	}
	if st.DrawnCard != nil {
		return -1, NewError(KindIllegalTarget, "already drew a card")
	}
	if st.MustFlipAfterDiscard {
		return -1, NewError(KindIllegalTarget, "must flip a face-down card first")
	}
	return idx, nil
}

func (e *Engine) applyDrawFromDraw(st *TableState, actorID string) *Error {
	if _, err := e.checkMayDraw(st, actorID); err != nil {
		return err
	}
	if len(st.DrawPile) == 0 && !e.reshuffleDiscards(st) {
		return NewError(KindIllegalTarget, "draw pile empty")
	}

	card := st.DrawPile[len(st.DrawPile)-1]
	st.DrawPile = st.DrawPile[:len(st.DrawPile)-1]
	card.FaceUp = true
	st.DrawnCard = &card
	st.DrawnFrom = DrawSourceDraw

	if len(st.DrawPile) == 0 {
		e.reshuffleDiscards(st)
	}
	return nil
}

// reshuffleDiscards rebuilds the draw pile from every discard except the top
// one. Reports whether any card moved.
func (e *Engine) reshuffleDiscards(st *TableState) bool {
	if len(st.DiscardPile) < 2 {
		return false
	}
	buried := st.DiscardPile[:len(st.DiscardPile)-1]
	top := st.DiscardPile[len(st.DiscardPile)-1]

	pile := make([]cards.Card, len(buried))
	copy(pile, buried)
	for i := range pile {
		pile[i].FaceUp = false
	}
	st.DrawPile = cards.ShuffleDeck(pile, e.rng)
	st.DiscardPile = []cards.Card{top}
	return true
}

func (e *Engine) applyDrawFromDiscard(st *TableState, actorID string) *Error {
	if _, err := e.checkMayDraw(st, actorID); err != nil {
		return err
	}
	if len(st.DiscardPile) == 0 {
		return NewError(KindIllegalTarget, "discard pile empty")
	}

	card := st.DiscardPile[len(st.DiscardPile)-1]
	st.DiscardPile = st.DiscardPile[:len(st.DiscardPile)-1]
	st.DrawnCard = &card
	st.DrawnFrom = DrawSourceDiscard
	return nil
}

func (e *Engine) applyPlayReplace(st *TableState, actorID string, cardIndex int) *Error {
	if st.Phase != PhasePlay || st.DrawnCard == nil {
		return NewError(KindWrongPhase, "no card drawn")
	}
	idx, err := e.currentActor(st, actorID)
	if err != nil {
		return err
	}
	player := &st.Players[idx]
	if cardIndex < 0 || cardIndex >= len(player.Hand) {
		return NewError(KindInvalidInput, "card_index out of range")
	}

	old := player.Hand[cardIndex]
	player.Hand[cardIndex] = *st.DrawnCard
	player.Hand[cardIndex].FaceUp = true
	old.FaceUp = true
	st.DiscardPile = append(st.DiscardPile, old)
	st.DrawnCard = nil
	st.DrawnFrom = ""
	st.LastAffectedCard = &CardRef{PlayerID: actorID, CardIndex: cardIndex}

	e.completeTurn(st)
	return nil
}

func (e *Engine) applyPlayDiscardOnly(st *TableState, actorID string) *Error {
	if st.Phase != PhasePlay || st.DrawnCard == nil {
		return NewError(KindWrongPhase, "no card drawn")
	}
	if st.DrawnFrom != DrawSourceDraw {
		return NewError(KindIllegalTarget, "must use a card taken from the discard pile")
	}
	idx, err := e.currentActor(st, actorID)
	if err != nil {
		return err
	}

	drawn := *st.DrawnCard
	drawn.FaceUp = true
	st.DiscardPile = append(st.DiscardPile, drawn)
	st.DrawnCard = nil
	st.DrawnFrom = ""

	if cards.FaceDownCount(st.Players[idx].Hand) > 0 {
		st.MustFlipAfterDiscard = true
		return nil
	}
	e.completeTurn(st)
	return nil
}

func (e *Engine) applyPlayFlipAfterDiscard(st *TableState, actorID string, cardIndex int) *Error {
	if st.Phase != PhasePlay {
		return NewError(KindWrongPhase, "not in play phase")
	}
	if !st.MustFlipAfterDiscard {
		return NewError(KindIllegalTarget, "no flip required")
	}
	idx, err := e.currentActor(st, actorID)
	if err != nil {
		return err
	}
	player := &st.Players[idx]
	if cardIndex < 0 || cardIndex >= len(player.Hand) {
		return NewError(KindInvalidInput, "card_index out of range")
	}
	if player.Hand[cardIndex].FaceUp {
		return NewError(KindIllegalTarget, "card already face-up")
	}

	player.Hand[cardIndex].FaceUp = true
	st.MustFlipAfterDiscard = false
	st.LastAffectedCard = &CardRef{PlayerID: actorID, CardIndex: cardIndex}

	e.completeTurn(st)
	return nil
}

func (e *Engine) applyPlayPutBack(st *TableState, actorID string) *Error {
	if st.Phase != PhasePlay || st.DrawnCard == nil {
		return NewError(KindWrongPhase, "no card drawn")
	}
	if st.DrawnFrom != DrawSourceDiscard {
		return NewError(KindIllegalTarget, "can only put back a card taken from the discard pile")
	}
	if _, err := e.currentActor(st, actorID); err != nil {
		return err
	}

	// Un-commit: the card returns to the discard top and the turn continues.
	st.DiscardPile = append(st.DiscardPile, *st.DrawnCard)
	st.DrawnCard = nil
	st.DrawnFrom = ""
	return nil
}

// completeTurn closes out the acting player's turn: final-lap bookkeeping,
// then either hole completion or advancing the turn marker.
func (e *Engine) completeTurn(st *TableState) {
	st.DrawnCard = nil
	st.DrawnFrom = ""
	st.MustFlipAfterDiscard = false

	idx := st.CurrentPlayerIdx
	actor := &st.Players[idx]

	triggeredNow := false
	if st.FinalLapTriggerIdx == nil && cards.AllFaceUp(actor.Hand) {
		trigger := idx
		st.FinalLapTriggerIdx = &trigger
		triggeredNow = true
	}

	if st.FinalLapTriggerIdx != nil && !triggeredNow && idx != *st.FinalLapTriggerIdx {
		actor.FinalTurnTaken = true
		// Their round is over; expose the rest of their hand for tallying.
		for i := range actor.Hand {
			actor.Hand[i].FaceUp = true
		}
	}

	next, ok := e.nextTurnHolder(st, idx)
	if !ok {
		e.finishHole(st)
		return
	}
	st.CurrentPlayerIdx = next
}

// nextTurnHolder walks clockwise from after seat idx to the next player who
// still has a turn. During the final lap that excludes the trigger player,
// anyone who already took their final turn, and anyone fully face-up.
func (e *Engine) nextTurnHolder(st *TableState, idx int) (int, bool) {
	n := len(st.Players)
	for step := 1; step <= n; step++ {
		cand := (idx + step) % n
		if e.lapEligible(st, cand) {
			return cand, true
		}
	}
	return 0, false
}

// lapEligible reports whether seat idx may still take a turn. Outside the
// final lap every seat is eligible.
func (e *Engine) lapEligible(st *TableState, idx int) bool {
	if st.FinalLapTriggerIdx == nil {
		return true
	}
	if idx == *st.FinalLapTriggerIdx {
		return false
	}
	p := &st.Players[idx]
	return !p.FinalTurnTaken && !cards.AllFaceUp(p.Hand)
}

// finishHole flips every remaining face-down card, records round scores, and
// moves the table into the scoring phase.
func (e *Engine) finishHole(st *TableState) {
	st.RoundScores = map[string]int{}
	for i := range st.Players {
		p := &st.Players[i]
		for j := range p.Hand {
			p.Hand[j].FaceUp = true
		}
		score := cards.ScoreHand(p.Hand)
		st.RoundScores[p.ID] = score
		st.Scores[p.ID] += score
	}
	st.Phase = PhaseScoring
	st.DrawnCard = nil
	st.DrawnFrom = ""
	st.MustFlipAfterDiscard = false
	st.FinalLapTriggerIdx = nil
}

func (e *Engine) applyAdvanceScoring(st *TableState, actorID string) *Error {
	if st.Phase != PhaseScoring {
		return NewError(KindWrongPhase, "not in scoring phase")
	}
	if _, err := e.seatedActor(st, actorID); err != nil {
		return err
	}

	if st.RoundNum >= RoundsPerGame {
		e.resetToWaiting(st, true)
		return nil
	}
	e.dealRound(st, st.RoundNum+1)
	return nil
}

// resetToWaiting returns the table to the pre-game lobby, keeping seats.
func (e *Engine) resetToWaiting(st *TableState, clearScores bool) {
	for i := range st.Players {
		p := &st.Players[i]
		p.Hand = []cards.Card{}
		p.RevealedCount = 0
		p.FinalTurnTaken = false
	}
	st.DrawPile = nil
	st.DiscardPile = nil
	st.DrawnCard = nil
	st.DrawnFrom = ""
	st.MustFlipAfterDiscard = false
	st.LastAffectedCard = nil
	st.FinalLapTriggerIdx = nil
	st.RoundNum = 0
	st.RoundScores = map[string]int{}
	if clearScores {
		st.Scores = map[string]int{}
	}
	st.CurrentPlayerIdx = 0
	st.DealerIdx = 0
	st.Phase = PhaseWaiting
	e.clearRestartVote(st)
}

func (e *Engine) applyRequestRestart(st *TableState, actorID string, env Env) *Error {
	if _, err := e.seatedActor(st, actorID); err != nil {
		return err
	}
	if st.RestartRequestedBy != "" {
		return NewError(KindIllegalTarget, "a restart vote is already pending")
	}
	st.RestartRequestedBy = actorID
	st.RestartRequestedAt = env.Now
	st.RestartYesVotes = []string{actorID}
	return nil
}

func (e *Engine) applyVoteRestart(st *TableState, actorID string, env Env) *Error {
	if _, err := e.seatedActor(st, actorID); err != nil {
		return err
	}
	if st.RestartRequestedBy == "" {
		return NewError(KindIllegalTarget, "no restart vote pending")
	}
	if !containsString(st.RestartYesVotes, actorID) {
		st.RestartYesVotes = append(st.RestartYesVotes, actorID)
	}

	// The vote passes once every connected player has said yes.
	for i := range st.Players {
		p := &st.Players[i]
		if env.Active != nil && !env.Active[p.ID] {
			continue
		}
		if !containsString(st.RestartYesVotes, p.ID) {
			return nil
		}
	}
	e.resetToWaiting(st, true)
	return nil
}

func (e *Engine) applyVoteRestartNo(st *TableState, actorID string) *Error {
	if _, err := e.seatedActor(st, actorID); err != nil {
		return err
	}
	if st.RestartRequestedBy == "" {
		return NewError(KindIllegalTarget, "no restart vote pending")
	}
	e.clearRestartVote(st)
	return nil
}

func (e *Engine) clearRestartVote(st *TableState) {
	st.RestartRequestedBy = ""
	st.RestartRequestedAt = 0
	st.RestartYesVotes = nil
}

// applyLeave removes a player from the table. Idempotent: leaving twice is a
// no-op. Mid-round, the leaver's cards return to the table so that the deck
// stays whole: the hand goes face-down under the draw pile and a held drawn
// card lands face-up on the discard pile.
func (e *Engine) applyLeave(st *TableState, actorID string) *Error {
	idx := st.PlayerIndexByID(actorID)
	if idx < 0 {
		return nil
	}
	leaver := st.Players[idx]

	if idx == st.CurrentPlayerIdx {
		// The leaver's half-finished turn dies with them: a held card goes
		// to the discard pile and any owed flip is forgiven.
		if st.DrawnCard != nil {
			drawn := *st.DrawnCard
			drawn.FaceUp = true
			st.DiscardPile = append(st.DiscardPile, drawn)
		}
		st.DrawnCard = nil
		st.DrawnFrom = ""
		st.MustFlipAfterDiscard = false
	}
	if len(leaver.Hand) > 0 {
		returned := make([]cards.Card, len(leaver.Hand))
		copy(returned, leaver.Hand)
		for i := range returned {
			returned[i].FaceUp = false
		}
		st.DrawPile = append(returned, st.DrawPile...)
	}

	st.Players = append(st.Players[:idx], st.Players[idx+1:]...)
	delete(st.Scores, actorID)
	delete(st.RoundScores, actorID)
	delete(st.PlayerLastActive, actorID)

	if st.RestartRequestedBy == actorID {
		e.clearRestartVote(st)
	} else {
		st.RestartYesVotes = removeString(st.RestartYesVotes, actorID)
	}

	n := len(st.Players)
	if n == 0 {
		e.resetToEmpty(st)
		return nil
	}

	if st.DealerIdx > idx {
		st.DealerIdx--
	}
	st.DealerIdx %= n
	if st.CurrentPlayerIdx > idx {
		st.CurrentPlayerIdx--
	}
	st.CurrentPlayerIdx %= n

	if st.FinalLapTriggerIdx != nil {
		switch trigger := *st.FinalLapTriggerIdx; {
		case trigger == idx:
			// The trigger left; the lap is off and play continues normally.
			st.FinalLapTriggerIdx = nil
			for i := range st.Players {
				st.Players[i].FinalTurnTaken = false
			}
		case trigger > idx:
			trigger--
			st.FinalLapTriggerIdx = &trigger
		}
	}

	if n < MinPlayers && (st.Phase == PhaseReveal || st.Phase == PhasePlay || st.Phase == PhaseScoring) {
		e.resetToWaiting(st, false)
		return nil
	}

	// The leaver may have been the last seat with a turn left in the lap;
	// hand the turn to whoever remains eligible, or score the hole.
	if st.Phase == PhasePlay && st.FinalLapTriggerIdx != nil && !e.lapEligible(st, st.CurrentPlayerIdx) {
		if next, ok := e.nextTurnHolder(st, st.CurrentPlayerIdx); ok {
			st.CurrentPlayerIdx = next
		} else {
			e.finishHole(st)
		}
	}
	return nil
}

// resetToEmpty clears everything; the session destroys the table afterwards.
func (e *Engine) resetToEmpty(st *TableState) {
	st.Players = []Player{}
	st.DrawPile = nil
	st.DiscardPile = nil
	st.DrawnCard = nil
	st.DrawnFrom = ""
	st.MustFlipAfterDiscard = false
	st.LastAffectedCard = nil
	st.FinalLapTriggerIdx = nil
	st.RoundNum = 0
	st.RoundScores = map[string]int{}
	st.Scores = map[string]int{}
	st.PlayerLastActive = map[string]int64{}
	st.CurrentPlayerIdx = 0
	st.DealerIdx = 0
	st.Phase = PhaseEmpty
	e.clearRestartVote(st)
}

// ForcedTurn synthesizes the minimum legal action for the current player:
// draw from the draw pile, discard it, and flip the first face-down card if
// the discard demands one. Used by the session's idle-turn timeout.
func (e *Engine) ForcedTurn(st *TableState, env Env) *Error {
	player := st.CurrentPlayer()
	if st.Phase != PhasePlay || player == nil {
		return NewError(KindWrongPhase, "no turn to force")
	}
	actorID := player.ID

	if st.DrawnCard == nil && !st.MustFlipAfterDiscard {
		if err := e.applyDrawFromDraw(st, actorID); err != nil {
			return err
		}
	}
	if st.DrawnCard != nil {
		if st.DrawnFrom == DrawSourceDiscard {
			// A stalled discard draw must be used; replace the first card.
			if err := e.applyPlayReplace(st, actorID, firstReplaceableIndex(player.Hand)); err != nil {
				return err
			}
			return nil
		}
		if err := e.applyPlayDiscardOnly(st, actorID); err != nil {
			return err
		}
	}
	if st.MustFlipAfterDiscard {
		if err := e.applyPlayFlipAfterDiscard(st, actorID, firstFaceDownIndex(player.Hand)); err != nil {
			return err
		}
	}
	return nil
}

func firstFaceDownIndex(hand []cards.Card) int {
	for i, c := range hand {
		if !c.FaceUp {
			return i
		}
	}
	return 0
}

func firstReplaceableIndex(hand []cards.Card) int {
	if idx := firstFaceDownIndex(hand); !hand[idx].FaceUp {
		return idx
	}
	return 0
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func removeString(xs []string, s string) []string {
	out := xs[:0]
	for _, x := range xs {
		if x != s {
			out = append(out, x)
		}
	}
	return out
}
