package session

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/slog"
	"github.com/sanity-io/litter"

	"github.com/lazharichir/playnine/game"
	"github.com/lazharichir/playnine/store"
)

// Config holds the session timing knobs.
type Config struct {
	IdleTurnTimeout    time.Duration
	RestartVoteTimeout time.Duration
}

type requestKind int

const (
	reqIntent requestKind = iota
	reqJoin
	reqConnect
	reqDisconnect
	reqSnapshot
)

type joinResult struct {
	playerID string
	err      *game.Error
}

type request struct {
	kind       requestKind
	clientID   string
	actorID    string
	intent     game.Intent
	playerName string
	joinReply  chan joinResult
	connReply  chan bool
	snapReply  chan []byte
}

// Session owns one table's authoritative state. All intents, joins, and
// presence changes funnel through a single goroutine, so at most one engine
// transition per table is ever in flight.
type Session struct {
	name   string
	engine *game.Engine
	state  *game.TableState
	store  *store.Store
	emit   func(Event)
	log    slog.Logger
	cfg    Config

	requests chan request
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// active maps player id -> live connection, owned by the run loop.
	active           map[string]bool
	inactiveTurnName string

	idleTimer *time.Timer
	voteTimer *time.Timer

	now func() time.Time

	// Janitor-visible counters, updated by the run loop.
	playerCount atomic.Int32
	subscribers atomic.Int32
	lastTouched atomic.Int64

	// onEmpty is invoked (in its own goroutine) when the last player leaves
	// and the table returns to empty; the registry destroys the table.
	onEmpty func(name string)
}

// New creates a session for the given state. The state may come fresh from
// NewTableState or restored from disk; restored sessions start with nobody
// connected.
func New(st *game.TableState, str *store.Store, cfg Config, seed int64, emit func(Event), log slog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		name:      st.Name,
		engine:    game.NewEngine(rand.New(rand.NewSource(seed))),
		state:     st,
		store:     str,
		emit:      emit,
		log:       log,
		cfg:       cfg,
		requests:  make(chan request, 64),
		ctx:       ctx,
		cancel:    cancel,
		active:    make(map[string]bool),
		idleTimer: newStoppedTimer(),
		voteTimer: newStoppedTimer(),
		now:       time.Now,
	}
	s.playerCount.Store(int32(len(st.Players)))
	s.lastTouched.Store(s.now().Unix())
	return s
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return t
}

// Start launches the session's run loop.
func (s *Session) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run()
	}()
}

// Stop cancels the run loop and waits for the writer to drain.
func (s *Session) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Name returns the table name.
func (s *Session) Name() string { return s.name }

// PlayerCount reports how many players are seated.
func (s *Session) PlayerCount() int { return int(s.playerCount.Load()) }

// SubscriberCount reports how many connections are attached.
func (s *Session) SubscriberCount() int { return int(s.subscribers.Load()) }

// LastTouched reports when the session last handled anything.
func (s *Session) LastTouched() time.Time { return time.Unix(s.lastTouched.Load(), 0) }

// SubmitIntent enqueues a parsed intent from a connection. Rejections come
// back to the connection asynchronously via an IntentRejected event.
func (s *Session) SubmitIntent(clientID, actorID string, intent game.Intent) {
	select {
	case s.requests <- request{kind: reqIntent, clientID: clientID, actorID: actorID, intent: intent}:
	case <-s.ctx.Done():
	}
}

// Join seats a player (or reuses their seat by name) and returns their id.
func (s *Session) Join(playerName string) (string, *game.Error) {
	reply := make(chan joinResult, 1)
	select {
	case s.requests <- request{kind: reqJoin, playerName: playerName, joinReply: reply}:
	case <-s.ctx.Done():
		return "", game.NewError(game.KindInternal, "table %s is shutting down", s.name)
	}
	select {
	case res := <-reply:
		return res.playerID, res.err
	case <-s.ctx.Done():
		return "", game.NewError(game.KindInternal, "table %s is shutting down", s.name)
	}
}

// PlayerConnected records a live connection for a player id and reports
// whether it was accepted; a seat with a live connection refuses a second.
// The run loop arbitrates, so two simultaneous connects cannot both win.
// An empty id is a spectator and only counts as a subscriber.
func (s *Session) PlayerConnected(playerID string) bool {
	reply := make(chan bool, 1)
	select {
	case s.requests <- request{kind: reqConnect, actorID: playerID, connReply: reply}:
	case <-s.ctx.Done():
		return false
	}
	select {
	case accepted := <-reply:
		return accepted
	case <-s.ctx.Done():
		return false
	}
}

// PlayerDisconnected records a connection closing.
func (s *Session) PlayerDisconnected(playerID string) {
	s.enqueueControl(reqDisconnect, playerID)
}

func (s *Session) enqueueControl(kind requestKind, playerID string) {
	select {
	case s.requests <- request{kind: kind, actorID: playerID}:
	case <-s.ctx.Done():
	}
}

// IsPlayerConnected reports whether a player id already holds a live
// connection. Used to reject duplicate joins.
func (s *Session) IsPlayerConnected(playerID string) bool {
	reply := make(chan []byte, 1)
	select {
	case s.requests <- request{kind: reqSnapshot, actorID: playerID, snapReply: reply}:
	case <-s.ctx.Done():
		return false
	}
	select {
	case data := <-reply:
		var snap game.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return false
		}
		for _, id := range snap.ActivePlayerIDs {
			if id == playerID {
				return true
			}
		}
		return false
	case <-s.ctx.Done():
		return false
	}
}

// SnapshotJSON returns the current redacted snapshot.
func (s *Session) SnapshotJSON() []byte {
	reply := make(chan []byte, 1)
	select {
	case s.requests <- request{kind: reqSnapshot, snapReply: reply}:
	case <-s.ctx.Done():
		return nil
	}
	select {
	case data := <-reply:
		return data
	case <-s.ctx.Done():
		return nil
	}
}

func (s *Session) run() {
	s.scheduleTimers()
	for {
		select {
		case <-s.ctx.Done():
			return

		case req := <-s.requests:
			s.handleRequest(req)

		case <-s.idleTimer.C:
			s.handleIdleTurn()

		case <-s.voteTimer.C:
			s.handleVoteTimeout()
		}
		s.lastTouched.Store(s.now().Unix())
		s.playerCount.Store(int32(len(s.state.Players)))
		s.scheduleTimers()
	}
}

func (s *Session) handleRequest(req request) {
	switch req.kind {
	case reqIntent:
		s.handleIntent(req)
	case reqJoin:
		s.handleJoin(req)
	case reqConnect:
		if req.actorID != "" && s.active[req.actorID] {
			req.connReply <- false
			return
		}
		s.subscribers.Add(1)
		if req.actorID != "" {
			s.active[req.actorID] = true
			s.state.PlayerLastActive[req.actorID] = s.now().Unix()
			s.persist(s.state)
			s.broadcast()
		}
		req.connReply <- true
	case reqDisconnect:
		s.subscribers.Add(-1)
		if req.actorID != "" && s.active[req.actorID] {
			delete(s.active, req.actorID)
			s.broadcast()
		}
	case reqSnapshot:
		req.snapReply <- s.snapshotJSON()
	}
}

func (s *Session) env() game.Env {
	return game.Env{Now: s.now().Unix(), Active: s.active}
}

// handleIntent applies one intent against a clone of the state and commits
// the clone only once it has been persisted. A rejection or a persistence
// failure leaves the published state untouched.
func (s *Session) handleIntent(req request) {
	if req.actorID == "" {
		if _, ok := req.intent.(game.Heartbeat); ok {
			return
		}
		s.reject(req.clientID, game.NewError(game.KindNotAPlayer, "spectators may only send heartbeats"))
		return
	}

	next := s.state.Clone()
	if err := s.engine.Apply(next, req.actorID, req.intent, s.env()); err != nil {
		s.reject(req.clientID, err)
		return
	}
	if err := s.persist(next); err != nil {
		s.reject(req.clientID, err)
		return
	}
	s.state = next

	if _, ok := req.intent.(game.Heartbeat); ok {
		// Heartbeats refresh last-active without a broadcast.
		return
	}

	if cur := s.state.CurrentPlayer(); cur == nil || cur.ID == req.actorID || s.state.Phase != game.PhasePlay {
		s.inactiveTurnName = ""
	}
	s.broadcast()
	s.checkEmpty()
}

func (s *Session) handleJoin(req request) {
	name, verr := game.ValidatePlayerName(req.playerName)
	if verr != nil {
		req.joinReply <- joinResult{err: verr}
		return
	}

	if existing := s.state.PlayerByName(name); existing != nil {
		if s.active[existing.ID] {
			req.joinReply <- joinResult{err: game.NewError(game.KindAlreadyConnected, "player already connected elsewhere")}
			return
		}
		req.joinReply <- joinResult{playerID: existing.ID}
		s.broadcast()
		return
	}

	next := s.state.Clone()
	player, err := s.engine.AddPlayer(next, name, s.env())
	if err != nil {
		req.joinReply <- joinResult{err: err}
		return
	}
	playerID := player.ID
	if err := s.persist(next); err != nil {
		req.joinReply <- joinResult{err: err}
		return
	}
	s.state = next
	req.joinReply <- joinResult{playerID: playerID}
	s.broadcast()
}

// handleIdleTurn forces the minimum legal action for a player who let their
// turn sit past the idle timeout.
func (s *Session) handleIdleTurn() {
	player := s.state.CurrentPlayer()
	if s.state.Phase != game.PhasePlay || player == nil {
		return
	}
	deadline := time.Unix(s.state.PlayerLastActive[player.ID], 0).Add(s.cfg.IdleTurnTimeout)
	if s.now().Before(deadline) {
		return
	}

	next := s.state.Clone()
	if err := s.engine.ForcedTurn(next, s.env()); err != nil {
		s.log.Warnf("Table %s: forced turn for %s failed: %v", s.name, player.Name, err)
		return
	}
	next.PlayerLastActive[player.ID] = s.now().Unix()
	if err := s.persist(next); err != nil {
		return
	}
	s.state = next
	s.inactiveTurnName = player.Name
	s.log.Infof("Table %s: forced idle turn for %s", s.name, player.Name)
	s.broadcast()
}

// handleVoteTimeout cancels a restart vote nobody resolved in time.
func (s *Session) handleVoteTimeout() {
	if s.state.RestartRequestedBy == "" {
		return
	}
	deadline := time.Unix(s.state.RestartRequestedAt, 0).Add(s.cfg.RestartVoteTimeout)
	if s.now().Before(deadline) {
		return
	}

	next := s.state.Clone()
	if err := s.engine.Apply(next, next.RestartRequestedBy, game.VoteRestartNo{}, s.env()); err != nil {
		s.log.Warnf("Table %s: cancelling expired restart vote failed: %v", s.name, err)
		return
	}
	if err := s.persist(next); err != nil {
		return
	}
	s.state = next
	s.log.Infof("Table %s: restart vote expired", s.name)
	s.broadcast()
}

func (s *Session) scheduleTimers() {
	stopTimer(s.idleTimer)
	// The idle countdown only runs while someone is connected to watch it;
	// a fully abandoned table must not play itself to completion.
	if s.state.Phase == game.PhasePlay && len(s.active) > 0 {
		if player := s.state.CurrentPlayer(); player != nil {
			deadline := time.Unix(s.state.PlayerLastActive[player.ID], 0).Add(s.cfg.IdleTurnTimeout)
			s.idleTimer.Reset(maxDuration(deadline.Sub(s.now()), 0))
		}
	}

	stopTimer(s.voteTimer)
	if s.state.RestartRequestedBy != "" {
		deadline := time.Unix(s.state.RestartRequestedAt, 0).Add(s.cfg.RestartVoteTimeout)
		s.voteTimer.Reset(maxDuration(deadline.Sub(s.now()), 0))
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func maxDuration(d, floor time.Duration) time.Duration {
	if d < floor {
		return floor
	}
	return d
}

// persist writes the state to disk; on failure the intent is treated as
// rejected with kind internal and the in-memory state stays as it was.
func (s *Session) persist(st *game.TableState) *game.Error {
	if err := s.store.Save(st); err != nil {
		s.log.Errorf("Table %s: snapshot write failed: %v", s.name, err)
		s.log.Debugf("Table %s state at failure:\n%s", s.name, litter.Sdump(st))
		return game.NewError(game.KindInternal, "failed to persist table state")
	}
	return nil
}

func (s *Session) activeIDs() []string {
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	return ids
}

func (s *Session) snapshotJSON() []byte {
	snap := game.BuildSnapshot(s.state, s.activeIDs(), s.inactiveTurnName)
	data, err := json.Marshal(snap)
	if err != nil {
		s.log.Errorf("Table %s: snapshot marshal failed: %v", s.name, err)
		return []byte(`{}`)
	}
	return data
}

func (s *Session) broadcast() {
	s.emit(SnapshotUpdated{TableName: s.name, Data: s.snapshotJSON()})
}

func (s *Session) reject(clientID string, err *game.Error) {
	if clientID == "" {
		return
	}
	s.emit(IntentRejected{TableName: s.name, ClientID: clientID, Err: err})
}

// checkEmpty triggers table destruction once the last player has left and
// the phase is back to empty.
func (s *Session) checkEmpty() {
	if s.state.Phase == game.PhaseEmpty && len(s.state.Players) == 0 && s.onEmpty != nil {
		go s.onEmpty(s.name)
	}
}
