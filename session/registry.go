package session

import (
	"context"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/lazharichir/playnine/game"
	"github.com/lazharichir/playnine/store"
)

// Registry maps table names to their sessions. Its lock guards creation and
// removal only; everything per-table goes through the session's own writer.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	store *store.Store
	cfg   Config
	seed  int64
	emit  func(Event)
	log   slog.Logger
}

// NewRegistry creates an empty registry. seed fixes every table's shuffle
// source when non-zero; zero derives a fresh seed per table.
func NewRegistry(str *store.Store, cfg Config, seed int64, emit func(Event), log slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		store:    str,
		cfg:      cfg,
		seed:     seed,
		emit:     emit,
		log:      log,
	}
}

func (r *Registry) seedFor() int64 {
	if r.seed != 0 {
		return r.seed
	}
	return time.Now().UnixNano()
}

// Restore scans the snapshot directory and revives every table found there.
// Restored sessions start with nobody connected.
func (r *Registry) Restore() error {
	names, err := r.store.List()
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		st, err := r.store.Load(name)
		if err != nil {
			r.log.Warnf("Skipping table %s: %v", name, err)
			continue
		}
		if st == nil {
			continue
		}
		s := New(st, r.store, r.cfg, r.seedFor(), r.emit, r.log)
		s.onEmpty = r.Destroy
		s.Start()
		r.sessions[name] = s
		r.log.Infof("Restored table %s (%d players, phase %s)", name, s.PlayerCount(), st.Phase)
	}
	return nil
}

// Get returns the session for a table name, if it exists.
func (r *Registry) Get(name string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[name]
	return s, ok
}

// GetOrCreate returns the session for a table, creating (and persisting) a
// fresh empty one on first touch.
func (r *Registry) GetOrCreate(name string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[name]; ok {
		return s
	}
	s := New(game.NewTableState(name), r.store, r.cfg, r.seedFor(), r.emit, r.log)
	s.onEmpty = r.Destroy
	s.Start()
	r.sessions[name] = s
	r.log.Infof("Created table %s", name)
	return s
}

// Destroy stops a table's session, deletes its snapshot file, and tells the
// hub to drop its subscribers.
func (r *Registry) Destroy(name string) {
	r.mu.Lock()
	s, ok := r.sessions[name]
	if ok {
		delete(r.sessions, name)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	s.Stop()
	if err := r.store.Delete(name); err != nil {
		r.log.Errorf("Deleting snapshot for table %s: %v", name, err)
	}
	r.emit(TableClosed{TableName: name})
	r.log.Infof("Destroyed table %s", name)
}

// StopAll stops every session without deleting snapshots. Used on shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
}

// RunJanitor destroys spectator-only tables that have sat idle for longer
// than the given interval. Tables with seated players are never reaped here;
// they fall to Destroy when their last player leaves.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reapIdle(interval)
		}
	}
}

func (r *Registry) reapIdle(idleAfter time.Duration) {
	r.mu.Lock()
	var stale []string
	for name, s := range r.sessions {
		if s.PlayerCount() == 0 && s.SubscriberCount() <= 0 && time.Since(s.LastTouched()) > idleAfter {
			stale = append(stale, name)
		}
	}
	r.mu.Unlock()

	for _, name := range stale {
		r.Destroy(name)
	}
}
