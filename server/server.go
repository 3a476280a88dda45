package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lazharichir/playnine/config"
	"github.com/lazharichir/playnine/game"
	"github.com/lazharichir/playnine/logging"
	"github.com/lazharichir/playnine/server/connection"
	"github.com/lazharichir/playnine/server/events"
	"github.com/lazharichir/playnine/server/handlers"
	"github.com/lazharichir/playnine/session"
	"github.com/lazharichir/playnine/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, implement proper origin checks
	},
}

const pingInterval = 30 * time.Second

// Server wires the HTTP surface to the registry, sessions, and hub.
type Server struct {
	cfg      *config.Config
	registry *session.Registry
	connMgr  *connection.Manager
	router   *handlers.IntentRouter
	log      slog.Logger
}

// JoinRequest is the body of POST /play9/join. An empty player name joins
// as a spectator view.
type JoinRequest struct {
	TableName  string `json:"table_name"`
	PlayerName string `json:"player_name,omitempty"`
}

// JoinResponse is the success body of POST /play9/join.
type JoinResponse struct {
	TableName string `json:"table_name"`
	PlayerID  string `json:"player_id,omitempty"`
}

// LeaveRequest is the body of POST /play9/leave.
type LeaveRequest struct {
	TableName string `json:"table_name"`
	PlayerID  string `json:"player_id"`
}

// New builds the full server: store, registry, hub, dispatcher, router.
func New(cfg *config.Config, logs *logging.Backend) (*Server, error) {
	str, err := store.New(cfg.SnapshotDir, logs.Logger("STOR"))
	if err != nil {
		return nil, err
	}

	connMgr := connection.NewManager()
	dispatcher := events.NewDispatcher(connMgr, logs.Logger("HUB"))

	sessCfg := session.Config{
		IdleTurnTimeout:    cfg.IdleTurnTimeout,
		RestartVoteTimeout: cfg.RestartVoteTimeout,
	}
	registry := session.NewRegistry(str, sessCfg, cfg.Seed, dispatcher.HandleEvent, logs.Logger("SESS"))

	return &Server{
		cfg:      cfg,
		registry: registry,
		connMgr:  connMgr,
		router:   handlers.NewIntentRouter(registry),
		log:      logs.Logger("SRVR"),
	}, nil
}

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// Start restores persisted tables, launches the janitor, and serves until
// the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if err := s.registry.Restore(); err != nil {
		return err
	}
	go s.registry.RunJanitor(ctx, s.cfg.JanitorInterval)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /play9", s.handleLobbyPage)
	mux.HandleFunc("GET /play9/table/{name}", s.handleTablePage)
	mux.HandleFunc("GET /play9/player/{name}", s.handlePlayerPage)
	mux.HandleFunc("POST /play9/join", corsMiddleware(s.handleJoin))
	mux.HandleFunc("POST /play9/leave", corsMiddleware(s.handleLeave))
	mux.HandleFunc("GET /play9/api/table/{name}", corsMiddleware(s.handleTableState))
	mux.HandleFunc("/play9/ws/{name}", s.handleWebSocket)
	mux.Handle("/play9/static/", http.StripPrefix("/play9/static/", http.FileServer(http.Dir(s.cfg.StaticDir))))

	s.log.Infof("Listening on %s", s.cfg.Bind())
	return http.ListenAndServe(s.cfg.Bind(), mux)
}

// Shutdown stops every session, draining their writers.
func (s *Server) Shutdown() {
	s.registry.StopAll()
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request, page string) {
	path := filepath.Join(s.cfg.StaticDir, page)
	if _, err := os.Stat(path); err == nil {
		http.ServeFile(w, r, path)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte("<!doctype html><title>Play Nine</title><p>Client assets not installed.</p>"))
}

func (s *Server) handleLobbyPage(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, r, "lobby.html")
}

func (s *Server) handleTablePage(w http.ResponseWriter, r *http.Request) {
	if _, err := game.ValidateTableName(r.PathValue("name")); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.servePage(w, r, "table.html")
}

func (s *Server) handlePlayerPage(w http.ResponseWriter, r *http.Request) {
	if _, err := game.ValidateTableName(r.PathValue("name")); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.servePage(w, r, "player.html")
}

func writeError(w http.ResponseWriter, status int, err *game.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": err.Msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, game.NewError(game.KindInvalidInput, "invalid request body"))
		return
	}
	tableName, verr := game.ValidateTableName(req.TableName)
	if verr != nil {
		writeError(w, http.StatusBadRequest, verr)
		return
	}

	sess := s.registry.GetOrCreate(tableName)

	if req.PlayerName == "" {
		// Table view only; no seat taken.
		writeJSON(w, JoinResponse{TableName: tableName})
		return
	}

	playerID, err := sess.Join(req.PlayerName)
	if err != nil {
		status := http.StatusBadRequest
		if err.Kind == game.KindInternal {
			status = http.StatusInternalServerError
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, JoinResponse{TableName: tableName, PlayerID: playerID})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	var req LeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, game.NewError(game.KindInvalidInput, "invalid request body"))
		return
	}
	tableName, verr := game.ValidateTableName(req.TableName)
	if verr != nil {
		writeError(w, http.StatusBadRequest, verr)
		return
	}

	// Idempotent: leaving an unknown table or an unknown seat is fine.
	if sess, ok := s.registry.Get(tableName); ok {
		sess.SubmitIntent("", req.PlayerID, game.Leave{})
	}
	writeJSON(w, map[string]bool{"ok": true})
}

func (s *Server) handleTableState(w http.ResponseWriter, r *http.Request) {
	tableName, verr := game.ValidateTableName(r.PathValue("name"))
	if verr != nil {
		writeError(w, http.StatusBadRequest, verr)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if sess, ok := s.registry.Get(tableName); ok {
		w.Write(sess.SnapshotJSON())
		return
	}
	snap := game.BuildSnapshot(game.NewTableState(tableName), nil, "")
	json.NewEncoder(w).Encode(snap)
}

// handleWebSocket upgrades a connection and attaches it to its table as a
// player (id query parameter) or spectator.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	tableName, verr := game.ValidateTableName(r.PathValue("name"))
	if verr != nil {
		writeError(w, http.StatusBadRequest, verr)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("Error upgrading to WebSocket: %v", err)
		return
	}

	playerID := r.URL.Query().Get("id")
	sess := s.registry.GetOrCreate(tableName)

	// A player may hold at most one live connection. The session's writer
	// arbitrates, so two simultaneous upgrades cannot both claim the seat.
	if !sess.PlayerConnected(playerID) {
		rejection, _ := json.Marshal(game.NewError(game.KindAlreadyConnected, "player already connected elsewhere"))
		conn.WriteMessage(websocket.TextMessage, rejection)
		conn.Close()
		return
	}

	client := &connection.Client{
		ID:        uuid.NewString(),
		Conn:      conn,
		Send:      make(chan []byte, 256),
		TableName: tableName,
		PlayerID:  playerID,
	}
	s.connMgr.Register(client)
	s.log.Debugf("Client %s connected to table %s (player %q)", client.ID, tableName, playerID)

	// Seed the new subscriber with the current snapshot.
	client.Send <- sess.SnapshotJSON()

	go s.readPump(client)
	go s.writePump(client)
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(client *connection.Client) {
	defer func() {
		s.connMgr.Unregister(client)
		if sess, ok := s.registry.Get(client.TableName); ok {
			sess.PlayerDisconnected(client.PlayerID)
		}
		client.Conn.Close()
	}()

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Debugf("Client %s read error: %v", client.ID, err)
			}
			break
		}

		if rejection := s.router.HandleMessage(client, message); rejection != nil {
			data, err := json.Marshal(rejection)
			if err != nil {
				continue
			}
			select {
			case client.Send <- data:
			default:
			}
		}
	}
}

// writePump sends messages to the WebSocket connection and keeps it alive
// with periodic pings.
func (s *Server) writePump(client *connection.Client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.log.Debugf("Client %s write error: %v", client.ID, err)
				return
			}

		case <-ticker.C:
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
