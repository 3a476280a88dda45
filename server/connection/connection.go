package connection

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Client represents one subscriber connection: either a player connection
// (PlayerID set) or a spectator view.
type Client struct {
	ID        string
	Conn      *websocket.Conn
	Send      chan []byte
	TableName string
	PlayerID  string
}

// Manager tracks every connection per table and fans snapshots out to them.
type Manager struct {
	mutex   sync.RWMutex
	clients map[string]*Client            // connection id -> client
	tables  map[string]map[string]*Client // table name -> connection id -> client
}

// NewManager creates a new connection manager.
func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]*Client),
		tables:  make(map[string]map[string]*Client),
	}
}

// Register attaches a client to its table's subscriber set.
func (m *Manager) Register(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.clients[client.ID] = client
	if m.tables[client.TableName] == nil {
		m.tables[client.TableName] = make(map[string]*Client)
	}
	m.tables[client.TableName][client.ID] = client
}

// Unregister detaches a client and closes its send channel.
func (m *Manager) Unregister(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.clients[client.ID]; !ok {
		return
	}
	delete(m.clients, client.ID)
	if subs := m.tables[client.TableName]; subs != nil {
		delete(subs, client.ID)
		if len(subs) == 0 {
			delete(m.tables, client.TableName)
		}
	}
	close(client.Send)
}

// SendToClient delivers a message to a single connection.
func (m *Manager) SendToClient(clientID string, message []byte) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	client, ok := m.clients[clientID]
	if !ok {
		return false
	}
	select {
	case client.Send <- message:
		return true
	default:
		// Slow consumer; drop rather than stall the caller.
		return false
	}
}

// BroadcastTable delivers a message to every subscriber of a table.
func (m *Manager) BroadcastTable(tableName string, message []byte) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, client := range m.tables[tableName] {
		select {
		case client.Send <- message:
		default:
		}
	}
}

// CloseTable force-closes every connection attached to a destroyed table.
func (m *Manager) CloseTable(tableName string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for id, client := range m.tables[tableName] {
		delete(m.clients, id)
		close(client.Send)
	}
	delete(m.tables, tableName)
}

// SubscriberCount reports how many connections a table currently has.
func (m *Manager) SubscriberCount(tableName string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.tables[tableName])
}
