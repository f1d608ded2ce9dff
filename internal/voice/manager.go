package voice

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Conn is the part of a WebSocket connection the manager needs.
type Conn interface {
	Close(code websocket.StatusCode, reason string) error
}

// Manager tracks one live voice connection per user and book.
type Manager struct {
	mu     sync.RWMutex
	active map[string]map[string]Conn
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{active: make(map[string]map[string]Conn)}
}

// Active returns the live connection for a user's book.
func (m *Manager) Active(userID, bookID string) Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if books, ok := m.active[userID]; ok {
		return books[bookID]
	}
	return nil
}

// Register adds conn, closing any connection it replaces.
func (m *Manager) Register(userID, bookID string, conn Conn) {
	m.mu.Lock()
	if _, ok := m.active[userID]; !ok {
		m.active[userID] = make(map[string]Conn)
	}
	existing := m.active[userID][bookID]
	m.active[userID][bookID] = conn
	m.mu.Unlock()

	// Closing waits for the peer's handshake, so it happens outside the lock.
	if existing != nil && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "voice session replaced")
	}
	slog.Info("Voice session registered", "user_id", userID, "book_id", bookID)
}

// Unregister removes conn if it is still the current connection.
func (m *Manager) Unregister(userID, bookID string, conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	books, ok := m.active[userID]
	if !ok {
		return
	}
	if current, exists := books[bookID]; exists && current == conn {
		delete(books, bookID)
		if len(books) == 0 {
			delete(m.active, userID)
		}
		slog.Info("Voice session unregistered", "user_id", userID, "book_id", bookID)
	}
}

// CloseUser terminates every voice session of a user.
func (m *Manager) CloseUser(userID string) {
	m.mu.Lock()
	books := m.active[userID]
	delete(m.active, userID)
	m.mu.Unlock()

	for bookID, conn := range books {
		_ = conn.Close(websocket.StatusNormalClosure, "voice session closed")
		slog.Info("Voice session closed", "user_id", userID, "book_id", bookID)
	}
}

// Count is the number of live connections.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, books := range m.active {
		n += len(books)
	}
	return n
}
