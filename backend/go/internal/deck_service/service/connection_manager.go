package service

import (
	"sync"
)

// Conn is a live client connection; *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// ConnectionManager tracks the live connections watching each presentation.
type ConnectionManager struct {
	connections map[string]map[Conn]*sync.Mutex
	mu          sync.RWMutex
}

// NewConnectionManager creates a new ConnectionManager.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]map[Conn]*sync.Mutex),
	}
}

// Add registers a connection and reports whether it is the first one for
// the presentation.
func (m *ConnectionManager) Add(presentationID string, conn Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns, ok := m.connections[presentationID]
	if !ok {
		conns = make(map[Conn]*sync.Mutex)
		m.connections[presentationID] = conns
	}
	conns[conn] = &sync.Mutex{}
	return len(conns) == 1
}

// Remove closes and forgets a connection and reports whether it was the
// last one for the presentation.
func (m *ConnectionManager) Remove(presentationID string, conn Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns, ok := m.connections[presentationID]
	if !ok {
		return false
	}
	if _, ok := conns[conn]; !ok {
		return false
	}
	conn.Close()
	delete(conns, conn)
	if len(conns) == 0 {
		delete(m.connections, presentationID)
		return true
	}
	return false
}

// Count returns the number of connections watching a presentation.
func (m *ConnectionManager) Count(presentationID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections[presentationID])
}

// Broadcast sends v to every connection of a presentation and returns how
// many writes succeeded. Writes to one connection are serialized.
func (m *ConnectionManager) Broadcast(presentationID string, v interface{}) int {
	m.mu.RLock()
	targets := make(map[Conn]*sync.Mutex, len(m.connections[presentationID]))
	for c, lock := range m.connections[presentationID] {
		targets[c] = lock
	}
	m.mu.RUnlock()

	sent := 0
	for c, lock := range targets {
		lock.Lock()
		err := c.WriteJSON(v)
		lock.Unlock()
		if err == nil {
			sent++
		}
	}
	return sent
}
