// session/session.go
package session

import (
	"sync"

	"github.com/wfunc/typerace/network"
)

// Session binds one live connection to the identity the client claimed
// when connecting. The identity is asserted, not verified.
type Session struct {
	ID          string
	Conn        network.Connection
	UserID      string
	DisplayName string
	RoomCode    string
}

func NewSession(id string, conn network.Connection, userID, displayName, roomCode string) *Session {
	return &Session{
		ID:          id,
		Conn:        conn,
		UserID:      userID,
		DisplayName: displayName,
		RoomCode:    roomCode,
	}
}

func (s *Session) Send(data []byte) error {
	return s.Conn.Send(data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager tracks every open session on this server regardless of room.
// Room membership lives in each room's own table, never here.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// CloseAll closes every tracked connection, used on shutdown.
func (m *Manager) CloseAll() {
	m.mutex.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mutex.RUnlock()

	for _, s := range sessions {
		s.Close()
	}
}
