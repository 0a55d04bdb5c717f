package session

import (
	"net"
	"testing"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	sent   [][]byte
	closed bool
}

func (m *MockConnection) Send(data []byte) error       { m.sent = append(m.sent, data); return nil }
func (m *MockConnection) ReadMessage() ([]byte, error) { return nil, nil }
func (m *MockConnection) Close() error                 { m.closed = true; return nil }
func (m *MockConnection) RemoteAddr() net.Addr         { return &net.TCPAddr{} }

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil {
		t.Fatal("NewManager should initialize the sessions map")
	}
}

func TestManager_Add_Remove(t *testing.T) {
	manager := NewManager()
	sessionID := "test_session_1"
	sess := NewSession(sessionID, &MockConnection{}, "u1", "alice", "ABCDEF")

	manager.Add(sess)
	if manager.Count() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Count())
	}

	if manager.sessions[sessionID] != sess {
		t.Fatal("Add should store the session under its ID")
	}

	manager.Remove(sessionID)
	if manager.Count() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Count())
	}
}

func TestManager_CloseAll(t *testing.T) {
	manager := NewManager()
	c1, c2 := &MockConnection{}, &MockConnection{}
	manager.Add(NewSession("s1", c1, "u1", "a", "R1"))
	manager.Add(NewSession("s2", c2, "u2", "b", "R1"))

	manager.CloseAll()

	if !c1.closed || !c2.closed {
		t.Error("CloseAll should close every connection")
	}
}

func TestSession_Send(t *testing.T) {
	conn := &MockConnection{}
	sess := NewSession("s1", conn, "u1", "alice", "R1")

	if err := sess.Send([]byte("hi")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(conn.sent) != 1 || string(conn.sent[0]) != "hi" {
		t.Errorf("Expected one frame 'hi', got %q", conn.sent)
	}
}
