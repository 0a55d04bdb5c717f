package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wfunc/typerace/cache"
	"github.com/wfunc/typerace/logger"
	"github.com/wfunc/typerace/models"
	"github.com/wfunc/typerace/monitor"
	"github.com/wfunc/typerace/session"
)

const (
	DefaultRoomTTL      = 2 * time.Hour
	DefaultCodeAttempts = 10
)

type ManagerConfig struct {
	RoomTTL      time.Duration
	CodeAttempts int
	Room         Options
	Monitor      *monitor.Monitor
}

// --- 房间管理器 ---

// Manager 管理所有房间
// Room records live in the cache store; live rooms exist only in this process
// and are created on the first resolve of a valid code.
type Manager struct {
	rooms   map[string]*Room
	mutex   sync.RWMutex
	store   cache.RoomCache
	cfg     ManagerConfig
	clock   clockwork.Clock
	monitor *monitor.Monitor

	generateCode func() (string, error)
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager(store cache.RoomCache, cfg ManagerConfig) *Manager {
	if cfg.RoomTTL <= 0 {
		cfg.RoomTTL = DefaultRoomTTL
	}
	if cfg.CodeAttempts <= 0 {
		cfg.CodeAttempts = DefaultCodeAttempts
	}
	if cfg.Room.Clock == nil {
		cfg.Room.Clock = clockwork.NewRealClock()
	}
	return &Manager{
		rooms:   make(map[string]*Room),
		store:   store,
		cfg:     cfg,
		clock:   cfg.Room.Clock,
		monitor: cfg.Monitor,

		generateCode: GenerateCode,
	}
}

// CreateRoom allocates a code and stores its record for the room TTL.
func (m *Manager) CreateRoom(ctx context.Context, createdBy string) (*models.RoomMeta, error) {
	code, err := AllocateCode(ctx, m.generateCode, m.codeTaken, m.cfg.CodeAttempts)
	if err != nil {
		return nil, fmt.Errorf("allocate room code: %w", err)
	}

	now := m.clock.Now()
	meta := &models.RoomMeta{
		Code:      code,
		CreatedBy: createdBy,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.RoomTTL),
	}
	if err := m.store.SetMeta(ctx, meta, m.cfg.RoomTTL); err != nil {
		return nil, fmt.Errorf("store room %s: %w", code, err)
	}

	logger.Log.Infof("Room %s created by %s", code, createdBy)
	return meta, nil
}

// codeTaken treats a code as reserved while its record exists or while a
// room under it is still running past the record's TTL.
func (m *Manager) codeTaken(ctx context.Context, code string) (bool, error) {
	if _, live := m.GetRoom(code); live {
		return true, nil
	}
	return m.store.Exists(ctx, code)
}

// Record returns the stored record for a code, or ErrRoomNotFound.
func (m *Manager) Record(ctx context.Context, code string) (*models.RoomMeta, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return nil, ErrRoomNotFound
	}

	meta, err := m.store.GetMeta(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lookup room %s: %w", code, err)
	}
	if meta == nil {
		return nil, ErrRoomNotFound
	}
	return meta, nil
}

// Resolve returns the live room for a code whose record is still valid,
// starting it in the lobby if this process has not seen it yet.
func (m *Manager) Resolve(ctx context.Context, code string) (*Room, error) {
	meta, err := m.Record(ctx, code)
	if err != nil {
		return nil, err
	}
	code = meta.Code

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.rooms[code]; exists {
		return room, nil
	}

	room := NewRoom(code, m.cfg.Room)
	m.rooms[code] = room
	m.monitor.SetActiveRooms(len(m.rooms))
	logger.Log.Debugf("Room %s started", code)
	return room, nil
}

// Join resolves the code and admits the session. A room that closed between
// the two steps is replaced once.
func (m *Manager) Join(ctx context.Context, code string, s *session.Session) (*Room, error) {
	for attempt := 0; attempt < 2; attempt++ {
		room, err := m.Resolve(ctx, code)
		if err != nil {
			return nil, err
		}

		err = room.Join(s)
		if errors.Is(err, ErrRoomClosed) {
			m.forget(room)
			continue
		}
		if err != nil {
			return nil, err
		}
		return room, nil
	}
	return nil, ErrRoomClosed
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[NormalizeCode(code)]
	return room, exists
}

// ReleaseIfIdle tears the room down when it is empty and not in the middle
// of a countdown or result display.
func (m *Manager) ReleaseIfIdle(code string) bool {
	room, exists := m.GetRoom(code)
	if !exists {
		return false
	}
	if !room.CloseIfIdle() {
		return false
	}
	m.forget(room)
	logger.Log.Infof("Room %s released", room.ID)
	return true
}

// Sweep releases every idle room and returns how many went away.
func (m *Manager) Sweep() int {
	m.mutex.RLock()
	codes := make([]string, 0, len(m.rooms))
	for code := range m.rooms {
		codes = append(codes, code)
	}
	m.mutex.RUnlock()

	released := 0
	for _, code := range codes {
		if m.ReleaseIfIdle(code) {
			released++
		}
	}
	return released
}

// Run sweeps on every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := m.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := m.Sweep(); n > 0 {
				logger.Log.Debugf("Sweep released %d rooms", n)
			}
		}
	}
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// CloseAll stops every room, used on shutdown.
func (m *Manager) CloseAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for code, room := range m.rooms {
		room.Close()
		delete(m.rooms, code)
	}
	m.monitor.SetActiveRooms(0)
}

// forget 从管理器中移除并关闭一个房间
func (m *Manager) forget(room *Room) {
	room.Close()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if current, exists := m.rooms[room.ID]; exists && current == room {
		delete(m.rooms, room.ID)
	}
	m.monitor.SetActiveRooms(len(m.rooms))
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
