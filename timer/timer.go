// timer/timer.go
package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TimerManager runs one-shot callbacks on a clock and remembers the pending
// ones so an owner can drop them all at once.
type TimerManager struct {
	clock  clockwork.Clock
	timers map[int64]clockwork.Timer
	mutex  sync.Mutex
	nextId int64
	closed bool
}

func NewTimerManager(clock clockwork.Clock) *TimerManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TimerManager{
		clock:  clock,
		timers: make(map[int64]clockwork.Timer),
		nextId: 1,
	}
}

// AddTimer schedules callback after delay on its own goroutine. It reports
// false once the manager is stopped.
func (m *TimerManager) AddTimer(delay time.Duration, callback func()) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed {
		return false
	}

	id := m.nextId
	m.nextId++
	m.timers[id] = m.clock.AfterFunc(delay, func() {
		m.mutex.Lock()
		_, pending := m.timers[id]
		delete(m.timers, id)
		m.mutex.Unlock()

		if pending {
			callback()
		}
	})
	return true
}

// Stop cancels every pending callback and rejects new ones.
func (m *TimerManager) Stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.closed = true
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
}
