package persistence

import (
	"context"
	"sync"

	"github.com/wfunc/typerace/models"
)

type memoryRow struct {
	key    string
	record models.SessionRecord
}

// MemoryDatabase keeps records for the life of the process.
type MemoryDatabase struct {
	rows  []memoryRow
	mutex sync.RWMutex
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{}
}

func (m *MemoryDatabase) RecordSession(ctx context.Context, rec *models.SessionRecord) (string, error) {
	key := newSessionKey()

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rows = append(m.rows, memoryRow{key: key, record: *rec})
	return key, nil
}

func (m *MemoryDatabase) UserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var acc statsAccumulator
	for _, row := range m.rows {
		if wpm, ok := row.record.WPM[userID]; ok {
			acc.add(wpm, row.record.Accuracy[userID])
		}
	}
	return acc.result(userID)
}

// Sessions returns how many games have been recorded.
func (m *MemoryDatabase) Sessions() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rows)
}

func (m *MemoryDatabase) Close() error {
	return nil
}
