// persistence/interface.go
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/wfunc/typerace/config"
	"github.com/wfunc/typerace/models"
)

// Database 数据库接口
// RecordSession stores one finished game and returns its session key.
type Database interface {
	RecordSession(ctx context.Context, rec *models.SessionRecord) (string, error)
	UserStats(ctx context.Context, userID string) (*models.UserStats, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUnknownDriver  = errors.New("unknown database driver")
)

// Open connects the backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Database, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryDatabase(), nil
	case "gorm":
		return NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "postgres":
		return NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "mongo":
		return NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}

func newSessionKey() string {
	return uuid.NewString()
}

// statsAccumulator folds a user's rows into UserStats.
type statsAccumulator struct {
	stats       models.UserStats
	wpmSum      float64
	accuracySum float64
}

func (a *statsAccumulator) add(wpm, accuracy float64) {
	a.stats.Games++
	a.wpmSum += wpm
	a.accuracySum += accuracy
	if wpm > a.stats.BestWPM {
		a.stats.BestWPM = wpm
	}
}

func (a *statsAccumulator) result(userID string) (*models.UserStats, error) {
	if a.stats.Games == 0 {
		return nil, ErrRecordNotFound
	}
	stats := a.stats
	stats.UserID = userID
	stats.AverageWPM = a.wpmSum / float64(stats.Games)
	stats.AverageAccuracy = a.accuracySum / float64(stats.Games)
	return &stats, nil
}
