// services/result_service.go
package services

import (
	"context"
	"fmt"

	"github.com/wfunc/typerace/logger"
	"github.com/wfunc/typerace/models"
	"github.com/wfunc/typerace/monitor"
	"github.com/wfunc/typerace/persistence"
)

// EventPublisher announces recorded games to other services.
type EventPublisher interface {
	PublishGameFinished(ctx context.Context, sessionKey string, result *models.FinalizedResult) error
}

// ResultService is the score sink rooms report finished games to.
type ResultService struct {
	db        persistence.Database
	publisher EventPublisher
	monitor   *monitor.Monitor
}

// NewResultService accepts a nil publisher when events are disabled.
func NewResultService(db persistence.Database, publisher EventPublisher, m *monitor.Monitor) *ResultService {
	return &ResultService{
		db:        db,
		publisher: publisher,
		monitor:   m,
	}
}

// Record stores the game and then publishes it. A publish failure is logged
// but does not fail the call, since the game is already stored.
func (s *ResultService) Record(ctx context.Context, result *models.FinalizedResult) (string, error) {
	rec := models.NewSessionRecord(result)

	key, err := s.db.RecordSession(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("record session for room %s: %w", result.RoomCode, err)
	}
	s.monitor.IncGamesCompleted()

	if s.publisher != nil {
		if err := s.publisher.PublishGameFinished(ctx, key, result); err != nil {
			logger.Log.Warnf("Room %s: session %s stored but not published: %v", result.RoomCode, key, err)
		}
	}

	return key, nil
}
