package services

import (
	"context"
	"errors"

	"github.com/wfunc/typerace/models"
	"github.com/wfunc/typerace/persistence"
)

type StatsService struct {
	db persistence.Database
}

func NewStatsService(db persistence.Database) *StatsService {
	return &StatsService{db: db}
}

// UserStats returns zeroed stats for a user with no recorded games.
func (s *StatsService) UserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	stats, err := s.db.UserStats(ctx, userID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return &models.UserStats{UserID: userID}, nil
	}
	return stats, err
}
