package cache

import (
	"context"
	"time"

	"github.com/wfunc/typerace/models"
)

// RoomCache stores room records by code. A record past its TTL behaves as
// if it was never written.
type RoomCache interface {
	SetMeta(ctx context.Context, meta *models.RoomMeta, ttl time.Duration) error
	// GetMeta returns nil, nil when the code is unknown or expired.
	GetMeta(ctx context.Context, code string) (*models.RoomMeta, error)
	Exists(ctx context.Context, code string) (bool, error)
	Delete(ctx context.Context, code string) error
}
