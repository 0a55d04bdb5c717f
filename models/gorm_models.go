// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormGameSession is one finished game.
type GormGameSession struct {
	gorm.Model
	SessionKey string              `gorm:"uniqueIndex;not null"`
	RoomCode   string              `gorm:"index;not null"`
	TotalChars int                 `gorm:"not null"`
	PlayedAt   time.Time           `gorm:"index;not null"`
	Results    []GormSessionResult `gorm:"foreignKey:SessionID"`
}

func (GormGameSession) TableName() string { return "game_sessions" }

// GormSessionResult is one participant's line of a game session.
type GormSessionResult struct {
	gorm.Model
	SessionID  uint    `gorm:"index;not null"`
	UserID     string  `gorm:"index;not null"`
	WPM        float64 `gorm:"not null"`
	Accuracy   float64 `gorm:"not null"`
	CharsTyped int     `gorm:"not null"`
}

func (GormSessionResult) TableName() string { return "session_results" }
