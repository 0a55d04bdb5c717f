// models/models.go
package models

import (
	"time"
)

// PlayerResult is one participant's line in a finished game.
type PlayerResult struct {
	UserID      string  `json:"userId"`
	DisplayName string  `json:"username"`
	WPM         float64 `json:"wpm"`
	Accuracy    float64 `json:"accuracy"`
	CharsTyped  int     `json:"charsTyped"`
	ElapsedMs   int64   `json:"time"`
}

// FinalizedResult is produced once per completed game cycle. PerPlayer is
// sorted by WPM descending, ties in join order.
type FinalizedResult struct {
	RoomCode      string         `json:"roomCode"`
	PerPlayer     []PlayerResult `json:"perPlayer"`
	SnippetLength int            `json:"snippetLength"`
	FinishedAtMs  int64          `json:"finishedAtMs"`
}

// SessionRecord is the shape a score sink stores for one finished game.
type SessionRecord struct {
	RoomCode       string             `json:"roomCode" bson:"roomCode"`
	ParticipantIDs []string           `json:"participants" bson:"participants"`
	WPM            map[string]float64 `json:"wpm" bson:"wpm"`
	Accuracy       map[string]float64 `json:"accuracy" bson:"accuracy"`
	CharsTyped     map[string]int     `json:"charsTyped" bson:"charsTyped"`
	TotalChars     int                `json:"totalChars" bson:"totalChars"`
	Timestamp      time.Time          `json:"timestamp" bson:"timestamp"`
}

// NewSessionRecord flattens a finalized result into per-user maps.
func NewSessionRecord(result *FinalizedResult) *SessionRecord {
	rec := &SessionRecord{
		RoomCode:       result.RoomCode,
		ParticipantIDs: make([]string, 0, len(result.PerPlayer)),
		WPM:            make(map[string]float64, len(result.PerPlayer)),
		Accuracy:       make(map[string]float64, len(result.PerPlayer)),
		CharsTyped:     make(map[string]int, len(result.PerPlayer)),
		TotalChars:     result.SnippetLength,
		Timestamp:      time.UnixMilli(result.FinishedAtMs).UTC(),
	}
	for _, p := range result.PerPlayer {
		rec.ParticipantIDs = append(rec.ParticipantIDs, p.UserID)
		rec.WPM[p.UserID] = p.WPM
		rec.Accuracy[p.UserID] = p.Accuracy
		rec.CharsTyped[p.UserID] = p.CharsTyped
	}
	return rec
}

// RoomMeta is the record created with a room code. It stops resolving
// once ExpiresAt has passed.
type RoomMeta struct {
	Code      string    `json:"code"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UserStats summarizes every recorded game of one user.
type UserStats struct {
	UserID          string  `json:"userId"`
	Games           int     `json:"games"`
	BestWPM         float64 `json:"bestWpm"`
	AverageWPM      float64 `json:"averageWpm"`
	AverageAccuracy float64 `json:"averageAccuracy"`
}
