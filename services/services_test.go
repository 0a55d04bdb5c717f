package services

import (
	"context"
	"errors"
	"testing"

	"github.com/wfunc/typerace/models"
	"github.com/wfunc/typerace/persistence"
)

type MockPublisher struct {
	keys []string
	err  error
}

func (m *MockPublisher) PublishGameFinished(ctx context.Context, sessionKey string, result *models.FinalizedResult) error {
	m.keys = append(m.keys, sessionKey)
	return m.err
}

type failingDatabase struct {
	persistence.MemoryDatabase
}

func (f *failingDatabase) RecordSession(ctx context.Context, rec *models.SessionRecord) (string, error) {
	return "", errors.New("connection refused")
}

func finished() *models.FinalizedResult {
	return &models.FinalizedResult{
		RoomCode:      "ABC234",
		SnippetLength: 8,
		FinishedAtMs:  1_700_000_000_000,
		PerPlayer: []models.PlayerResult{
			{UserID: "b", WPM: 80, Accuracy: 99, CharsTyped: 8},
			{UserID: "h", WPM: 60, Accuracy: 95, CharsTyped: 8},
		},
	}
}

func TestResultService_RecordsAndPublishes(t *testing.T) {
	db := persistence.NewMemoryDatabase()
	pub := &MockPublisher{}
	svc := NewResultService(db, pub, nil)

	key, err := svc.Record(context.Background(), finished())
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if db.Sessions() != 1 {
		t.Errorf("Expected one stored session, got %d", db.Sessions())
	}
	if len(pub.keys) != 1 || pub.keys[0] != key {
		t.Errorf("Expected publish of %s, got %v", key, pub.keys)
	}

	stats, err := NewStatsService(db).UserStats(context.Background(), "h")
	if err != nil || stats.Games != 1 || stats.BestWPM != 60 {
		t.Errorf("unexpected stats %+v, %v", stats, err)
	}
}

func TestResultService_PublishFailureKeepsKey(t *testing.T) {
	pub := &MockPublisher{err: errors.New("nats down")}
	svc := NewResultService(persistence.NewMemoryDatabase(), pub, nil)

	key, err := svc.Record(context.Background(), finished())
	if err != nil || key == "" {
		t.Errorf("a stored game should succeed even if publishing fails, got %q, %v", key, err)
	}
}

func TestResultService_StoreFailure(t *testing.T) {
	pub := &MockPublisher{}
	svc := NewResultService(&failingDatabase{}, pub, nil)

	if _, err := svc.Record(context.Background(), finished()); err == nil {
		t.Fatal("Expected an error when the database fails")
	}
	if len(pub.keys) != 0 {
		t.Error("nothing should be published for an unstored game")
	}
}

func TestStatsService_UnknownUser(t *testing.T) {
	stats, err := NewStatsService(persistence.NewMemoryDatabase()).UserStats(context.Background(), "ghost")
	if err != nil {
		t.Fatal(err)
	}
	if stats.UserID != "ghost" || stats.Games != 0 {
		t.Errorf("Expected empty stats, got %+v", stats)
	}
}
