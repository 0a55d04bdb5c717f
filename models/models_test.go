package models

import "testing"

func TestNewSessionRecord(t *testing.T) {
	result := &FinalizedResult{
		RoomCode: "ABCDEF",
		PerPlayer: []PlayerResult{
			{UserID: "b", WPM: 80, Accuracy: 98, CharsTyped: 40},
			{UserID: "h", WPM: 60, Accuracy: 91.5, CharsTyped: 38},
		},
		SnippetLength: 40,
		FinishedAtMs:  1700000000123,
	}

	rec := NewSessionRecord(result)

	if rec.RoomCode != "ABCDEF" || rec.TotalChars != 40 {
		t.Errorf("unexpected header fields: %+v", rec)
	}
	if len(rec.ParticipantIDs) != 2 || rec.ParticipantIDs[0] != "b" || rec.ParticipantIDs[1] != "h" {
		t.Errorf("participants should keep result order, got %v", rec.ParticipantIDs)
	}
	if rec.WPM["h"] != 60 || rec.Accuracy["h"] != 91.5 || rec.CharsTyped["b"] != 40 {
		t.Errorf("per-user maps wrong: %+v", rec)
	}
	if rec.Timestamp.UnixMilli() != 1700000000123 {
		t.Errorf("timestamp mismatch: %v", rec.Timestamp)
	}
}
