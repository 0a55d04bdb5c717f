package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/wfunc/typerace/models"
)

func TestMemoryRoomCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRoomCache(clockwork.NewFakeClock())

	meta := &models.RoomMeta{Code: "ABC234", CreatedBy: "u1"}
	if err := store.SetMeta(ctx, meta, time.Hour); err != nil {
		t.Fatalf("SetMeta failed: %v", err)
	}

	got, err := store.GetMeta(ctx, "ABC234")
	if err != nil || got == nil {
		t.Fatalf("GetMeta = %v, %v", got, err)
	}
	if got.CreatedBy != "u1" {
		t.Errorf("Expected creator u1, got %s", got.CreatedBy)
	}

	got.CreatedBy = "changed"
	again, _ := store.GetMeta(ctx, "ABC234")
	if again.CreatedBy != "u1" {
		t.Error("GetMeta should return a copy")
	}

	missing, err := store.GetMeta(ctx, "ZZZZZZ")
	if missing != nil || err != nil {
		t.Errorf("unknown code should be nil, nil; got %v, %v", missing, err)
	}
}

func TestMemoryRoomCache_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	store := NewMemoryRoomCache(clock)

	store.SetMeta(ctx, &models.RoomMeta{Code: "ABC234"}, 2*time.Hour)

	clock.Advance(2*time.Hour - time.Second)
	if ok, _ := store.Exists(ctx, "ABC234"); !ok {
		t.Fatal("record should still exist just before the TTL")
	}

	clock.Advance(time.Second)
	if ok, _ := store.Exists(ctx, "ABC234"); ok {
		t.Error("record should be gone at the TTL")
	}
}

func TestMemoryRoomCache_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRoomCache(clockwork.NewFakeClock())
	store.SetMeta(ctx, &models.RoomMeta{Code: "ABC234"}, time.Hour)

	if err := store.Delete(ctx, "ABC234"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if ok, _ := store.Exists(ctx, "ABC234"); ok {
		t.Error("record should be deleted")
	}
}
