package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"trivia-room-service/internal/domain"
)

func TestRoomStoreSetsAndClearsLivenessKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRoomStore(client, time.Minute)

	room, err := store.Create("host-1", sampleBank().Questions, domain.DefaultSettings())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !mr.Exists("room:live:" + room.Code()) {
		t.Fatalf("expected redis liveness key to be set")
	}
	if _, ok := store.Get(room.Code()); !ok {
		t.Fatalf("expected room retrievable")
	}

	store.Delete(room.Code())
	if mr.Exists("room:live:" + room.Code()) {
		t.Fatalf("expected redis liveness key to be removed")
	}
}
