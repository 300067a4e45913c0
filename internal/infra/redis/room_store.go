package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/game"
	"trivia-room-service/internal/infra/memory"
)

// RoomStore is a Redis-aware room registry.
// Notes:
//   - Room state itself stays in-process (the engine is not serializable
//     mid-flight and the service is single-instance by design), so this
//     wraps the in-memory store.
//   - Redis holds liveness markers per room code, which makes active codes
//     observable to ops tooling and could later back cross-instance routing.
type RoomStore struct {
	client *redis.Client
	ttl    time.Duration
	inner  *memory.RoomStore
}

func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return &RoomStore{
		client: client,
		ttl:    ttl,
		inner:  memory.NewRoomStore(),
	}
}

func (s *RoomStore) Create(hostID string, questions []domain.Question, settings domain.GameSettings) (*game.Room, error) {
	room, err := s.inner.Create(hostID, questions, settings)
	if err != nil {
		return nil, err
	}
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(room.Code()), "1", s.ttl).Err()
	return room, nil
}

func (s *RoomStore) Get(code string) (*game.Room, bool) {
	return s.inner.Get(code)
}

func (s *RoomStore) Delete(code string) {
	s.inner.Delete(code)
	_ = s.client.Del(context.Background(), s.key(code)).Err()
}

func (s *RoomStore) key(code string) string {
	return "room:live:" + code
}
