package memory

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/game"
)

// RoomStore is the in-memory registry of active rooms, keyed by their
// 6-digit code. Codes are unique among live rooms and become reusable once
// the owning room is deleted.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*game.Room
	rnd   *rand.Rand
}

func NewRoomStore() *RoomStore {
	return NewRoomStoreWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewRoomStoreWithRand allows a seeded source for deterministic codes in tests.
func NewRoomStoreWithRand(rnd *rand.Rand) *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*game.Room),
		rnd:   rnd,
	}
}

// Create allocates a unique room code and registers a new room in the lobby
// state. An empty question list is rejected before any code is consumed.
func (s *RoomStore) Create(hostID string, questions []domain.Question, settings domain.GameSettings) (*game.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := s.generateCodeLocked()
	room, err := game.NewRoom(code, hostID, questions, settings)
	if err != nil {
		return nil, err
	}
	s.rooms[code] = room
	return room, nil
}

func (s *RoomStore) Get(code string) (*game.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	return room, ok
}

func (s *RoomStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
}

// Len reports the number of active rooms.
func (s *RoomStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// generateCodeLocked draws 6-digit codes until one is free. Collisions are
// rare below a few thousand rooms, so plain retry is enough.
func (s *RoomStore) generateCodeLocked() string {
	for {
		code := fmt.Sprintf("%06d", 100000+s.rnd.Intn(900000))
		if _, taken := s.rooms[code]; !taken {
			return code
		}
	}
}
