package app

import (
	"context"
	"log"
	"sync"
	"time"

	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/game"
)

// RoomStore abstracts the registry of active rooms (in-memory, Redis-backed, etc).
type RoomStore interface {
	Create(hostID string, questions []domain.Question, settings domain.GameSettings) (*game.Room, error)
	Get(code string) (*game.Room, bool)
	Delete(code string)
}

// BankRepository loads question-bank content (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, bankID string) (domain.QuestionBank, error)
}

// Broadcaster delivers events to connected clients. The transport layer
// implements it; the service never touches sockets directly.
type Broadcaster interface {
	ToRoom(roomID, event string, payload any)
	ToConn(connID, event string, payload any)
}

// Timing controls the dispatcher-owned timers. TickInterval is one second in
// production; tests shrink it.
type Timing struct {
	CountdownSeconds int
	ResultsDelay     time.Duration
	TickInterval     time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		CountdownSeconds: 3,
		ResultsDelay:     3 * time.Second,
		TickInterval:     time.Second,
	}
}

// GameService routes inbound operations to room-engine transitions, fans the
// resulting events out through the Broadcaster, and owns every per-room
// timer (lobby countdown, question ticker, results delay). Timers for a room
// are cancellable as a unit, so skipping a question or ending the game can
// never race its own expiry into a double transition.
type GameService struct {
	rooms    RoomStore
	banks    BankRepository
	bus      Broadcaster
	timing   Timing
	settings domain.GameSettings

	mu     sync.Mutex
	timers map[string]chan struct{} // room code -> cancel signal for pending timers
	byConn map[string]string        // connection id -> room code (players and hosts)
}

func NewGameService(rooms RoomStore, banks BankRepository, bus Broadcaster, timing Timing, settings domain.GameSettings) *GameService {
	return &GameService{
		rooms:    rooms,
		banks:    banks,
		bus:      bus,
		timing:   timing,
		settings: settings,
		timers:   make(map[string]chan struct{}),
		byConn:   make(map[string]string),
	}
}

// CreateRoom loads the question bank and opens a new lobby hosted by connID.
func (s *GameService) CreateRoom(ctx context.Context, connID, bankID string) (*game.Room, error) {
	bank, err := s.banks.GetBank(ctx, bankID)
	if err != nil {
		s.fail(connID, CodeBankNotFound, "question bank unavailable")
		return nil, err
	}

	room, err := s.rooms.Create(connID, bank.Questions, s.settings)
	if err != nil {
		s.fail(connID, CodeEmptyBank, "question bank has no questions")
		return nil, err
	}

	s.mu.Lock()
	s.byConn[connID] = room.Code()
	s.mu.Unlock()

	s.bus.ToConn(connID, EventRoomCreated, RoomCreatedPayload{RoomID: room.Code()})
	log.Printf("room %s created by %s (%d questions)", room.Code(), connID, room.TotalQuestions())
	return room, nil
}

// JoinRoom admits a player into the lobby (or mid-game when late joins are on).
func (s *GameService) JoinRoom(roomID, connID, username string) (domain.Player, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		s.fail(connID, CodeRoomNotFound, "room not found")
		return domain.Player{}, domain.ErrRoomNotFound
	}

	player, err := room.AddPlayer(connID, username)
	switch err {
	case nil:
	case domain.ErrRoomFull:
		s.fail(connID, CodeRoomFull, "room is full")
		return domain.Player{}, err
	case domain.ErrGameInProgress:
		s.fail(connID, CodeGameInProgress, "game already started")
		return domain.Player{}, err
	default:
		return domain.Player{}, err
	}

	s.mu.Lock()
	s.byConn[connID] = roomID
	s.mu.Unlock()

	s.bus.ToConn(connID, EventRoomJoined, RoomJoinedPayload{Player: player, RoomID: roomID})
	s.bus.ToRoom(roomID, EventPlayerJoined, PlayerJoinedPayload{Player: player, PlayerCount: room.PlayerCount()})
	log.Printf("player %q joined room %s", player.Username, roomID)
	return player, nil
}

// StartGame begins the countdown. Host-only; a lobby without players is rejected.
func (s *GameService) StartGame(roomID, connID string) error {
	room, ok := s.rooms.Get(roomID)
	if !ok || room.HostID() != connID {
		return domain.ErrRoomNotFound
	}

	if err := room.StartCountdown(); err != nil {
		if err == domain.ErrNoPlayers {
			s.fail(connID, CodeNoPlayers, "no players have joined yet")
		}
		return err
	}

	done := s.resetTimers(roomID)
	go s.runCountdown(room, done)
	log.Printf("game started in room %s", roomID)
	return nil
}

func (s *GameService) runCountdown(room *game.Room, done chan struct{}) {
	ticker := time.NewTicker(s.timing.TickInterval)
	defer ticker.Stop()

	for seconds := s.timing.CountdownSeconds; seconds >= 0; seconds-- {
		s.bus.ToRoom(room.Code(), EventCountdown, CountdownPayload{Seconds: seconds})
		select {
		case <-ticker.C:
		case <-done:
			return
		}
	}
	s.advance(room)
}

// advance moves the room to the next question or, past the last one, to the
// final leaderboard.
func (s *GameService) advance(room *game.Room) {
	hasMore, err := room.NextQuestion()
	if err != nil {
		return
	}
	if !hasMore {
		s.cancelTimers(room.Code())
		s.bus.ToRoom(room.Code(), EventFinished, FinishedPayload{FinalLeaderboard: room.Leaderboard()})
		log.Printf("room %s finished", room.Code())
		return
	}

	view, ok := room.CurrentQuestionView()
	if !ok {
		return
	}
	s.bus.ToRoom(room.Code(), EventQuestion, QuestionPayload{
		Question: view,
		Index:    room.CurrentIndex(),
		Total:    room.TotalQuestions(),
	})

	done := s.resetTimers(room.Code())
	go s.runQuestionTimer(room, view.TimeLimit, done)
}

func (s *GameService) runQuestionTimer(room *game.Room, timeLimit int, done chan struct{}) {
	ticker := time.NewTicker(s.timing.TickInterval)
	defer ticker.Stop()

	for remaining := timeLimit; remaining > 0; {
		select {
		case <-ticker.C:
			remaining--
			s.bus.ToRoom(room.Code(), EventTimerTick, TimerTickPayload{Remaining: remaining})
		case <-done:
			return
		}
	}
	s.endQuestion(room)
}

// endQuestion is the single completion path for a live question, shared by
// timer expiry, all-players-answered and host skip. The engine's transition
// check makes it a no-op when another path got there first.
func (s *GameService) endQuestion(room *game.Room) {
	results, err := room.BeginResults()
	if err != nil {
		return
	}
	done := s.resetTimers(room.Code())
	s.bus.ToRoom(room.Code(), EventQuestionResults, results)

	go func() {
		select {
		case <-time.After(s.timing.ResultsDelay):
		case <-done:
			return
		}
		leaderboard, err := room.ShowLeaderboard()
		if err != nil {
			return
		}
		s.bus.ToRoom(room.Code(), EventLeaderboard, LeaderboardPayload{Leaderboard: leaderboard})
	}()
}

// SubmitAnswer records a player's answer. Expected rejections (double
// submission, no live question) stay silent toward the room, matching the
// acknowledge-on-success-only protocol.
func (s *GameService) SubmitAnswer(roomID, connID string, optionIndex int) (int, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		s.fail(connID, CodeRoomNotFound, "room not found")
		return 0, domain.ErrRoomNotFound
	}

	points, err := room.SubmitAnswer(connID, optionIndex)
	if err != nil {
		return 0, err
	}

	s.bus.ToRoom(roomID, EventAnswerReceived, AnswerReceivedPayload{PlayerID: connID})
	if room.AllPlayersAnswered() {
		s.cancelTimers(roomID)
		s.endQuestion(room)
	}
	return points, nil
}

// NextQuestion lets the host advance past the leaderboard. Host-only.
func (s *GameService) NextQuestion(roomID, connID string) error {
	room, ok := s.rooms.Get(roomID)
	if !ok || room.HostID() != connID {
		return domain.ErrRoomNotFound
	}
	if room.Status() != domain.StatusLeaderboard {
		return domain.ErrInvalidTransition
	}
	s.cancelTimers(roomID)
	s.advance(room)
	return nil
}

// SkipQuestion lets the host cut a live question short. Host-only.
func (s *GameService) SkipQuestion(roomID, connID string) error {
	room, ok := s.rooms.Get(roomID)
	if !ok || room.HostID() != connID {
		return domain.ErrRoomNotFound
	}
	if room.Status() != domain.StatusQuestion {
		return domain.ErrInvalidTransition
	}
	s.cancelTimers(roomID)
	s.endQuestion(room)
	return nil
}

// EndGame finishes the game immediately and tears the room down. Host-only.
func (s *GameService) EndGame(roomID, connID string) error {
	room, ok := s.rooms.Get(roomID)
	if !ok || room.HostID() != connID {
		return domain.ErrRoomNotFound
	}
	s.cancelTimers(roomID)
	final := room.Finish()
	s.bus.ToRoom(roomID, EventFinished, FinishedPayload{FinalLeaderboard: final})
	s.teardown(roomID)
	log.Printf("room %s ended by host", roomID)
	return nil
}

// Reconnect re-keys a dropped player under a fresh connection id and replays
// the full room state to the new connection.
func (s *GameService) Reconnect(roomID, oldConnID, newConnID string) (domain.Player, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		s.fail(newConnID, CodeRoomNotFound, "room not found")
		return domain.Player{}, domain.ErrRoomNotFound
	}

	player, err := room.ReconnectPlayer(oldConnID, newConnID)
	if err != nil {
		s.fail(newConnID, CodePlayerNotFound, "no such player to reconnect")
		return domain.Player{}, err
	}

	s.mu.Lock()
	delete(s.byConn, oldConnID)
	s.byConn[newConnID] = roomID
	s.mu.Unlock()

	s.bus.ToConn(newConnID, EventStateSync, room.StateSync())
	log.Printf("player %q reconnected to room %s", player.Username, roomID)
	return player, nil
}

// Disconnect handles a dropped connection. A host disconnect tears the room
// down; a player dropping out of a lobby is removed outright, while mid-game
// the record is kept (marked disconnected) so the player can reconnect.
func (s *GameService) Disconnect(connID string) {
	s.mu.Lock()
	roomID, ok := s.byConn[connID]
	delete(s.byConn, connID)
	s.mu.Unlock()
	if !ok {
		return
	}

	room, ok := s.rooms.Get(roomID)
	if !ok {
		return
	}

	if room.HostID() == connID {
		s.cancelTimers(roomID)
		final := room.Finish()
		s.bus.ToRoom(roomID, EventFinished, FinishedPayload{FinalLeaderboard: final})
		s.teardown(roomID)
		log.Printf("room %s closed: host disconnected", roomID)
		return
	}

	if room.Status() == domain.StatusLobby {
		room.RemovePlayer(connID)
	} else {
		room.SetPlayerConnected(connID, false)
	}
	s.bus.ToRoom(roomID, EventPlayerLeft, PlayerLeftPayload{PlayerID: connID, PlayerCount: room.PlayerCount()})
}

// RoomFor reports which room a connection currently belongs to.
func (s *GameService) RoomFor(connID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roomID, ok := s.byConn[connID]
	return roomID, ok
}

func (s *GameService) fail(connID, code, message string) {
	s.bus.ToConn(connID, EventError, ErrorPayload{Code: code, Message: message})
}

// resetTimers cancels whatever is pending for the room and hands out a fresh
// cancellation signal for the next phase's timers.
func (s *GameService) resetTimers(roomID string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if done, ok := s.timers[roomID]; ok {
		close(done)
	}
	done := make(chan struct{})
	s.timers[roomID] = done
	return done
}

func (s *GameService) cancelTimers(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if done, ok := s.timers[roomID]; ok {
		close(done)
		delete(s.timers, roomID)
	}
}

// teardown removes the room and every connection mapping pointing at it.
// Cancelling the room's timers first keeps no stray callback alive past the
// room itself.
func (s *GameService) teardown(roomID string) {
	s.cancelTimers(roomID)
	s.rooms.Delete(roomID)
	s.mu.Lock()
	for connID, code := range s.byConn {
		if code == roomID {
			delete(s.byConn, connID)
		}
	}
	s.mu.Unlock()
}
