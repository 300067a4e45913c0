package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trivia-room-service/internal/app"
	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/infra/memory"
)

type recordedEvent struct {
	Target  string // room code or connection id
	ToRoom  bool
	Event   string
	Payload any
}

// eventRecorder is a Broadcaster that captures everything for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) ToRoom(roomID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Target: roomID, ToRoom: true, Event: event, Payload: payload})
}

func (r *eventRecorder) ToConn(connID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Target: connID, Event: event, Payload: payload})
}

func (r *eventRecorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

// nth returns the n-th occurrence (1-based) of event, if recorded yet.
func (r *eventRecorder) nth(event string, n int) (recordedEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := 0
	for _, e := range r.events {
		if e.Event == event {
			seen++
			if seen == n {
				return e, true
			}
		}
	}
	return recordedEvent{}, false
}

func (r *eventRecorder) waitFor(t *testing.T, event string) recordedEvent {
	t.Helper()
	return r.waitForNth(t, event, 1)
}

func (r *eventRecorder) waitForNth(t *testing.T, event string, n int) recordedEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e, ok := r.nth(event, n); ok {
			return e
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for occurrence %d of %s", n, event)
	return recordedEvent{}
}

func testTiming() app.Timing {
	return app.Timing{
		CountdownSeconds: 1,
		ResultsDelay:     10 * time.Millisecond,
		TickInterval:     5 * time.Millisecond,
	}
}

func newTestService(rec *eventRecorder, questions []domain.Question) (*app.GameService, *memory.RoomStore) {
	store := memory.NewRoomStore()
	banks := memory.NewBankRepository(memory.NewStaticBankLoader(map[string]domain.QuestionBank{
		"default": {ID: "default", Questions: questions},
	}), time.Minute)
	svc := app.NewGameService(store, banks, rec, testTiming(), domain.DefaultSettings())
	return svc, store
}

func quickQuestions(n, timeLimit int) []domain.Question {
	questions := make([]domain.Question, n)
	for i := range questions {
		questions[i] = domain.Question{
			ID:           "q",
			Text:         "pick the second option",
			Options:      []string{"wrong", "right"},
			CorrectIndex: 1,
			TimeLimit:    timeLimit,
			Points:       1000,
		}
	}
	return questions
}

func TestFullGameFlow(t *testing.T) {
	ctx := context.Background()
	rec := &eventRecorder{}
	svc, _ := newTestService(rec, quickQuestions(2, 600))

	room, err := svc.CreateRoom(ctx, "host", "default")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	created := rec.waitFor(t, app.EventRoomCreated)
	if created.Target != "host" {
		t.Fatalf("room:created should go to the host, got %+v", created)
	}

	if _, err := svc.JoinRoom(room.Code(), "p1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	joined := rec.waitFor(t, app.EventRoomJoined)
	if joined.Target != "p1" {
		t.Fatalf("room:joined should go to the joiner, got %+v", joined)
	}
	announced := rec.waitFor(t, app.EventPlayerJoined)
	if !announced.ToRoom || announced.Target != room.Code() {
		t.Fatalf("player-joined should broadcast to the room, got %+v", announced)
	}

	if err := svc.StartGame(room.Code(), "host"); err != nil {
		t.Fatalf("start: %v", err)
	}
	rec.waitFor(t, app.EventCountdown)
	questionEvt := rec.waitFor(t, app.EventQuestion)
	payload, ok := questionEvt.Payload.(app.QuestionPayload)
	if !ok || payload.Index != 0 || payload.Total != 2 {
		t.Fatalf("unexpected question payload %+v", questionEvt.Payload)
	}
	if len(payload.Question.Options) != 2 {
		t.Fatalf("question view lost its options: %+v", payload.Question)
	}

	points, err := svc.SubmitAnswer(room.Code(), "p1", 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if points <= 0 {
		t.Fatalf("correct answer should score, got %d", points)
	}
	rec.waitFor(t, app.EventAnswerReceived)

	// everyone answered, so results arrive without waiting out the timer
	resultsEvt := rec.waitFor(t, app.EventQuestionResults)
	results, ok := resultsEvt.Payload.(domain.QuestionResults)
	if !ok || results.CorrectIndex != 1 {
		t.Fatalf("unexpected results payload %+v", resultsEvt.Payload)
	}
	rec.waitFor(t, app.EventLeaderboard)

	if err := svc.NextQuestion(room.Code(), "host"); err != nil {
		t.Fatalf("next question: %v", err)
	}
	second := rec.waitForNth(t, app.EventQuestion, 2)
	if p := second.Payload.(app.QuestionPayload); p.Index != 1 {
		t.Fatalf("expected second question at index 1, got %+v", p)
	}

	if _, err := svc.SubmitAnswer(room.Code(), "p1", 0); err != nil {
		t.Fatalf("submit wrong answer: %v", err)
	}
	rec.waitForNth(t, app.EventQuestionResults, 2)
	rec.waitForNth(t, app.EventLeaderboard, 2)

	if err := svc.NextQuestion(room.Code(), "host"); err != nil {
		t.Fatalf("advance past last question: %v", err)
	}
	finished := rec.waitFor(t, app.EventFinished)
	final, ok := finished.Payload.(app.FinishedPayload)
	if !ok || len(final.FinalLeaderboard) != 1 {
		t.Fatalf("unexpected final payload %+v", finished.Payload)
	}
	if final.FinalLeaderboard[0].Score != points {
		t.Fatalf("final score %d should equal the single correct answer %d",
			final.FinalLeaderboard[0].Score, points)
	}
	if final.FinalLeaderboard[0].Rank != 1 {
		t.Fatalf("single player should rank first, got %+v", final.FinalLeaderboard[0])
	}
}

func TestStartGameRequiresPlayers(t *testing.T) {
	ctx := context.Background()
	rec := &eventRecorder{}
	svc, _ := newTestService(rec, quickQuestions(1, 600))

	room, err := svc.CreateRoom(ctx, "host", "default")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if err := svc.StartGame(room.Code(), "host"); !errors.Is(err, domain.ErrNoPlayers) {
		t.Fatalf("expected no-players error, got %v", err)
	}
	evt := rec.waitFor(t, app.EventError)
	if evt.Payload.(app.ErrorPayload).Code != app.CodeNoPlayers {
		t.Fatalf("expected NO_PLAYERS, got %+v", evt.Payload)
	}
}

func TestCreateRoomBankFailures(t *testing.T) {
	ctx := context.Background()
	rec := &eventRecorder{}
	svc, _ := newTestService(rec, quickQuestions(1, 600))

	if _, err := svc.CreateRoom(ctx, "host", "missing"); !errors.Is(err, domain.ErrBankNotFound) {
		t.Fatalf("expected bank-not-found, got %v", err)
	}
	evt := rec.waitFor(t, app.EventError)
	if evt.Payload.(app.ErrorPayload).Code != app.CodeBankNotFound {
		t.Fatalf("expected BANK_NOT_FOUND, got %+v", evt.Payload)
	}

	rec2 := &eventRecorder{}
	svc2, _ := newTestService(rec2, nil)
	if _, err := svc2.CreateRoom(ctx, "host", "default"); !errors.Is(err, domain.ErrEmptyQuestionBank) {
		t.Fatalf("expected empty-bank error, got %v", err)
	}
	evt2 := rec2.waitFor(t, app.EventError)
	if evt2.Payload.(app.ErrorPayload).Code != app.CodeEmptyBank {
		t.Fatalf("expected EMPTY_QUESTION_BANK, got %+v", evt2.Payload)
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	rec := &eventRecorder{}
	svc, _ := newTestService(rec, quickQuestions(1, 600))

	if _, err := svc.JoinRoom("000000", "p1", "Alice"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected room-not-found, got %v", err)
	}
	evt := rec.waitFor(t, app.EventError)
	if evt.Payload.(app.ErrorPayload).Code != app.CodeRoomNotFound {
		t.Fatalf("expected ROOM_NOT_FOUND, got %+v", evt.Payload)
	}
}

func TestSkipQuestionShortCircuitsTimer(t *testing.T) {
	ctx := context.Background()
	rec := &eventRecorder{}
	svc, _ := newTestService(rec, quickQuestions(1, 600))

	room, _ := svc.CreateRoom(ctx, "host", "default")
	if _, err := svc.JoinRoom(room.Code(), "p1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := svc.StartGame(room.Code(), "host"); err != nil {
		t.Fatalf("start: %v", err)
	}
	rec.waitFor(t, app.EventQuestion)

	if err := svc.SkipQuestion(room.Code(), "host"); err != nil {
		t.Fatalf("skip: %v", err)
	}
	rec.waitFor(t, app.EventQuestionResults)

	// the cancelled timer must not complete the question a second time
	time.Sleep(50 * time.Millisecond)
	if n := rec.count(app.EventQuestionResults); n != 1 {
		t.Fatalf("expected exactly one results broadcast, got %d", n)
	}

	if err := svc.SkipQuestion(room.Code(), "host"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on double skip, got %v", err)
	}
}

func TestEndGameTearsDownRoom(t *testing.T) {
	ctx := context.Background()
	rec := &eventRecorder{}
	svc, store := newTestService(rec, quickQuestions(1, 600))

	room, _ := svc.CreateRoom(ctx, "host", "default")
	if _, err := svc.JoinRoom(room.Code(), "p1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := svc.EndGame(room.Code(), "host"); err != nil {
		t.Fatalf("end game: %v", err)
	}
	rec.waitFor(t, app.EventFinished)
	if _, ok := store.Get(room.Code()); ok {
		t.Fatalf("room should be deleted after end-game")
	}
	if _, ok := svc.RoomFor("p1"); ok {
		t.Fatalf("connection mappings should be cleared")
	}
}

func TestHostDisconnectClosesRoom(t *testing.T) {
	ctx := context.Background()
	rec := &eventRecorder{}
	svc, store := newTestService(rec, quickQuestions(1, 600))

	room, _ := svc.CreateRoom(ctx, "host", "default")
	if _, err := svc.JoinRoom(room.Code(), "p1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}

	svc.Disconnect("host")
	rec.waitFor(t, app.EventFinished)
	if _, ok := store.Get(room.Code()); ok {
		t.Fatalf("room should be gone after host disconnect")
	}
}

func TestPlayerDisconnectSemantics(t *testing.T) {
	ctx := context.Background()
	rec := &eventRecorder{}
	svc, _ := newTestService(rec, quickQuestions(1, 600))

	room, _ := svc.CreateRoom(ctx, "host", "default")
	if _, err := svc.JoinRoom(room.Code(), "p1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := svc.JoinRoom(room.Code(), "p2", "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}

	// lobby: dropping removes the player outright
	svc.Disconnect("p1")
	left := rec.waitFor(t, app.EventPlayerLeft)
	if left.Payload.(app.PlayerLeftPayload).PlayerCount != 1 {
		t.Fatalf("expected one player left in lobby, got %+v", left.Payload)
	}
	if room.PlayerCount() != 1 {
		t.Fatalf("lobby disconnect should remove the player")
	}

	// mid-game: the record survives for reconnection
	if err := svc.StartGame(room.Code(), "host"); err != nil {
		t.Fatalf("start: %v", err)
	}
	rec.waitFor(t, app.EventQuestion)
	svc.Disconnect("p2")
	if room.PlayerCount() != 1 {
		t.Fatalf("mid-game disconnect should keep the player record")
	}
	p, ok := room.Player("p2")
	if !ok || p.IsConnected {
		t.Fatalf("player should be marked disconnected, got %+v", p)
	}

	player, err := svc.Reconnect(room.Code(), "p2", "p2-new")
	if err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if !player.IsConnected || player.ID != "p2-new" {
		t.Fatalf("unexpected reconnected player %+v", player)
	}
	sync := rec.waitFor(t, app.EventStateSync)
	if sync.Target != "p2-new" {
		t.Fatalf("state sync should target the new connection, got %+v", sync)
	}
	state := sync.Payload.(domain.GameState)
	if state.RoomID != room.Code() || state.Status != domain.StatusQuestion {
		t.Fatalf("unexpected state sync %+v", state)
	}
}

func TestReconnectUnknownPlayer(t *testing.T) {
	ctx := context.Background()
	rec := &eventRecorder{}
	svc, _ := newTestService(rec, quickQuestions(1, 600))

	room, _ := svc.CreateRoom(ctx, "host", "default")
	if _, err := svc.Reconnect(room.Code(), "ghost", "fresh"); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected player-not-found, got %v", err)
	}
	evt := rec.waitFor(t, app.EventError)
	if evt.Payload.(app.ErrorPayload).Code != app.CodePlayerNotFound {
		t.Fatalf("expected PLAYER_NOT_FOUND, got %+v", evt.Payload)
	}
}
