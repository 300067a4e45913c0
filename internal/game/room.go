package game

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"trivia-room-service/internal/domain"
)

const maxUsernameLen = 20

// fallbackUsername is used when a submitted name is empty after trimming.
const fallbackUsername = "Player"

// Room is the authoritative state machine for one game session. All methods
// are safe for concurrent use; a single mutex serializes operations on the
// room so no transition can interleave with another. Rooms share no state
// with each other.
type Room struct {
	mu sync.Mutex

	code      string
	hostID    string
	status    domain.RoomStatus
	players   map[string]*domain.Player
	order     []string // connection ids in join order; leaderboard tie-break
	questions []domain.Question
	current   int // -1 before the first question
	settings  domain.GameSettings
	createdAt time.Time
	startedAt *time.Time // when the current question went live

	now func() time.Time
}

// NewRoom builds a room in the lobby state. The question list is fixed for
// the room's lifetime and must not be empty.
func NewRoom(code, hostID string, questions []domain.Question, settings domain.GameSettings) (*Room, error) {
	return NewRoomWithClock(code, hostID, questions, settings, time.Now)
}

// NewRoomWithClock is exported for deterministic timestamps in tests.
func NewRoomWithClock(code, hostID string, questions []domain.Question, settings domain.GameSettings, now func() time.Time) (*Room, error) {
	if len(questions) == 0 {
		return nil, domain.ErrEmptyQuestionBank
	}
	return &Room{
		code:      code,
		hostID:    hostID,
		status:    domain.StatusLobby,
		players:   make(map[string]*domain.Player),
		questions: questions,
		current:   -1,
		settings:  settings,
		createdAt: now(),
		now:       now,
	}, nil
}

func (r *Room) Code() string { return r.code }

func (r *Room) HostID() string { return r.hostID }

func (r *Room) Status() domain.RoomStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *Room) Settings() domain.GameSettings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// TotalQuestions returns the fixed length of the question list.
func (r *Room) TotalQuestions() int { return len(r.questions) }

// CurrentIndex returns the index of the active question, -1 before the game
// starts and len(questions) once it has run past the end.
func (r *Room) CurrentIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Player returns a copy of the player keyed under connID.
func (r *Room) Player(connID string) (domain.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[connID]
	if !ok {
		return domain.Player{}, false
	}
	return *p, true
}

// AddPlayer admits a new player. It fails when the room is at capacity or
// when the lobby has closed and late joins are off. The username is trimmed,
// truncated and de-duplicated case-insensitively: a colliding name gets the
// smallest integer suffix >= 2 that makes it unique. A connection holds at
// most one player record; a repeated join returns the existing record
// unchanged.
func (r *Room) AddPlayer(connID, rawUsername string) (domain.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.players[connID]; ok {
		return *p, nil
	}
	if len(r.players) >= r.settings.MaxPlayers {
		return domain.Player{}, domain.ErrRoomFull
	}
	if r.status != domain.StatusLobby && !r.settings.AllowLateJoin {
		return domain.Player{}, domain.ErrGameInProgress
	}

	player := &domain.Player{
		ID:          connID,
		Username:    r.dedupedUsername(rawUsername),
		IsConnected: true,
		JoinedAt:    r.now(),
		Answers:     []domain.Answer{},
	}
	r.players[connID] = player
	r.order = append(r.order, connID)
	return *player, nil
}

func (r *Room) dedupedUsername(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if runes := []rune(trimmed); len(runes) > maxUsernameLen {
		trimmed = string(runes[:maxUsernameLen])
	}
	if trimmed == "" {
		trimmed = fallbackUsername
	}

	taken := make(map[string]struct{}, len(r.players))
	for _, p := range r.players {
		taken[strings.ToLower(p.Username)] = struct{}{}
	}

	normalized := strings.ToLower(trimmed)
	if _, clash := taken[normalized]; !clash {
		return trimmed
	}
	for suffix := 2; ; suffix++ {
		if _, clash := taken[normalized+strconv.Itoa(suffix)]; !clash {
			return trimmed + strconv.Itoa(suffix)
		}
	}
}

// RemovePlayer deletes a player. Removing an unknown id is a no-op.
func (r *Room) RemovePlayer(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[connID]; !ok {
		return
	}
	delete(r.players, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// SetPlayerConnected flips the connectivity flag without touching scores or
// history, so a dropped player can reconnect later.
func (r *Room) SetPlayerConnected(connID string, connected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[connID]; ok {
		p.IsConnected = connected
	}
}

// ReconnectPlayer re-keys the player stored under oldConnID to newConnID,
// preserving score, answers and join position.
func (r *Room) ReconnectPlayer(oldConnID, newConnID string) (domain.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[oldConnID]
	if !ok {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	delete(r.players, oldConnID)
	p.ID = newConnID
	p.IsConnected = true
	r.players[newConnID] = p
	for i, id := range r.order {
		if id == oldConnID {
			r.order[i] = newConnID
			break
		}
	}
	return *p, nil
}

// StartCountdown moves the room from lobby to countdown. At least one player
// must be present.
func (r *Room) StartCountdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != domain.StatusLobby {
		return domain.ErrInvalidTransition
	}
	if len(r.players) == 0 {
		return domain.ErrNoPlayers
	}
	r.status = domain.StatusCountdown
	return nil
}

// NextQuestion advances the question index. When the new index is in bounds
// it resets every player's per-question state, stamps the start time, sets
// the status to question and reports true. Past the end it marks the room
// finished and reports false; prior scores are untouched. Valid only from
// the countdown and leaderboard states.
func (r *Room) NextQuestion() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != domain.StatusCountdown && r.status != domain.StatusLeaderboard {
		return false, domain.ErrInvalidTransition
	}

	r.current++
	if r.current >= len(r.questions) {
		r.status = domain.StatusFinished
		return false, nil
	}

	for _, p := range r.players {
		p.HasAnswered = false
		p.LastQuestionScore = 0
	}
	now := r.now()
	r.startedAt = &now
	r.status = domain.StatusQuestion
	return true, nil
}

// SubmitAnswer records exactly one answer per player per question. Elapsed
// time is measured from the question start stamp; points come from the
// room's decay mode.
func (r *Room) SubmitAnswer(connID string, optionIndex int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[connID]
	if !ok {
		return 0, domain.ErrPlayerNotFound
	}
	if p.HasAnswered {
		return 0, domain.ErrAlreadyAnswered
	}
	if r.status != domain.StatusQuestion || r.startedAt == nil || r.current < 0 || r.current >= len(r.questions) {
		return 0, domain.ErrNoActiveQuestion
	}

	question := r.questions[r.current]
	now := r.now()
	elapsed := now.Sub(*r.startedAt).Seconds()
	isCorrect := optionIndex == question.CorrectIndex
	points := Score(isCorrect, elapsed, float64(question.TimeLimit), question.Points, r.settings.TimeDecay)

	selected := optionIndex
	p.Answers = append(p.Answers, domain.Answer{
		QuestionIndex:  r.current,
		SelectedOption: &selected,
		SubmittedAt:    now,
		IsCorrect:      isCorrect,
		PointsEarned:   points,
	})
	p.Score += points
	p.LastQuestionScore = points
	p.HasAnswered = true

	return points, nil
}

// AllPlayersAnswered reports whether everyone eligible for the current
// question has submitted. Players who joined after the question started are
// not counted until the next question; a room with zero eligible players is
// vacuously true.
func (r *Room) AllPlayersAnswered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.players {
		if r.startedAt != nil && p.JoinedAt.After(*r.startedAt) {
			continue
		}
		if !p.HasAnswered {
			return false
		}
	}
	return true
}

// CurrentQuestionView projects the active question without its correct index.
func (r *Room) CurrentQuestionView() (domain.QuestionView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentQuestionViewLocked()
}

func (r *Room) currentQuestionViewLocked() (domain.QuestionView, bool) {
	if r.current < 0 || r.current >= len(r.questions) {
		return domain.QuestionView{}, false
	}
	return r.questions[r.current].View(), true
}

// BeginResults ends the active question: the status moves to results, the
// start stamp is cleared so late submissions are rejected, and the revealed
// results snapshot is returned. Valid only while a question is live.
func (r *Room) BeginResults() (domain.QuestionResults, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != domain.StatusQuestion {
		return domain.QuestionResults{}, domain.ErrInvalidTransition
	}
	r.status = domain.StatusResults
	r.startedAt = nil
	return r.questionResultsLocked(), nil
}

func (r *Room) questionResultsLocked() domain.QuestionResults {
	question := r.questions[r.current]
	counts := make([]int, len(question.Options))
	answers := make([]domain.PlayerAnswer, 0, len(r.players))

	for _, id := range r.order {
		p := r.players[id]
		row := domain.PlayerAnswer{PlayerID: p.ID}
		for i := range p.Answers {
			a := &p.Answers[i]
			if a.QuestionIndex != r.current {
				continue
			}
			row.SelectedOption = a.SelectedOption
			row.IsCorrect = a.IsCorrect
			row.PointsEarned = a.PointsEarned
			if a.SelectedOption != nil && *a.SelectedOption >= 0 && *a.SelectedOption < len(counts) {
				counts[*a.SelectedOption]++
			}
			break
		}
		answers = append(answers, row)
	}

	return domain.QuestionResults{
		CorrectIndex:  question.CorrectIndex,
		PlayerAnswers: answers,
		OptionCounts:  counts,
	}
}

// ShowLeaderboard moves results -> leaderboard and returns the ranking.
func (r *Room) ShowLeaderboard() ([]domain.LeaderboardEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != domain.StatusResults {
		return nil, domain.ErrInvalidTransition
	}
	r.status = domain.StatusLeaderboard
	return r.leaderboardLocked(), nil
}

// Leaderboard ranks players by descending cumulative score. Ties keep join
// order. Ranks are 1-based.
func (r *Room) Leaderboard() []domain.LeaderboardEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaderboardLocked()
}

func (r *Room) leaderboardLocked() []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(r.players))
	for _, id := range r.order {
		p := r.players[id]
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID:          p.ID,
			Username:          p.Username,
			Score:             p.Score,
			LastQuestionScore: p.LastQuestionScore,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Finish ends the game from any state and returns the final leaderboard.
func (r *Room) Finish() []domain.LeaderboardEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status = domain.StatusFinished
	r.startedAt = nil
	return r.leaderboardLocked()
}

// StateSync snapshots the whole room for a client that connects mid-game.
func (r *Room) StateSync() domain.GameState {
	r.mu.Lock()
	defer r.mu.Unlock()

	players := make([]domain.Player, 0, len(r.players))
	for _, id := range r.order {
		players = append(players, *r.players[id])
	}

	state := domain.GameState{
		RoomID:               r.code,
		Status:               r.status,
		Players:              players,
		CurrentQuestionIndex: r.current,
		TotalQuestions:       len(r.questions),
	}
	if view, ok := r.currentQuestionViewLocked(); ok && r.status == domain.StatusQuestion {
		state.CurrentQuestion = &view
	}
	if r.status == domain.StatusLeaderboard || r.status == domain.StatusFinished {
		state.Leaderboard = r.leaderboardLocked()
	}
	return state
}
