package domain

import "time"

// RoomStatus is the lifecycle phase of a room.
type RoomStatus string

const (
	StatusLobby       RoomStatus = "lobby"
	StatusCountdown   RoomStatus = "countdown"
	StatusQuestion    RoomStatus = "question"
	StatusResults     RoomStatus = "results"
	StatusLeaderboard RoomStatus = "leaderboard"
	StatusFinished    RoomStatus = "finished"
)

// DecayMode selects how points shrink as response time grows.
type DecayMode string

const (
	DecayLinear      DecayMode = "linear"
	DecayExponential DecayMode = "exponential"
)

// Question is an immutable multiple-choice question. The correct index is
// never serialized to players; see QuestionView.
type Question struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	TimeLimit    int      `json:"timeLimit"` // seconds
	Points       int      `json:"points"`
	ImageURL     string   `json:"imageUrl,omitempty"`
}

// QuestionView is the projection of a Question sent to players while the
// question is live.
type QuestionView struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Options   []string `json:"options"`
	TimeLimit int      `json:"timeLimit"`
	Points    int      `json:"points"`
	ImageURL  string   `json:"imageUrl,omitempty"`
}

// View strips the correct index from a question.
func (q Question) View() QuestionView {
	return QuestionView{
		ID:        q.ID,
		Text:      q.Text,
		Options:   q.Options,
		TimeLimit: q.TimeLimit,
		Points:    q.Points,
		ImageURL:  q.ImageURL,
	}
}

// QuestionBank is an ordered, immutable list of questions supplied to a room
// at creation time.
type QuestionBank struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// Answer records a single submission. SelectedOption is nil only in results
// aggregation, where it marks a player who never answered; the submission
// path always stores a concrete index.
type Answer struct {
	QuestionIndex  int       `json:"questionIndex"`
	SelectedOption *int      `json:"selectedOption"`
	SubmittedAt    time.Time `json:"submittedAt"`
	IsCorrect      bool      `json:"isCorrect"`
	PointsEarned   int       `json:"pointsEarned"`
}

// Player is a room participant. ID is the current connection identifier and
// changes on reconnect.
type Player struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Score             int       `json:"score"`
	LastQuestionScore int       `json:"lastQuestionScore"`
	IsConnected       bool      `json:"isConnected"`
	JoinedAt          time.Time `json:"joinedAt"`
	Answers           []Answer  `json:"answers"`
	HasAnswered       bool      `json:"hasAnswered"`
}

// GameSettings bundles the per-room knobs.
type GameSettings struct {
	TimeDecay         DecayMode `json:"timeDecay"`
	QuestionTimeLimit int       `json:"questionTimeLimit"`
	MaxPlayers        int       `json:"maxPlayers"`
	AllowLateJoin     bool      `json:"allowLateJoin"`
	ShowCorrectAnswer bool      `json:"showCorrectAnswer"`
}

// DefaultSettings returns the knobs a room gets when the host supplies
// nothing else.
func DefaultSettings() GameSettings {
	return GameSettings{
		TimeDecay:         DecayLinear,
		QuestionTimeLimit: 20,
		MaxPlayers:        50,
		AllowLateJoin:     false,
		ShowCorrectAnswer: true,
	}
}

// LeaderboardEntry is one ranked row of the scoreboard.
type LeaderboardEntry struct {
	Rank              int    `json:"rank"`
	PlayerID          string `json:"playerId"`
	Username          string `json:"username"`
	Score             int    `json:"score"`
	LastQuestionScore int    `json:"lastQuestionScore"`
}

// PlayerAnswer is a per-player row in the results of one question.
// SelectedOption nil means the player never submitted.
type PlayerAnswer struct {
	PlayerID       string `json:"playerId"`
	SelectedOption *int   `json:"selectedOption"`
	IsCorrect      bool   `json:"isCorrect"`
	PointsEarned   int    `json:"pointsEarned"`
}

// QuestionResults reveals the correct option and aggregates every current
// player's outcome for the question that just ended.
type QuestionResults struct {
	CorrectIndex  int            `json:"correctIndex"`
	PlayerAnswers []PlayerAnswer `json:"playerAnswers"`
	OptionCounts  []int          `json:"optionCounts"`
}

// GameState is the full room snapshot sent to a client that (re)connects
// mid-game.
type GameState struct {
	RoomID               string             `json:"roomId"`
	Status               RoomStatus         `json:"status"`
	Players              []Player           `json:"players"`
	CurrentQuestionIndex int                `json:"currentQuestionIndex"`
	TotalQuestions       int                `json:"totalQuestions"`
	CurrentQuestion      *QuestionView      `json:"currentQuestion,omitempty"`
	Leaderboard          []LeaderboardEntry `json:"leaderboard,omitempty"`
}
