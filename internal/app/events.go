package app

import "trivia-room-service/internal/domain"

// Outbound event names, one per successful engine transition.
const (
	EventRoomCreated     = "room:created"
	EventRoomJoined      = "room:joined"
	EventPlayerJoined    = "room:player-joined"
	EventPlayerLeft      = "room:player-left"
	EventCountdown       = "game:countdown"
	EventQuestion        = "game:question"
	EventTimerTick       = "game:timer-tick"
	EventAnswerReceived  = "game:answer-received"
	EventQuestionResults = "game:question-results"
	EventLeaderboard     = "game:leaderboard"
	EventFinished        = "game:finished"
	EventStateSync       = "game:state-sync"
	EventError           = "error"
)

// Stable error codes surfaced to clients. They never expose internal state.
const (
	CodeRoomNotFound   = "ROOM_NOT_FOUND"
	CodeGameInProgress = "GAME_IN_PROGRESS"
	CodeRoomFull       = "ROOM_FULL"
	CodeNoPlayers      = "NO_PLAYERS"
	CodePlayerNotFound = "PLAYER_NOT_FOUND"
	CodeBankNotFound   = "BANK_NOT_FOUND"
	CodeEmptyBank      = "EMPTY_QUESTION_BANK"
)

type RoomCreatedPayload struct {
	RoomID string `json:"roomId"`
}

type RoomJoinedPayload struct {
	Player domain.Player `json:"player"`
	RoomID string        `json:"roomId"`
}

type PlayerJoinedPayload struct {
	Player      domain.Player `json:"player"`
	PlayerCount int           `json:"playerCount"`
}

type PlayerLeftPayload struct {
	PlayerID    string `json:"playerId"`
	PlayerCount int    `json:"playerCount"`
}

type CountdownPayload struct {
	Seconds int `json:"seconds"`
}

type QuestionPayload struct {
	Question domain.QuestionView `json:"question"`
	Index    int                 `json:"index"`
	Total    int                 `json:"total"`
}

type TimerTickPayload struct {
	Remaining int `json:"remaining"`
}

type AnswerReceivedPayload struct {
	PlayerID string `json:"playerId"`
}

type LeaderboardPayload struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

type FinishedPayload struct {
	FinalLeaderboard []domain.LeaderboardEntry `json:"finalLeaderboard"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
