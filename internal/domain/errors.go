package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room code resolves to nothing.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when a join would exceed the player limit.
	ErrRoomFull = errors.New("room is full")
	// ErrGameInProgress is returned on a join after the lobby closed and
	// late joins are disallowed.
	ErrGameInProgress = errors.New("game already in progress")
	// ErrNoPlayers is returned when the host starts a game with an empty lobby.
	ErrNoPlayers = errors.New("no players in room")
	// ErrPlayerNotFound is returned when a connection id is not a player.
	ErrPlayerNotFound = errors.New("player not found in room")
	// ErrAlreadyAnswered is returned on a second submission for one question.
	ErrAlreadyAnswered = errors.New("answer already submitted")
	// ErrNoActiveQuestion is returned when an answer arrives outside a live question.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrInvalidTransition is returned when an operation is not valid for the
	// room's current status.
	ErrInvalidTransition = errors.New("invalid room state transition")
	// ErrEmptyQuestionBank is returned when a room is created with no questions.
	ErrEmptyQuestionBank = errors.New("question bank is empty")
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
)
