package model

import "errors"

// Common errors used across the application
var (
	// Room errors
	ErrRoomNotFound       = errors.New("room not found")
	ErrRaceFinished       = errors.New("race already finished")
	ErrRaceAlreadyStarted = errors.New("race already started")
	ErrCreateFailed       = errors.New("room creation failed")
	ErrJoinFailed         = errors.New("room join failed")
	ErrPlayerNotInRoom    = errors.New("player is not in room")

	// Persistence errors
	ErrPersistenceFailed = errors.New("race result persistence failed")

	// Store errors
	ErrUserNotFound    = errors.New("user not found")
	ErrUsernameExists  = errors.New("username already exists")
	ErrPassageNotFound = errors.New("passage not found")

	// Validation errors
	ErrInvalidProgress = errors.New("invalid race statistics")
)
