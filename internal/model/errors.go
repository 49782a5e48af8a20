package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Match errors
	ErrMatchNotFound   = errors.New("match not found")
	ErrMatchNotWaiting = errors.New("match is no longer waiting for an opponent")

	// Move rejections, reported only to the player who caused them
	ErrMatchFinished    = errors.New("match already ended")
	ErrWrongTurn        = errors.New("not this player's turn")
	ErrInvalidPayload   = errors.New("unparseable move payload")
	ErrOutOfRange       = errors.New("move target out of range")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrSlotFilled       = errors.New("choice already submitted this round")
	ErrNotInMatch       = errors.New("player is not part of this match")
	ErrUnknownGameType  = errors.New("unknown game type")
	ErrNoActiveMatch    = errors.New("no active match")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrRateLimited      = errors.New("too many messages")

	// Internal faults
	ErrCorruptState = errors.New("stored game state is corrupt")
)

var rejections = []error{
	ErrMatchFinished,
	ErrWrongTurn,
	ErrInvalidPayload,
	ErrOutOfRange,
	ErrCellOccupied,
	ErrSlotFilled,
	ErrNotInMatch,
	ErrUnknownGameType,
	ErrNoActiveMatch,
	ErrNotAuthenticated,
	ErrRateLimited,
}

// IsRejection reports whether err is a user-input rejection rather than a fault
func IsRejection(err error) bool {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}
