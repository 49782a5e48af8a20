package protocol

import (
	"errors"

	"github.com/curzel-it/battld/internal/model"
)

// ErrorCode is the machine-readable code carried by error frames
type ErrorCode string

const (
	CodeMatchFinished    ErrorCode = "match_finished"
	CodeWrongTurn        ErrorCode = "wrong_turn"
	CodeInvalidPayload   ErrorCode = "invalid_payload"
	CodeOutOfRange       ErrorCode = "out_of_range"
	CodeCellOccupied     ErrorCode = "cell_occupied"
	CodeSlotFilled       ErrorCode = "slot_filled"
	CodeNotInMatch       ErrorCode = "not_in_match"
	CodeUnknownGameType  ErrorCode = "unknown_game_type"
	CodeNoActiveMatch    ErrorCode = "no_active_match"
	CodeNotAuthenticated ErrorCode = "not_authenticated"
	CodeRateLimited      ErrorCode = "rate_limited"
	CodeInvalidMessage   ErrorCode = "invalid_message"
	CodeInternal         ErrorCode = "internal_error"
)

var codes = []struct {
	err  error
	code ErrorCode
}{
	{model.ErrMatchFinished, CodeMatchFinished},
	{model.ErrWrongTurn, CodeWrongTurn},
	{model.ErrInvalidPayload, CodeInvalidPayload},
	{model.ErrOutOfRange, CodeOutOfRange},
	{model.ErrCellOccupied, CodeCellOccupied},
	{model.ErrSlotFilled, CodeSlotFilled},
	{model.ErrNotInMatch, CodeNotInMatch},
	{model.ErrUnknownGameType, CodeUnknownGameType},
	{model.ErrNoActiveMatch, CodeNoActiveMatch},
	{model.ErrNotAuthenticated, CodeNotAuthenticated},
	{model.ErrRateLimited, CodeRateLimited},
	{ErrMalformed, CodeInvalidMessage},
}

// CodeFor returns the wire code for err, CodeInternal when it is not a known rejection
func CodeFor(err error) ErrorCode {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}
