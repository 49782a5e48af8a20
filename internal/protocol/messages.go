// Package protocol defines the JSON frames exchanged over the realtime connection.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/curzel-it/battld/internal/model"
)

// MessageType tags every frame
type MessageType string

const (
	// Client to server
	TypeAuthenticate     MessageType = "authenticate"
	TypeJoinMatchmaking  MessageType = "join_matchmaking"
	TypeLeaveMatchmaking MessageType = "leave_matchmaking"
	TypeResumeMatch      MessageType = "resume_match"
	TypeMakeMove         MessageType = "make_move"
	TypePing             MessageType = "ping"

	// Server to client
	TypeAuthSuccess        MessageType = "auth_success"
	TypeAuthFailed         MessageType = "auth_failed"
	TypeWaitingForOpponent MessageType = "waiting_for_opponent"
	TypeMatchFound         MessageType = "match_found"
	TypeGameStateUpdate    MessageType = "game_state_update"
	TypePlayerDisconnected MessageType = "player_disconnected"
	TypePlayerReconnected  MessageType = "player_reconnected"
	TypeResumableMatch     MessageType = "resumable_match"
	TypeLeftMatchmaking    MessageType = "left_matchmaking"
	TypeMatchEnded         MessageType = "match_ended"
	TypeError              MessageType = "error"
	TypePong               MessageType = "pong"
)

// ErrMalformed is returned for frames that are not a known client message
var ErrMalformed = errors.New("malformed message")

// ClientMessage is a frame sent by a client. Only the fields of its Type are set.
type ClientMessage struct {
	Type     MessageType     `json:"type"`
	Token    string          `json:"token,omitempty"`
	GameType string          `json:"game_type,omitempty"`
	MatchID  model.MatchID   `json:"match_id,omitempty"`
	MoveData json.RawMessage `json:"move_data,omitempty"`
}

// DecodeClient parses and validates a client frame
func DecodeClient(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch msg.Type {
	case TypeAuthenticate:
		if msg.Token == "" {
			return nil, fmt.Errorf("%w: missing token", ErrMalformed)
		}
	case TypeJoinMatchmaking:
		if msg.GameType == "" {
			return nil, fmt.Errorf("%w: missing game_type", ErrMalformed)
		}
	case TypeMakeMove:
		if len(msg.MoveData) == 0 {
			return nil, fmt.Errorf("%w: missing move_data", ErrMalformed)
		}
	case TypeLeaveMatchmaking, TypeResumeMatch, TypePing:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, msg.Type)
	}
	return &msg, nil
}

// ServerMessage is a frame sent to a client
type ServerMessage struct {
	Type     MessageType     `json:"type"`
	PlayerID model.PlayerID  `json:"player_id,omitempty"`
	GameType model.GameType  `json:"game_type,omitempty"`
	Match    *model.Match    `json:"match,omitempty"`
	Reason   model.EndReason `json:"reason,omitempty"`
	Code     ErrorCode       `json:"code,omitempty"`
	Message  string          `json:"message,omitempty"`
}

func AuthSuccess(player model.PlayerID) ServerMessage {
	return ServerMessage{Type: TypeAuthSuccess, PlayerID: player}
}

func AuthFailed(reason string) ServerMessage {
	return ServerMessage{Type: TypeAuthFailed, Message: reason}
}

func WaitingForOpponent(gameType model.GameType) ServerMessage {
	return ServerMessage{Type: TypeWaitingForOpponent, GameType: gameType}
}

func MatchFound(match *model.Match) ServerMessage {
	return ServerMessage{Type: TypeMatchFound, Match: match}
}

func GameStateUpdate(match *model.Match) ServerMessage {
	return ServerMessage{Type: TypeGameStateUpdate, Match: match}
}

func PlayerDisconnected(player model.PlayerID) ServerMessage {
	return ServerMessage{Type: TypePlayerDisconnected, PlayerID: player}
}

func PlayerReconnected(player model.PlayerID) ServerMessage {
	return ServerMessage{Type: TypePlayerReconnected, PlayerID: player}
}

func ResumableMatch(match *model.Match) ServerMessage {
	return ServerMessage{Type: TypeResumableMatch, Match: match}
}

func LeftMatchmaking() ServerMessage {
	return ServerMessage{Type: TypeLeftMatchmaking}
}

func MatchEnded(reason model.EndReason) ServerMessage {
	return ServerMessage{Type: TypeMatchEnded, Reason: reason}
}

func Pong() ServerMessage {
	return ServerMessage{Type: TypePong}
}

// Error builds an error frame with an explicit code
func Error(code ErrorCode, message string) ServerMessage {
	return ServerMessage{Type: TypeError, Code: code, Message: message}
}

// ErrorFor maps a domain error to an error frame. Faults are reported
// without their details.
func ErrorFor(err error) ServerMessage {
	code := CodeFor(err)
	if code == CodeInternal {
		return Error(code, "internal error")
	}
	return Error(code, err.Error())
}
