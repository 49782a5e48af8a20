package model

import (
	"encoding/json"
	"time"
)

// MatchID uniquely identifies a match
type MatchID string

// GameType selects the rule engine and redaction policy of a match
type GameType string

const (
	GameTypeTicTacToe GameType = "tris"
	GameTypeRPS       GameType = "rps"
	GameTypeBriscola  GameType = "briscola"
)

// GameTypes lists every supported game type
var GameTypes = []GameType{GameTypeTicTacToe, GameTypeRPS, GameTypeBriscola}

// ParseGameType validates a game type tag
func ParseGameType(s string) (GameType, error) {
	for _, gt := range GameTypes {
		if string(gt) == s {
			return gt, nil
		}
	}
	return "", ErrUnknownGameType
}

// Slot is a player's seat in a match (1 or 2)
type Slot int

const (
	NoSlot Slot = 0
	Slot1  Slot = 1
	Slot2  Slot = 2
)

// Valid reports whether the slot is 1 or 2
func (s Slot) Valid() bool {
	return s == Slot1 || s == Slot2
}

// Other returns the opposing slot
func (s Slot) Other() Slot {
	if s == Slot1 {
		return Slot2
	}
	return Slot1
}

// Outcome is the result of a finished match
type Outcome string

const (
	OutcomePlayer1Win Outcome = "p1_win"
	OutcomePlayer2Win Outcome = "p2_win"
	OutcomeDraw       Outcome = "draw"
)

// WinFor returns the decisive outcome in favour of slot
func WinFor(s Slot) Outcome {
	if s == Slot2 {
		return OutcomePlayer2Win
	}
	return OutcomePlayer1Win
}

// Winner returns the winning slot, or NoSlot for a draw
func (o Outcome) Winner() Slot {
	switch o {
	case OutcomePlayer1Win:
		return Slot1
	case OutcomePlayer2Win:
		return Slot2
	default:
		return NoSlot
	}
}

// EndReason explains why a match stopped being in progress
type EndReason string

const (
	EndReasonEnded        EndReason = "ended"
	EndReasonDisconnected EndReason = "disconnection"
)

// Match is one two-player game instance, from waiting through finished
type Match struct {
	ID        MatchID  `json:"id"`
	Player1ID PlayerID `json:"player1_id"`
	Player2ID PlayerID `json:"player2_id,omitempty"` // empty while waiting
	GameType  GameType `json:"game_type"`

	InProgress    bool       `json:"in_progress"`
	Outcome       *Outcome   `json:"outcome,omitempty"`
	EndReason     *EndReason `json:"end_reason,omitempty"`
	CurrentPlayer Slot       `json:"current_player"`

	// GameState is the game-type specific state blob
	GameState json.RawMessage `json:"game_state,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsWaiting returns true while the match has no second player
func (m *Match) IsWaiting() bool {
	return m.Player2ID == ""
}

// IsFinished returns true once an outcome has been recorded
func (m *Match) IsFinished() bool {
	return m.Outcome != nil
}

// SlotOf returns the slot the player occupies
func (m *Match) SlotOf(player PlayerID) (Slot, bool) {
	switch {
	case player == "":
		return NoSlot, false
	case player == m.Player1ID:
		return Slot1, true
	case player == m.Player2ID:
		return Slot2, true
	default:
		return NoSlot, false
	}
}

// PlayerIn returns the player seated in slot
func (m *Match) PlayerIn(s Slot) PlayerID {
	if s == Slot2 {
		return m.Player2ID
	}
	return m.Player1ID
}

// OpponentOf returns the other participant, or empty if player is not in the match
func (m *Match) OpponentOf(player PlayerID) PlayerID {
	slot, ok := m.SlotOf(player)
	if !ok {
		return ""
	}
	return m.PlayerIn(slot.Other())
}

// Players returns both participants, skipping an empty second seat
func (m *Match) Players() []PlayerID {
	if m.Player2ID == "" {
		return []PlayerID{m.Player1ID}
	}
	return []PlayerID{m.Player1ID, m.Player2ID}
}

// Clone returns a deep copy
func (m *Match) Clone() *Match {
	c := *m
	if m.Outcome != nil {
		o := *m.Outcome
		c.Outcome = &o
	}
	if m.EndReason != nil {
		r := *m.EndReason
		c.EndReason = &r
	}
	if m.GameState != nil {
		c.GameState = append(json.RawMessage(nil), m.GameState...)
	}
	return &c
}

// MatchUpdate carries the mutable fields of a paired match
type MatchUpdate struct {
	CurrentPlayer Slot
	GameState     json.RawMessage
	InProgress    bool
	Outcome       *Outcome
	EndReason     *EndReason
	UpdatedAt     time.Time
}

// Apply copies the update onto m
func (u MatchUpdate) Apply(m *Match) {
	m.CurrentPlayer = u.CurrentPlayer
	m.GameState = u.GameState
	m.InProgress = u.InProgress
	m.Outcome = u.Outcome
	m.EndReason = u.EndReason
	m.UpdatedAt = u.UpdatedAt
}
