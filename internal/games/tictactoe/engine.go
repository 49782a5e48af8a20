// Package tictactoe implements the open-information 3x3 grid game.
package tictactoe

import (
	"encoding/json"
	"fmt"

	"github.com/curzel-it/battld/internal/dependencies/random"
	"github.com/curzel-it/battld/internal/games"
	"github.com/curzel-it/battld/internal/model"
)

// Size is the side length of the grid
const Size = 3

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

// State is the full board. Cells hold 0 (empty) or the owning slot.
type State struct {
	Board         [Size * Size]model.Slot `json:"board"`
	CurrentPlayer model.Slot              `json:"current_player"`
	Winner        model.Slot              `json:"winner"`
	IsFinished    bool                    `json:"is_finished"`
}

// Move places the mover's mark at Row, Col
type Move struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// UnmarshalJSON requires both coordinates to be present
func (m *Move) UnmarshalJSON(data []byte) error {
	var raw struct {
		Row *int `json:"row"`
		Col *int `json:"col"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Row == nil || raw.Col == nil {
		return fmt.Errorf("row and col are required")
	}
	m.Row, m.Col = *raw.Row, *raw.Col
	return nil
}

// Engine implements games.Engine for tic-tac-toe
type Engine struct{}

var _ games.Engine[State, Move] = Engine{}

// Initial returns an empty board with first to move
func (Engine) Initial(first model.Slot, _ random.Random) State {
	return State{CurrentPlayer: first}
}

// Transition places a mark and re-evaluates the whole board
func (e Engine) Transition(state State, actor model.Slot, mv Move) (State, error) {
	if e.Status(state).Finished {
		return state, model.ErrMatchFinished
	}
	if !actor.Valid() {
		return state, model.ErrNotInMatch
	}
	if actor != state.CurrentPlayer {
		return state, model.ErrWrongTurn
	}
	if mv.Row < 0 || mv.Row >= Size || mv.Col < 0 || mv.Col >= Size {
		return state, fmt.Errorf("%w: row %d col %d", model.ErrOutOfRange, mv.Row, mv.Col)
	}
	idx := mv.Row*Size + mv.Col
	if state.Board[idx] != model.NoSlot {
		return state, fmt.Errorf("%w: row %d col %d", model.ErrCellOccupied, mv.Row, mv.Col)
	}

	next := state
	next.Board[idx] = actor

	winner := winnerOf(next.Board)
	switch {
	case winner != model.NoSlot:
		next.Winner = winner
		next.IsFinished = true
	case isFull(next.Board):
		next.IsFinished = true
	default:
		next.CurrentPlayer = actor.Other()
	}
	return next, nil
}

// Status recomputes the result from the board rather than the stored flags
func (Engine) Status(state State) games.Status {
	if winner := winnerOf(state.Board); winner != model.NoSlot {
		return games.Finished(model.WinFor(winner))
	}
	if isFull(state.Board) {
		return games.Finished(model.OutcomeDraw)
	}
	return games.Status{Turn: state.CurrentPlayer}
}

// Redact is the identity: the board is public
func (Engine) Redact(state State, _ model.Slot) State {
	return state
}

// Cell returns the owner of the cell at row, col
func (s State) Cell(row, col int) model.Slot {
	return s.Board[row*Size+col]
}

func winnerOf(board [Size * Size]model.Slot) model.Slot {
	for _, line := range lines {
		a := board[line[0]]
		if a != model.NoSlot && a == board[line[1]] && a == board[line[2]] {
			return a
		}
	}
	return model.NoSlot
}

func isFull(board [Size * Size]model.Slot) bool {
	for _, cell := range board {
		if cell == model.NoSlot {
			return false
		}
	}
	return true
}
