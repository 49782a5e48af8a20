// Package rps implements best-of-three rock-paper-scissors with
// simultaneous, hidden submissions.
package rps

import (
	"encoding/json"
	"fmt"

	"github.com/curzel-it/battld/internal/dependencies/random"
	"github.com/curzel-it/battld/internal/games"
	"github.com/curzel-it/battld/internal/model"
)

const (
	// WinsNeeded ends the match as soon as one player reaches it
	WinsNeeded = 2
	// MaxRounds caps the number of rounds played
	MaxRounds = 3
)

// Choice is one player's submission for a round
type Choice string

const (
	Rock     Choice = "rock"
	Paper    Choice = "paper"
	Scissors Choice = "scissors"

	// Redacted stands in for a choice the viewer may not see yet
	Redacted Choice = "redacted"
)

// Valid reports whether c is a playable choice
func (c Choice) Valid() bool {
	return c == Rock || c == Paper || c == Scissors
}

// Beats reports whether c wins against other
func (c Choice) Beats(other Choice) bool {
	switch c {
	case Rock:
		return other == Scissors
	case Scissors:
		return other == Paper
	case Paper:
		return other == Rock
	}
	return false
}

// Round holds the slot 1 and slot 2 submissions; nil means not submitted
type Round [2]*Choice

// Complete reports whether both players have submitted
func (r Round) Complete() bool {
	return r[0] != nil && r[1] != nil
}

// Winner resolves a complete round, NoSlot for a tie or incomplete round
func (r Round) Winner() model.Slot {
	if !r.Complete() {
		return model.NoSlot
	}
	switch {
	case r[0].Beats(*r[1]):
		return model.Slot1
	case r[1].Beats(*r[0]):
		return model.Slot2
	default:
		return model.NoSlot
	}
}

// State is the ordered round history; its length is the current round number
type State struct {
	Rounds []Round `json:"rounds"`
}

// Move submits a choice for the current round
type Move struct {
	Choice Choice `json:"choice"`
}

// UnmarshalJSON rejects anything but rock, paper or scissors
func (m *Move) UnmarshalJSON(data []byte) error {
	var raw struct {
		Choice Choice `json:"choice"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !raw.Choice.Valid() {
		return fmt.Errorf("invalid choice %q", raw.Choice)
	}
	m.Choice = raw.Choice
	return nil
}

// Engine implements games.Engine for rock-paper-scissors
type Engine struct{}

var _ games.Engine[State, Move] = Engine{}

// Initial opens the first round. Both players move simultaneously so first is ignored.
func (Engine) Initial(_ model.Slot, _ random.Random) State {
	return State{Rounds: []Round{{}}}
}

// Transition fills the actor's slot in the current round
func (e Engine) Transition(state State, actor model.Slot, mv Move) (State, error) {
	if e.Status(state).Finished {
		return state, model.ErrMatchFinished
	}
	if !actor.Valid() {
		return state, model.ErrNotInMatch
	}
	if !mv.Choice.Valid() {
		return state, fmt.Errorf("%w: choice %q", model.ErrInvalidPayload, mv.Choice)
	}

	rounds := make([]Round, len(state.Rounds), len(state.Rounds)+1)
	copy(rounds, state.Rounds)
	if len(rounds) == 0 {
		rounds = append(rounds, Round{})
	}

	current := &rounds[len(rounds)-1]
	if current[actor-1] != nil {
		return state, model.ErrSlotFilled
	}
	choice := mv.Choice
	current[actor-1] = &choice

	if current.Complete() {
		p1, p2 := Tally(rounds)
		if p1 < WinsNeeded && p2 < WinsNeeded && len(rounds) < MaxRounds {
			rounds = append(rounds, Round{})
		}
	}
	return State{Rounds: rounds}, nil
}

// Status recomputes both tallies from the whole history
func (Engine) Status(state State) games.Status {
	p1, p2 := Tally(state.Rounds)
	done := p1 >= WinsNeeded || p2 >= WinsNeeded || completedRounds(state.Rounds) >= MaxRounds
	if !done {
		return games.Status{}
	}
	switch {
	case p1 > p2:
		return games.Finished(model.OutcomePlayer1Win)
	case p2 > p1:
		return games.Finished(model.OutcomePlayer2Win)
	default:
		return games.Finished(model.OutcomeDraw)
	}
}

// Redact hides the opponent's choice in a round the viewer has not seen resolved
func (Engine) Redact(state State, viewer model.Slot) State {
	if len(state.Rounds) == 0 {
		return state
	}
	rounds := make([]Round, len(state.Rounds))
	copy(rounds, state.Rounds)

	last := &rounds[len(rounds)-1]
	if last.Complete() {
		return State{Rounds: rounds}
	}
	hidden := Redacted
	for i := range last {
		if model.Slot(i+1) != viewer && last[i] != nil {
			last[i] = &hidden
		}
	}
	return State{Rounds: rounds}
}

// Tally counts round wins over every complete round
func Tally(rounds []Round) (p1, p2 int) {
	for _, r := range rounds {
		switch r.Winner() {
		case model.Slot1:
			p1++
		case model.Slot2:
			p2++
		}
	}
	return p1, p2
}

func completedRounds(rounds []Round) int {
	n := 0
	for _, r := range rounds {
		if r.Complete() {
			n++
		}
	}
	return n
}
