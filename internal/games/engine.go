// Package games defines the contract every game rule engine implements.
//
// Engines are pure: Transition never mutates its input and performs no I/O.
// Derived facts such as the winner are recomputed from the full state on
// every call instead of being tracked incrementally.
package games

import (
	"github.com/curzel-it/battld/internal/dependencies/random"
	"github.com/curzel-it/battld/internal/model"
)

// Status summarises a state
type Status struct {
	Finished bool
	Outcome  *model.Outcome // nil while not finished

	// Turn is the slot expected to move next, or model.NoSlot when both
	// players act simultaneously or the game is over
	Turn model.Slot
}

// Engine implements the rules of one game type over state S and move M
type Engine[S any, M any] interface {
	// Initial returns the start state with first to move
	Initial(first model.Slot, rnd random.Random) S

	// Transition applies mv by actor, returning the new state or a model rejection
	Transition(state S, actor model.Slot, mv M) (S, error)

	// Status derives completion and turn from the state
	Status(state S) Status

	// Redact hides whatever viewer may not see
	Redact(state S, viewer model.Slot) S
}

// Finished builds the status of a completed game
func Finished(outcome model.Outcome) Status {
	return Status{Finished: true, Outcome: &outcome}
}
