// Package router dispatches moves to the rule engine selected by a match's
// game type and produces per-viewer redacted copies of matches.
package router

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/curzel-it/battld/internal/dependencies/random"
	"github.com/curzel-it/battld/internal/games"
	"github.com/curzel-it/battld/internal/games/briscola"
	"github.com/curzel-it/battld/internal/games/rps"
	"github.com/curzel-it/battld/internal/games/tictactoe"
	"github.com/curzel-it/battld/internal/model"
)

// Result is the outcome of an accepted move
type Result struct {
	State         json.RawMessage
	Finished      bool
	Outcome       *model.Outcome
	CurrentPlayer model.Slot
}

// handler is the type-erased view of a games.Engine
type handler interface {
	initial(first model.Slot, rnd random.Random) (json.RawMessage, error)
	route(state json.RawMessage, actor model.Slot, payload json.RawMessage) (json.RawMessage, games.Status, error)
	redact(state json.RawMessage, viewer model.Slot) (json.RawMessage, error)
}

// Router holds one handler per game type
type Router struct {
	handlers map[model.GameType]handler
}

// New creates a Router with every built-in game registered
func New() *Router {
	r := &Router{handlers: make(map[model.GameType]handler)}
	Register[tictactoe.State, tictactoe.Move](r, model.GameTypeTicTacToe, tictactoe.Engine{})
	Register[rps.State, rps.Move](r, model.GameTypeRPS, rps.Engine{})
	Register[briscola.State, briscola.Move](r, model.GameTypeBriscola, briscola.Engine{})
	return r
}

// Register binds an engine to a game type, replacing any previous binding
func Register[S any, M any](r *Router, gameType model.GameType, engine games.Engine[S, M]) {
	r.handlers[gameType] = adapter[S, M]{engine: engine}
}

// Supports reports whether a game type has an engine
func (r *Router) Supports(gameType model.GameType) bool {
	_, ok := r.handlers[gameType]
	return ok
}

// InitialState builds and encodes the start state for a new match
func (r *Router) InitialState(gameType model.GameType, first model.Slot, rnd random.Random) (json.RawMessage, error) {
	h, ok := r.handlers[gameType]
	if !ok {
		return nil, model.ErrUnknownGameType
	}
	return h.initial(first, rnd)
}

// Route applies a move by actor to the match's current state.
// The match itself is not modified.
func (r *Router) Route(match *model.Match, actor model.PlayerID, payload json.RawMessage) (*Result, error) {
	h, ok := r.handlers[match.GameType]
	if !ok {
		return nil, model.ErrUnknownGameType
	}
	if match.IsWaiting() {
		return nil, model.ErrNoActiveMatch
	}
	if !match.InProgress || match.IsFinished() {
		return nil, model.ErrMatchFinished
	}
	slot, ok := match.SlotOf(actor)
	if !ok {
		return nil, model.ErrNotInMatch
	}

	state, status, err := h.route(match.GameState, slot, payload)
	if err != nil {
		return nil, err
	}

	current := status.Turn
	if current == model.NoSlot {
		current = match.CurrentPlayer
	}
	return &Result{
		State:         state,
		Finished:      status.Finished,
		Outcome:       status.Outcome,
		CurrentPlayer: current,
	}, nil
}

// Redact returns a copy of match with the state projected for viewer.
// Viewers outside the match see neither player's private information.
func (r *Router) Redact(match *model.Match, viewer model.PlayerID) (*model.Match, error) {
	view := match.Clone()
	if len(match.GameState) == 0 {
		return view, nil
	}
	h, ok := r.handlers[match.GameType]
	if !ok {
		return nil, model.ErrUnknownGameType
	}
	slot, _ := match.SlotOf(viewer)

	state, err := h.redact(match.GameState, slot)
	if err != nil {
		return nil, err
	}
	view.GameState = state
	return view, nil
}

type adapter[S any, M any] struct {
	engine games.Engine[S, M]
}

func (a adapter[S, M]) initial(first model.Slot, rnd random.Random) (json.RawMessage, error) {
	return json.Marshal(a.engine.Initial(first, rnd))
}

func (a adapter[S, M]) route(raw json.RawMessage, actor model.Slot, payload json.RawMessage) (json.RawMessage, games.Status, error) {
	state, err := a.decodeState(raw)
	if err != nil {
		return nil, games.Status{}, err
	}

	var mv M
	if len(payload) == 0 {
		return nil, games.Status{}, fmt.Errorf("%w: empty move", model.ErrInvalidPayload)
	}
	if err := json.Unmarshal(payload, &mv); err != nil {
		return nil, games.Status{}, fmt.Errorf("%w: %s", model.ErrInvalidPayload, err.Error())
	}

	next, err := a.engine.Transition(state, actor, mv)
	if err != nil {
		return nil, games.Status{}, err
	}
	encoded, err := json.Marshal(next)
	if err != nil {
		return nil, games.Status{}, err
	}
	return encoded, a.engine.Status(next), nil
}

func (a adapter[S, M]) redact(raw json.RawMessage, viewer model.Slot) (json.RawMessage, error) {
	state, err := a.decodeState(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(a.engine.Redact(state, viewer))
}

func (a adapter[S, M]) decodeState(raw json.RawMessage) (S, error) {
	var state S
	if err := json.Unmarshal(raw, &state); err != nil {
		return state, errors.Join(model.ErrCorruptState, err)
	}
	return state, nil
}
