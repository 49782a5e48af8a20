package router

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/curzel-it/battld/internal/dependencies/mocks"
	"github.com/curzel-it/battld/internal/games/briscola"
	"github.com/curzel-it/battld/internal/games/rps"
	"github.com/curzel-it/battld/internal/model"
)

type RouterSuite struct {
	suite.Suite
	router *Router
	random *mocks.MockRandom
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.router = New()
	s.random = mocks.NewMockRandom()
	s.random.QueueIntn(7, 19, 2, 33, 5, 12, 26, 1, 9)
}

func (s *RouterSuite) newMatch(gameType model.GameType, first model.Slot) *model.Match {
	state, err := s.router.InitialState(gameType, first, s.random)
	s.Require().NoError(err)
	return &model.Match{
		ID:            "m1",
		Player1ID:     "alice",
		Player2ID:     "bob",
		GameType:      gameType,
		InProgress:    true,
		CurrentPlayer: first,
		GameState:     state,
	}
}

func (s *RouterSuite) move(m *model.Match, player model.PlayerID, payload string) *Result {
	res, err := s.router.Route(m, player, json.RawMessage(payload))
	s.Require().NoError(err)
	m.GameState = res.State
	m.CurrentPlayer = res.CurrentPlayer
	if res.Finished {
		m.InProgress = false
		m.Outcome = res.Outcome
	}
	return res
}

func (s *RouterSuite) TestTicTacToeScenario() {
	m := s.newMatch(model.GameTypeTicTacToe, model.Slot1)

	s.move(m, "alice", `{"row":1,"col":1}`)
	s.Equal(model.Slot2, m.CurrentPlayer)
	s.move(m, "bob", `{"row":2,"col":2}`)
	s.move(m, "alice", `{"row":0,"col":0}`)
	s.move(m, "bob", `{"row":1,"col":0}`)
	s.move(m, "alice", `{"row":0,"col":1}`)
	s.move(m, "bob", `{"row":2,"col":0}`)
	res := s.move(m, "alice", `{"row":0,"col":2}`)

	s.True(res.Finished)
	s.Require().NotNil(res.Outcome)
	s.Equal(model.OutcomePlayer1Win, *res.Outcome)
}

func (s *RouterSuite) TestRPSScenario() {
	m := s.newMatch(model.GameTypeRPS, model.Slot1)

	s.move(m, "alice", `{"choice":"rock"}`)
	s.move(m, "bob", `{"choice":"scissors"}`)
	s.move(m, "alice", `{"choice":"rock"}`)
	s.move(m, "bob", `{"choice":"paper"}`)
	s.move(m, "bob", `{"choice":"paper"}`)
	res := s.move(m, "alice", `{"choice":"scissors"}`)

	s.True(res.Finished)
	s.Equal(model.OutcomePlayer1Win, *res.Outcome)

	var state rps.State
	s.Require().NoError(json.Unmarshal(m.GameState, &state))
	s.Len(state.Rounds, 3)
}

func (s *RouterSuite) TestRejectionsAreTyped() {
	m := s.newMatch(model.GameTypeTicTacToe, model.Slot1)

	_, err := s.router.Route(m, "mallory", json.RawMessage(`{"row":0,"col":0}`))
	s.ErrorIs(err, model.ErrNotInMatch)

	_, err = s.router.Route(m, "bob", json.RawMessage(`{"row":0,"col":0}`))
	s.ErrorIs(err, model.ErrWrongTurn)

	_, err = s.router.Route(m, "alice", json.RawMessage(`{"row":"x"}`))
	s.ErrorIs(err, model.ErrInvalidPayload)

	_, err = s.router.Route(m, "alice", nil)
	s.ErrorIs(err, model.ErrInvalidPayload)

	for _, e := range []error{model.ErrNotInMatch, model.ErrWrongTurn, model.ErrInvalidPayload} {
		s.True(model.IsRejection(e))
	}
}

func (s *RouterSuite) TestFinishedMatchRejected() {
	m := s.newMatch(model.GameTypeRPS, model.Slot1)
	outcome := model.OutcomePlayer2Win
	m.InProgress = false
	m.Outcome = &outcome

	_, err := s.router.Route(m, "alice", json.RawMessage(`{"choice":"rock"}`))
	s.ErrorIs(err, model.ErrMatchFinished)
}

func (s *RouterSuite) TestWaitingMatchHasNoActiveGame() {
	m := &model.Match{ID: "w", Player1ID: "alice", GameType: model.GameTypeTicTacToe}

	_, err := s.router.Route(m, "alice", json.RawMessage(`{"row":0,"col":0}`))
	s.ErrorIs(err, model.ErrNoActiveMatch)
}

func (s *RouterSuite) TestUnknownGameType() {
	m := s.newMatch(model.GameTypeRPS, model.Slot1)
	m.GameType = "chess"

	_, err := s.router.Route(m, "alice", json.RawMessage(`{}`))
	s.ErrorIs(err, model.ErrUnknownGameType)

	_, err = s.router.InitialState("chess", model.Slot1, s.random)
	s.ErrorIs(err, model.ErrUnknownGameType)
	s.False(s.router.Supports("chess"))
}

func (s *RouterSuite) TestCorruptStateIsNotARejection() {
	m := s.newMatch(model.GameTypeTicTacToe, model.Slot1)
	m.GameState = json.RawMessage(`{"board":"garbage"}`)

	_, err := s.router.Route(m, "alice", json.RawMessage(`{"row":0,"col":0}`))
	s.ErrorIs(err, model.ErrCorruptState)
	s.False(model.IsRejection(err))

	_, err = s.router.Redact(m, "alice")
	s.ErrorIs(err, model.ErrCorruptState)
}

func (s *RouterSuite) TestRejectedMoveLeavesMatchUntouched() {
	m := s.newMatch(model.GameTypeRPS, model.Slot1)
	s.move(m, "alice", `{"choice":"rock"}`)
	before := m.Clone()

	_, err := s.router.Route(m, "alice", json.RawMessage(`{"choice":"paper"}`))
	s.ErrorIs(err, model.ErrSlotFilled)
	s.Equal(before, m)
}

func (s *RouterSuite) TestBriscolaRedactionNeverLeaks() {
	m := s.newMatch(model.GameTypeBriscola, model.Slot1)

	for step := 0; step < briscola.DeckSize; step++ {
		var full briscola.State
		s.Require().NoError(json.Unmarshal(m.GameState, &full))

		for _, viewer := range []model.PlayerID{"alice", "bob", "spectator"} {
			view, err := s.router.Redact(m, viewer)
			s.Require().NoError(err)

			var vs briscola.State
			s.Require().NoError(json.Unmarshal(view.GameState, &vs))
			s.Empty(vs.Deck)
			s.Equal(full.CardsRemaining, vs.CardsRemaining)
			if viewer != "alice" {
				s.Empty(vs.Player1Hand)
			} else {
				s.Equal(full.Player1Hand, vs.Player1Hand)
			}
			if viewer != "bob" {
				s.Empty(vs.Player2Hand)
			}
			s.Equal(m.InProgress, view.InProgress)
			s.Equal(m.Outcome, view.Outcome)
			s.Equal(m.CurrentPlayer, view.CurrentPlayer)

			again, err := s.router.Redact(view, viewer)
			s.Require().NoError(err)
			s.JSONEq(string(view.GameState), string(again.GameState))
		}

		if !m.InProgress {
			break
		}
		s.move(m, m.PlayerIn(full.CurrentPlayer), `{"card_index":0}`)
	}
	s.False(m.InProgress)
}

func (s *RouterSuite) TestRPSRedactionHidesOnlyPendingOpponentChoice() {
	m := s.newMatch(model.GameTypeRPS, model.Slot1)
	s.move(m, "alice", `{"choice":"rock"}`)
	s.move(m, "bob", `{"choice":"paper"}`)
	s.move(m, "bob", `{"choice":"scissors"}`)

	view, err := s.router.Redact(m, "alice")
	s.Require().NoError(err)
	s.JSONEq(`{"rounds":[["rock","paper"],[null,"redacted"]]}`, string(view.GameState))

	view, err = s.router.Redact(m, "bob")
	s.Require().NoError(err)
	s.JSONEq(`{"rounds":[["rock","paper"],[null,"scissors"]]}`, string(view.GameState))
}

func (s *RouterSuite) TestRedactWaitingMatchWithoutState() {
	m := &model.Match{ID: "w", Player1ID: "alice", GameType: model.GameTypeBriscola}

	view, err := s.router.Redact(m, "alice")
	s.Require().NoError(err)
	s.Equal(m, view)
	s.NotSame(m, view)
}
