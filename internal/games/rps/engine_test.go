package rps

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/curzel-it/battld/internal/model"
)

type EngineSuite struct {
	suite.Suite
	engine Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) submit(state State, actor model.Slot, c Choice) State {
	next, err := s.engine.Transition(state, actor, Move{Choice: c})
	s.Require().NoError(err)
	return next
}

func (s *EngineSuite) round(state State, p1, p2 Choice) State {
	state = s.submit(state, model.Slot1, p1)
	return s.submit(state, model.Slot2, p2)
}

func (s *EngineSuite) TestBestOfThreeScenario() {
	state := s.engine.Initial(model.Slot1, nil)

	state = s.round(state, Rock, Scissors)
	p1, p2 := Tally(state.Rounds)
	s.Equal(1, p1)
	s.Equal(0, p2)
	s.Len(state.Rounds, 2)

	state = s.round(state, Rock, Paper)
	p1, p2 = Tally(state.Rounds)
	s.Equal(1, p1)
	s.Equal(1, p2)
	s.Len(state.Rounds, 3)

	state = s.round(state, Scissors, Paper)
	p1, p2 = Tally(state.Rounds)
	s.Equal(2, p1)
	s.Equal(1, p2)
	s.Len(state.Rounds, 3, "no fourth round")

	status := s.engine.Status(state)
	s.True(status.Finished)
	s.Equal(model.OutcomePlayer1Win, *status.Outcome)
}

func (s *EngineSuite) TestTwoStraightWinsEndEarly() {
	state := s.engine.Initial(model.Slot1, nil)
	state = s.round(state, Paper, Scissors)
	state = s.round(state, Rock, Paper)

	s.Len(state.Rounds, 2)
	status := s.engine.Status(state)
	s.True(status.Finished)
	s.Equal(model.OutcomePlayer2Win, *status.Outcome)
}

func (s *EngineSuite) TestDrawAfterThreeRounds() {
	state := s.engine.Initial(model.Slot1, nil)
	state = s.round(state, Rock, Rock)
	state = s.round(state, Paper, Rock)
	state = s.round(state, Rock, Paper)

	status := s.engine.Status(state)
	s.True(status.Finished)
	s.Equal(model.OutcomeDraw, *status.Outcome)
}

func (s *EngineSuite) TestFilledSlotRejectedAndStateUnchanged() {
	state := s.submit(s.engine.Initial(model.Slot1, nil), model.Slot1, Rock)
	before, err := json.Marshal(state)
	s.Require().NoError(err)

	next, err := s.engine.Transition(state, model.Slot1, Move{Choice: Paper})
	s.ErrorIs(err, model.ErrSlotFilled)

	after, err := json.Marshal(next)
	s.Require().NoError(err)
	s.Equal(before, after)

	original, err := json.Marshal(state)
	s.Require().NoError(err)
	s.Equal(before, original)
}

func (s *EngineSuite) TestSwappedSubmissionOrderResolvesTheSame() {
	a := s.engine.Initial(model.Slot1, nil)
	a = s.submit(a, model.Slot1, Rock)
	a = s.submit(a, model.Slot2, Scissors)

	b := s.engine.Initial(model.Slot1, nil)
	b = s.submit(b, model.Slot2, Scissors)
	b = s.submit(b, model.Slot1, Rock)

	s.Equal(a, b)
	s.Equal(model.Slot1, b.Rounds[0].Winner())
}

func (s *EngineSuite) TestTallyMatchesIndependentCount() {
	state := s.engine.Initial(model.Slot1, nil)
	state = s.round(state, Scissors, Rock)
	state = s.round(state, Paper, Paper)
	state = s.round(state, Paper, Rock)

	wins := map[model.Slot]int{}
	for _, r := range state.Rounds {
		a, b := *r[0], *r[1]
		switch {
		case a == b:
		case (a == Rock && b == Scissors) || (a == Scissors && b == Paper) || (a == Paper && b == Rock):
			wins[model.Slot1]++
		default:
			wins[model.Slot2]++
		}
	}
	p1, p2 := Tally(state.Rounds)
	s.Equal(wins[model.Slot1], p1)
	s.Equal(wins[model.Slot2], p2)
}

func (s *EngineSuite) TestRejectsAfterFinish() {
	state := s.engine.Initial(model.Slot1, nil)
	state = s.round(state, Rock, Scissors)
	state = s.round(state, Rock, Scissors)

	_, err := s.engine.Transition(state, model.Slot2, Move{Choice: Rock})
	s.ErrorIs(err, model.ErrMatchFinished)
}

func (s *EngineSuite) TestRejectsInvalidChoice() {
	state := s.engine.Initial(model.Slot1, nil)

	_, err := s.engine.Transition(state, model.Slot1, Move{Choice: Redacted})
	s.ErrorIs(err, model.ErrInvalidPayload)

	var mv Move
	s.Error(json.Unmarshal([]byte(`{"choice":"lizard"}`), &mv))
}

func (s *EngineSuite) TestRedactHidesOpponentPendingChoice() {
	state := s.submit(s.engine.Initial(model.Slot1, nil), model.Slot1, Rock)

	forP2 := s.engine.Redact(state, model.Slot2)
	s.Require().NotNil(forP2.Rounds[0][0])
	s.Equal(Redacted, *forP2.Rounds[0][0])
	s.Nil(forP2.Rounds[0][1])

	forP1 := s.engine.Redact(state, model.Slot1)
	s.Equal(Rock, *forP1.Rounds[0][0])

	s.Equal(Rock, *state.Rounds[0][0], "redaction must not touch the source state")
}

func (s *EngineSuite) TestRedactLeavesCompletedRoundsPublic() {
	state := s.round(s.engine.Initial(model.Slot1, nil), Rock, Paper)
	state = s.submit(state, model.Slot2, Scissors)

	view := s.engine.Redact(state, model.Slot1)
	s.Equal(Rock, *view.Rounds[0][0])
	s.Equal(Paper, *view.Rounds[0][1])
	s.Equal(Redacted, *view.Rounds[1][1])
}

func (s *EngineSuite) TestRedactIsIdempotent() {
	state := s.submit(s.engine.Initial(model.Slot1, nil), model.Slot2, Paper)

	once := s.engine.Redact(state, model.Slot1)
	twice := s.engine.Redact(once, model.Slot1)
	s.Equal(once, twice)
}
