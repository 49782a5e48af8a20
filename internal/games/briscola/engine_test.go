package briscola

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/curzel-it/battld/internal/dependencies/mocks"
	"github.com/curzel-it/battld/internal/model"
)

type EngineSuite struct {
	suite.Suite
	engine Engine
	random *mocks.MockRandom
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.random = mocks.NewMockRandom()
	s.random.QueueIntn(17, 3, 29, 8, 11, 0, 5, 21, 2, 13, 30, 1, 9, 6, 14, 4)
}

func card(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

func (s *EngineSuite) TestInitialDeal() {
	state := s.engine.Initial(model.Slot2, s.random)

	s.Len(state.Player1Hand, HandSize)
	s.Len(state.Player2Hand, HandSize)
	s.Len(state.Deck, 33)
	s.Equal(33, state.CardsRemaining)
	s.Require().NotNil(state.TrumpCard)
	s.Equal(state.TrumpCard.Suit, state.TrumpSuit)
	s.Equal(model.Slot2, state.CurrentPlayer)
	s.Equal(AwaitingFirstCard, state.Phase)
	s.Equal(DeckSize, state.CardCount())
}

func (s *EngineSuite) TestInitialDealHasEveryCardOnce() {
	state := s.engine.Initial(model.Slot1, s.random)

	seen := map[Card]int{}
	for _, c := range append(append(append([]Card{}, state.Player1Hand...), state.Player2Hand...), state.Deck...) {
		seen[c]++
	}
	seen[*state.TrumpCard]++

	s.Len(seen, DeckSize)
	for c, n := range seen {
		s.Equal(1, n, "card %v", c)
	}
}

func (s *EngineSuite) TestFirstCardFlipsTurn() {
	state := s.engine.Initial(model.Slot1, s.random)
	played := state.Player1Hand[1]

	next, err := s.engine.Transition(state, model.Slot1, Move{CardIndex: 1})
	s.Require().NoError(err)

	s.Equal(model.Slot2, next.CurrentPlayer)
	s.Equal(AwaitingSecondCard, next.Phase)
	s.Len(next.Player1Hand, 2)
	s.Require().Len(next.Table, 1)
	s.Equal(Play{Card: played, Player: model.Slot1}, next.Table[0])
	s.Len(state.Player1Hand, 3, "input state must not change")
}

func (s *EngineSuite) TestRejectsWrongTurnAndBadIndex() {
	state := s.engine.Initial(model.Slot1, s.random)

	_, err := s.engine.Transition(state, model.Slot2, Move{CardIndex: 0})
	s.ErrorIs(err, model.ErrWrongTurn)

	_, err = s.engine.Transition(state, model.Slot1, Move{CardIndex: 3})
	s.ErrorIs(err, model.ErrOutOfRange)

	_, err = s.engine.Transition(state, model.Slot1, Move{CardIndex: -1})
	s.ErrorIs(err, model.ErrOutOfRange)
}

func (s *EngineSuite) TestTrickWinnerRules() {
	p1 := func(c Card) Play { return Play{Card: c, Player: model.Slot1} }
	p2 := func(c Card) Play { return Play{Card: c, Player: model.Slot2} }

	// both trump: higher rank wins
	s.Equal(model.Slot2, TrickWinner(p1(card(Denari, King)), p2(card(Denari, Three)), Denari))
	// only one trump: trump wins
	s.Equal(model.Slot2, TrickWinner(p1(card(Coppe, Ace)), p2(card(Denari, Two)), Denari))
	s.Equal(model.Slot1, TrickWinner(p1(card(Denari, Two)), p2(card(Coppe, Ace)), Denari))
	// same suit, no trump: higher rank wins
	s.Equal(model.Slot1, TrickWinner(p1(card(Spade, Three)), p2(card(Spade, King)), Denari))
	s.Equal(model.Slot2, TrickWinner(p1(card(Spade, Seven)), p2(card(Spade, Jack)), Denari))
	// different suits, no trump: first played wins
	s.Equal(model.Slot1, TrickWinner(p1(card(Spade, Two)), p2(card(Bastoni, Ace)), Denari))
	s.Equal(model.Slot2, TrickWinner(p2(card(Coppe, Four)), p1(card(Spade, Ace)), Denari))
}

func (s *EngineSuite) TestResolveTrickAwardsPileAndDrawsWinnerFirst() {
	state := State{
		Player1Hand:    []Card{card(Spade, Ace)},
		Player2Hand:    []Card{card(Spade, Two)},
		Table:          []Play{},
		Deck:           []Card{card(Coppe, Four), card(Coppe, Five)},
		CardsRemaining: 2,
		TrumpCard:      &Card{Suit: Denari, Rank: Seven},
		TrumpSuit:      Denari,
		CurrentPlayer:  model.Slot2,
		Phase:          AwaitingFirstCard,
	}

	state, err := s.engine.Transition(state, model.Slot2, Move{CardIndex: 0})
	s.Require().NoError(err)
	state, err = s.engine.Transition(state, model.Slot1, Move{CardIndex: 0})
	s.Require().NoError(err)

	s.Equal([]Card{card(Spade, Two), card(Spade, Ace)}, state.Player1Pile)
	s.Empty(state.Player2Pile)
	s.Empty(state.Table)
	s.Equal([]Card{card(Coppe, Five)}, state.Player1Hand, "winner draws the top card")
	s.Equal([]Card{card(Coppe, Four)}, state.Player2Hand)
	s.Equal(0, state.CardsRemaining)
	s.NotNil(state.TrumpCard)
	s.Equal(model.Slot1, state.CurrentPlayer)
	s.Equal(AwaitingFirstCard, state.Phase)
	s.Require().NotNil(state.PreviousTrick)
	s.Equal(model.Slot1, state.PreviousTrick.Winner)
}

func (s *EngineSuite) TestLoserDrawsTrumpWhenDeckRunsOut() {
	state := State{
		Player1Hand:    []Card{card(Spade, Ace)},
		Player2Hand:    []Card{card(Spade, Two)},
		Deck:           []Card{card(Coppe, Four)},
		CardsRemaining: 1,
		TrumpCard:      &Card{Suit: Denari, Rank: Seven},
		TrumpSuit:      Denari,
		CurrentPlayer:  model.Slot1,
		Phase:          AwaitingFirstCard,
	}

	state, err := s.engine.Transition(state, model.Slot1, Move{CardIndex: 0})
	s.Require().NoError(err)
	state, err = s.engine.Transition(state, model.Slot2, Move{CardIndex: 0})
	s.Require().NoError(err)

	s.Equal([]Card{card(Coppe, Four)}, state.Player1Hand)
	s.Equal([]Card{card(Denari, Seven)}, state.Player2Hand)
	s.Nil(state.TrumpCard)
	s.Equal(0, state.CardsRemaining)
	s.False(s.engine.Status(state).Finished)
}

func (s *EngineSuite) TestLastTrickFinishesGame() {
	state := State{
		Player1Hand:   []Card{card(Bastoni, Ace)},
		Player2Hand:   []Card{card(Bastoni, Three)},
		Player1Pile:   []Card{},
		Player2Pile:   []Card{card(Coppe, Ace), card(Coppe, Three)},
		TrumpSuit:     Denari,
		CurrentPlayer: model.Slot2,
		Phase:         AwaitingFirstCard,
	}

	state, err := s.engine.Transition(state, model.Slot2, Move{CardIndex: 0})
	s.Require().NoError(err)
	state, err = s.engine.Transition(state, model.Slot1, Move{CardIndex: 0})
	s.Require().NoError(err)

	p1, p2 := state.Scores()
	s.Equal(21, p1)
	s.Equal(21, p2)

	status := s.engine.Status(state)
	s.True(status.Finished)
	s.Equal(model.OutcomeDraw, *status.Outcome, "equal totals are a draw")

	_, err = s.engine.Transition(state, model.Slot1, Move{CardIndex: 0})
	s.ErrorIs(err, model.ErrMatchFinished)
}

func (s *EngineSuite) TestFullGameConservesCards() {
	state := s.engine.Initial(model.Slot1, s.random)
	moves := 0

	for !s.engine.Status(state).Finished {
		s.Require().Equal(DeckSize, state.CardCount(), "after %d moves", moves)

		actor := state.CurrentPlayer
		hand := state.Player1Hand
		if actor == model.Slot2 {
			hand = state.Player2Hand
		}
		var err error
		state, err = s.engine.Transition(state, actor, Move{CardIndex: moves % len(hand)})
		s.Require().NoError(err)
		moves++
	}

	s.Equal(DeckSize, moves)
	s.Equal(DeckSize, state.CardCount())
	p1, p2 := state.Scores()
	s.Equal(120, p1+p2)
	s.Equal(DeckSize, len(state.Player1Pile)+len(state.Player2Pile))
}

func (s *EngineSuite) TestRedactHidesOpponentHandAndDeck() {
	state := s.engine.Initial(model.Slot1, s.random)

	view := s.engine.Redact(state, model.Slot1)
	s.Equal(state.Player1Hand, view.Player1Hand)
	s.Empty(view.Player2Hand)
	s.Empty(view.Deck)
	s.Equal(33, view.CardsRemaining)
	s.Equal(state.TrumpCard, view.TrumpCard)
	s.Equal(state.CurrentPlayer, view.CurrentPlayer)

	s.Len(state.Player2Hand, HandSize, "source state untouched")
	s.Len(state.Deck, 33)
}

func (s *EngineSuite) TestRedactForSpectatorHidesBothHands() {
	state := s.engine.Initial(model.Slot1, s.random)

	view := s.engine.Redact(state, model.NoSlot)
	s.Empty(view.Player1Hand)
	s.Empty(view.Player2Hand)
}

func (s *EngineSuite) TestRedactIsIdempotent() {
	state := s.engine.Initial(model.Slot1, s.random)
	state, err := s.engine.Transition(state, model.Slot1, Move{CardIndex: 0})
	s.Require().NoError(err)

	once := s.engine.Redact(state, model.Slot2)
	twice := s.engine.Redact(once, model.Slot2)
	s.Equal(once, twice)
}

func (s *EngineSuite) TestRankTables() {
	s.Equal(11, Ace.Points())
	s.Equal(10, Three.Points())
	s.Equal(4, King.Points())
	s.Equal(3, Knight.Points())
	s.Equal(2, Jack.Points())
	s.Equal(0, Seven.Points())
	s.Greater(Ace.Strength(), Three.Strength())
	s.Greater(Three.Strength(), King.Strength())
	s.Greater(Seven.Strength(), Six.Strength())
	s.Greater(Four.Strength(), Two.Strength())

	total := 0
	for _, c := range NewDeck() {
		total += c.Rank.Points()
	}
	s.Equal(120, total)
}
