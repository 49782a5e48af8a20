// Package briscola implements the two-player Italian trick-taking card game.
// Hands and the draw pile are private; Redact removes them from a viewer's copy.
package briscola

import (
	"fmt"

	"github.com/curzel-it/battld/internal/dependencies/random"
	"github.com/curzel-it/battld/internal/games"
	"github.com/curzel-it/battld/internal/model"
)

// HandSize is the number of cards dealt to each player
const HandSize = 3

// Phase tracks progress through the current trick
type Phase string

const (
	AwaitingFirstCard  Phase = "awaiting_first_card"
	AwaitingSecondCard Phase = "awaiting_second_card"
)

// Play is a card on the table and who played it
type Play struct {
	Card   Card       `json:"card"`
	Player model.Slot `json:"player"`
}

// Trick is a resolved trick, kept for display
type Trick struct {
	First  Play       `json:"first"`
	Second Play       `json:"second"`
	Winner model.Slot `json:"winner"`
}

// State is the authoritative game state
type State struct {
	Player1Hand []Card `json:"player1_hand"`
	Player2Hand []Card `json:"player2_hand"`
	Table       []Play `json:"table"`

	// Deck is the face-down draw pile; the last element is the top card.
	Deck []Card `json:"deck"`
	// CardsRemaining mirrors len(Deck) and stays accurate when Deck is redacted
	CardsRemaining int `json:"cards_remaining_in_deck"`

	// TrumpCard is the face-up card under the deck, nil once drawn
	TrumpCard *Card `json:"trump_card"`
	TrumpSuit Suit  `json:"briscola_suit"`

	Player1Pile []Card `json:"player1_pile"`
	Player2Pile []Card `json:"player2_pile"`

	CurrentPlayer model.Slot `json:"current_player"`
	Phase         Phase      `json:"round_state"`
	PreviousTrick *Trick     `json:"previous_trick,omitempty"`
}

// Move plays the card at CardIndex of the mover's hand
type Move struct {
	CardIndex int `json:"card_index"`
}

// Engine implements games.Engine for briscola
type Engine struct{}

var _ games.Engine[State, Move] = Engine{}

// Initial shuffles the deck, deals three cards each and turns up the trump
func (Engine) Initial(first model.Slot, rnd random.Random) State {
	deck := NewDeck()
	random.Shuffle(rnd, len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	s := State{
		Player1Hand:   make([]Card, 0, HandSize),
		Player2Hand:   make([]Card, 0, HandSize),
		Table:         []Play{},
		Player1Pile:   []Card{},
		Player2Pile:   []Card{},
		CurrentPlayer: first,
		Phase:         AwaitingFirstCard,
	}
	for i := 0; i < HandSize; i++ {
		s.Player1Hand = append(s.Player1Hand, deck[len(deck)-1])
		deck = deck[:len(deck)-1]
	}
	for i := 0; i < HandSize; i++ {
		s.Player2Hand = append(s.Player2Hand, deck[len(deck)-1])
		deck = deck[:len(deck)-1]
	}
	trump := deck[len(deck)-1]
	deck = deck[:len(deck)-1]

	s.TrumpCard = &trump
	s.TrumpSuit = trump.Suit
	s.Deck = deck
	s.CardsRemaining = len(deck)
	return s
}

// Transition plays a card, resolving the trick when it is the second one
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
	hand := state.hand(actor)
	if mv.CardIndex < 0 || mv.CardIndex >= len(hand) {
		return state, fmt.Errorf("%w: card index %d, hand has %d cards", model.ErrOutOfRange, mv.CardIndex, len(hand))
	}

	next := state.clone()
	played := hand[mv.CardIndex]
	next.setHand(actor, removeAt(next.hand(actor), mv.CardIndex))
	next.Table = append(next.Table, Play{Card: played, Player: actor})

	if state.Phase != AwaitingSecondCard || len(next.Table) < 2 {
		next.Phase = AwaitingSecondCard
		next.CurrentPlayer = actor.Other()
		return next, nil
	}

	next.resolveTrick()
	return next, nil
}

// Status reports completion once every card has been played and drawn
func (Engine) Status(state State) games.Status {
	if !state.exhausted() {
		return games.Status{Turn: state.CurrentPlayer}
	}
	p1, p2 := state.Scores()
	switch {
	case p1 > p2:
		return games.Finished(model.OutcomePlayer1Win)
	case p2 > p1:
		return games.Finished(model.OutcomePlayer2Win)
	default:
		return games.Finished(model.OutcomeDraw)
	}
}

// Redact empties the opponent's hand and the draw pile. CardsRemaining is kept.
func (Engine) Redact(state State, viewer model.Slot) State {
	view := state.clone()
	if viewer != model.Slot1 {
		view.Player1Hand = []Card{}
	}
	if viewer != model.Slot2 {
		view.Player2Hand = []Card{}
	}
	view.Deck = []Card{}
	return view
}

// Scores returns the card points collected by each player
func (s State) Scores() (p1, p2 int) {
	return PilePoints(s.Player1Pile), PilePoints(s.Player2Pile)
}

// CardCount is the number of cards accounted for in every zone of the state
func (s State) CardCount() int {
	n := len(s.Player1Hand) + len(s.Player2Hand) + len(s.Table) + len(s.Deck) +
		len(s.Player1Pile) + len(s.Player2Pile)
	if s.TrumpCard != nil {
		n++
	}
	return n
}

// TrickWinner decides who takes first and second given the trump suit
func TrickWinner(first, second Play, trump Suit) model.Slot {
	firstTrump := first.Card.Suit == trump
	secondTrump := second.Card.Suit == trump

	switch {
	case firstTrump && secondTrump:
		return higher(first, second)
	case firstTrump:
		return first.Player
	case secondTrump:
		return second.Player
	case first.Card.Suit == second.Card.Suit:
		return higher(first, second)
	default:
		return first.Player
	}
}

func higher(first, second Play) model.Slot {
	if first.Card.Rank.Strength() > second.Card.Rank.Strength() {
		return first.Player
	}
	return second.Player
}

func (s *State) resolveTrick() {
	first, second := s.Table[0], s.Table[1]
	winner := TrickWinner(first, second, s.TrumpSuit)

	s.PreviousTrick = &Trick{First: first, Second: second, Winner: winner}
	if winner == model.Slot1 {
		s.Player1Pile = append(s.Player1Pile, first.Card, second.Card)
	} else {
		s.Player2Pile = append(s.Player2Pile, first.Card, second.Card)
	}
	s.Table = []Play{}

	s.draw(winner)
	s.draw(winner.Other())

	s.CurrentPlayer = winner
	s.Phase = AwaitingFirstCard
}

// draw gives the top deck card, or the trump card once the deck is empty
func (s *State) draw(player model.Slot) {
	var card Card
	switch {
	case len(s.Deck) > 0:
		card = s.Deck[len(s.Deck)-1]
		s.Deck = s.Deck[:len(s.Deck)-1]
	case s.TrumpCard != nil:
		card = *s.TrumpCard
		s.TrumpCard = nil
	default:
		return
	}
	s.setHand(player, append(s.hand(player), card))
	s.CardsRemaining = len(s.Deck)
}

func (s State) exhausted() bool {
	return len(s.Player1Hand) == 0 && len(s.Player2Hand) == 0 &&
		len(s.Deck) == 0 && s.CardsRemaining == 0 && s.TrumpCard == nil && len(s.Table) == 0
}

func (s State) hand(player model.Slot) []Card {
	if player == model.Slot2 {
		return s.Player2Hand
	}
	return s.Player1Hand
}

func (s *State) setHand(player model.Slot, hand []Card) {
	if player == model.Slot2 {
		s.Player2Hand = hand
	} else {
		s.Player1Hand = hand
	}
}

func (s State) clone() State {
	c := s
	c.Player1Hand = cloneCards(s.Player1Hand)
	c.Player2Hand = cloneCards(s.Player2Hand)
	c.Deck = cloneCards(s.Deck)
	c.Player1Pile = cloneCards(s.Player1Pile)
	c.Player2Pile = cloneCards(s.Player2Pile)
	c.Table = append(make([]Play, 0, len(s.Table)+1), s.Table...)
	if s.TrumpCard != nil {
		trump := *s.TrumpCard
		c.TrumpCard = &trump
	}
	if s.PreviousTrick != nil {
		trick := *s.PreviousTrick
		c.PreviousTrick = &trick
	}
	return c
}

func cloneCards(cards []Card) []Card {
	return append(make([]Card, 0, len(cards)+1), cards...)
}

func removeAt(cards []Card, i int) []Card {
	out := make([]Card, 0, len(cards)-1)
	out = append(out, cards[:i]...)
	return append(out, cards[i+1:]...)
}
