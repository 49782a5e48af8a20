package briscola

// Suit of an Italian 40-card deck
type Suit string

const (
	Bastoni Suit = "bastoni"
	Coppe   Suit = "coppe"
	Denari  Suit = "denari"
	Spade   Suit = "spade"
)

// Suits in deck order
var Suits = []Suit{Bastoni, Coppe, Denari, Spade}

// Rank of a card
type Rank string

const (
	Two    Rank = "two"
	Four   Rank = "four"
	Five   Rank = "five"
	Six    Rank = "six"
	Seven  Rank = "seven"
	Jack   Rank = "jack"
	Knight Rank = "knight"
	King   Rank = "king"
	Three  Rank = "three"
	Ace    Rank = "ace"
)

// Ranks from weakest to strongest
var Ranks = []Rank{Two, Four, Five, Six, Seven, Jack, Knight, King, Three, Ace}

// DeckSize is the number of cards in a full deck
const DeckSize = 40

// Card is a single playing card
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// Strength orders ranks for trick taking; higher wins
func (r Rank) Strength() int {
	for i, rank := range Ranks {
		if rank == r {
			return i + 1
		}
	}
	return 0
}

// Points is the score value of the rank
func (r Rank) Points() int {
	switch r {
	case Ace:
		return 11
	case Three:
		return 10
	case King:
		return 4
	case Knight:
		return 3
	case Jack:
		return 2
	default:
		return 0
	}
}

// NewDeck returns the 40 cards in a fixed order
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, suit := range Suits {
		for _, rank := range Ranks {
			deck = append(deck, Card{Suit: suit, Rank: rank})
		}
	}
	return deck
}

// PilePoints sums the points of every card in pile
func PilePoints(pile []Card) int {
	total := 0
	for _, c := range pile {
		total += c.Rank.Points()
	}
	return total
}
