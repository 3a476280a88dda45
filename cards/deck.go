package cards

import "math/rand"

// Deck composition, per pack: two Hole-in-One cards plus four of each value
// from 0 through 12, 54 cards in total.
const (
	PerPackHoleInOne = 2
	PerPackPerValue  = 4
	PackSize         = PerPackHoleInOne + PerPackPerValue*(MaxValue-0+1)
)

// PacksFor returns how many packs a game with the given player count uses:
// two packs up to six players, three for seven or eight.
func PacksFor(playerCount int) int {
	if playerCount >= 7 {
		return 3
	}
	return 2
}

// DeckSizeFor returns the total number of cards dealt into play for the
// given player count.
func DeckSizeFor(playerCount int) int {
	return PacksFor(playerCount) * PackSize
}

// NewDeck builds an unshuffled deck of the given number of packs, all cards
// face-down.
func NewDeck(packs int) []Card {
	deck := make([]Card, 0, packs*PackSize)
	for p := 0; p < packs; p++ {
		for i := 0; i < PerPackHoleInOne; i++ {
			deck = append(deck, Card{Value: MinValue})
		}
		for v := 0; v <= MaxValue; v++ {
			for i := 0; i < PerPackPerValue; i++ {
				deck = append(deck, Card{Value: v})
			}
		}
	}
	return deck
}

// ShuffleDeck returns a uniformly shuffled copy of deck drawn from rng.
func ShuffleDeck(deck []Card, rng *rand.Rand) []Card {
	shuffled := make([]Card, len(deck))
	copy(shuffled, deck)

	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled
}
