package cards

// HandSize is the number of cards in a Play Nine hand: four columns of two.
const HandSize = 8

// Columns is the number of columns in a hand. Column c holds hand indices
// c (top row) and c+Columns (bottom row).
const Columns = 4

// ScoreHand scores a full hand of eight cards laid out as four columns.
//
// A matched column scores zero, or -10 when the pair is Hole-in-One.
// An unmatched column scores the sum of its two values. Shaving strokes:
// when two columns pair the same value the hand earns an extra -10, three
// or four columns of the same value earn -15 instead.
//
// Hands shorter than eight cards (mid-leave edge) score the sum of their
// face-up values with no column bonuses.
func ScoreHand(hand []Card) int {
	if len(hand) != HandSize {
		total := 0
		for _, c := range hand {
			if c.FaceUp {
				total += c.Value
			}
		}
		return total
	}

	total := 0
	pairCounts := make(map[int]int)
	for col := 0; col < Columns; col++ {
		top, bottom := hand[col], hand[col+Columns]
		if top.Value == bottom.Value {
			if top.Value == MinValue {
				total += -10
			}
			pairCounts[top.Value]++
			continue
		}
		total += top.Value + bottom.Value
	}

	maxSame := 0
	for _, n := range pairCounts {
		if n > maxSame {
			maxSame = n
		}
	}
	switch {
	case maxSame >= 3:
		total += -15
	case maxSame >= 2:
		total += -10
	}

	return total
}

// FaceDownCount returns how many cards in hand are still face-down.
func FaceDownCount(hand []Card) int {
	n := 0
	for _, c := range hand {
		if !c.FaceUp {
			n++
		}
	}
	return n
}

// AllFaceUp reports whether every card in hand is face-up.
func AllFaceUp(hand []Card) bool {
	return FaceDownCount(hand) == 0
}
