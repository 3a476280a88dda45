package cards

import "fmt"

// MinValue and MaxValue bound the printed value of every Play Nine card.
const (
	MinValue = -5 // Hole-in-One
	MaxValue = 12
)

// FaceDownValue is the wire sentinel for a face-down card. It never appears
// in stored state; serialization substitutes it for hidden values.
const FaceDownValue = -99

// Card represents a single Play Nine card.
type Card struct {
	Value  int  `json:"value"`
	FaceUp bool `json:"face_up"`
}

// String returns the string representation of a card.
func (c Card) String() string {
	if !c.FaceUp {
		return "▯"
	}
	return fmt.Sprintf("%d", c.Value)
}

// ValidValue reports whether v is a legal card value.
func ValidValue(v int) bool {
	return v >= MinValue && v <= MaxValue
}
