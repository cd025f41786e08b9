package utils

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"
)

const MaxPlayerNameLength = 32

var ErrInvalidPlayerName = errors.New("invalid player name")

// Word lists for generating random player names
var adjectives = []string{
	"Swift", "Brave", "Clever", "Noble", "Mighty", "Silent", "Golden", "Silver",
	"Crystal", "Shadow", "Crimson", "Azure", "Cosmic", "Ancient", "Mystic", "Royal",
	"Fierce", "Gentle", "Wild", "Calm", "Bold", "Wise", "Quick", "Keen",
	"Lunar", "Solar", "Stellar", "Prime", "Even", "Odd", "Greedy", "Patient",
}

var nouns = []string{
	"Splitter", "Counter", "Taker", "Halver", "Pair", "Twin", "Quad", "Digit",
	"Abacus", "Tally", "Domino", "Pebble", "Marble", "Token", "Chip", "Bead",
	"Wolf", "Bear", "Eagle", "Hawk", "Lion", "Tiger", "Falcon", "Fox",
	"Sage", "Oracle", "Scholar", "Hunter", "Seeker", "Keeper", "Runner", "Captain",
}

// GeneratePlayerName returns a name in the form "AdjectiveNoun123" for players
// who did not pick one.
func GeneratePlayerName() string {
	adjective := adjectives[rand.IntN(len(adjectives))]
	noun := nouns[rand.IntN(len(nouns))]
	return fmt.Sprintf("%s%s%d", adjective, noun, rand.IntN(1000))
}

// NormalizePlayerName trims name and rejects names that are too long or
// contain control characters. Best levels are keyed by the result.
func NormalizePlayerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) > MaxPlayerNameLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidPlayerName, MaxPlayerNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: contains control characters", ErrInvalidPlayerName)
		}
	}
	return name, nil
}
