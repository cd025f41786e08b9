package game

import (
	"fmt"
	"strconv"
	"strings"
)

// MoveKind tags the three move variants.
type MoveKind string

const (
	Take      MoveKind = "take"
	SplitTwo  MoveKind = "split2"
	SplitFour MoveKind = "split4"
)

// Move acts on the element at Index.
type Move struct {
	Kind  MoveKind `json:"kind" bson:"kind"`
	Index int      `json:"index" bson:"index"`
}

// TakeAt, SplitTwoAt and SplitFourAt build moves.
func TakeAt(i int) Move      { return Move{Kind: Take, Index: i} }
func SplitTwoAt(i int) Move  { return Move{Kind: SplitTwo, Index: i} }
func SplitFourAt(i int) Move { return Move{Kind: SplitFour, Index: i} }

// String renders the move in the notation accepted by ParseMove, e.g. "split4 5".
func (m Move) String() string {
	return fmt.Sprintf("%s %d", m.Kind, m.Index)
}

// ParseMove parses "<kind> <index>" notation. Only the syntax is checked here;
// whether the move is legal for a state is decided by Apply.
func ParseMove(s string) (Move, error) {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	if len(parts) != 2 {
		return Move{}, fmt.Errorf("%w: expected \"<take|split2|split4> <index>\", got %q", ErrInvalidMove, s)
	}

	kind := MoveKind(parts[0])
	switch kind {
	case Take, SplitTwo, SplitFour:
	default:
		return Move{}, fmt.Errorf("%w: unknown move kind %q", ErrInvalidMove, parts[0])
	}

	idx, err := strconv.Atoi(parts[1])
	if err != nil || idx < 0 {
		return Move{}, fmt.Errorf("%w: invalid index %q", ErrInvalidMove, parts[1])
	}
	return Move{Kind: kind, Index: idx}, nil
}
