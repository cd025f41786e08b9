package game

import (
	"fmt"
	"strings"
)

// Side identifies who is to move.
type Side string

const (
	AI    Side = "ai"
	Human Side = "human"
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == AI {
		return Human
	}
	return AI
}

// Valid values a sequence may hold.
const (
	MinValue = 1
	MaxValue = 4
)

// State is the unit the search operates over. A State is treated as a value:
// Apply always returns a new State with its own Sequence.
type State struct {
	Sequence   []int `json:"sequence" bson:"sequence"`
	AIScore    int   `json:"aiScore" bson:"aiScore"`
	HumanScore int   `json:"humanScore" bson:"humanScore"`
	Turn       Side  `json:"turn" bson:"turn"`
}

// NewState returns a fresh round state with zero scores.
func NewState(sequence []int, first Side) State {
	seq := make([]int, len(sequence))
	copy(seq, sequence)
	return State{Sequence: seq, Turn: first}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	c := s
	c.Sequence = make([]int, len(s.Sequence))
	copy(c.Sequence, s.Sequence)
	return c
}

// IsTerminal reports whether the sequence is exhausted.
func (s State) IsTerminal() bool {
	return len(s.Sequence) == 0
}

// Score returns the score held by side.
func (s State) Score(side Side) int {
	if side == AI {
		return s.AIScore
	}
	return s.HumanScore
}

// Validate checks the alphabet and score invariants of a state received from
// outside the package (decoded from storage or a request).
func (s State) Validate() error {
	for i, v := range s.Sequence {
		if v < MinValue || v > MaxValue {
			return fmt.Errorf("sequence value %d at index %d out of range [%d,%d]", v, i, MinValue, MaxValue)
		}
	}
	if s.AIScore < 0 || s.HumanScore < 0 {
		return fmt.Errorf("negative score (ai=%d, human=%d)", s.AIScore, s.HumanScore)
	}
	if s.Turn != AI && s.Turn != Human {
		return fmt.Errorf("unknown turn %q", s.Turn)
	}
	return nil
}

func (s State) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range s.Sequence {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(byte('0' + v))
	}
	sb.WriteByte(']')
	fmt.Fprintf(&sb, " ai=%d human=%d turn=%s", s.AIScore, s.HumanScore, s.Turn)
	return sb.String()
}
