package game

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMove means the move is not legal for the state it was applied to.
	ErrInvalidMove = errors.New("invalid move")
	// ErrNoMovesAvailable signals the terminal condition: the round is over.
	ErrNoMovesAvailable = errors.New("no moves available")
)

// LegalMoves lists every legal move in index order. For each element Take comes
// first, followed by the split that applies to its value, if any. The order is
// relied on for tie-breaking during search.
func LegalMoves(s State) []Move {
	if len(s.Sequence) == 0 {
		return nil
	}
	moves := make([]Move, 0, len(s.Sequence)+len(s.Sequence)/2)
	for i, v := range s.Sequence {
		moves = append(moves, TakeAt(i))
		switch v {
		case 2:
			moves = append(moves, SplitTwoAt(i))
		case 4:
			moves = append(moves, SplitFourAt(i))
		}
	}
	return moves
}

// IsLegal reports whether m is one of LegalMoves(s).
func IsLegal(s State, m Move) bool {
	return validate(s, m) == nil
}

func validate(s State, m Move) error {
	if m.Index < 0 || m.Index >= len(s.Sequence) {
		return fmt.Errorf("%w: index %d out of range (length %d)", ErrInvalidMove, m.Index, len(s.Sequence))
	}
	v := s.Sequence[m.Index]
	switch m.Kind {
	case Take:
		return nil
	case SplitTwo:
		if v != 2 {
			return fmt.Errorf("%w: split2 needs a 2 at index %d, found %d", ErrInvalidMove, m.Index, v)
		}
	case SplitFour:
		if v != 4 {
			return fmt.Errorf("%w: split4 needs a 4 at index %d, found %d", ErrInvalidMove, m.Index, v)
		}
	default:
		return fmt.Errorf("%w: unknown move kind %q", ErrInvalidMove, m.Kind)
	}
	return nil
}

// Apply returns the state reached by the side to move playing m. The input
// state is left untouched.
func Apply(s State, m Move) (State, error) {
	if err := validate(s, m); err != nil {
		return State{}, err
	}

	next := State{
		AIScore:    s.AIScore,
		HumanScore: s.HumanScore,
		Turn:       s.Turn.Opponent(),
	}
	mover := s.Turn
	v := s.Sequence[m.Index]

	switch m.Kind {
	case Take:
		next.Sequence = make([]int, 0, len(s.Sequence)-1)
		next.Sequence = append(next.Sequence, s.Sequence[:m.Index]...)
		next.Sequence = append(next.Sequence, s.Sequence[m.Index+1:]...)
		next.addScore(mover, v)
	case SplitTwo:
		next.Sequence = splice(s.Sequence, m.Index, 1)
		next.addScore(mover.Opponent(), 1)
	case SplitFour:
		next.Sequence = splice(s.Sequence, m.Index, 2)
		next.addScore(mover.Opponent(), -1)
	}
	return next, nil
}

// splice copies seq with the element at i replaced by two copies of half.
func splice(seq []int, i, half int) []int {
	out := make([]int, 0, len(seq)+1)
	out = append(out, seq[:i]...)
	out = append(out, half, half)
	return append(out, seq[i+1:]...)
}

// addScore adjusts side's score, never letting it drop below zero.
func (s *State) addScore(side Side, delta int) {
	p := &s.HumanScore
	if side == AI {
		p = &s.AIScore
	}
	*p += delta
	if *p < 0 {
		*p = 0
	}
}
