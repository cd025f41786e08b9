package game

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func TestLegalMovesOrder(t *testing.T) {
	s := NewState([]int{1, 2, 3, 4}, AI)
	want := []Move{
		TakeAt(0),
		TakeAt(1), SplitTwoAt(1),
		TakeAt(2),
		TakeAt(3), SplitFourAt(3),
	}
	if got := LegalMoves(s); !reflect.DeepEqual(got, want) {
		t.Fatalf("LegalMoves = %v, want %v", got, want)
	}
}

func TestLegalMovesEmptySequence(t *testing.T) {
	if moves := LegalMoves(NewState(nil, AI)); len(moves) != 0 {
		t.Fatalf("expected no moves on an empty sequence, got %v", moves)
	}
}

func TestApplyTakeScenario(t *testing.T) {
	s := State{Sequence: []int{2}, AIScore: 3, HumanScore: 5, Turn: AI}
	next, err := Apply(s, TakeAt(0))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(next.Sequence) != 0 {
		t.Fatalf("expected empty sequence, got %v", next.Sequence)
	}
	if next.AIScore != 5 || next.HumanScore != 5 {
		t.Fatalf("scores = (%d,%d), want (5,5)", next.AIScore, next.HumanScore)
	}
	if next.Turn != Human {
		t.Fatalf("turn = %s, want human", next.Turn)
	}
	if len(LegalMoves(next)) != 0 {
		t.Fatalf("expected terminal state")
	}
}

func TestApplySplitFourFloorsOpponent(t *testing.T) {
	s := State{Sequence: []int{2, 4}, Turn: Human}
	next, err := Apply(s, SplitFourAt(1))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !reflect.DeepEqual(next.Sequence, []int{2, 2, 2}) {
		t.Fatalf("sequence = %v, want [2 2 2]", next.Sequence)
	}
	if next.AIScore != 0 || next.HumanScore != 0 {
		t.Fatalf("scores = (%d,%d), want (0,0)", next.AIScore, next.HumanScore)
	}
}

func TestApplySplitFourDecrementsOpponent(t *testing.T) {
	s := State{Sequence: []int{4}, AIScore: 3, HumanScore: 7, Turn: AI}
	next, err := Apply(s, SplitFourAt(0))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if next.HumanScore != 6 || next.AIScore != 3 {
		t.Fatalf("scores = (%d,%d), want (3,6)", next.AIScore, next.HumanScore)
	}
}

func TestApplySplitTwoRewardsOpponent(t *testing.T) {
	tests := []struct {
		name      string
		turn      Side
		wantAI    int
		wantHuman int
	}{
		{"ai splits", AI, 1, 2},
		{"human splits", Human, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := State{Sequence: []int{3, 2, 1}, AIScore: 1, HumanScore: 1, Turn: tt.turn}
			next, err := Apply(s, SplitTwoAt(1))
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if !reflect.DeepEqual(next.Sequence, []int{3, 1, 1, 1}) {
				t.Fatalf("sequence = %v", next.Sequence)
			}
			if len(next.Sequence) != len(s.Sequence)+1 {
				t.Fatalf("length grew by %d, want 1", len(next.Sequence)-len(s.Sequence))
			}
			if next.AIScore != tt.wantAI || next.HumanScore != tt.wantHuman {
				t.Fatalf("scores = (%d,%d), want (%d,%d)", next.AIScore, next.HumanScore, tt.wantAI, tt.wantHuman)
			}
		})
	}
}

func TestApplyRejectsInvalidMoves(t *testing.T) {
	s := NewState([]int{1, 2, 4}, AI)
	tests := []struct {
		name string
		move Move
	}{
		{"negative index", TakeAt(-1)},
		{"index past end", TakeAt(3)},
		{"split2 on 1", SplitTwoAt(0)},
		{"split2 on 4", SplitTwoAt(2)},
		{"split4 on 2", SplitFourAt(1)},
		{"unknown kind", Move{Kind: "merge", Index: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(s, tt.move)
			if !errors.Is(err, ErrInvalidMove) {
				t.Fatalf("expected ErrInvalidMove, got %v", err)
			}
			if IsLegal(s, tt.move) {
				t.Fatalf("IsLegal(%v) = true", tt.move)
			}
		})
	}
}

func TestApplyDoesNotAlias(t *testing.T) {
	orig := State{Sequence: []int{4, 2, 3}, AIScore: 2, HumanScore: 1, Turn: AI}
	a := orig.Clone()
	b := orig.Clone()

	for _, m := range LegalMoves(orig) {
		na, err := Apply(a, m)
		if err != nil {
			t.Fatalf("Apply(%v): %v", m, err)
		}
		nb, _ := Apply(b, m)
		if !reflect.DeepEqual(na, nb) {
			t.Fatalf("independent copies diverged for %v: %v vs %v", m, na, nb)
		}
		na.Sequence[0] = 9
		if nb.Sequence[0] == 9 || a.Sequence[0] == 9 {
			t.Fatalf("result shares storage with another state")
		}
	}
	if !reflect.DeepEqual(a, orig) || !reflect.DeepEqual(b, orig) {
		t.Fatalf("Apply mutated its input: %v / %v", a, b)
	}
}

func TestRandomPlayKeepsScoresNonNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for game := 0; game < 200; game++ {
		seq := make([]int, 1+rng.Intn(10))
		for i := range seq {
			seq[i] = 1 + rng.Intn(4)
		}
		s := NewState(seq, AI)
		for steps := 0; !s.IsTerminal(); steps++ {
			if steps > 1000 {
				t.Fatalf("game did not terminate from %v", seq)
			}
			moves := LegalMoves(s)
			next, err := Apply(s, moves[rng.Intn(len(moves))])
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if next.AIScore < 0 || next.HumanScore < 0 {
				t.Fatalf("negative score reached: %v", next)
			}
			if next.Turn == s.Turn {
				t.Fatalf("turn did not alternate")
			}
			s = next
		}
	}
}

func TestStateValidate(t *testing.T) {
	if err := NewState([]int{1, 2, 3, 4}, Human).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := []State{
		{Sequence: []int{5}, Turn: AI},
		{Sequence: []int{0}, Turn: AI},
		{Sequence: []int{1}, AIScore: -1, Turn: AI},
		{Sequence: []int{1}, Turn: "nobody"},
	}
	for _, s := range bad {
		if err := s.Validate(); err == nil {
			t.Errorf("Validate(%v) = nil, want error", s)
		}
	}
}
