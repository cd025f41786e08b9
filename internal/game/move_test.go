package game

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseMove(t *testing.T) {
	tests := []struct {
		in   string
		want Move
	}{
		{"take 3", TakeAt(3)},
		{"  SPLIT2   0 ", SplitTwoAt(0)},
		{"split4 12", SplitFourAt(12)},
	}
	for _, tt := range tests {
		got, err := ParseMove(tt.in)
		if err != nil {
			t.Fatalf("ParseMove(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseMove(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if again, _ := ParseMove(got.String()); again != got {
			t.Fatalf("String() round trip: %q -> %v", got.String(), again)
		}
	}
}

func TestParseMoveErrors(t *testing.T) {
	for _, in := range []string{"", "take", "take x", "take -1", "split3 2", "take 1 2"} {
		if _, err := ParseMove(in); !errors.Is(err, ErrInvalidMove) {
			t.Errorf("ParseMove(%q) error = %v, want ErrInvalidMove", in, err)
		}
	}
}

func TestNewSequenceBounds(t *testing.T) {
	for _, n := range []int{MinSequenceLength - 1, MaxSequenceLength + 1, 0} {
		if _, err := NewSequence(n); !errors.Is(err, ErrInvalidLength) {
			t.Errorf("NewSequence(%d) error = %v, want ErrInvalidLength", n, err)
		}
	}

	seq, err := NewSequence(MaxSequenceLength)
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	if len(seq) != MaxSequenceLength {
		t.Fatalf("len = %d", len(seq))
	}
	for _, v := range seq {
		if v < MinValue || v > MaxValue {
			t.Fatalf("value %d outside alphabet", v)
		}
	}
}

func TestNewSequenceShortReader(t *testing.T) {
	if _, err := newSequence(bytes.NewReader(nil), DefaultSequenceLength); err == nil {
		t.Fatalf("expected error from exhausted reader")
	}
}
