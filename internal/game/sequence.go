package game

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// Sequence length bounds offered to players.
const (
	MinSequenceLength     = 15
	MaxSequenceLength     = 20
	DefaultSequenceLength = 15
)

var ErrInvalidLength = errors.New("invalid sequence length")

// NewSequence draws length values uniformly from the alphabet {1,2,3,4}.
func NewSequence(length int) ([]int, error) {
	return newSequence(rand.Reader, length)
}

func newSequence(r io.Reader, length int) ([]int, error) {
	if length < MinSequenceLength || length > MaxSequenceLength {
		return nil, fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidLength, length, MinSequenceLength, MaxSequenceLength)
	}

	span := big.NewInt(MaxValue - MinValue + 1)
	seq := make([]int, length)
	for i := range seq {
		n, err := rand.Int(r, span)
		if err != nil {
			return nil, fmt.Errorf("failed to draw sequence value: %w", err)
		}
		seq[i] = MinValue + int(n.Int64())
	}
	return seq, nil
}
