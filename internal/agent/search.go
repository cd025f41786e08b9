package agent

import (
	"fmt"
	"strings"

	"split-game/internal/game"
)

const infinity = 1 << 30

// Algorithm selects how the computer chooses its move.
type Algorithm string

const (
	Minimax   Algorithm = "minimax"
	AlphaBeta Algorithm = "alphabeta"
	// Random takes a random element; it never searches.
	Random Algorithm = "random"
)

// ParseAlgorithm accepts the algorithm names used in config files and requests.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimax":
		return Minimax, nil
	case "alphabeta", "alpha-beta":
		return AlphaBeta, nil
	case "random", "":
		return Random, nil
	}
	return "", fmt.Errorf("unknown algorithm %q", s)
}

// DepthPolicy returns the number of plies to search from a root state.
type DepthPolicy func(game.State) int

// DefaultDepth searches 4 plies on short sequences and 3 otherwise.
func DefaultDepth(s game.State) int {
	if len(s.Sequence) <= 7 {
		return 4
	}
	return 3
}

// FixedDepth ignores the state and always searches n plies.
func FixedDepth(n int) DepthPolicy {
	return func(game.State) int { return n }
}

// Stats counts the work done by one search.
type Stats struct {
	Nodes   int `json:"nodes"`
	Leaves  int `json:"leaves"`
	Cutoffs int `json:"cutoffs"`
}

// searcher walks the game tree. Plain minimax and alpha-beta share this walk
// and differ only in whether siblings may be pruned.
type searcher struct {
	prune bool
	stats Stats
}

func (s *searcher) search(st game.State, depth, alpha, beta int) int {
	s.stats.Nodes++
	if depth == 0 || st.IsTerminal() {
		s.stats.Leaves++
		return Evaluate(st)
	}

	maximizing := st.Turn == game.AI
	value := infinity
	if maximizing {
		value = -infinity
	}

	for _, m := range game.LegalMoves(st) {
		v := s.search(mustApply(st, m), depth-1, alpha, beta)
		if maximizing {
			value = max(value, v)
			alpha = max(alpha, value)
		} else {
			value = min(value, v)
			beta = min(beta, value)
		}
		if s.prune && alpha >= beta {
			s.stats.Cutoffs++
			break
		}
	}
	return value
}

// MinimaxValue returns the minimax value of st searched to depth plies.
func MinimaxValue(st game.State, depth int) int {
	s := &searcher{}
	return s.search(st, depth, -infinity, infinity)
}

// AlphaBetaValue returns the alpha-beta value of st within the (alpha, beta)
// window. With a full window it always equals MinimaxValue.
func AlphaBetaValue(st game.State, depth, alpha, beta int) int {
	s := &searcher{prune: true}
	return s.search(st, depth, alpha, beta)
}

// mustApply is only called with moves produced by game.LegalMoves.
func mustApply(st game.State, m game.Move) game.State {
	next, err := game.Apply(st, m)
	if err != nil {
		panic(fmt.Sprintf("agent: generated move %v rejected: %v", m, err))
	}
	return next
}
