package agent

import (
	"crypto/rand"
	"math/big"

	"github.com/rs/zerolog/log"

	"split-game/internal/game"
)

// Result is the move chosen for the side to move together with the state it
// leads to, so callers do not have to apply it again.
type Result struct {
	Move      game.Move  `json:"move"`
	State     game.State `json:"state"`
	Value     int        `json:"value"`
	Depth     int        `json:"depth"`
	Algorithm Algorithm  `json:"algorithm"`
	Stats     Stats      `json:"stats"`
}

// BestMove picks the move for whichever side is to move in st. The AI side
// keeps the first move with the strictly greatest value, the human side the
// first with the strictly least. A terminal state yields
// game.ErrNoMovesAvailable.
func BestMove(st game.State, algo Algorithm, policy DepthPolicy) (*Result, error) {
	moves := game.LegalMoves(st)
	if len(moves) == 0 {
		return nil, game.ErrNoMovesAvailable
	}
	if algo == Random {
		return randomTake(st, moves), nil
	}

	if policy == nil {
		policy = DefaultDepth
	}
	depth := max(policy(st), 1)

	s := &searcher{prune: algo == AlphaBeta}
	maximizing := st.Turn == game.AI

	var best *Result
	for _, m := range moves {
		child := mustApply(st, m)
		v := s.search(child, depth-1, -infinity, infinity)
		if best == nil || (maximizing && v > best.Value) || (!maximizing && v < best.Value) {
			best = &Result{Move: m, State: child, Value: v}
		}
	}
	best.Depth = depth
	best.Algorithm = algo
	best.Stats = s.stats

	log.Debug().
		Str("algorithm", string(algo)).
		Str("side", string(st.Turn)).
		Int("depth", depth).
		Int("nodes", s.stats.Nodes).
		Int("cutoffs", s.stats.Cutoffs).
		Stringer("move", best.Move).
		Int("value", best.Value).
		Msg("best-move")
	return best, nil
}

// randomTake removes a uniformly chosen element, as a computer opponent with
// no search algorithm selected does.
func randomTake(st game.State, moves []game.Move) *Result {
	takes := moves[:0:0]
	for _, m := range moves {
		if m.Kind == game.Take {
			takes = append(takes, m)
		}
	}

	idx := 0
	if len(takes) > 1 {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(takes))))
		if err == nil {
			idx = int(n.Int64())
		}
	}

	child := mustApply(st, takes[idx])
	return &Result{
		Move:      takes[idx],
		State:     child,
		Value:     Evaluate(child),
		Algorithm: Random,
	}
}
