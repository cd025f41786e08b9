package agent

import "split-game/internal/game"

// Evaluate scores a position from the AI's point of view: the plain score
// differential. It ignores the swing still available from 2s and 4s left on
// the board, so positions beyond the horizon are valued at face value.
func Evaluate(s game.State) int {
	return s.AIScore - s.HumanScore
}
