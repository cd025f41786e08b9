package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"split-game/internal/agent"
	"split-game/internal/game"
	"split-game/internal/logging"
)

func main() {
	algorithm := flag.String("algorithm", string(agent.AlphaBeta), "computer algorithm: minimax, alphabeta or random")
	length := flag.Int("length", game.DefaultSequenceLength, fmt.Sprintf("sequence length (%d-%d)", game.MinSequenceLength, game.MaxSequenceLength))
	first := flag.String("first", string(game.Human), "who moves first: human or ai")
	delay := flag.Duration("think", 300*time.Millisecond, "pause before the computer's move is shown")
	flag.Parse()

	// The terminal belongs to the UI.
	logging.Setup("disabled", false)

	algo, err := agent.ParseAlgorithm(*algorithm)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	side := game.Side(*first)
	if side != game.Human && side != game.AI {
		fmt.Fprintf(os.Stderr, "first must be %q or %q\n", game.Human, game.AI)
		os.Exit(2)
	}

	m, err := newModel(settings{
		algorithm:  algo,
		length:     *length,
		first:      side,
		thinkDelay: *delay,
	}, game.NewSequence)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if _, err := tea.NewProgram(m).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
