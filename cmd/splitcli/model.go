package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"split-game/internal/agent"
	"split-game/internal/game"
)

// settings are fixed for the whole session; only the level changes between
// rounds.
type settings struct {
	algorithm  agent.Algorithm
	length     int
	first      game.Side
	thinkDelay time.Duration
}

type model struct {
	cfg         settings
	newSequence func(int) ([]int, error)

	round  int // bumped on every new round so late computer moves are dropped
	st     game.State
	level  int
	best   int
	winner string
	over   bool

	input    string
	status   string
	lastMove string
	hint     string
}

type computerMoveMsg struct {
	round int
	res   *agent.Result
	err   error
}

func newModel(cfg settings, newSequence func(int) ([]int, error)) (model, error) {
	m := model{cfg: cfg, newSequence: newSequence, level: 1}
	if err := m.startRound(); err != nil {
		return model{}, err
	}
	return m, nil
}

func (m *model) startRound() error {
	seq, err := m.newSequence(m.cfg.length)
	if err != nil {
		return err
	}
	m.round++
	m.st = game.NewState(seq, m.cfg.first)
	m.over = false
	m.winner = ""
	m.input = ""
	m.hint = ""
	m.lastMove = ""
	m.status = fmt.Sprintf("Level %d. %s moves first.", m.level, sideName(m.cfg.first))
	return nil
}

func sideName(s game.Side) string {
	if s == game.AI {
		return "Computer"
	}
	return "You"
}

func (m model) Init() tea.Cmd {
	return m.computerTurn()
}

// computerTurn searches in the background when the computer is to move.
func (m model) computerTurn() tea.Cmd {
	if m.over || m.st.Turn != game.AI {
		return nil
	}
	round, st, algo, delay := m.round, m.st.Clone(), m.cfg.algorithm, m.cfg.thinkDelay
	return func() tea.Msg {
		res, err := agent.BestMove(st, algo, agent.DefaultDepth)
		if delay > 0 {
			time.Sleep(delay)
		}
		return computerMoveMsg{round: round, res: res, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.over {
			return m.updateOver(msg)
		}
		if m.st.Turn != game.Human {
			return m, nil
		}
		return m.updatePlaying(msg)

	case computerMoveMsg:
		if msg.round != m.round || m.over {
			return m, nil
		}
		if msg.err != nil {
			m.finish()
			m.status = "Computer could not move: " + msg.err.Error()
			return m, nil
		}
		m.lastMove = "Computer played " + describe(m.st, msg.res.Move)
		m.st = msg.res.State
		if m.st.IsTerminal() {
			m.finish()
			return m, nil
		}
		m.status = "Your move."
		return m, nil
	}
	return m, nil
}

func (m model) updatePlaying(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return m.submit()
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeyEsc:
		m.input = ""
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		if string(msg.Runes) == "?" {
			m.showHint()
			return m, nil
		}
		m.input += string(msg.Runes)
	}
	return m, nil
}

func (m model) submit() (tea.Model, tea.Cmd) {
	mv, err := game.ParseMove(m.input)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	next, err := game.Apply(m.st, mv)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}

	m.lastMove = "You played " + describe(m.st, mv)
	m.st = next
	m.input = ""
	m.hint = ""
	if m.st.IsTerminal() {
		m.finish()
		return m, nil
	}
	m.status = "Computer is thinking..."
	return m, m.computerTurn()
}

// showHint suggests a move for the human using the session's search
// algorithm, or alpha-beta when playing the random opponent.
func (m *model) showHint() {
	algo := m.cfg.algorithm
	if algo == agent.Random {
		algo = agent.AlphaBeta
	}
	res, err := agent.BestMove(m.st, algo, agent.DefaultDepth)
	if err != nil {
		m.hint = err.Error()
		return
	}
	m.hint = fmt.Sprintf("Hint: %s (value %d)", res.Move, res.Value)
}

func (m *model) finish() {
	m.over = true
	m.status = "Round over."
	switch {
	case m.st.HumanScore > m.st.AIScore:
		m.winner = "You win!"
		m.best = max(m.best, m.level)
	case m.st.AIScore > m.st.HumanScore:
		m.winner = "Computer wins."
	default:
		m.winner = "Draw."
	}
}

func (m model) updateOver(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "c":
		if m.st.AIScore > m.st.HumanScore {
			return m, nil
		}
		m.level++
	case "r":
		m.level = 1
	default:
		return m, nil
	}
	if err := m.startRound(); err != nil {
		m.status = err.Error()
		return m, nil
	}
	return m, m.computerTurn()
}

// describe names the move with the value it acts on, e.g. "take 3 (value 4)".
func describe(st game.State, mv game.Move) string {
	if mv.Index < 0 || mv.Index >= len(st.Sequence) {
		return mv.String()
	}
	return fmt.Sprintf("%s (value %d)", mv, st.Sequence[mv.Index])
}

func (m model) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Level %d   Best %d   Algorithm %s\n\n", m.level, m.best, m.cfg.algorithm)

	idx := make([]string, len(m.st.Sequence))
	vals := make([]string, len(m.st.Sequence))
	for i, v := range m.st.Sequence {
		idx[i] = fmt.Sprintf("%3d", i)
		vals[i] = fmt.Sprintf("%3d", v)
	}
	fmt.Fprintf(&b, "index %s\n", strings.Join(idx, ""))
	fmt.Fprintf(&b, "value %s\n\n", strings.Join(vals, ""))

	fmt.Fprintf(&b, "You %d   Computer %d\n", m.st.HumanScore, m.st.AIScore)
	if m.lastMove != "" {
		b.WriteString(m.lastMove + "\n")
	}
	b.WriteString(m.status + "\n")
	if m.hint != "" {
		b.WriteString(m.hint + "\n")
	}

	if m.over {
		fmt.Fprintf(&b, "\n%s\n", m.winner)
		if m.st.AIScore > m.st.HumanScore {
			b.WriteString("r: restart at level 1   q: quit\n")
		} else {
			b.WriteString("c: continue to next level   r: restart at level 1   q: quit\n")
		}
		return b.String()
	}

	if m.st.Turn == game.Human {
		fmt.Fprintf(&b, "\n> %s\n", m.input)
		b.WriteString("take N | split2 N | split4 N, enter to play, ? for a hint, ctrl+c to quit\n")
	}
	return b.String()
}
