package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"split-game/internal/agent"
	"split-game/internal/db"
	"split-game/internal/game"
	"split-game/internal/models"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBroadcaster) BroadcastRound(event string, _ *models.Round, _ *RoundCompletionResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBroadcaster) last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return ""
	}
	return b.events[len(b.events)-1]
}

type recordingNotifier struct {
	notified []string
	stopped  []string
}

func (n *recordingNotifier) NotifyTurn(id string) { n.notified = append(n.notified, id) }
func (n *recordingNotifier) StopRound(id string)  { n.stopped = append(n.stopped, id) }

func newTestService() (*RoundService, *db.MemoryStore, *recordingBroadcaster, *recordingNotifier) {
	store := db.NewMemoryStore()
	b := &recordingBroadcaster{}
	n := &recordingNotifier{}
	s := NewRoundService(store, NewRoundCompletionService(store), b, agent.AlphaBeta, 0)
	s.SetTurnNotifier(n)
	return s, store, b, n
}

// insertRound stores an active round with a fixed position.
func insertRound(t *testing.T, store *db.MemoryStore, id string, st game.State, level int, algo agent.Algorithm) *models.Round {
	t.Helper()
	now := time.Now()
	r := &models.Round{
		SessionID:  id,
		PlayerID:   "p-" + id,
		PlayerName: "alice",
		Level:      level,
		Algorithm:  string(algo),
		FirstMover: st.Turn,
		Length:     game.DefaultSequenceLength,
		State:      st,
		Status:     models.RoundStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := store.InsertRound(context.Background(), r); err != nil {
		t.Fatalf("InsertRound: %v", err)
	}
	return r
}

func TestCreateRoundDefaults(t *testing.T) {
	s, _, b, n := newTestService()

	r, err := s.CreateRound(context.Background(), CreateRoundParams{})
	if err != nil {
		t.Fatalf("CreateRound: %v", err)
	}
	if r.PlayerName == "" {
		t.Errorf("no player name generated")
	}
	if r.Level != 1 {
		t.Errorf("Level = %d, want 1", r.Level)
	}
	if r.Algorithm != string(agent.AlphaBeta) {
		t.Errorf("Algorithm = %q", r.Algorithm)
	}
	if len(r.State.Sequence) != game.DefaultSequenceLength {
		t.Errorf("sequence length = %d", len(r.State.Sequence))
	}
	if r.State.Turn != game.Human {
		t.Errorf("Turn = %s, want human", r.State.Turn)
	}
	if b.last() != EventRoundStarted {
		t.Errorf("last event = %q", b.last())
	}
	if len(n.notified) != 0 {
		t.Errorf("computer notified on a human-first round")
	}
}

func TestCreateRoundComputerFirstNotifies(t *testing.T) {
	s, _, _, n := newTestService()

	r, err := s.CreateRound(context.Background(), CreateRoundParams{FirstMover: game.AI, Algorithm: "minimax", Length: 20})
	if err != nil {
		t.Fatalf("CreateRound: %v", err)
	}
	if len(n.notified) != 1 || n.notified[0] != r.SessionID {
		t.Errorf("notified = %v", n.notified)
	}
	if len(r.State.Sequence) != 20 {
		t.Errorf("sequence length = %d", len(r.State.Sequence))
	}
}

func TestCreateRoundInvalidParams(t *testing.T) {
	s, _, _, _ := newTestService()

	tests := []struct {
		name   string
		params CreateRoundParams
	}{
		{"unknown algorithm", CreateRoundParams{Algorithm: "mcts"}},
		{"too short", CreateRoundParams{Length: 3}},
		{"too long", CreateRoundParams{Length: 21}},
		{"bad first mover", CreateRoundParams{FirstMover: "nobody"}},
		{"control characters in name", CreateRoundParams{PlayerName: "a\x07b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateRound(context.Background(), tt.params)
			if !errors.Is(err, ErrInvalidParams) {
				t.Errorf("err = %v, want ErrInvalidParams", err)
			}
		})
	}
}

func TestSubmitMoveHandsTurnToComputer(t *testing.T) {
	s, store, b, n := newTestService()
	insertRound(t, store, "r1", game.NewState([]int{1, 2, 3}, game.Human), 1, agent.AlphaBeta)

	out, err := s.SubmitMove(context.Background(), "r1", game.Human, game.TakeAt(1))
	if err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	if out.Completion != nil {
		t.Errorf("unexpected completion")
	}
	st := out.Round.State
	if st.HumanScore != 2 || st.Turn != game.AI || len(st.Sequence) != 2 {
		t.Errorf("state = %s", st)
	}
	if out.Round.MoveCount != 1 {
		t.Errorf("MoveCount = %d", out.Round.MoveCount)
	}
	if out.Round.LastMove == nil || out.Round.LastMove.Move != game.TakeAt(1) {
		t.Errorf("LastMove = %+v", out.Round.LastMove)
	}
	if len(n.notified) != 1 {
		t.Errorf("notified = %v", n.notified)
	}
	if b.last() != EventMove {
		t.Errorf("last event = %q", b.last())
	}

	stored, _ := store.GetRound(context.Background(), "r1")
	if stored.State.String() != st.String() {
		t.Errorf("stored %s, returned %s", stored.State, st)
	}
}

func TestSubmitMoveRejections(t *testing.T) {
	s, store, _, _ := newTestService()
	insertRound(t, store, "r1", game.NewState([]int{1, 2}, game.Human), 1, agent.AlphaBeta)

	if _, err := s.SubmitMove(context.Background(), "r1", game.AI, game.TakeAt(0)); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("wrong side: err = %v", err)
	}
	if _, err := s.SubmitMove(context.Background(), "r1", game.Human, game.SplitFourAt(1)); !errors.Is(err, game.ErrInvalidMove) {
		t.Errorf("bad split: err = %v", err)
	}
	if _, err := s.SubmitMove(context.Background(), "r1", game.Human, game.TakeAt(5)); !errors.Is(err, game.ErrInvalidMove) {
		t.Errorf("bad index: err = %v", err)
	}
	if _, err := s.SubmitMove(context.Background(), "missing", game.Human, game.TakeAt(0)); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("missing round: err = %v", err)
	}

	stored, _ := store.GetRound(context.Background(), "r1")
	if stored.MoveCount != 0 {
		t.Errorf("rejected moves changed the round")
	}
}

func TestSubmitMoveCompletesRound(t *testing.T) {
	s, store, b, n := newTestService()
	insertRound(t, store, "r1", game.State{Sequence: []int{3}, AIScore: 2, Turn: game.Human}, 4, agent.AlphaBeta)

	out, err := s.SubmitMove(context.Background(), "r1", game.Human, game.TakeAt(0))
	if err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	r := out.Round
	if r.Status != models.RoundStatusComplete || r.Winner != models.WinnerHuman || r.EndReason != EndReasonExhausted {
		t.Errorf("round = status %s winner %s reason %s", r.Status, r.Winner, r.EndReason)
	}
	if r.CompletedAt == nil {
		t.Errorf("CompletedAt not set")
	}
	if out.Completion == nil || out.Completion.BestLevel != 4 || out.Completion.NextLevel != 5 {
		t.Errorf("completion = %+v", out.Completion)
	}
	if len(n.stopped) != 1 {
		t.Errorf("computer player not stopped")
	}
	if b.last() != EventRoundOver {
		t.Errorf("last event = %q", b.last())
	}

	if _, err := s.SubmitMove(context.Background(), "r1", game.Human, game.TakeAt(0)); !errors.Is(err, ErrRoundOver) {
		t.Errorf("move after completion: err = %v", err)
	}
	moves, err := s.LegalMoves(context.Background(), "r1")
	if err != nil || len(moves) != 0 {
		t.Errorf("LegalMoves = %v, %v", moves, err)
	}
}

func TestSubmitMoveStaleCopyConflicts(t *testing.T) {
	s, store, _, _ := newTestService()
	insertRound(t, store, "r1", game.NewState([]int{1, 2, 3}, game.Human), 1, agent.AlphaBeta)

	stale, _ := store.GetRound(context.Background(), "r1")
	if _, err := s.SubmitMove(context.Background(), "r1", game.Human, game.TakeAt(0)); err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	if err := s.Abandon(context.Background(), stale); !errors.Is(err, db.ErrConflict) {
		t.Errorf("Abandon with stale copy: err = %v, want ErrConflict", err)
	}
}

func TestComputerMoveThroughService(t *testing.T) {
	s, store, _, _ := newTestService()
	insertRound(t, store, "r1", game.NewState([]int{1, 1, 1}, game.AI), 1, agent.AlphaBeta)

	r, _ := s.GetRound(context.Background(), "r1")
	res, err := agent.BestMove(r.State, agent.AlphaBeta, agent.DefaultDepth)
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if err := s.PlayComputerMove(context.Background(), "r1", res.Move); err != nil {
		t.Fatalf("PlayComputerMove: %v", err)
	}
	r, _ = s.GetRound(context.Background(), "r1")
	if r.State.AIScore != 1 || r.State.Turn != game.Human {
		t.Errorf("state = %s", r.State)
	}
}

func TestHint(t *testing.T) {
	s, store, _, _ := newTestService()
	insertRound(t, store, "r1", game.NewState([]int{3, 1}, game.Human), 1, agent.Random)

	res, err := s.Hint(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Hint: %v", err)
	}
	if res.Move != game.TakeAt(0) || res.Value != -2 {
		t.Errorf("hint = %s value %d, want take 0 value -2", res.Move, res.Value)
	}
	if res.Algorithm != agent.AlphaBeta {
		t.Errorf("hint algorithm = %s", res.Algorithm)
	}

	insertRound(t, store, "r2", game.NewState([]int{3, 1}, game.AI), 1, agent.AlphaBeta)
	if _, err := s.Hint(context.Background(), "r2"); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("hint on computer turn: err = %v", err)
	}
}

func TestNextRoundLevels(t *testing.T) {
	tests := []struct {
		name      string
		state     game.State
		level     int
		wantLevel int
	}{
		{"win advances", game.State{Sequence: []int{3}, Turn: game.Human}, 2, 3},
		{"draw advances", game.State{Sequence: []int{3}, AIScore: 3, Turn: game.Human}, 2, 3},
		{"loss restarts", game.State{Sequence: []int{1}, AIScore: 3, Turn: game.Human}, 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store, _, _ := newTestService()
			insertRound(t, store, "r1", tt.state, tt.level, agent.Minimax)

			if _, err := s.NextRound(context.Background(), "r1"); !errors.Is(err, ErrRoundActive) {
				t.Fatalf("NextRound on active round: err = %v", err)
			}
			if _, err := s.SubmitMove(context.Background(), "r1", game.Human, game.TakeAt(0)); err != nil {
				t.Fatalf("SubmitMove: %v", err)
			}
			next, err := s.NextRound(context.Background(), "r1")
			if err != nil {
				t.Fatalf("NextRound: %v", err)
			}
			if next.Level != tt.wantLevel {
				t.Errorf("Level = %d, want %d", next.Level, tt.wantLevel)
			}
			if next.PlayerName != "alice" || next.Algorithm != string(agent.Minimax) {
				t.Errorf("settings not carried over: %+v", next)
			}
			if next.SessionID == "r1" {
				t.Errorf("next round reused the session id")
			}
		})
	}
}

func TestBestLevel(t *testing.T) {
	s, store, _, _ := newTestService()

	best, err := s.BestLevel(context.Background(), "alice")
	if err != nil || best != 0 {
		t.Fatalf("BestLevel before any win = %d, %v", best, err)
	}

	insertRound(t, store, "r1", game.State{Sequence: []int{4}, Turn: game.Human}, 3, agent.AlphaBeta)
	if _, err := s.SubmitMove(context.Background(), "r1", game.Human, game.TakeAt(0)); err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	for _, name := range []string{"alice", "  alice  ", "\talice"} {
		best, err = s.BestLevel(context.Background(), name)
		if err != nil || best != 3 {
			t.Errorf("BestLevel(%q) = %d, %v, want 3", name, best, err)
		}
	}

	if _, err := s.BestLevel(context.Background(), "al\x00ice"); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("BestLevel with a control character: err = %v", err)
	}
}

// flakyStore fails the first failures calls to RecordLevel.
type flakyStore struct {
	*db.MemoryStore
	failures int
	calls    int
}

func (f *flakyStore) RecordLevel(ctx context.Context, name string, level int) (int, error) {
	f.calls++
	if f.calls <= f.failures {
		return 0, errors.New("write timeout")
	}
	return f.MemoryStore.RecordLevel(ctx, name, level)
}

func newFlakyService(failures int) (*RoundService, *flakyStore, *recordingBroadcaster, *recordingNotifier) {
	store := &flakyStore{MemoryStore: db.NewMemoryStore(), failures: failures}
	completion := NewRoundCompletionService(store)
	completion.retryDelay = 0
	b := &recordingBroadcaster{}
	n := &recordingNotifier{}
	s := NewRoundService(store, completion, b, agent.AlphaBeta, 0)
	s.SetTurnNotifier(n)
	return s, store, b, n
}

func TestSubmitMoveRetriesRecordLevel(t *testing.T) {
	s, store, _, _ := newFlakyService(2)
	insertRound(t, store.MemoryStore, "r1", game.State{Sequence: []int{4}, Turn: game.Human}, 3, agent.AlphaBeta)

	out, err := s.SubmitMove(context.Background(), "r1", game.Human, game.TakeAt(0))
	if err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	if out.Completion == nil || out.Completion.BestLevel != 3 {
		t.Errorf("completion = %+v", out.Completion)
	}
	if store.calls != 3 {
		t.Errorf("RecordLevel calls = %d, want 3", store.calls)
	}
}

func TestSubmitMoveReportsLostBestLevel(t *testing.T) {
	s, store, b, n := newFlakyService(10)
	insertRound(t, store.MemoryStore, "r1", game.State{Sequence: []int{4}, Turn: game.Human}, 3, agent.AlphaBeta)

	out, err := s.SubmitMove(context.Background(), "r1", game.Human, game.TakeAt(0))
	if err == nil {
		t.Fatalf("SubmitMove succeeded with outcome %+v", out)
	}
	if store.calls != 3 {
		t.Errorf("RecordLevel calls = %d, want 3", store.calls)
	}

	stored, _ := store.GetRound(context.Background(), "r1")
	if stored.Status != models.RoundStatusComplete {
		t.Errorf("status = %s", stored.Status)
	}
	if b.last() != EventRoundOver || len(n.stopped) != 1 {
		t.Errorf("watchers not told the round ended: last event %q, stopped %v", b.last(), n.stopped)
	}
}
