package services

import (
	"context"
	"testing"
	"time"

	"split-game/internal/agent"
	"split-game/internal/game"
	"split-game/internal/models"
)

func TestRunCleanupPassAbandonsStaleRounds(t *testing.T) {
	s, store, _, n := newTestService()
	ctx := context.Background()

	insertRound(t, store, "old", game.NewState([]int{1, 2}, game.Human), 2, agent.AlphaBeta)
	insertRound(t, store, "fresh", game.NewState([]int{1, 2}, game.Human), 1, agent.AlphaBeta)

	// Age "old" by pretending the clock moved forward, then touch "fresh".
	base := time.Now()
	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := s.SubmitMove(ctx, "fresh", game.Human, game.TakeAt(0)); err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}

	cleanup := NewStaleRoundCleanupService(store, s, time.Hour)
	if got := cleanup.runCleanupPass(ctx); got != 1 {
		t.Fatalf("runCleanupPass closed %d, want 1", got)
	}

	old, _ := store.GetRound(ctx, "old")
	if old.Status != models.RoundStatusComplete || old.EndReason != EndReasonAbandoned || old.Winner != "" {
		t.Errorf("old round = status %s reason %s winner %q", old.Status, old.EndReason, old.Winner)
	}
	if NextLevel(old) != 2 {
		t.Errorf("abandoned round should replay its level")
	}
	fresh, _ := store.GetRound(ctx, "fresh")
	if fresh.Status != models.RoundStatusActive {
		t.Errorf("fresh round status = %s", fresh.Status)
	}
	if len(n.stopped) != 1 || n.stopped[0] != "old" {
		t.Errorf("stopped = %v", n.stopped)
	}

	if got := cleanup.runCleanupPass(ctx); got != 0 {
		t.Errorf("second pass closed %d, want 0", got)
	}
}
