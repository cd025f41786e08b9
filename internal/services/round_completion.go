package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"split-game/internal/db"
	"split-game/internal/models"
)

// RoundCompletionResult holds the results of processing a completed round
type RoundCompletionResult struct {
	Winner    models.Winner `json:"winner"`
	BestLevel int           `json:"bestLevel"`
	NextLevel int           `json:"nextLevel"`
}

// RoundCompletionService handles post-round processing: deciding the winner
// and raising the player's best level.
type RoundCompletionService struct {
	db db.Store

	// RecordLevel is retried with a linearly growing delay.
	attempts   int
	retryDelay time.Duration
}

// NewRoundCompletionService creates a new round completion service
func NewRoundCompletionService(store db.Store) *RoundCompletionService {
	return &RoundCompletionService{db: store, attempts: 3, retryDelay: 100 * time.Millisecond}
}

// DecideWinner compares the final scores of a finished round.
func DecideWinner(round *models.Round) models.Winner {
	switch {
	case round.State.HumanScore > round.State.AIScore:
		return models.WinnerHuman
	case round.State.AIScore > round.State.HumanScore:
		return models.WinnerAI
	default:
		return models.WinnerDraw
	}
}

// NextLevel is the level the following round is played at: a win or draw
// moves the player up, a loss sends them back to level 1 and an abandoned
// round is replayed at the same level.
func NextLevel(round *models.Round) int {
	switch round.Winner {
	case models.WinnerHuman, models.WinnerDraw:
		return round.Level + 1
	case models.WinnerAI:
		return 1
	default:
		return round.Level
	}
}

// MarkComplete finalises round in memory with the given reason.
func MarkComplete(round *models.Round, reason string, now time.Time) {
	round.Status = models.RoundStatusComplete
	round.EndReason = reason
	round.CompletedAt = &now
	round.UpdatedAt = now
	if reason == EndReasonExhausted {
		round.Winner = DecideWinner(round)
	}
}

// ProcessRoundCompletion records the player's best level after a win.
func (s *RoundCompletionService) ProcessRoundCompletion(ctx context.Context, round *models.Round) (*RoundCompletionResult, error) {
	if round.Status != models.RoundStatusComplete {
		log.Warn().Str("round", round.SessionID).Str("status", string(round.Status)).Msg("Round is not complete, skipping")
		return nil, nil
	}

	result := &RoundCompletionResult{
		Winner:    round.Winner,
		NextLevel: NextLevel(round),
	}

	if round.Winner == models.WinnerHuman {
		best, err := s.recordLevel(ctx, round)
		if err != nil {
			return nil, err
		}
		result.BestLevel = best
		log.Info().Str("round", round.SessionID).Str("player", round.PlayerName).
			Int("level", round.Level).Int("bestLevel", best).Msg("Player won round")
		return result, nil
	}

	if p, err := s.db.GetPlayer(ctx, round.PlayerName); err == nil {
		result.BestLevel = p.BestLevel
	}
	log.Info().Str("round", round.SessionID).Str("winner", string(round.Winner)).
		Str("reason", round.EndReason).Msg("Round finished")
	return result, nil
}

// recordLevel only ever raises the stored level, so repeating it is safe.
func (s *RoundCompletionService) recordLevel(ctx context.Context, round *models.Round) (int, error) {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		var best int
		best, err = s.db.RecordLevel(ctx, round.PlayerName, round.Level)
		if err == nil {
			return best, nil
		}
		log.Warn().Err(err).Str("round", round.SessionID).Int("attempt", attempt).Msg("Failed to record best level")
		if attempt == s.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("recording best level for %q: %w", round.PlayerName, ctx.Err())
		case <-time.After(time.Duration(attempt) * s.retryDelay):
		}
	}
	return 0, fmt.Errorf("recording best level for %q: %w", round.PlayerName, err)
}
