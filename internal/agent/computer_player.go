package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"split-game/internal/game"
	"split-game/internal/models"
)

// RoundSource loads rounds for the computer player.
type RoundSource interface {
	GetRound(ctx context.Context, sessionID string) (*models.Round, error)
	ActiveRounds(ctx context.Context) ([]models.Round, error)
}

// MoveSubmitter applies the computer's chosen move to a round.
type MoveSubmitter interface {
	PlayComputerMove(ctx context.Context, sessionID string, move game.Move) error
}

// activeRound tracks a running round's cancel func and turn notification channel.
type activeRound struct {
	cancel context.CancelFunc
	turnCh chan struct{}
}

// ComputerPlayer plays the AI side of every active round, one goroutine per round.
type ComputerPlayer struct {
	rounds       RoundSource
	submitter    MoveSubmitter
	thinkDelay   time.Duration
	depth        DepthPolicy
	mu           sync.Mutex
	activeRounds map[string]*activeRound // sessionID -> round loop
	wg           sync.WaitGroup
}

const maxConsecutiveErrors = 5 // player exits the round loop after this many consecutive load failures

// NewComputerPlayer creates a computer player. thinkDelay only delays
// publishing a move; it never changes which move is chosen.
func NewComputerPlayer(rounds RoundSource, submitter MoveSubmitter, thinkDelay time.Duration) *ComputerPlayer {
	return &ComputerPlayer{
		rounds:       rounds,
		submitter:    submitter,
		thinkDelay:   thinkDelay,
		depth:        DefaultDepth,
		activeRounds: make(map[string]*activeRound),
	}
}

// ResumeActiveRounds restarts loops for rounds left active by a previous run.
func (p *ComputerPlayer) ResumeActiveRounds(ctx context.Context) {
	rounds, err := p.rounds.ActiveRounds(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Computer player: error querying active rounds")
		return
	}

	resumed := 0
	for _, r := range rounds {
		if r.State.Turn == game.AI {
			p.NotifyTurn(r.SessionID)
			resumed++
		}
	}
	log.Info().Int("count", resumed).Msg("Computer player resumed rounds awaiting its move")
}

// NotifyTurn wakes the round loop, starting one if none is running.
func (p *ComputerPlayer) NotifyTurn(sessionID string) {
	p.mu.Lock()
	ar, exists := p.activeRounds[sessionID]
	if !exists {
		ctx, cancel := context.WithCancel(context.Background())
		ar = &activeRound{cancel: cancel, turnCh: make(chan struct{}, 1)}
		p.activeRounds[sessionID] = ar
		p.wg.Add(1)
		go p.playRound(ctx, sessionID, ar)
	}
	p.mu.Unlock()

	select {
	case ar.turnCh <- struct{}{}:
	default:
		// Already has a pending notification
	}
}

// StopRound stops the loop for a specific round.
func (p *ComputerPlayer) StopRound(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ar, exists := p.activeRounds[sessionID]; exists {
		ar.cancel()
		delete(p.activeRounds, sessionID)
	}
}

// Active reports how many round loops are running.
func (p *ComputerPlayer) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.activeRounds)
}

// Stop cancels all round loops and waits for them to exit.
func (p *ComputerPlayer) Stop() {
	p.mu.Lock()
	for sessionID, ar := range p.activeRounds {
		ar.cancel()
		delete(p.activeRounds, sessionID)
	}
	p.mu.Unlock()
	p.wg.Wait()
	log.Info().Msg("Computer player stopped")
}

// playRound is the loop for one round. It moves whenever it is the AI's turn
// and exits when the round completes or is cancelled.
func (p *ComputerPlayer) playRound(ctx context.Context, sessionID string, ar *activeRound) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("round", sessionID).Msg("Computer player panic")
		}
		p.mu.Lock()
		if p.activeRounds[sessionID] == ar {
			delete(p.activeRounds, sessionID)
		}
		p.mu.Unlock()
		p.wg.Done()
	}()

	consecutiveErrors := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		round, err := p.rounds.GetRound(ctx, sessionID)
		if err != nil {
			consecutiveErrors++
			log.Warn().Err(err).Str("round", sessionID).Int("attempt", consecutiveErrors).Msg("Computer player: error loading round")
			if consecutiveErrors >= maxConsecutiveErrors {
				log.Error().Str("round", sessionID).Msg("Computer player giving up on round")
				return
			}
			// Exponential backoff: 100ms, 200ms, 400ms, 800ms
			backoff := time.Duration(1<<uint(consecutiveErrors-1)) * 100 * time.Millisecond
			if !sleep(ctx, backoff) {
				return
			}
			continue
		}
		consecutiveErrors = 0

		if round.Status == models.RoundStatusComplete {
			return
		}

		if round.State.Turn != game.AI {
			// Wait for turn notification or timeout fallback
			select {
			case <-ctx.Done():
				return
			case <-ar.turnCh:
				continue
			case <-time.After(5 * time.Second):
				continue
			}
		}

		algo, err := ParseAlgorithm(round.Algorithm)
		if err != nil {
			log.Warn().Err(err).Str("round", sessionID).Msg("Computer player: falling back to random moves")
			algo = Random
		}

		log.Debug().Str("round", sessionID).Str("state", round.State.String()).Msg("Computer player: computing move")
		res, err := BestMove(round.State, algo, p.depth)
		if err != nil {
			if !errors.Is(err, game.ErrNoMovesAvailable) {
				log.Error().Err(err).Str("round", sessionID).Msg("Computer player: search failed")
			}
			return
		}

		if !sleep(ctx, p.thinkDelay) {
			return
		}

		if err := p.submitter.PlayComputerMove(ctx, sessionID, res.Move); err != nil {
			log.Warn().Err(err).Str("round", sessionID).Stringer("move", res.Move).Msg("Computer player: move rejected, retrying")
			if !sleep(ctx, 200*time.Millisecond) {
				return
			}
			continue
		}
		log.Info().Str("round", sessionID).Stringer("move", res.Move).Int("value", res.Value).
			Int("nodes", res.Stats.Nodes).Msg("Computer player moved")
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
