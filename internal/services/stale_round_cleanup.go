package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"split-game/internal/db"
)

// StaleRoundCleanupService periodically abandons rounds nobody has moved in
// for a while, so their computer player goroutines are released.
type StaleRoundCleanupService struct {
	db             db.Store
	rounds         *RoundService
	stopCh         chan struct{}
	interval       time.Duration
	staleThreshold time.Duration
}

// NewStaleRoundCleanupService creates a new cleanup service.
func NewStaleRoundCleanupService(store db.Store, rounds *RoundService, staleThreshold time.Duration) *StaleRoundCleanupService {
	return &StaleRoundCleanupService{
		db:             store,
		rounds:         rounds,
		stopCh:         make(chan struct{}),
		interval:       1 * time.Minute,
		staleThreshold: staleThreshold,
	}
}

// Start begins the periodic cleanup loop in a background goroutine.
func (s *StaleRoundCleanupService) Start() {
	go s.runCleanupLoop()
	log.Info().Dur("interval", s.interval).Dur("threshold", s.staleThreshold).Msg("Stale round cleanup service started")
}

// Stop signals the cleanup loop to exit.
func (s *StaleRoundCleanupService) Stop() {
	close(s.stopCh)
	log.Info().Msg("Stale round cleanup service stopped")
}

func (s *StaleRoundCleanupService) runCleanupLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runCleanupPass(context.Background())
		}
	}
}

// runCleanupPass abandons every stale round and returns how many it closed.
func (s *StaleRoundCleanupService) runCleanupPass(parent context.Context) int {
	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()

	rounds, err := s.db.StaleRounds(ctx, s.rounds.now().Add(-s.staleThreshold))
	if err != nil {
		log.Error().Err(err).Msg("Stale round cleanup: failed to query stale rounds")
		return 0
	}

	closed := 0
	for i := range rounds {
		err := s.rounds.Abandon(ctx, &rounds[i])
		if errors.Is(err, db.ErrConflict) {
			// A move landed after the query; the round is no longer stale.
			continue
		}
		if err != nil {
			log.Error().Err(err).Str("round", rounds[i].SessionID).Msg("Stale round cleanup: failed to abandon round")
			continue
		}
		closed++
	}

	if closed > 0 {
		log.Info().Int("count", closed).Msg("Stale round cleanup: abandoned rounds")
	}
	return closed
}
