package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"split-game/internal/models"
)

// MemoryStore keeps everything in process. It backs development runs without
// MongoDB and the handler tests.
type MemoryStore struct {
	mu      sync.RWMutex
	rounds  map[string]models.Round
	players map[string]models.Player
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rounds:  make(map[string]models.Round),
		players: make(map[string]models.Player),
	}
}

// copyRound detaches the sequence slice so callers never share it with the map.
func copyRound(r models.Round) models.Round {
	r.State = r.State.Clone()
	if r.LastMove != nil {
		lm := *r.LastMove
		r.LastMove = &lm
	}
	return r
}

func (s *MemoryStore) InsertRound(_ context.Context, round *models.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rounds[round.SessionID]; exists {
		return ErrConflict
	}
	s.rounds[round.SessionID] = copyRound(*round)
	return nil
}

func (s *MemoryStore) GetRound(_ context.Context, sessionID string) (*models.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rounds[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyRound(r)
	return &out, nil
}

func (s *MemoryStore) UpdateRound(_ context.Context, round *models.Round, expectedMoveCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rounds[round.SessionID]
	if !ok {
		return ErrNotFound
	}
	if cur.MoveCount != expectedMoveCount {
		return ErrConflict
	}
	s.rounds[round.SessionID] = copyRound(*round)
	return nil
}

func (s *MemoryStore) ActiveRounds(_ context.Context) ([]models.Round, error) {
	return s.filter(func(r models.Round) bool {
		return r.Status == models.RoundStatusActive
	}), nil
}

func (s *MemoryStore) StaleRounds(_ context.Context, before time.Time) ([]models.Round, error) {
	return s.filter(func(r models.Round) bool {
		return r.Status == models.RoundStatusActive && r.UpdatedAt.Before(before)
	}), nil
}

func (s *MemoryStore) filter(keep func(models.Round) bool) []models.Round {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Round
	for _, r := range s.rounds {
		if keep(r) {
			out = append(out, copyRound(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out
}

func (s *MemoryStore) GetPlayer(_ context.Context, name string) (*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) RecordLevel(_ context.Context, name string, level int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.players[name]
	p.Name = name
	if level > p.BestLevel {
		p.BestLevel = level
	}
	p.UpdatedAt = time.Now()
	s.players[name] = p
	return p.BestLevel, nil
}

func (s *MemoryStore) Close(context.Context) error { return nil }
