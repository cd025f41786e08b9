package db

import (
	"context"
	"errors"
	"time"

	"split-game/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means the round changed since it was read.
	ErrConflict = errors.New("round was modified concurrently")
)

// Store persists rounds and the per-player best level.
type Store interface {
	InsertRound(ctx context.Context, round *models.Round) error
	GetRound(ctx context.Context, sessionID string) (*models.Round, error)
	// UpdateRound replaces the stored round only if its move count still
	// equals expectedMoveCount.
	UpdateRound(ctx context.Context, round *models.Round, expectedMoveCount int) error
	// ActiveRounds lists rounds that are still being played.
	ActiveRounds(ctx context.Context) ([]models.Round, error)
	// StaleRounds lists active rounds not updated since before.
	StaleRounds(ctx context.Context, before time.Time) ([]models.Round, error)
	GetPlayer(ctx context.Context, name string) (*models.Player, error)
	// RecordLevel raises the player's best level to level if it is higher and
	// returns the resulting best level.
	RecordLevel(ctx context.Context, name string, level int) (int, error)
	Close(ctx context.Context) error
}
