package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"split-game/internal/agent"
	"split-game/internal/db"
	"split-game/internal/game"
	"split-game/internal/models"
	"split-game/internal/utils"
)

var (
	ErrRoundOver     = errors.New("round is over")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrRoundActive   = errors.New("round is still in progress")
	ErrInvalidParams = errors.New("invalid round parameters")
)

const (
	EndReasonExhausted = "exhausted"
	EndReasonAbandoned = "abandoned"
)

// Broadcast event types.
const (
	EventRoundStarted = "round_started"
	EventMove         = "move"
	EventRoundOver    = "round_over"
)

// RoundBroadcaster is implemented by the WebSocket handler.
type RoundBroadcaster interface {
	BroadcastRound(event string, round *models.Round, completion *RoundCompletionResult)
}

// TurnNotifier is implemented by the computer player.
type TurnNotifier interface {
	NotifyTurn(sessionID string)
	StopRound(sessionID string)
}

// RoundService owns every state change of a round: creation, human and
// computer moves, completion and level progression.
type RoundService struct {
	db               db.Store
	completion       *RoundCompletionService
	broadcaster      RoundBroadcaster
	notifier         TurnNotifier
	defaultAlgorithm agent.Algorithm
	defaultLength    int
	now              func() time.Time
}

func NewRoundService(store db.Store, completion *RoundCompletionService, broadcaster RoundBroadcaster, defaultAlgorithm agent.Algorithm, defaultLength int) *RoundService {
	if defaultLength == 0 {
		defaultLength = game.DefaultSequenceLength
	}
	return &RoundService{
		db:               store,
		completion:       completion,
		broadcaster:      broadcaster,
		defaultAlgorithm: defaultAlgorithm,
		defaultLength:    defaultLength,
		now:              time.Now,
	}
}

// SetTurnNotifier connects the computer player. It is set after construction
// because the player submits its moves back through this service.
func (s *RoundService) SetTurnNotifier(n TurnNotifier) {
	s.notifier = n
}

// CreateRoundParams are the settings a player picks before a round.
type CreateRoundParams struct {
	PlayerName string
	Algorithm  string
	Length     int
	FirstMover game.Side
	Level      int
}

// MoveOutcome is the round after a move, plus completion details when the
// move ended it.
type MoveOutcome struct {
	Round      *models.Round          `json:"round"`
	Completion *RoundCompletionResult `json:"completion,omitempty"`
}

func generateID() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func (s *RoundService) CreateRound(ctx context.Context, p CreateRoundParams) (*models.Round, error) {
	algo := s.defaultAlgorithm
	if strings.TrimSpace(p.Algorithm) != "" {
		parsed, err := agent.ParseAlgorithm(p.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		algo = parsed
	}

	length := p.Length
	if length == 0 {
		length = s.defaultLength
	}

	first := p.FirstMover
	switch first {
	case "":
		first = game.Human
	case game.Human, game.AI:
	default:
		return nil, fmt.Errorf("%w: first mover must be %q or %q", ErrInvalidParams, game.Human, game.AI)
	}

	name, err := utils.NormalizePlayerName(p.PlayerName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if name == "" {
		name = utils.GeneratePlayerName()
	}

	seq, err := game.NewSequence(length)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	now := s.now()
	round := &models.Round{
		SessionID:  generateID(),
		PlayerID:   generateID(),
		PlayerName: name,
		Level:      max(p.Level, 1),
		Algorithm:  string(algo),
		FirstMover: first,
		Length:     length,
		State:      game.NewState(seq, first),
		Status:     models.RoundStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.InsertRound(ctx, round); err != nil {
		return nil, err
	}

	log.Info().Str("round", round.SessionID).Str("player", name).Int("level", round.Level).
		Str("algorithm", round.Algorithm).Str("first", string(first)).Msg("Round created")

	if s.broadcaster != nil {
		s.broadcaster.BroadcastRound(EventRoundStarted, round, nil)
	}
	if first == game.AI && s.notifier != nil {
		s.notifier.NotifyTurn(round.SessionID)
	}
	return round, nil
}

func (s *RoundService) GetRound(ctx context.Context, sessionID string) (*models.Round, error) {
	return s.db.GetRound(ctx, sessionID)
}

// LegalMoves returns the moves available to whoever is to move.
func (s *RoundService) LegalMoves(ctx context.Context, sessionID string) ([]game.Move, error) {
	round, err := s.db.GetRound(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if round.Status == models.RoundStatusComplete {
		return []game.Move{}, nil
	}
	return game.LegalMoves(round.State), nil
}

// SubmitMove applies move for side. The move is validated against the stored
// state, so a proposal made against an older state is rejected.
func (s *RoundService) SubmitMove(ctx context.Context, sessionID string, side game.Side, move game.Move) (*MoveOutcome, error) {
	round, err := s.db.GetRound(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if round.Status == models.RoundStatusComplete {
		return nil, ErrRoundOver
	}
	if round.State.Turn != side {
		return nil, ErrNotYourTurn
	}

	if err := round.State.Validate(); err != nil {
		return nil, fmt.Errorf("round %s has a corrupt state: %w", sessionID, err)
	}

	next, err := game.Apply(round.State, move)
	if err != nil {
		return nil, err
	}

	expected := round.MoveCount
	now := s.now()
	round.State = next
	round.MoveCount++
	round.LastMove = &models.LastMove{Side: side, Move: move}
	round.UpdatedAt = now
	if next.IsTerminal() {
		MarkComplete(round, EndReasonExhausted, now)
	}

	if err := s.db.UpdateRound(ctx, round, expected); err != nil {
		return nil, err
	}

	log.Debug().Str("round", sessionID).Str("side", string(side)).Stringer("move", move).
		Int("score", next.Score(side)).Str("state", next.String()).Msg("Move applied")

	outcome := &MoveOutcome{Round: round}
	if round.Status == models.RoundStatusComplete {
		completion, cerr := s.completion.ProcessRoundCompletion(ctx, round)
		if s.notifier != nil {
			s.notifier.StopRound(sessionID)
		}
		if s.broadcaster != nil {
			s.broadcaster.BroadcastRound(EventRoundOver, round, completion)
		}
		if cerr != nil {
			log.Error().Err(cerr).Str("round", sessionID).Msg("Failed to process round completion")
			return nil, fmt.Errorf("round %s completed: %w", sessionID, cerr)
		}
		outcome.Completion = completion
		return outcome, nil
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastRound(EventMove, round, nil)
	}
	if next.Turn == game.AI && s.notifier != nil {
		s.notifier.NotifyTurn(sessionID)
	}
	return outcome, nil
}

// PlayComputerMove submits the computer's move.
func (s *RoundService) PlayComputerMove(ctx context.Context, sessionID string, move game.Move) error {
	_, err := s.SubmitMove(ctx, sessionID, game.AI, move)
	return err
}

// Hint searches on the human's behalf with the round's algorithm. Rounds
// played against the random opponent get alpha-beta hints.
func (s *RoundService) Hint(ctx context.Context, sessionID string) (*agent.Result, error) {
	round, err := s.db.GetRound(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if round.Status == models.RoundStatusComplete {
		return nil, ErrRoundOver
	}
	if round.State.Turn != game.Human {
		return nil, ErrNotYourTurn
	}

	algo, err := agent.ParseAlgorithm(round.Algorithm)
	if err != nil || algo == agent.Random {
		algo = agent.AlphaBeta
	}
	return agent.BestMove(round.State, algo, agent.DefaultDepth)
}

// NextRound starts the round that follows a completed one, at the level the
// outcome earns.
func (s *RoundService) NextRound(ctx context.Context, sessionID string) (*models.Round, error) {
	prev, err := s.db.GetRound(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if prev.Status != models.RoundStatusComplete {
		return nil, ErrRoundActive
	}

	return s.CreateRound(ctx, CreateRoundParams{
		PlayerName: prev.PlayerName,
		Algorithm:  prev.Algorithm,
		Length:     prev.Length,
		FirstMover: prev.FirstMover,
		Level:      NextLevel(prev),
	})
}

// Abandon completes an active round without a winner.
func (s *RoundService) Abandon(ctx context.Context, round *models.Round) error {
	if round.Status == models.RoundStatusComplete {
		return nil
	}
	expected := round.MoveCount
	MarkComplete(round, EndReasonAbandoned, s.now())
	if err := s.db.UpdateRound(ctx, round, expected); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.StopRound(round.SessionID)
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastRound(EventRoundOver, round, nil)
	}
	return nil
}

// BestLevel returns the highest level the player has won, 0 if none. The name
// is normalised the same way CreateRound stores it.
func (s *RoundService) BestLevel(ctx context.Context, name string) (int, error) {
	name, err := utils.NormalizePlayerName(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	p, err := s.db.GetPlayer(ctx, name)
	if errors.Is(err, db.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return p.BestLevel, nil
}
