package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"split-game/internal/agent"
	"split-game/internal/auth"
	"split-game/internal/game"
	"split-game/internal/middleware"
	"split-game/internal/models"
	"split-game/internal/services"
)

type RoundHandler struct {
	rounds *services.RoundService
	tokens *auth.TokenService
}

func NewRoundHandler(rounds *services.RoundService, tokens *auth.TokenService) *RoundHandler {
	return &RoundHandler{rounds: rounds, tokens: tokens}
}

type CreateRoundRequest struct {
	PlayerName string    `json:"playerName"`
	Algorithm  string    `json:"algorithm"`
	Length     int       `json:"length"`
	FirstMover game.Side `json:"firstMover"`
}

type RoundResponse struct {
	SessionID string        `json:"sessionId"`
	PlayerID  string        `json:"playerId"`
	Token     string        `json:"token"`
	ExpiresIn int64         `json:"expiresIn"` // token lifetime in seconds
	Round     *models.Round `json:"round"`
}

type MakeMoveRequest struct {
	Move string `json:"move"` // e.g. "take 3", "split2 0"
}

type LegalMovesResponse struct {
	Moves []game.Move `json:"moves"`
}

type HintResponse struct {
	Move  game.Move   `json:"move"`
	Value int         `json:"value"`
	Depth int         `json:"depth"`
	Stats agent.Stats `json:"stats"`
	State game.State  `json:"state"`
}

func (h *RoundHandler) CreateRound(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req CreateRoundRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	round, err := h.rounds.CreateRound(ctx, services.CreateRoundParams{
		PlayerName: req.PlayerName,
		Algorithm:  req.Algorithm,
		Length:     req.Length,
		FirstMover: req.FirstMover,
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	h.respondWithToken(w, http.StatusCreated, round)
}

func (h *RoundHandler) respondWithToken(w http.ResponseWriter, status int, round *models.Round) {
	token, err := h.tokens.GenerateRoundToken(round.SessionID, round.PlayerID)
	if err != nil {
		log.Error().Err(err).Str("round", round.SessionID).Msg("Failed to sign round token")
		respondWithError(w, http.StatusInternalServerError, "Failed to create round token")
		return
	}

	respondJSON(w, status, RoundResponse{
		SessionID: round.SessionID,
		PlayerID:  round.PlayerID,
		Token:     token,
		ExpiresIn: int64(h.tokens.TTL().Seconds()),
		Round:     round,
	})
}

func (h *RoundHandler) GetRound(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	round, err := h.rounds.GetRound(ctx, mux.Vars(r)["sessionId"])
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, round)
}

func (h *RoundHandler) GetLegalMoves(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	moves, err := h.rounds.LegalMoves(ctx, mux.Vars(r)["sessionId"])
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, LegalMovesResponse{Moves: moves})
}

func (h *RoundHandler) MakeMove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req MakeMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	move, err := game.ParseMove(req.Move)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	claims := middleware.GetClaims(r)
	outcome, err := h.rounds.SubmitMove(ctx, claims.SessionID, game.Human, move)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}

func (h *RoundHandler) GetHint(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.rounds.Hint(ctx, middleware.GetClaims(r).SessionID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, HintResponse{
		Move:  res.Move,
		Value: res.Value,
		Depth: res.Depth,
		Stats: res.Stats,
		State: res.State,
	})
}

// NextRound continues after a win or draw, or restarts after a loss.
func (h *RoundHandler) NextRound(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	round, err := h.rounds.NextRound(ctx, middleware.GetClaims(r).SessionID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	h.respondWithToken(w, http.StatusCreated, round)
}
