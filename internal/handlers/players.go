package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"split-game/internal/services"
)

type PlayerHandler struct {
	rounds *services.RoundService
}

func NewPlayerHandler(rounds *services.RoundService) *PlayerHandler {
	return &PlayerHandler{rounds: rounds}
}

type BestLevelResponse struct {
	Name      string `json:"name"`
	BestLevel int    `json:"bestLevel"`
}

func (h *PlayerHandler) GetBestLevel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	name := mux.Vars(r)["name"]
	best, err := h.rounds.BestLevel(ctx, name)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, BestLevelResponse{Name: name, BestLevel: best})
}
