package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"split-game/internal/middleware"
)

// Router wires every route. Kept separate from main so tests exercise the
// same routing the server uses.
func Router(rounds *RoundHandler, players *PlayerHandler, ws *WebSocketHandler, authMiddleware *middleware.AuthMiddleware, limiter *middleware.RateLimiter) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.SecurityHeaders)

	// WebSocket routes
	router.Handle("/ws/rounds/{sessionId}",
		limiter.PerIP(middleware.WebSocketUpgradeLimit)(http.HandlerFunc(ws.HandleWebSocket)))

	api := router.PathPrefix("/api").Subrouter()

	api.Handle("/rounds",
		limiter.PerIP(middleware.RoundCreationLimit)(http.HandlerFunc(rounds.CreateRound))).Methods("POST")
	api.HandleFunc("/rounds/{sessionId}", rounds.GetRound).Methods("GET")
	api.HandleFunc("/rounds/{sessionId}/moves", rounds.GetLegalMoves).Methods("GET")
	api.HandleFunc("/players/{name}/best", players.GetBestLevel).Methods("GET")

	// Round routes that act for the player (token required)
	playApi := api.PathPrefix("/rounds/{sessionId}").Subrouter()
	playApi.Use(authMiddleware.RequireRoundToken)
	playApi.Use(limiter.PerIP(middleware.MoveLimit))
	playApi.HandleFunc("/move", rounds.MakeMove).Methods("POST")
	playApi.HandleFunc("/hint", rounds.GetHint).Methods("GET")
	playApi.HandleFunc("/next", rounds.NextRound).Methods("POST")

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
