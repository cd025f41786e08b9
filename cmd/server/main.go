package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"split-game/internal/agent"
	"split-game/internal/auth"
	"split-game/internal/config"
	"split-game/internal/db"
	"split-game/internal/handlers"
	"split-game/internal/logging"
	"split-game/internal/middleware"
	"split-game/internal/services"
)

func main() {
	// Load configuration
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().Str("env", cfg.Environment).Msg("Starting split game server")

	// Storage: MongoDB when configured, otherwise in process
	var store db.Store
	if cfg.MongoDB.URI != "" {
		mongodb, err := db.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		log.Info().Str("database", cfg.MongoDB.Database).Msg("Connected to MongoDB")
		store = mongodb
	} else {
		log.Warn().Msg("No MongoDB URI configured, rounds are kept in memory")
		store = db.NewMemoryStore()
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store.Close(ctx)
	}()

	defaultAlgorithm, err := agent.ParseAlgorithm(cfg.Game.Algorithm)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid game.algorithm")
	}

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret must be set")
	}
	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.TokenTTL())

	// Round services
	wsHandler := handlers.NewWebSocketHandler(store)
	completion := services.NewRoundCompletionService(store)
	roundService := services.NewRoundService(store, completion, wsHandler, defaultAlgorithm, cfg.Game.SequenceLength)

	// Computer player
	computer := agent.NewComputerPlayer(store, roundService, cfg.ThinkDelay())
	roundService.SetTurnNotifier(computer)
	computer.ResumeActiveRounds(context.Background())

	cleanup := services.NewStaleRoundCleanupService(store, roundService, cfg.StaleAfter())
	cleanup.Start()

	limiter := middleware.NewRateLimiter()

	router := handlers.Router(
		handlers.NewRoundHandler(roundService, tokens),
		handlers.NewPlayerHandler(roundService),
		wsHandler,
		middleware.NewAuthMiddleware(tokens),
		limiter,
	)

	// CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.Frontend.URL},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	cleanup.Stop()
	computer.Stop()
	limiter.Stop()
	wsHandler.GetHub().Stop()

	log.Info().Msg("Server stopped")
}
