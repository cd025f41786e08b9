package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"

	"split-game/internal/config"
	"split-game/internal/db"
	"split-game/internal/logging"
)

func main() {
	// Load config
	cfg, err := config.Load(config.GetEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Setup(cfg.Log.Level, true)

	if cfg.MongoDB.URI == "" {
		log.Fatal().Msg("mongodb.uri is empty, nothing to clear")
	}

	// Connect to MongoDB
	mongodb, err := db.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongodb.Close(ctx)
	}()

	ctx := context.Background()

	// Delete all rounds
	roundsResult, err := mongodb.Rounds().DeleteMany(ctx, bson.M{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to delete rounds")
	}
	fmt.Printf("Deleted %d rounds\n", roundsResult.DeletedCount)

	// Delete all best levels
	playersResult, err := mongodb.Players().DeleteMany(ctx, bson.M{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to delete players")
	}
	fmt.Printf("Deleted %d players\n", playersResult.DeletedCount)

	fmt.Println("Database cleared successfully")
}
