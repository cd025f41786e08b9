package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"split-game/internal/models"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

var _ Store = (*MongoDB)(nil)

func NewMongoDB(uri, database string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(100).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(5 * time.Minute)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := &MongoDB{
		Client:   client,
		Database: client.Database(database),
	}

	// Create indexes in the background (non-blocking)
	go db.ensureIndexes()

	return db, nil
}

// ensureIndexes creates all required indexes. Called once on startup.
func (m *MongoDB) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	indexes := []struct {
		collection string
		models     []mongo.IndexModel
	}{
		{
			"rounds",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "sessionId", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updatedAt", Value: -1}}},
			},
		},
		{
			"players",
			[]mongo.IndexModel{
				{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
			},
		},
	}

	for _, idx := range indexes {
		coll := m.Database.Collection(idx.collection)
		_, err := coll.Indexes().CreateMany(ctx, idx.models)
		if err != nil {
			log.Warn().Err(err).Str("collection", idx.collection).Msg("failed to create indexes")
		}
	}

	log.Info().Msg("Database indexes ensured")
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

func (m *MongoDB) Rounds() *mongo.Collection {
	return m.Database.Collection("rounds")
}

func (m *MongoDB) Players() *mongo.Collection {
	return m.Database.Collection("players")
}

func (m *MongoDB) InsertRound(ctx context.Context, round *models.Round) error {
	_, err := m.Rounds().InsertOne(ctx, round)
	if mongo.IsDuplicateKeyError(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert round %s: %w", round.SessionID, err)
	}
	return nil
}

func (m *MongoDB) GetRound(ctx context.Context, sessionID string) (*models.Round, error) {
	var round models.Round
	err := m.Rounds().FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&round)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load round %s: %w", sessionID, err)
	}
	return &round, nil
}

func (m *MongoDB) UpdateRound(ctx context.Context, round *models.Round, expectedMoveCount int) error {
	filter := bson.M{"sessionId": round.SessionID, "moveCount": expectedMoveCount}
	update := bson.M{"$set": bson.M{
		"state":       round.State,
		"status":      round.Status,
		"winner":      round.Winner,
		"endReason":   round.EndReason,
		"lastMove":    round.LastMove,
		"moveCount":   round.MoveCount,
		"updatedAt":   round.UpdatedAt,
		"completedAt": round.CompletedAt,
	}}

	res, err := m.Rounds().UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update round %s: %w", round.SessionID, err)
	}
	if res.MatchedCount == 0 {
		if _, err := m.GetRound(ctx, round.SessionID); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

func (m *MongoDB) ActiveRounds(ctx context.Context) ([]models.Round, error) {
	return m.findRounds(ctx, bson.M{"status": models.RoundStatusActive})
}

func (m *MongoDB) StaleRounds(ctx context.Context, before time.Time) ([]models.Round, error) {
	return m.findRounds(ctx, bson.M{
		"status":    models.RoundStatusActive,
		"updatedAt": bson.M{"$lt": before},
	})
}

func (m *MongoDB) findRounds(ctx context.Context, filter bson.M) ([]models.Round, error) {
	opts := options.Find().SetSort(bson.M{"updatedAt": 1}).SetLimit(500)
	cursor, err := m.Rounds().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer cursor.Close(ctx)

	var rounds []models.Round
	if err := cursor.All(ctx, &rounds); err != nil {
		return nil, fmt.Errorf("failed to decode rounds: %w", err)
	}
	return rounds, nil
}

func (m *MongoDB) GetPlayer(ctx context.Context, name string) (*models.Player, error) {
	var player models.Player
	err := m.Players().FindOne(ctx, bson.M{"name": name}).Decode(&player)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load player %s: %w", name, err)
	}
	return &player, nil
}

func (m *MongoDB) RecordLevel(ctx context.Context, name string, level int) (int, error) {
	update := bson.M{
		"$max": bson.M{"bestLevel": level},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var player models.Player
	err := m.Players().FindOneAndUpdate(ctx, bson.M{"name": name}, update, opts).Decode(&player)
	if err != nil {
		return 0, fmt.Errorf("failed to record level for %s: %w", name, err)
	}
	return player.BestLevel, nil
}
