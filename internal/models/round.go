package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"split-game/internal/game"
)

type RoundStatus string

const (
	RoundStatusActive   RoundStatus = "active"   // Moves still being played
	RoundStatusComplete RoundStatus = "complete" // Sequence exhausted or abandoned
)

type Winner string

const (
	WinnerHuman Winner = "human"
	WinnerAI    Winner = "ai"
	WinnerDraw  Winner = "draw"
)

// Round is one game played against the computer at a given level.
type Round struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SessionID   string             `json:"sessionId" bson:"sessionId"`
	PlayerID    string             `json:"playerId" bson:"playerId"`
	PlayerName  string             `json:"playerName" bson:"playerName"`
	Level       int                `json:"level" bson:"level"`
	Algorithm   string             `json:"algorithm" bson:"algorithm"`
	FirstMover  game.Side          `json:"firstMover" bson:"firstMover"`
	Length      int                `json:"length" bson:"length"`
	State       game.State         `json:"state" bson:"state"`
	Status      RoundStatus        `json:"status" bson:"status"`
	Winner      Winner             `json:"winner,omitempty" bson:"winner,omitempty"`
	EndReason   string             `json:"endReason,omitempty" bson:"endReason,omitempty"` // "exhausted" or "abandoned"
	LastMove    *LastMove          `json:"lastMove,omitempty" bson:"lastMove,omitempty"`
	MoveCount   int                `json:"moveCount" bson:"moveCount"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
	CompletedAt *time.Time         `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// LastMove records only the most recent move so clients can animate it.
type LastMove struct {
	Side game.Side `json:"side" bson:"side"`
	Move game.Move `json:"move" bson:"move"`
}

// Player holds the one persistent counter the game keeps per name.
type Player struct {
	Name      string    `json:"name" bson:"name"`
	BestLevel int       `json:"bestLevel" bson:"bestLevel"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}
