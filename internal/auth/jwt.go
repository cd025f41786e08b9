package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenService issues the bearer tokens that tie a player to a round.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

type RoundClaims struct {
	SessionID string `json:"sessionId"`
	PlayerID  string `json:"playerId"`
	jwt.RegisteredClaims
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// GenerateRoundToken creates a token allowing playerID to move in sessionID.
func (s *TokenService) GenerateRoundToken(sessionID, playerID string) (string, error) {
	now := time.Now()
	claims := RoundClaims{
		SessionID: sessionID,
		PlayerID:  playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateRoundToken validates and parses a round token
func (s *TokenService) ValidateRoundToken(tokenString string) (*RoundClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RoundClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*RoundClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// TTL returns the token time-to-live duration
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}
