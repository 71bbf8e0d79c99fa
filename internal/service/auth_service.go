package service

import (
	"errors"
	"fmt"
	"thetraitors/internal/model"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// AuthService issues and checks game-scoped player tokens. There are no
// accounts: creating or joining a game is what hands out a token.
type AuthService struct {
	jwtSecret []byte
	ttl       time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		jwtSecret: []byte(secret),
		ttl:       ttl,
	}
}

// IssueToken creates a token for a player of one game
func (s *AuthService) IssueToken(gameID, playerID string, isHost bool) (string, error) {
	now := time.Now()
	claims := &model.PlayerClaims{
		GameID:   gameID,
		PlayerID: playerID,
		IsHost:   isHost,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a player JWT and returns claims
func (s *AuthService) ValidateToken(tokenString string) (*model.PlayerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.PlayerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.PlayerClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
