package model

import "github.com/golang-jwt/jwt/v5"

// PlayerClaims are JWT claims identifying a player within one game.
// The host's token carries IsHost so host-only routes can be checked without a lookup.
type PlayerClaims struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	IsHost   bool   `json:"isHost,omitempty"`
	jwt.RegisteredClaims
}

// CreateGameRequest is the request body for creating a game
type CreateGameRequest struct {
	HostName string `json:"hostName"`
}

// CreateGameResponse is returned after a game is created
type CreateGameResponse struct {
	GameID   string `json:"gameId"`
	GameCode string `json:"gameCode"`
	HostID   string `json:"hostId"`
	Token    string `json:"token"`
}

// JoinGameRequest is the request body for joining a game by code
type JoinGameRequest struct {
	PlayerName string `json:"playerName"`
	GameCode   string `json:"gameCode"`
}

// JoinGameResponse is returned when a player joins a game
type JoinGameResponse struct {
	GameID     string `json:"gameId"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Token      string `json:"token"`
}
