package middleware

import (
	"context"
	"net/http"
	"strings"
	"thetraitors/internal/service"

	"github.com/gorilla/mux"
)

type contextKey string

const (
	PlayerIDKey contextKey = "playerId"
	GameIDKey   contextKey = "gameId"
	IsHostKey   contextKey = "isHost"
)

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequirePlayer validates a player JWT from the Authorization header or the
// token query param. The token must belong to the game named in the route.
func (m *AuthMiddleware) RequirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			// Try query param for WebSocket
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			http.Error(w, `{"error":"missing authorization"}`, http.StatusUnauthorized)
			return
		}

		claims, err := m.authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		if gameID, ok := mux.Vars(r)["gameId"]; ok && gameID != claims.GameID {
			http.Error(w, `{"error":"token not valid for this game"}`, http.StatusForbidden)
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, PlayerIDKey, claims.PlayerID)
		ctx = context.WithValue(ctx, GameIDKey, claims.GameID)
		ctx = context.WithValue(ctx, IsHostKey, claims.IsHost)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetPlayerID extracts player ID from context
func GetPlayerID(ctx context.Context) string {
	if v := ctx.Value(PlayerIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetGameID extracts the token's game ID from context
func GetGameID(ctx context.Context) string {
	if v := ctx.Value(GameIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// IsHost reports whether the token was issued to the game's host
func IsHost(ctx context.Context) bool {
	v, _ := ctx.Value(IsHostKey).(bool)
	return v
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
