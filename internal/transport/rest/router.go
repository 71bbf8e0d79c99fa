package rest

import (
	"net/http"
	"os"
	"thetraitors/internal/service"
	"thetraitors/internal/transport/rest/handler"
	"thetraitors/internal/transport/rest/middleware"
	"thetraitors/internal/transport/ws"

	"github.com/gorilla/mux"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService      *service.AuthService
	GameService      *service.GameService
	VoteService      *service.VoteService
	PhaseService     *service.PhaseService
	AutoPhaseService *service.AutoPhaseService
	NarrativeService *service.NarrativeService
	RoomService      *service.RoomService
	WhisperService   *service.WhisperService
	WSHub            *ws.Hub
	RateLimiter      *middleware.RateLimiter // nil disables rate limiting
	MaxRequestSize   int64
	CronSecret       string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	gameHandler := handler.NewGameHandler(c.GameService)
	voteHandler := handler.NewVoteHandler(c.VoteService)
	phaseHandler := handler.NewPhaseHandler(c.PhaseService, c.AutoPhaseService, c.CronSecret)
	narrativeHandler := handler.NewNarrativeHandler(c.NarrativeService)
	roomHandler := handler.NewRoomHandler(c.RoomService)
	whisperHandler := handler.NewWhisperHandler(c.WhisperService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, os.Getenv("CORS_ALLOWED_ORIGINS"))

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)
	if c.MaxRequestSize > 0 {
		r.Use(middleware.RequestSizeLimiter(c.MaxRequestSize))
	}

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()
	if c.RateLimiter != nil {
		v1.Use(c.RateLimiter.Middleware)
	}

	// Public routes
	v1.HandleFunc("/games", gameHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/join", gameHandler.Join).Methods("POST", "OPTIONS")
	v1.HandleFunc("/auto-phase/check", phaseHandler.Check).Methods("POST", "OPTIONS")

	// WebSocket route (token in query param)
	v1.HandleFunc("/ws/games/{gameId}", wsHandler.GameWS).Methods("GET")

	// Game routes (require a token for that game)
	gameRoutes := v1.PathPrefix("/games/{gameId}").Subrouter()
	gameRoutes.Use(authMW.RequirePlayer)

	gameRoutes.HandleFunc("", gameHandler.Get).Methods("GET", "OPTIONS")
	gameRoutes.HandleFunc("/start", gameHandler.Start).Methods("POST", "OPTIONS")
	gameRoutes.HandleFunc("/vote", voteHandler.Cast).Methods("POST", "OPTIONS")
	gameRoutes.HandleFunc("/next-phase", phaseHandler.Next).Methods("POST", "OPTIONS")
	gameRoutes.HandleFunc("/auto-phase", phaseHandler.GetAutoPhase).Methods("GET", "OPTIONS")
	gameRoutes.HandleFunc("/auto-phase", phaseHandler.SetAutoPhase).Methods("POST", "OPTIONS")

	gameRoutes.HandleFunc("/story", narrativeHandler.Story).Methods("GET", "OPTIONS")
	gameRoutes.HandleFunc("/narration", narrativeHandler.Narrate).Methods("POST", "OPTIONS")
	gameRoutes.HandleFunc("/missions", narrativeHandler.Missions).Methods("GET", "OPTIONS")
	gameRoutes.HandleFunc("/missions", narrativeHandler.GenerateMissions).Methods("POST", "OPTIONS")
	gameRoutes.HandleFunc("/missions/{missionId}/toggle", narrativeHandler.ToggleMission).Methods("POST", "OPTIONS")
	gameRoutes.HandleFunc("/chaos", narrativeHandler.Chaos).Methods("POST", "OPTIONS")
	gameRoutes.HandleFunc("/room", roomHandler.Get).Methods("GET", "OPTIONS")
	gameRoutes.HandleFunc("/room/initialize", roomHandler.Initialize).Methods("POST", "OPTIONS")
	gameRoutes.HandleFunc("/room/interact", roomHandler.Interact).Methods("POST", "OPTIONS")
	gameRoutes.HandleFunc("/room/log", roomHandler.Logs).Methods("GET", "OPTIONS")
	gameRoutes.HandleFunc("/whispers", whisperHandler.Inbox).Methods("GET", "OPTIONS")
	gameRoutes.HandleFunc("/whispers", whisperHandler.Send).Methods("POST", "OPTIONS")
	gameRoutes.HandleFunc("/whispers/{whisperId}/leak", whisperHandler.Leak).Methods("POST", "OPTIONS")
	gameRoutes.HandleFunc("/reveal", narrativeHandler.Reveal).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization, X-Cron-Secret"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
