package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"thetraitors/internal/service"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed string
		origin  string
		want    bool
	}{
		{"unset allows any", "", "https://evil.example", true},
		{"wildcard allows any", "*", "https://evil.example", true},
		{"listed origin", "https://play.example, https://admin.example", "https://admin.example", true},
		{"case insensitive", "https://Play.example", "https://play.example", true},
		{"unlisted origin", "https://play.example", "https://evil.example", false},
		{"no origin header", "https://play.example", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, originChecker(tt.allowed)(r))
		})
	}
}

func TestHandler_GameWSChecksOrigin(t *testing.T) {
	hub := NewHub()
	authSvc := service.NewAuthService("test-secret", time.Hour)
	r := mux.NewRouter()
	r.HandleFunc("/ws/games/{gameId}", NewHandler(hub, authSvc, "https://play.example").GameWS)
	srv := httptest.NewServer(r)
	defer srv.Close()

	token, err := authSvc.IssueToken("g1", "p1", false)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/games/g1?token=" + token

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://play.example"}})
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ConnectionCount("g1") == 1 }, time.Second, 10*time.Millisecond)
	hub.BroadcastToGame("g1", "phase_advanced", map[string]int{"day": 2})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), "phase_advanced")
}
