package service

// Event types pushed to connected clients
const (
	EventPlayerJoined  = "player_joined"
	EventGameStarted   = "game_started"
	EventVoteCast      = "vote_cast"
	EventPhaseAdvanced = "phase_advanced"
	EventGameEnded     = "game_ended"
	EventNarration     = "narration"
	EventMission       = "mission"
	EventChaos         = "chaos_event"
	EventRoomLog       = "room_log"
	EventRoomUpdated   = "room_updated"
	EventWhisper       = "whisper"
	EventWhisperLeaked = "whisper_leaked"
)

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToGame(gameID string, msgType string, payload interface{})
	BroadcastToPlayer(gameID, playerID string, msgType string, payload interface{})
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToGame(string, string, interface{})           {}
func (noopBroadcaster) BroadcastToPlayer(string, string, string, interface{}) {}
