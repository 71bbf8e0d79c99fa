package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"thetraitors/internal/config"
	"thetraitors/internal/model"
	"time"
)

// Fallback texts used whenever generation is disabled or fails
const (
	FallbackNarration = "The shadows whisper of secrets yet to be revealed..."
	FallbackMission   = "Observe the other players carefully and take notes."
	FallbackChaos     = "The winds of change stir through the game..."
)

// FallbackRoomLog is the room log line used when generation fails
func FallbackRoomLog(objectName string) string {
	return fmt.Sprintf("The %s bears witness to another secret.", strings.ToLower(objectName))
}

// Narrator writes the game's story text. Implementations are best-effort:
// they should degrade to fallback text rather than fail a game action.
type Narrator interface {
	GenerateNarration(ctx context.Context, gc model.GameContext, recentEvent string) (string, error)
	GenerateMission(ctx context.Context, gc model.GameContext, pc model.PlayerContext) (string, error)
	GenerateChaosEvent(ctx context.Context, gc model.GameContext) (string, error)
	GenerateRoomInteractionLog(ctx context.Context, ri model.RoomInteraction) (string, error)
}

// GeminiNarrator generates narrative text via the Gemini API
type GeminiNarrator struct {
	config *config.AIConfig
	client *http.Client
}

// NewGeminiNarrator creates a new Gemini narrator
func NewGeminiNarrator(cfg *config.AIConfig) *GeminiNarrator {
	return &GeminiNarrator{
		config: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
	}
}

// GenerateNarration writes atmospheric narration for the start of a phase
func (n *GeminiNarrator) GenerateNarration(ctx context.Context, gc model.GameContext, recentEvent string) (string, error) {
	prompt := fmt.Sprintf(`You are the storyteller of a social deduction game where hidden traitors hunt the faithful.
Write dramatic, atmospheric narration for the phase that is beginning. Stay under 120 words.
Use poetic, suspenseful language and never reveal anyone's role.

Phase: %s
Day: %d
Players alive: %d of %d
%s`,
		gc.CurrentPhase, gc.CurrentDay, gc.AlivePlayerCount, gc.PlayerCount, eventLine(recentEvent))

	return n.generate(ctx, n.config.Models.Narration, prompt, FallbackNarration), nil
}

// GenerateMission writes a short private objective suited to the player's role
func (n *GeminiNarrator) GenerateMission(ctx context.Context, gc model.GameContext, pc model.PlayerContext) (string, error) {
	guidance := "Help the faithful gather information or build trust."
	if pc.Role == model.RoleTraitor {
		guidance = "Help the traitor blend in or subtly steer suspicion without being obvious."
	}

	prompt := fmt.Sprintf(`You create secret missions for a social deduction game.
Write ONE mission of one or two lines that can be verified through conversation with other players.
%s

Player role: %s
Phase: %s
Day: %d
Players alive: %d

Examples:
- Ask another player who they trust the most today.
- Start a gentle defense of someone without drawing attention to yourself.`,
		guidance, pc.Role, gc.CurrentPhase, gc.CurrentDay, gc.AlivePlayerCount)

	return n.generate(ctx, n.config.Models.Mission, prompt, FallbackMission), nil
}

// GenerateChaosEvent writes a one-line twist for the current phase
func (n *GeminiNarrator) GenerateChaosEvent(ctx context.Context, gc model.GameContext) (string, error) {
	prompt := fmt.Sprintf(`You create chaos events for a social deduction game.
Write ONE short, dramatic twist that shakes up the current round but stays fair to both sides.

Phase: %s
Day: %d
Players alive: %d of %d

Examples:
- All votes are anonymous this round.
- The next player to speak must defend their last vote.`,
		gc.CurrentPhase, gc.CurrentDay, gc.AlivePlayerCount, gc.PlayerCount)

	return n.generate(ctx, n.config.Models.Chaos, prompt, FallbackChaos), nil
}

// GenerateRoomInteractionLog writes a cryptic one-liner about an action in the shared room
func (n *GeminiNarrator) GenerateRoomInteractionLog(ctx context.Context, ri model.RoomInteraction) (string, error) {
	item := ""
	if ri.ItemName != "" {
		item = "\nItem placed: " + ri.ItemName
	}
	prompt := fmt.Sprintf(`You narrate anonymous actions in a mysterious shared room.
Describe this action in one short symbolic sentence. Do not name the player.

Action: %s
Object: %s%s`,
		ri.Action, ri.ObjectName, item)

	return n.generate(ctx, n.config.Models.RoomLog, prompt, FallbackRoomLog(ri.ObjectName)), nil
}

// generate calls the model and falls back to fallback on any failure
func (n *GeminiNarrator) generate(ctx context.Context, modelName, prompt, fallback string) string {
	if !n.config.IsEnabled() {
		return fallback
	}

	text, err := n.callGemini(ctx, modelName, prompt)
	if err != nil {
		log.Printf("Narrator: %s failed, using fallback: %v", modelName, err)
		return fallback
	}
	text = strings.Trim(strings.TrimSpace(text), `"`)
	if text == "" {
		return fallback
	}
	return text
}

// callGemini makes a request to the Gemini API
func (n *GeminiNarrator) callGemini(ctx context.Context, modelName, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     0.8,
			"maxOutputTokens": 200,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s?key=%s", n.config.ModelEndpoint(modelName), n.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned status %d", resp.StatusCode)
	}

	// Parse Gemini response structure
	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", err
	}

	if len(geminiResp.Candidates) > 0 && len(geminiResp.Candidates[0].Content.Parts) > 0 {
		return geminiResp.Candidates[0].Content.Parts[0].Text, nil
	}

	return "", fmt.Errorf("empty response from Gemini")
}

func eventLine(recentEvent string) string {
	if recentEvent == "" {
		return ""
	}
	return "Recent event: " + recentEvent
}
