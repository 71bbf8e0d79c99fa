package config

// GeminiModels defines which Gemini models to use for different narrative tasks
type GeminiModels struct {
	// Narration is the per-phase story text, generated after every advance
	Narration string `json:"narration" mapstructure:"narration"`

	// Mission is one short objective per alive player, generated in bulk
	Mission string `json:"mission" mapstructure:"mission"`

	// Chaos is the host-triggered twist
	Chaos string `json:"chaos" mapstructure:"chaos"`

	// RoomLog is the one-line room interaction log (needs to be fast)
	RoomLog string `json:"roomLog" mapstructure:"roomlog"`
}

// AIConfig holds all AI-related configuration
type AIConfig struct {
	APIKey    string       `json:"-" mapstructure:"apikey"` // Never serialize
	BaseURL   string       `json:"baseUrl" mapstructure:"baseurl"`
	Models    GeminiModels `json:"models" mapstructure:"models"`
	TimeoutMS int          `json:"timeoutMs" mapstructure:"timeoutms"`
}

// DefaultAIConfig returns the default AI configuration
func DefaultAIConfig() *AIConfig {
	return &AIConfig{
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/models",
		Models: GeminiModels{
			Narration: "gemini-2.0-flash",
			Mission:   "gemini-2.0-flash",
			Chaos:     "gemini-2.0-flash",
			RoomLog:   "gemini-2.0-flash-lite",
		},
		TimeoutMS: 10000, // 10 second default timeout
	}
}

// IsEnabled returns true if the AI API is configured
func (c *AIConfig) IsEnabled() bool {
	return c.APIKey != ""
}

// ModelEndpoint returns the full endpoint for a given model
func (c *AIConfig) ModelEndpoint(model string) string {
	return c.BaseURL + "/" + model + ":generateContent"
}
