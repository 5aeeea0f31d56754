// internal/models/settings.go
package models

// Settings is the client-side configuration read once per session.
// Only Enabled is mutable at runtime, through SettingsStore.SetEnabled.
type Settings struct {
	Enabled           bool    `json:"enabled" mapstructure:"enabled" yaml:"enabled"`
	ToxicityThreshold float64 `json:"toxicityThreshold" mapstructure:"toxicityThreshold" yaml:"toxicityThreshold"`
	MaxComments       int     `json:"maxComments" mapstructure:"maxComments" yaml:"maxComments"`
	BackendURL        string  `json:"backendUrl" mapstructure:"backendUrl" yaml:"backendUrl"`
	LLMBaseURL        string  `json:"llmBaseUrl,omitempty" mapstructure:"llmBaseUrl" yaml:"llmBaseUrl"`
	LLMModel          string  `json:"llmModel,omitempty" mapstructure:"llmModel" yaml:"llmModel"`
	LLMAPIKey         string  `json:"llmApiKey,omitempty" mapstructure:"llmApiKey" yaml:"llmApiKey"`
}

// DefaultSettings returns the settings used when nothing is persisted.
func DefaultSettings() Settings {
	return Settings{
		Enabled:           true,
		ToxicityThreshold: DefaultThreshold,
		MaxComments:       50,
		BackendURL:        "http://localhost:8787",
	}
}

// Overrides extracts the LLM fields forwarded to the gateway.
func (s Settings) Overrides() LLMOverrides {
	return LLMOverrides{
		BaseURL: s.LLMBaseURL,
		Model:   s.LLMModel,
		APIKey:  s.LLMAPIKey,
	}
}
