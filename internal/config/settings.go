// internal/config/settings.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Corphon/Diplomat/internal/models"
	"github.com/Corphon/Diplomat/internal/utils"
	"github.com/spf13/viper"
)

// SettingsStore is the client-side settings channel: read once per session,
// with SetEnabled as the only runtime mutation.
type SettingsStore interface {
	Load() (models.Settings, error)
	SetEnabled(enabled bool) error
}

// FileSettingsStore keeps settings in a YAML/JSON/TOML document.
// DIPLOMAT_* environment variables override file values.
type FileSettingsStore struct {
	mu     sync.Mutex
	path   string
	secret string
	v      *viper.Viper
	loaded bool
}

// NewSettingsStore creates a store for path. When secret is non-empty, llmApiKey is kept
// encrypted in the file.
func NewSettingsStore(path, secret string) *FileSettingsStore {
	if path == "" {
		path = DefaultSettingsPath()
	}
	return &FileSettingsStore{path: path, secret: secret}
}

// DefaultSettingsPath returns <user config dir>/diplomat/settings.yaml, or ./settings.yaml.
func DefaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "settings.yaml"
	}
	return filepath.Join(dir, "diplomat", "settings.yaml")
}

// Path returns the settings document location.
func (s *FileSettingsStore) Path() string {
	return s.path
}

func (s *FileSettingsStore) newViper() *viper.Viper {
	defaults := models.DefaultSettings()

	v := viper.New()
	v.SetDefault("enabled", defaults.Enabled)
	v.SetDefault("toxicityThreshold", defaults.ToxicityThreshold)
	v.SetDefault("maxComments", defaults.MaxComments)
	v.SetDefault("backendUrl", defaults.BackendURL)
	v.SetDefault("llmBaseUrl", "")
	v.SetDefault("llmModel", "")
	v.SetDefault("llmApiKey", "")

	v.SetConfigFile(s.path)
	if ext := strings.TrimPrefix(filepath.Ext(s.path), "."); ext == "" {
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DIPLOMAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the settings document, applying defaults for missing fields.
// A missing document is not an error.
func (s *FileSettingsStore) Load() (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.newViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return models.Settings{}, fmt.Errorf("read settings %s: %w", s.path, err)
		}
		utils.GetLogger().Debug("settings file not found, using defaults", map[string]interface{}{
			"path": s.path,
		})
	}

	s.v = v
	s.loaded = true
	return s.decode()
}

func (s *FileSettingsStore) decode() (models.Settings, error) {
	var settings models.Settings
	if err := s.v.Unmarshal(&settings); err != nil {
		return models.Settings{}, fmt.Errorf("decode settings: %w", err)
	}

	apiKey, err := utils.OpenSecret(settings.LLMAPIKey, s.secret)
	if err != nil {
		return models.Settings{}, fmt.Errorf("decrypt llmApiKey: %w", err)
	}
	settings.LLMAPIKey = apiKey

	return sanitizeSettings(settings), nil
}

// SetEnabled updates the enabled flag and persists the document.
func (s *FileSettingsStore) SetEnabled(enabled bool) error {
	if !s.isLoaded() {
		if _, err := s.Load(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set("enabled", enabled)
	settings, err := s.decode()
	if err != nil {
		return err
	}
	return s.write(settings)
}

func (s *FileSettingsStore) isLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// write persists settings through a fresh viper instance so that defaults are written explicitly.
func (s *FileSettingsStore) write(settings models.Settings) error {
	apiKey, err := utils.SealSecret(settings.LLMAPIKey, s.secret)
	if err != nil {
		return fmt.Errorf("encrypt llmApiKey: %w", err)
	}

	out := viper.New()
	out.Set("enabled", settings.Enabled)
	out.Set("toxicityThreshold", settings.ToxicityThreshold)
	out.Set("maxComments", settings.MaxComments)
	out.Set("backendUrl", settings.BackendURL)
	out.Set("llmBaseUrl", settings.LLMBaseURL)
	out.Set("llmModel", settings.LLMModel)
	out.Set("llmApiKey", apiKey)
	if ext := strings.TrimPrefix(filepath.Ext(s.path), "."); ext == "" {
		out.SetConfigType("yaml")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	if err := out.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}
	return nil
}

// sanitizeSettings clamps values that would make the engine misbehave.
func sanitizeSettings(settings models.Settings) models.Settings {
	defaults := models.DefaultSettings()
	if settings.ToxicityThreshold < 0 || settings.ToxicityThreshold > 1 {
		settings.ToxicityThreshold = defaults.ToxicityThreshold
	}
	if settings.MaxComments < 0 {
		settings.MaxComments = 0
	}
	settings.BackendURL = NormalizeBaseURL(settings.BackendURL)
	if settings.BackendURL == "" {
		settings.BackendURL = defaults.BackendURL
	}
	return settings
}
