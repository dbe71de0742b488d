// Package config provides configuration management for polyglot.
//
// Two layers are merged: a user-level JSON config file (API credentials,
// model selection) and an optional per-project polyglot.yaml (extraction
// and language settings). Environment variables take precedence for the
// API key.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"polyglot/internal/logger"
	"polyglot/internal/types"
)

const (
	// DefaultConfigFileName is the user-level configuration file name
	DefaultConfigFileName = "config.json"
	// EnvAPIKey is the primary environment variable for the API key
	EnvAPIKey = "POLYGLOT_API_KEY"
	// EnvOpenAIAPIKey is the fallback environment variable for the API key
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	// EnvBaseURL is the environment variable for the API base URL
	EnvBaseURL = "POLYGLOT_BASE_URL"
	// DefaultBaseURL is the default OpenAI-compatible API base URL
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is the default model to use for translation
	DefaultModel = "gpt-4o-mini"
	// DefaultMaxChunkSize is the default number of strings per API call
	DefaultMaxChunkSize = 50
	// DefaultChunkDelayMS is the default pause between chunk requests
	DefaultChunkDelayMS = 500
	// DefaultSourceLang is the assumed source language
	DefaultSourceLang = "en"
	// DefaultOutputDir is the default locale output directory
	DefaultOutputDir = "locales"
	// StateDirName is the per-project state directory holding memory and
	// glossary files
	StateDirName = ".polyglot"
)

// DefaultVisibleAttributes are the markup attributes whose values are
// treated as user-visible text.
var DefaultVisibleAttributes = []string{
	"placeholder", "title", "alt", "aria-label", "aria-description", "label",
}

// Config holds the merged application configuration.
type Config struct {
	APIKey       string `json:"api_key"`
	BaseURL      string `json:"base_url"`
	Model        string `json:"model"`
	MaxChunkSize int    `json:"max_chunk_size"`
	ChunkDelayMS int    `json:"chunk_delay_ms"`

	// Project-level settings, overridable by polyglot.yaml.
	SourceLang        string   `json:"source_lang"`
	TargetLangs       []string `json:"target_langs"`
	OutputDir         string   `json:"output_dir"`
	VisibleAttributes []string `json:"visible_attributes"`
	ExcludeRules      []string `json:"exclude_rules"`
	Tone              string   `json:"tone,omitempty"`
	Context           string   `json:"context,omitempty"`
}

// Manager loads and persists the user-level configuration file.
type Manager struct {
	configPath string
	config     *Config
}

// NewManager creates a Manager for the given config path. An empty path
// selects the default location under the user's config directory.
func NewManager(configPath string) (*Manager, error) {
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			logger.Error("failed to get user home directory", err)
			return nil, types.NewAppError(types.ErrConfig, "failed to get user home directory", err)
		}
		configPath = filepath.Join(homeDir, ".config", "polyglot", DefaultConfigFileName)
	}

	logger.Debug("config manager initialized", logger.String("configPath", configPath))
	return &Manager{
		configPath: configPath,
		config:     defaultConfig(),
	}, nil
}

func defaultConfig() *Config {
	return &Config{
		BaseURL:           DefaultBaseURL,
		Model:             DefaultModel,
		MaxChunkSize:      DefaultMaxChunkSize,
		ChunkDelayMS:      DefaultChunkDelayMS,
		SourceLang:        DefaultSourceLang,
		OutputDir:         DefaultOutputDir,
		VisibleAttributes: append([]string(nil), DefaultVisibleAttributes...),
	}
}

// Load reads the config file, falling back to defaults when it does not
// exist or cannot be parsed, then applies environment overrides.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("config file not found, using defaults", logger.String("path", m.configPath))
			m.config = defaultConfig()
		} else {
			logger.Error("failed to read config file", err, logger.String("path", m.configPath))
			return types.NewAppError(types.ErrConfig, "failed to read config file", err)
		}
	} else {
		config := &Config{}
		if err := json.Unmarshal(data, config); err != nil {
			logger.Warn("invalid config file format, using defaults",
				logger.String("path", m.configPath), logger.Err(err))
			m.config = defaultConfig()
		} else {
			m.config = config
		}
	}

	m.applyDefaults()
	m.applyEnv()
	return nil
}

func (m *Manager) applyDefaults() {
	if m.config.BaseURL == "" {
		m.config.BaseURL = DefaultBaseURL
	}
	if m.config.Model == "" {
		m.config.Model = DefaultModel
	}
	if m.config.MaxChunkSize <= 0 {
		m.config.MaxChunkSize = DefaultMaxChunkSize
	}
	if m.config.ChunkDelayMS < 0 {
		m.config.ChunkDelayMS = DefaultChunkDelayMS
	}
	if m.config.SourceLang == "" {
		m.config.SourceLang = DefaultSourceLang
	}
	if m.config.OutputDir == "" {
		m.config.OutputDir = DefaultOutputDir
	}
	if len(m.config.VisibleAttributes) == 0 {
		m.config.VisibleAttributes = append([]string(nil), DefaultVisibleAttributes...)
	}
}

// applyEnv overrides credentials from the environment. POLYGLOT_API_KEY
// wins over OPENAI_API_KEY; either wins over the config file.
func (m *Manager) applyEnv() {
	if key := os.Getenv(EnvAPIKey); key != "" {
		m.config.APIKey = key
	} else if key := os.Getenv(EnvOpenAIAPIKey); key != "" {
		m.config.APIKey = key
	}
	if url := os.Getenv(EnvBaseURL); url != "" {
		m.config.BaseURL = url
	}
}

// Save writes the current configuration to the config file.
func (m *Manager) Save() error {
	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create config directory", err, logger.String("dir", dir))
		return types.NewAppError(types.ErrConfig, "failed to create config directory", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return types.NewAppError(types.ErrConfig, "failed to marshal config", err)
	}

	// 0600: the file holds the API key
	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		logger.Error("failed to write config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to write config file", err)
	}
	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	return m.config
}

// Set replaces the current configuration.
func (m *Manager) Set(config *Config) {
	if config != nil {
		m.config = config
	}
}
