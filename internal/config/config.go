package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	Environment string `json:"environment"`
	Server      struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	} `json:"server"`
	MongoDB struct {
		URI      string `json:"uri"` // empty selects the in-memory store
		Database string `json:"database"`
	} `json:"mongodb"`
	Frontend struct {
		URL string `json:"url"`
	} `json:"frontend"`
	JWT struct {
		Secret   string `json:"secret"`
		TokenTTL int    `json:"tokenTtl"` // in hours
	} `json:"jwt"`
	Game struct {
		SequenceLength int    `json:"sequenceLength"`
		Algorithm      string `json:"algorithm"`
		ThinkDelayMs   int    `json:"thinkDelayMs"`
		StaleAfterMin  int    `json:"staleAfterMinutes"`
	} `json:"game"`
	Log struct {
		Level  string `json:"level"`
		Pretty bool   `json:"pretty"`
	} `json:"log"`
}

func Load(env string) (*Config, error) {
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		// Default to configs directory relative to working directory
		configDir = "configs"
	}

	filename := fmt.Sprintf("config.%s.json", env)
	configPath := filepath.Join(configDir, filename)

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	return Parse(env, data)
}

// Parse decodes a config document after expanding ${VAR} references and
// fills in defaults for anything left unset.
func Parse(env string, data []byte) (*Config, error) {
	configStr := expandEnvVars(string(data))

	var cfg Config
	if err := json.Unmarshal([]byte(configStr), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Environment = env
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.MongoDB.Database == "" {
		c.MongoDB.Database = "split_game"
	}
	if c.JWT.TokenTTL == 0 {
		c.JWT.TokenTTL = 24
	}
	if c.Game.SequenceLength == 0 {
		c.Game.SequenceLength = 15
	}
	if c.Game.Algorithm == "" {
		c.Game.Algorithm = "alphabeta"
	}
	if c.Game.StaleAfterMin == 0 {
		c.Game.StaleAfterMin = 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// ThinkDelay is the pause before the computer's move is published.
func (c *Config) ThinkDelay() time.Duration {
	return time.Duration(c.Game.ThinkDelayMs) * time.Millisecond
}

// StaleAfter is how long a round may sit without a move before it is abandoned.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Game.StaleAfterMin) * time.Minute
}

// TokenTTL is the lifetime of a round token.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.TokenTTL) * time.Hour
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		return os.Getenv(key)
	})
}

func GetEnv() string {
	env := os.Getenv("SPLIT_ENV")
	if env == "" {
		return "dev"
	}
	return env
}
