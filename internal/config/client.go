package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ClientConfig configures parleyctl. Values come from an optional YAML file;
// a missing file yields defaults.
type ClientConfig struct {
	NatsURL     string            `yaml:"nats_url"`
	NatsToken   string            `yaml:"nats_token"`
	AssistantID string            `yaml:"assistant_id"`
	ServerURL   string            `yaml:"server_url"`
	StatePath   string            `yaml:"state_path"`
	Labels      map[string]string `yaml:"labels"`
}

// DefaultClientPath is where parleyctl looks for its config file.
func DefaultClientPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "parleyctl.yaml"
	}
	return filepath.Join(home, ".config", "parley", "parleyctl.yaml")
}

// LoadClient reads the YAML config at path, filling defaults for anything
// unset. A nonexistent file is not an error.
func LoadClient(path string) (ClientConfig, error) {
	cfg := ClientConfig{
		NatsURL:   "nats://localhost:4222",
		ServerURL: "http://localhost:8760",
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg.StatePath = defaultStatePath()
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.StatePath == "" {
		cfg.StatePath = defaultStatePath()
	}
	return cfg, nil
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "parley-state.db"
	}
	return filepath.Join(home, ".local", "state", "parley", "sessions.db")
}
