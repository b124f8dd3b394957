package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

const (
	projectConfigName = "codapmeta.yaml"
	homeConfigDir     = ".codapmeta"
	homeConfigName    = "config.yaml"
)

// Duration wraps time.Duration so config values read as "30s" or "1m"
// from both YAML and environment variables.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	*d = Duration(dur)
	return nil
}

// Decode implements envdecode.Decoder.
func (d *Duration) Decode(value string) error {
	dur, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	*d = Duration(dur)
	return nil
}

// Config is the file and environment configuration for the CLI.
// Resolution order for every value: flag, then environment, then file.
type Config struct {
	BaseURL      string      `yaml:"base_url" env:"CODAPMETA_BASE_URL"`
	SessionID    string      `yaml:"session" env:"CODAPMETA_SESSION"`
	APIVersion   string      `yaml:"api_version" env:"CODAPMETA_API_VERSION"`
	Timeout      Duration    `yaml:"timeout" env:"CODAPMETA_TIMEOUT"`
	SnapshotPath string      `yaml:"snapshot_path" env:"CODAPMETA_SNAPSHOT_PATH"`
	OTLPEndpoint string      `yaml:"otlp_endpoint" env:"CODAPMETA_OTLP_ENDPOINT"`
	Watch        WatchConfig `yaml:"watch"`
}

// WatchConfig holds watch-command defaults.
type WatchConfig struct {
	Schedule string `yaml:"schedule" env:"CODAPMETA_WATCH_SCHEDULE"`
}

// LoadConfig resolves the config file with first-match discovery
// (explicit path, ./codapmeta.yaml, ~/.codapmeta/config.yaml), loads it
// when found, then overlays environment variables. Returns the config,
// the file path used ("" when none), and any error.
func LoadConfig(explicitPath string) (Config, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, "", fmt.Errorf("resolve working directory: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, "", fmt.Errorf("resolve user home: %w", err)
	}
	return LoadConfigFrom(explicitPath, cwd, homeDir)
}

// LoadConfigFrom is a testable variant of LoadConfig.
func LoadConfigFrom(explicitPath, cwd, homeDir string) (Config, string, error) {
	path, found, err := discoverConfigPath(explicitPath, cwd, homeDir)
	if err != nil {
		return Config{}, "", err
	}

	var cfg Config
	if found {
		// #nosec G304 -- path resolved from explicit local config discovery.
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, "", fmt.Errorf("reading config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, "", fmt.Errorf("parsing config %q: %w", path, err)
		}
	}

	// Environment wins over the file. No variables set is not an error.
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, "", fmt.Errorf("reading environment config: %w", err)
	}

	if !found {
		path = ""
	}
	return cfg, path, nil
}

func discoverConfigPath(explicitPath, cwd, homeDir string) (string, bool, error) {
	candidates := make([]string, 0, 2)
	if clean := strings.TrimSpace(explicitPath); clean != "" {
		candidates = append(candidates, filepath.Clean(clean))
	} else {
		candidates = append(candidates, filepath.Join(cwd, projectConfigName))
		candidates = append(candidates, filepath.Join(homeDir, homeConfigDir, homeConfigName))
	}

	for i, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			// If explicit path is set, not found is an error.
			if i == 0 && strings.TrimSpace(explicitPath) != "" {
				return "", false, fmt.Errorf("config file %q not found", candidate)
			}
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("checking config path %q: %w", candidate, err)
		}
	}
	return "", false, nil
}
