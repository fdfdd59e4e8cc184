// Package config holds gravitybridge's on-disk settings: a JSON settings
// file under a dotfile directory (loaded/saved through a mutex-guarded
// Store) plus a YAML discovery/workspace catalog, following the same
// layering the teacher repo uses for its own settings and provider
// catalog.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DiscoverySettings controls how the bridge finds a running assistant's
// CDP debug endpoint.
type DiscoverySettings struct {
	Ports            []int `json:"ports"`
	RequestTimeoutMs int   `json:"request_timeout_ms"`
}

// ChatSettings holds the credentials for each ChatTransport implementation.
type ChatSettings struct {
	DiscordToken   string  `json:"discord_token"`
	TelegramToken  string  `json:"telegram_token"`
	AllowedUserIDs []int64 `json:"allowed_user_ids"`
}

// PollSettings tunes the monitor/detector cadence. The YAML catalog
// (catalog.go) has per-workspace interval fields, but the daemon does not
// load the catalog, so these settings apply to every workspace.
type PollSettings struct {
	MonitorIntervalMs  int `json:"monitor_interval_ms"`
	DetectorIntervalMs int `json:"detector_interval_ms"`
	MaxInactivityMs    int `json:"max_inactivity_ms"`
}

// Settings is the full on-disk settings document.
type Settings struct {
	Discovery DiscoverySettings `json:"discovery"`
	Chat      ChatSettings      `json:"chat"`
	Poll      PollSettings      `json:"poll"`
	Theme     string            `json:"theme"`
}

// Store is a mutex-guarded, JSON-file-backed Settings document.
type Store struct {
	mu       sync.RWMutex
	path     string
	settings *Settings
}

// NewStore loads settings from ~/.gravitybridge/settings.json, creating the
// file with defaults if it does not yet exist.
func NewStore() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home dir: %w", err)
	}

	configDir := filepath.Join(homeDir, ".gravitybridge")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	store := &Store{
		path: filepath.Join(configDir, "settings.json"),
		settings: &Settings{
			Discovery: DiscoverySettings{
				Ports:            []int{9222, 9223, 9333, 9444, 9555, 9666},
				RequestTimeoutMs: 2000,
			},
			Poll: PollSettings{
				MonitorIntervalMs:  2000,
				DetectorIntervalMs: 2000,
				MaxInactivityMs:    300000,
			},
			Theme: "dark",
		},
	}

	if err := store.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		if err := store.Save(); err != nil {
			return nil, fmt.Errorf("failed to save default settings: %w", err)
		}
	}

	return store, nil
}

func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("failed to parse settings.json: %w", err)
	}

	s.settings = &settings
	return nil
}

func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := json.MarshalIndent(s.settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	return os.WriteFile(s.path, data, 0644)
}

func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.settings
}

func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	fn(s.settings)
	s.mu.Unlock()
	return s.Save()
}
