package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Settings keys. The store itself is schemaless; these are the keys the
// engines agree on.
const (
	KeyConnections        = "connections"
	KeyCommandShortcuts   = "command_shortcuts"
	KeyAutoUpdateCheck    = "auto_update_check"
	KeyAutoInstallUpdates = "auto_install_updates"
	KeyIncludePrereleases = "include_prereleases"
	KeyLastUpdateCheck    = "last_update_check"
)

// Connection holds one saved connection profile.
type Connection struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
}

// Shortcut holds one saved command shortcut, executed verbatim on the
// remote shell when triggered.
type Shortcut struct {
	Command     string `json:"command" mapstructure:"command"`
	Description string `json:"description" mapstructure:"description"`
	Category    string `json:"category" mapstructure:"category"`
}

// Store is a JSON-file-backed key-value settings store.
type Store struct {
	v    *viper.Viper
	path string
}

// Load opens the settings store at path, creating an empty store if the
// file does not exist yet. A corrupt file is an error; callers decide
// whether to start fresh.
func Load(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault(KeyAutoUpdateCheck, true)
	v.SetDefault(KeyAutoInstallUpdates, false)
	v.SetDefault(KeyIncludePrereleases, false)

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				if _, statErr := os.Stat(path); statErr == nil {
					return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
				}
			}
		}
		// Missing file: start with defaults only.
	}

	return &Store{v: v, path: path}, nil
}

// Get returns the value for key, or def when the key is unset.
func (s *Store) Get(key string, def interface{}) interface{} {
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.Get(key)
}

// GetBool returns the boolean value for key, or def when unset.
func (s *Store) GetBool(key string, def bool) bool {
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.GetBool(key)
}

// GetString returns the string value for key, or def when unset.
func (s *Store) GetString(key string, def string) string {
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.GetString(key)
}

// Set stores a value for key. The change is in-memory until Save.
func (s *Store) Set(key string, value interface{}) {
	s.v.Set(key, value)
}

// Save writes the store back to disk, creating the directory if needed.
func (s *Store) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Connections returns all saved connection profiles keyed by name.
func (s *Store) Connections() map[string]Connection {
	out := make(map[string]Connection)
	if err := s.v.UnmarshalKey(KeyConnections, &out); err != nil {
		return map[string]Connection{}
	}
	return out
}

// SaveConnection stores a connection profile under name and persists.
func (s *Store) SaveConnection(name string, conn Connection) error {
	conns := s.Connections()
	conns[name] = conn
	s.v.Set(KeyConnections, conns)
	return s.Save()
}

// DeleteConnection removes a saved connection profile and persists.
// Removing an unknown name is a no-op.
func (s *Store) DeleteConnection(name string) error {
	conns := s.Connections()
	if _, ok := conns[name]; !ok {
		return nil
	}
	delete(conns, name)
	s.v.Set(KeyConnections, conns)
	return s.Save()
}

// Shortcuts returns all saved command shortcuts keyed by name.
func (s *Store) Shortcuts() map[string]Shortcut {
	out := make(map[string]Shortcut)
	if err := s.v.UnmarshalKey(KeyCommandShortcuts, &out); err != nil {
		return map[string]Shortcut{}
	}
	return out
}

// SaveShortcut stores a command shortcut under name and persists.
func (s *Store) SaveShortcut(name string, sc Shortcut) error {
	shortcuts := s.Shortcuts()
	if sc.Category == "" {
		sc.Category = "General"
	}
	shortcuts[name] = sc
	s.v.Set(KeyCommandShortcuts, shortcuts)
	return s.Save()
}

// DeleteShortcut removes a command shortcut and persists.
func (s *Store) DeleteShortcut(name string) error {
	shortcuts := s.Shortcuts()
	if _, ok := shortcuts[name]; !ok {
		return nil
	}
	delete(shortcuts, name)
	s.v.Set(KeyCommandShortcuts, shortcuts)
	return s.Save()
}
