// Package config provides the persistent key-value settings store:
// saved connections, command shortcuts, and update preferences.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Directory returns the per-user settings directory.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\sftpdeck
//   - Unix: ~/.config/sftpdeck
func Directory() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "sftpdeck")
			}
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(localAppData, "sftpdeck")
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "sftpdeck")
		}
		return filepath.Join(homeDir, ".config", "sftpdeck")
	}
	return filepath.Join(configDir, "sftpdeck")
}

// DefaultPath returns the default settings file path.
func DefaultPath() string {
	return filepath.Join(Directory(), "config.json")
}
