package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns the default embedded-store directory based on the
// host OS. It prefers standard locations when available and falls back to a
// dotdir in the user's home directory.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./data"
	}

	// XDG (Linux) override
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "incidents")
	}

	// macOS: ~/Library/Application Support/Incidents
	if isDir(filepath.Join(homeDir, "Library")) {
		return filepath.Join(homeDir, "Library", "Application Support", "Incidents")
	}

	// Windows: %USERPROFILE%/AppData/Local/Incidents
	if isDir(filepath.Join(homeDir, "AppData")) {
		return filepath.Join(homeDir, "AppData", "Local", "Incidents")
	}

	// Linux without XDG: ~/.local/share/incidents
	return filepath.Join(homeDir, ".local", "share", "incidents")
}

// ResolvedDataDir resolves the configured embedded-store directory.
func (s Storage) ResolvedDataDir() string {
	if s.DataDir != "" {
		return s.DataDir
	}
	return DefaultDataDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
