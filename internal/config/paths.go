package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// appName is the application directory name used across all platforms.
const appName = "modaqd"

// configFileName is the config file name within DefaultConfigDir.
const configFileName = "config.json"

// DefaultConfigDir returns the platform-specific directory for the config
// file. On Linux, respects XDG_CONFIG_HOME (defaults to ~/.config/modaqd).
// On macOS, uses ~/Library/Application Support/modaqd per Apple guidelines.
// Other platforms fall back to ~/.config/modaqd.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return linuxConfigDir(home)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

// linuxConfigDir returns the XDG-compliant config directory for Linux.
func linuxConfigDir(home string) string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, ".config", appName)
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}

// DefaultDataDir returns the platform-specific directory for application
// state (the dedup cache database, audit log tree, PID file).
// On Linux, respects XDG_DATA_HOME (defaults to ~/.local/share/modaqd).
// On macOS, collapses config and data into the same Application Support
// directory, matching platform convention.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return linuxDataDir(home)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".local", "share", appName)
	}
}

// linuxDataDir returns the XDG-compliant data directory for Linux.
func linuxDataDir(home string) string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, ".local", "share", appName)
}

// DefaultCachePath returns the default dedup cache SQLite database path.
func DefaultCachePath() string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, "cache.db")
}

// DefaultLogDirectory returns the default audit log root, used when the
// config's LogDirectory field is empty.
func DefaultLogDirectory() string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, "logs")
}

// DefaultPIDPath returns the default PID file path for the daemon's
// single-instance guard.
func DefaultPIDPath() string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, "modaqd.pid")
}
