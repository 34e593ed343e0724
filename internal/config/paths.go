package config

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the state directory.
const HomeEnv = "POWERFLOW_HOME"

const (
	dirName        = ".powerflow"
	configFileName = "config.toml"
	statusFileName = "daemon_status.json"
	pidFileName    = "powerflow.pid"
	logFileName    = "daemon.log"
	ledgerFileName = "history.db"
)

// Dir returns the directory holding configuration and daemon state.
func Dir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, dirName)
	}
	return dirName
}

// DefaultPath returns the configuration file path.
func DefaultPath() string { return filepath.Join(Dir(), configFileName) }

// StatusPath returns the daemon status file path.
func StatusPath() string { return filepath.Join(Dir(), statusFileName) }

// PIDPath returns the single-instance guard path.
func PIDPath() string { return filepath.Join(Dir(), pidFileName) }

// LogPath returns the daemon log path.
func LogPath() string { return filepath.Join(Dir(), logFileName) }

// LedgerPath returns the sync history database path.
func LedgerPath() string { return filepath.Join(Dir(), ledgerFileName) }
