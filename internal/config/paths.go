package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "blobfm"

const (
	configFileName = "config.toml"
	tokenFileName  = "token.json"
	stateFileName  = "state.db"
)

// baseDir describes where one kind of per-user directory lives.
type baseDir struct {
	xdgVar   string   // Linux override variable
	fallback []string // below $HOME on Linux and other Unixes
}

var (
	configBase = baseDir{xdgVar: "XDG_CONFIG_HOME", fallback: []string{".config"}}
	dataBase   = baseDir{xdgVar: "XDG_DATA_HOME", fallback: []string{".local", "share"}}
)

// resolve returns the blobfm directory of kind b for goos, or "" when the
// home directory is unknown. macOS keeps config and data together under
// Application Support.
func (b baseDir) resolve(goos, home string) string {
	if home == "" {
		return ""
	}

	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appName)
	case "linux":
		if xdg := os.Getenv(b.xdgVar); xdg != "" {
			return filepath.Join(xdg, appName)
		}
	}

	return filepath.Join(append(append([]string{home}, b.fallback...), appName)...)
}

func userHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return home
}

// DefaultConfigDir is the directory holding config.toml.
func DefaultConfigDir() string {
	return configBase.resolve(runtime.GOOS, userHome())
}

// DefaultDataDir holds the token file, the state database and watch locks.
func DefaultDataDir() string {
	return dataBase.resolve(runtime.GOOS, userHome())
}

// DefaultConfigPath is used when neither BLOBFM_CONFIG nor --config is set.
func DefaultConfigPath() string {
	return fileIn(DefaultConfigDir(), configFileName)
}

// DefaultTokenPath is where the signed-in account is saved.
func DefaultTokenPath() string {
	return fileIn(DefaultDataDir(), tokenFileName)
}

// DefaultStatePath is the SQLite database with view state and history.
func DefaultStatePath() string {
	return fileIn(DefaultDataDir(), stateFileName)
}

func fileIn(dir, name string) string {
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, name)
}
