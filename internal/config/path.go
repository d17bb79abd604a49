package config

import (
	"os"
	"path/filepath"
)

const (
	appName = "fetchttp"
	dirEnv  = "FETCHTTP_CONFIG_DIR"
)

// Dir resolves to $FETCHTTP_CONFIG_DIR, else os.UserConfigDir()/fetchttp,
// else ".fetchttp" relative to the working directory.
func Dir() string {
	if dir := os.Getenv(dirEnv); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(base, appName)
}

// DefaultPath is the file Load reads when no explicit path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}
