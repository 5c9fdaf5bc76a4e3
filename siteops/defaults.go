// Package siteops holds application-wide defaults shared by the config,
// database and command packages.
package siteops

import (
	"os"
	"path/filepath"
)

const (
	DefaultAppName      = "siteops"
	DefaultEnvPrefix    = "SITEOPS"
	DefaultDatabaseType = "libsql"

	DefaultInferenceURL  = "http://localhost:11434"
	DefaultModel         = "llama3.2"
	DefaultServerAddress = ":8080"

	DefaultConversationTitleLength = 50
)

var (
	DefaultConfigPath  = filepath.Join(userConfigDir(), DefaultAppName)
	DefaultDatabaseDir = filepath.Join(userDataDir(), DefaultAppName)
	DefaultDatabaseDSN = filepath.Join(DefaultDatabaseDir, DefaultAppName+".db")
)

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return "."
}

func userDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share")
	}
	return "."
}
