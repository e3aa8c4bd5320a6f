// Package where resolves the per-platform locations of configuration, cache, logs and session files.
package where

import (
	"os"
	"path/filepath"

	"github.com/opentube/opentube/constant"
	"github.com/opentube/opentube/filesystem"
	"github.com/samber/lo"
)

// EnvConfigPath overrides the configuration directory.
const EnvConfigPath = "OPENTUBE_CONFIG_PATH"

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config is the configuration directory, honouring OPENTUBE_CONFIG_PATH.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base := lo.Must(os.UserConfigDir())
	return ensureDir(filepath.Join(base, constant.OpenTube))
}

// Cache is the persistent cache directory.
func Cache() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "cache")
	}
	return ensureDir(filepath.Join(base, constant.OpenTube))
}

// VersionCache is the file remembering the latest release tag.
func VersionCache() string {
	return filepath.Join(Cache(), "version.json")
}

// Logs is the directory for daily log files.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// History is the watch-position history file.
func History() string {
	return filepath.Join(Config(), "history.json")
}

// Sessions is the bbolt database holding handed-off play queues.
// It is always on the OS filesystem because bbolt memory-maps its file.
func Sessions() string {
	dir := filepath.Join(Cache(), "sessions")
	lo.Must0(os.MkdirAll(dir, os.ModePerm))
	return filepath.Join(dir, "queues.db")
}

// Temp is a scratch directory for mpv IPC sockets.
func Temp() string {
	return ensureDir(filepath.Join(os.TempDir(), constant.OpenTube))
}
