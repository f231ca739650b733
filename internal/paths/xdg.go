package paths

import (
	"os"
	"path/filepath"
)

func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	h, _ := os.UserHomeDir()
	return h
}

func xdgDir(envVar, fallbackSuffix string) string {
	if v := os.Getenv(envVar); v != "" {
		return filepath.Join(v, "unitybridge")
	}
	return filepath.Join(homeDir(), fallbackSuffix, "unitybridge")
}

// ConfigDir returns the unitybridge config directory ($XDG_CONFIG_HOME/unitybridge).
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// CacheDir returns the unitybridge cache directory ($XDG_CACHE_HOME/unitybridge).
func CacheDir() string {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// StateDir returns the unitybridge state directory ($XDG_STATE_HOME/unitybridge).
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// RuntimeDir returns the unitybridge runtime directory for sockets and state.
// Falls back to $XDG_STATE_HOME/unitybridge if XDG_RUNTIME_DIR is unset.
func RuntimeDir() string {
	if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
		return filepath.Join(v, "unitybridge")
	}
	return StateDir()
}

// ConfigFile returns the path to config.toml.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// SocketPath returns the path to the control Unix socket of a running bridge.
func SocketPath() string {
	return filepath.Join(RuntimeDir(), "bridge.sock")
}

// StatePath returns the path to the bridge state file (contains the control nonce).
func StatePath() string {
	return filepath.Join(RuntimeDir(), "bridge.state")
}

// EnsureDir creates a directory and parents if needed.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0700)
}
