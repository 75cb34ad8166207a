// Package paths centralizes the per-user filesystem layout used by the
// daemon and CLI. Every path in the repo is derived from here.
package paths

import (
	"os"
	"path/filepath"
)

// dirName is the single directory under the user's home that holds all
// daemon and CLI state. No other location is used.
const dirName = ".hl"

// Dir returns "<home>/.hl", resolving home once per call. It does not
// create the directory; callers create it lazily on first write.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, dirName), nil
}

// EnsureDir returns Dir() after making sure it exists.
func EnsureDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// Socket returns the IPC socket path.
func Socket() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "server.sock"), nil
}

// PID returns the daemon PID file path.
func PID() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "server.pid"), nil
}

// Log returns the daemon append-only log file path.
func Log() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "server.log"), nil
}

// ServerOptions returns the startup-options echo file path.
func ServerOptions() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "server.json"), nil
}

// UserConfig returns the user configuration file path.
func UserConfig() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "user-config.json"), nil
}
