package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	AppName = "convert-go"
)

// GetWorkspaceDir returns the root directory for runtime data: a local
// "_workspace" directory when present, else the OS data directory.
func GetWorkspaceDir() string {
	localDir := "_workspace"
	if _, err := os.Stat(localDir); err == nil {
		return localDir
	}

	var baseDir string
	switch runtime.GOOS {
	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			baseDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, _ := os.UserHomeDir()
		baseDir = filepath.Join(home, "Library", "Application Support")
	case "linux":
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			home, _ := os.UserHomeDir()
			baseDir = filepath.Join(home, ".local", "share")
		}
	default:
		return localDir
	}

	return filepath.Join(baseDir, AppName)
}

// ModeDir returns <workspace>/<kind>/<mode>, keeping paper, demo and real
// data apart.
func ModeDir(kind, mode string) string {
	mode = strings.ToLower(mode)
	if mode == "" {
		mode = "paper"
	}
	return filepath.Join(GetWorkspaceDir(), kind, mode)
}

// EnsureDir creates the directory if it doesn't exist (0755).
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// CreateLockFile creates workDir/<name>.lock holding the PID so only one
// long-running process uses the same data. The returned func removes it.
func CreateLockFile(workDir, name string) (func(), error) {
	lockPath := filepath.Join(workDir, name+".lock")

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("another instance is already running (lock file exists: %s)", lockPath)
		}
		return nil, err
	}
	_, werr := fmt.Fprintf(f, "%d", os.Getpid())
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(lockPath)
		return nil, werr
	}

	return func() { os.Remove(lockPath) }, nil
}

// ResolveConfigPath finds config.yaml in ./configs, then in the OS config
// dir. If neither exists the local path is returned and LoadConfig reports it.
func ResolveConfigPath() string {
	defaultPath := filepath.Join("configs", "config.yaml")
	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath
	}

	if configRoot, err := os.UserConfigDir(); err == nil {
		osPath := filepath.Join(configRoot, AppName, "config.yaml")
		if _, err := os.Stat(osPath); err == nil {
			return osPath
		}
	}

	return defaultPath
}
