package env

import (
	"os"
	"path/filepath"
)

var Daemon bool = false
var ListenPort int = 0

// Version is stamped at build time via -ldflags.
var Version string = "dev"

// (default: %USERPROFILE%/.clara on Windows, $HOME/.clara on Linux/macOS)
var ClaraDir string = GetClaraDir()

/**
 * Get clara directory path
 * @returns {string} Returns clara directory path
 */
func GetClaraDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".clara")
}
