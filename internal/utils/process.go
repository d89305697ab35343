package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Path2ProcessName extracts a bare process name from a command path.
func Path2ProcessName(path string) string {
	return filepath.Base(strings.Fields(path)[0])
}

// FindProcess finds a live process by PID and verifies its name, to avoid
// attaching to an unrelated process that reused the PID.
func FindProcess(processName string, pid int) (*os.Process, error) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, err
	}

	name, err := GetProcessName(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to get process name for PID %d: %v", pid, err)
	}

	if strings.EqualFold(name, processName) {
		return proc, nil
	}
	return nil, fmt.Errorf("process name mismatch: expected '%s', got '%s'", processName, name)
}
