//go:build windows

package utils

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// GetProcessName returns the image name of the given PID via tasklist.
func GetProcessName(pid int) (string, error) {
	out, err := exec.Command("tasklist", "/FI", fmt.Sprintf("PID eq %d", pid), "/NH", "/FO", "CSV").Output()
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(string(out))
	if line == "" || strings.Contains(line, "No tasks") {
		return "", fmt.Errorf("process %d not found", pid)
	}
	fields := strings.Split(line, ",")
	if len(fields) < 1 {
		return "", fmt.Errorf("unexpected tasklist output: %s", line)
	}
	return strings.Trim(fields[0], "\""), nil
}

// IsProcessRunning reports whether the PID refers to a live process.
func IsProcessRunning(pid int) (bool, error) {
	out, err := exec.Command("tasklist", "/FI", fmt.Sprintf("PID eq %d", pid), "/NH", "/FO", "CSV").Output()
	if err != nil {
		return false, err
	}
	return strings.Contains(string(out), strconv.Itoa(pid)), nil
}

// SetNewPG creates the child in a new process group so it survives the
// keeper exiting.
func SetNewPG(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
