//go:build unix || linux || darwin

package utils

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// GetProcessName returns the command name of the given PID.
func GetProcessName(pid int) (string, error) {
	// -p: 指定进程，comm字段只含命令名
	out, err := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "comm=").Output()
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(string(out))
	if name == "" {
		return "", fmt.Errorf("process %d not found", pid)
	}
	return Path2ProcessName(name), nil
}

// IsProcessRunning reports whether the PID refers to a live process.
func IsProcessRunning(pid int) (bool, error) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false, err
	}
	// Signal 0 probes existence without delivering a signal.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return false, nil
	}
	return true, nil
}

// SetNewPG detaches the child into its own process group so it survives the
// keeper exiting.
func SetNewPG(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
