package utils

import (
	"fmt"
	"net"
	"time"
)

// CheckPortConnectable reports whether something answers on localhost:port.
func CheckPortConnectable(port int) bool {
	timeout := time.Second
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("localhost", fmt.Sprintf("%d", port)), timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// CheckPortAvailable reports whether port is free to bind.
func CheckPortAvailable(port int) bool {
	return !CheckPortConnectable(port)
}

// WaitPortConnectable polls until the port answers or the deadline passes.
func WaitPortConnectable(port int, deadline time.Duration) bool {
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		if CheckPortConnectable(port) {
			return true
		}
		time.Sleep(500 * time.Millisecond)
	}
	return false
}
