// Package sshx provides the remote command execution capability used by the
// hardware prober and the remote deployment orchestrator.
package sshx

import (
	"context"
	"fmt"
	"net"
	"time"

	"clara-keeper/internal/models"

	"golang.org/x/crypto/ssh"
)

// CommandRunner abstracts "run a shell command on some host". The SSH client
// and the local runner both implement it, and tests substitute fakes.
type CommandRunner interface {
	Run(ctx context.Context, command string) (string, error)
	Close() error
}

// Client runs commands on a remote host over SSH with password auth.
type Client struct {
	conn *ssh.Client
	addr string
}

/**
 * Dial a remote host with password authentication
 * @param {context.Context} ctx - Context bounding the TCP dial
 * @param {models.SSHCredentials} creds - Host, port, username, password
 * @returns {(*Client, error)} Connected client or connection error
 */
func Dial(ctx context.Context, creds models.SSHCredentials) (*Client, error) {
	cfg := &ssh.ClientConfig{
		User: creds.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(creds.Password),
		},
		// Deployment targets are user-entered LAN hosts; host keys are not
		// pinned, matching the desktop setup flow.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	addr := creds.Addr()
	dialer := net.Dialer{Timeout: cfg.Timeout}
	tcpConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", addr, err)
	}

	conn, chans, reqs, err := ssh.NewClientConn(tcpConn, addr, cfg)
	if err != nil {
		tcpConn.Close()
		return nil, fmt.Errorf("ssh handshake %s: %w", addr, err)
	}

	return &Client{conn: ssh.NewClient(conn, chans, reqs), addr: addr}, nil
}

/**
 * Run a command on the remote host
 * @param {context.Context} ctx - Context; cancellation closes the session
 * @param {string} command - Shell command line
 * @returns {(string, error)} Combined stdout+stderr output
 */
func (c *Client) Run(ctx context.Context, command string) (string, error) {
	session, err := c.conn.NewSession()
	if err != nil {
		return "", fmt.Errorf("ssh session: %w", err)
	}
	defer session.Close()

	// CombinedOutput has no context support; close the session when the
	// context ends so a hung command degrades to an error, not a hang.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			session.Close()
		case <-done:
		}
	}()

	out, err := session.CombinedOutput(command)
	close(done)
	if ctx.Err() != nil {
		return string(out), ctx.Err()
	}
	if err != nil {
		return string(out), fmt.Errorf("remote command failed: %w", err)
	}
	return string(out), nil
}

// Addr returns the host:port this client is connected to.
func (c *Client) Addr() string {
	return c.addr
}

func (c *Client) Close() error {
	return c.conn.Close()
}
