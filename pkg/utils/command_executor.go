// pkg/utils/command_executor.go

package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CommandExecutor interface defines methods for executing commands on the audited host
type CommandExecutor interface {
	RunCommand(ctx context.Context, command string, timeout time.Duration) (string, error)
	GetHostname() string
}

// RemoteExecutor executes commands via SSH
type RemoteExecutor struct {
	hostname   string
	connection *SSHConnection
}

// NewRemoteExecutor creates a new remote executor.
// Only the identity file is touched; the first connection is made by the first command.
func NewRemoteExecutor(config *SSHConfig, logger *zap.Logger) (*RemoteExecutor, error) {
	conn, err := NewSSHConnection(config, logger)
	if err != nil {
		return nil, err
	}

	return &RemoteExecutor{
		hostname:   config.Host,
		connection: conn,
	}, nil
}

// RunCommand executes a command remotely
func (e *RemoteExecutor) RunCommand(ctx context.Context, command string, timeout time.Duration) (string, error) {
	return e.connection.RunCommand(ctx, command, timeout)
}

// GetHostname returns the remote hostname
func (e *RemoteExecutor) GetHostname() string {
	return e.hostname
}
