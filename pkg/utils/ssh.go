// pkg/utils/ssh.go

package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// SSHConfig holds SSH connection configuration
type SSHConfig struct {
	Host    string
	Port    string
	User    string
	KeyFile string
	Timeout time.Duration
}

// SSHConnection runs every command over its own freshly dialed SSH connection.
// Nothing is pooled: the socket of one call is closed before the next call starts.
type SSHConnection struct {
	Config *SSHConfig

	signer ssh.Signer
	logger *zap.Logger
}

// NewSSHConnection loads the identity file and prepares the connection.
// No network traffic happens here; a missing or unparseable key is returned
// as an error so callers can abort before any check runs.
func NewSSHConnection(config *SSHConfig, logger *zap.Logger) (*SSHConnection, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	signer, err := loadSigner(config.KeyFile)
	if err != nil {
		return nil, err
	}

	return &SSHConnection{
		Config: config,
		signer: signer,
		logger: logger,
	}, nil
}

// loadSigner reads and parses an unencrypted private key
func loadSigner(keyFile string) (ssh.Signer, error) {
	key, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read private key %s: %w", keyFile, err)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("unable to parse private key %s (it may be passphrase-protected): %w", keyFile, err)
	}

	return signer, nil
}

// clientConfig builds a key-only client configuration with no interactive prompts
func (s *SSHConnection) clientConfig(timeout time.Duration) *ssh.ClientConfig {
	return &ssh.ClientConfig{
		User:            s.Config.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(s.signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}
}

// RunCommand executes a command on the remote host and returns its stdout.
// Any failure (dial, handshake, authentication, non-zero exit, timeout)
// yields an *ExecError and no output.
func (s *SSHConnection) RunCommand(ctx context.Context, command string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = s.Config.Timeout
	}

	start := time.Now()
	output, err := s.run(ctx, command, timeout)
	elapsed := time.Since(start)

	if err != nil {
		s.logger.Debug("remote command failed",
			zap.String("host", s.Config.Host),
			zap.String("command", command),
			zap.String("kind", string(KindOf(err))),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return "", err
	}

	s.logger.Debug("remote command succeeded",
		zap.String("host", s.Config.Host),
		zap.String("command", command),
		zap.Int("bytes", len(output)),
		zap.Duration("elapsed", elapsed))
	return output, nil
}

func (s *SSHConnection) run(ctx context.Context, command string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	address := net.JoinHostPort(s.Config.Host, s.Config.Port)

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return "", newExecError(ctx, ErrKindConnect, command, err)
	}
	defer conn.Close()

	// The deadline bounds the handshake and the session; cancellation closes the socket early.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, s.clientConfig(timeout))
	if err != nil {
		kind := ErrKindConnect
		if isAuthFailure(err) {
			kind = ErrKindAuth
		}
		return "", newExecError(ctx, kind, command, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", newExecError(ctx, ErrKindConnect, command, err)
	}
	defer session.Close()

	var stdoutBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = io.Discard

	if err := session.Run(command); err != nil {
		return "", newExecError(ctx, ErrKindCommand, command, err)
	}

	return stdoutBuf.String(), nil
}

// isAuthFailure recognizes the handshake error x/crypto/ssh returns when every auth method was rejected
func isAuthFailure(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}
