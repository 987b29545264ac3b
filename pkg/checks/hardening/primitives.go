// pkg/checks/hardening/primitives.go

package hardening

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"gitlab.com/tradeinfra/host-conformance/pkg/config"
	"gitlab.com/tradeinfra/host-conformance/pkg/utils"
)

// Target is the host being audited. It does not change during a run.
type Target struct {
	Host    string
	Port    int
	User    string
	KeyFile string
}

func (t Target) String() string {
	return fmt.Sprintf("%s@%s:%d", t.User, t.Host, t.Port)
}

type probeFunc func(ctx context.Context, host string, port int, timeout time.Duration) bool

type memoEntry struct {
	output string
	err    error
}

// Session carries everything a check needs for one run against one target.
// Outputs fetched through RemoteOutput are remembered for the rest of the run.
type Session struct {
	Target   Target
	Settings *config.Settings

	exec    utils.CommandExecutor
	probe   probeFunc
	timeout time.Duration
	memo    map[string]memoEntry
	logger  *zap.Logger
}

// NewSession creates a session for target. A nil logger disables logging.
func NewSession(target Target, settings *config.Settings, exec utils.CommandExecutor, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		Target:   target,
		Settings: settings,
		exec:     exec,
		probe:    utils.PortReachable,
		timeout:  settings.Timeout,
		memo:     make(map[string]memoEntry),
		logger:   logger.With(zap.String("target", target.String())),
	}
}

// PortReachable reports whether a TCP connection to the target's port can be opened
func (s *Session) PortReachable(ctx context.Context, port int) bool {
	ok := s.probe(ctx, s.Target.Host, port, s.timeout)
	s.logger.Debug("port probe", zap.Int("port", port), zap.Bool("reachable", ok))
	return ok
}

// RemoteCommand runs command on the target without remembering the result
func (s *Session) RemoteCommand(ctx context.Context, command string) (string, error) {
	out, err := s.exec.RunCommand(ctx, command, s.timeout)
	if err != nil {
		s.logger.Debug("remote command failed",
			zap.String("command", command),
			zap.String("kind", string(utils.KindOf(err))),
			zap.Error(err))
		return "", err
	}
	return out, nil
}

// RemoteOutput runs command at most once per session and returns the remembered result afterwards.
// Failures are remembered too.
func (s *Session) RemoteOutput(ctx context.Context, command string) (string, error) {
	if entry, ok := s.memo[command]; ok {
		return entry.output, entry.err
	}
	out, err := s.RemoteCommand(ctx, command)
	s.memo[command] = memoEntry{output: out, err: err}
	return out, err
}

// RemoteTextContains reports whether a line of command's output starts with pattern
func (s *Session) RemoteTextContains(ctx context.Context, command, pattern string) bool {
	out, err := s.RemoteOutput(ctx, command)
	if err != nil {
		return false
	}
	return LineContains(out, pattern)
}

// RemoteServiceActive reports whether a systemd unit is active
func (s *Session) RemoteServiceActive(ctx context.Context, name string) bool {
	_, err := s.RemoteCommand(ctx, "systemctl is-active --quiet "+utils.ShellQuote(name))
	return err == nil
}

// RemoteFileExists reports whether path is a regular file on the target
func (s *Session) RemoteFileExists(ctx context.Context, path string) bool {
	_, err := s.RemoteCommand(ctx, "test -f "+utils.ShellQuote(path))
	return err == nil
}

// RemoteFileExecutable reports whether path exists and is executable on the target
func (s *Session) RemoteFileExecutable(ctx context.Context, path string) bool {
	_, err := s.RemoteCommand(ctx, "test -x "+utils.ShellQuote(path))
	return err == nil
}

// RemoteBinaryPresent reports whether name resolves on the remote PATH
func (s *Session) RemoteBinaryPresent(ctx context.Context, name string) bool {
	out, err := s.RemoteCommand(ctx, "command -v "+utils.ShellQuote(name))
	return err == nil && strings.TrimSpace(out) != ""
}
