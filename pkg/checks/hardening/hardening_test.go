package hardening

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/tradeinfra/host-conformance/pkg/config"
	"gitlab.com/tradeinfra/host-conformance/pkg/report"
	"gitlab.com/tradeinfra/host-conformance/pkg/utils"
)

// fakeExecutor answers known commands; anything else exits non-zero
type fakeExecutor struct {
	responses map[string]string
	failAll   error
	calls     map[string]int
}

func (f *fakeExecutor) RunCommand(ctx context.Context, command string, timeout time.Duration) (string, error) {
	f.calls[command]++
	if err := ctx.Err(); err != nil {
		return "", &utils.ExecError{Kind: utils.ErrKindCanceled, Command: command, Err: err}
	}
	if f.failAll != nil {
		return "", f.failAll
	}
	if out, ok := f.responses[command]; ok {
		return out, nil
	}
	return "", &utils.ExecError{Kind: utils.ErrKindCommand, Command: command, Err: errors.New("exit status 1")}
}

func (f *fakeExecutor) GetHostname() string {
	return "fake"
}

// recordingSink keeps everything the runner emits
type recordingSink struct {
	checks []*report.Check
	notes  []string
}

func (r *recordingSink) AddCheck(check *report.Check) {
	r.checks = append(r.checks, check)
}

func (r *recordingSink) Note(message string) {
	r.notes = append(r.notes, message)
}

func (r *recordingSink) status(id string) (report.Status, bool) {
	for _, c := range r.checks {
		if c.ID == id {
			return c.Result.Status, true
		}
	}
	return "", false
}

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	s, err := config.LoadSettings("")
	require.NoError(t, err)
	s.Timeout = time.Second
	return s
}

// conformingHost answers every command the way a fully hardened host on port would
func conformingHost(settings *config.Settings, port int) *fakeExecutor {
	p := strconv.Itoa(port)
	f2b := settings.Fail2ban

	responses := make(map[string]string)
	responses[keyAuthCommand] = "ok\n"
	responses[sshdConfigCommand] = "port " + p + "\npermitrootlogin no\npubkeyauthentication yes\npasswordauthentication no\n"
	responses["command -v "+utils.ShellQuote(f2b.Client)] = "/usr/bin/fail2ban-client\n"
	responses["systemctl is-active --quiet "+utils.ShellQuote(f2b.Service)] = ""
	responses[jailStatusCommand(f2b.Client, f2b.Jail)] = "Status for the jail: sshd\n" +
		"|- Filter\n|  |- Currently failed:\t0\n" +
		"`- Actions\n   |- Currently banned:\t3\n"
	responses[firewallDumpCommand] = "-P INPUT DROP\n-P FORWARD DROP\n-P OUTPUT ACCEPT\n" +
		"-A ufw-user-input -p tcp -m tcp --dport " + p + " -j ACCEPT\n"
	responses[sysctlCommand("net.ipv4.ip_forward")] = "0\n"
	responses[sysctlCommand("net.ipv4.tcp_syncookies")] = "1\n"
	responses[sysctlCommand("net.ipv4.conf.all.rp_filter")] = "2\n"
	for _, m := range settings.Markers {
		responses["test -f "+utils.ShellQuote(m)] = ""
	}
	for _, h := range settings.HelperScripts {
		responses["test -x "+utils.ShellQuote(h)] = ""
	}
	return &fakeExecutor{responses: responses, calls: make(map[string]int)}
}

func newTestSession(settings *config.Settings, port int, exec *fakeExecutor, openPorts ...int) *Session {
	target := Target{Host: "collector-1", Port: port, User: "ubuntu", KeyFile: "/keys/id"}
	s := NewSession(target, settings, exec, nil)
	s.probe = func(ctx context.Context, host string, p int, timeout time.Duration) bool {
		if ctx.Err() != nil {
			return false
		}
		for _, open := range openPorts {
			if open == p {
				return true
			}
		}
		return false
	}
	return s
}

func runCatalog(t *testing.T, ctx context.Context, settings *config.Settings, s *Session) (report.Summary, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	summary := Run(ctx, Catalog(settings), s, sink)

	require.Equal(t, summary.Passed+summary.Failed, summary.Total)
	require.Equal(t, report.Summarize(sink.checks), summary)
	return summary, sink
}

func TestRunConformingHost(t *testing.T) {
	settings := testSettings(t)
	exec := conformingHost(settings, 6677)
	s := newTestSession(settings, 6677, exec, 6677)

	summary, sink := runCatalog(t, context.Background(), settings, s)

	assert.True(t, summary.OK())
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 0, summary.Warnings)
	assert.Equal(t, 19, summary.Total)
	assert.Len(t, sink.checks, 20)
	assert.Empty(t, sink.notes)

	banned := sink.checks[10]
	assert.Equal(t, "fail2ban-banned", banned.ID)
	assert.Equal(t, report.StatusInfo, banned.Result.Status)
	assert.Equal(t, "Currently banned: 3", banned.Result.Message)
}

func TestRunFetchesSharedOutputsOnce(t *testing.T) {
	settings := testSettings(t)
	exec := conformingHost(settings, 6677)
	s := newTestSession(settings, 6677, exec, 6677)

	runCatalog(t, context.Background(), settings, s)

	assert.Equal(t, 1, exec.calls[sshdConfigCommand])
	assert.Equal(t, 1, exec.calls[firewallDumpCommand])
	assert.Equal(t, 1, exec.calls[jailStatusCommand(settings.Fail2ban.Client, settings.Fail2ban.Jail)])
}

func TestRunCustomPortUnreachable(t *testing.T) {
	settings := testSettings(t)
	s := newTestSession(settings, 6677, conformingHost(settings, 6677))

	summary, sink := runCatalog(t, context.Background(), settings, s)

	status, _ := sink.status("port-custom-open")
	assert.Equal(t, report.StatusFail, status)
	assert.False(t, summary.OK())
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, sink.checks, 20, "remaining categories still run")

	last := sink.checks[len(sink.checks)-1]
	assert.Equal(t, report.CategoryHelperTooling, last.Category)
}

func TestRunKeyAuthFailureCascades(t *testing.T) {
	settings := testSettings(t)
	exec := &fakeExecutor{
		failAll: &utils.ExecError{Kind: utils.ErrKindAuth, Command: "", Err: errors.New("unable to authenticate")},
		calls:   make(map[string]int),
	}
	s := newTestSession(settings, 6677, exec, 6677)

	summary, sink := runCatalog(t, context.Background(), settings, s)

	status, _ := sink.status("key-auth")
	assert.Equal(t, report.StatusFail, status)
	require.Len(t, sink.notes, 1)
	assert.Contains(t, sink.notes[0], "remaining remote checks will likely fail")

	for _, id := range []string{"ssh-password-auth", "ssh-root-login", "ssh-pubkey-auth", "ssh-port"} {
		status, ok := sink.status(id)
		require.True(t, ok, id)
		assert.Equal(t, report.StatusFail, status, id)
	}

	assert.Len(t, sink.checks, 20)
	assert.Equal(t, 2, summary.Passed)
	assert.Equal(t, 12, summary.Failed)
	assert.Equal(t, 5, summary.Warnings)
	assert.Equal(t, 1, exec.calls[sshdConfigCommand])
}

func TestRunIPForwardingOnlyWarns(t *testing.T) {
	settings := testSettings(t)
	exec := conformingHost(settings, 6677)
	exec.responses[sysctlCommand("net.ipv4.ip_forward")] = "1\n"
	s := newTestSession(settings, 6677, exec, 6677)

	summary, sink := runCatalog(t, context.Background(), settings, s)

	status, _ := sink.status("kernel-ip-forward")
	assert.Equal(t, report.StatusWarn, status)
	assert.True(t, summary.OK())
	assert.Equal(t, 1, summary.Warnings)
	assert.Equal(t, 19, summary.Total)
}

func TestRunSkipsDefaultPortCheckOnDefaultPort(t *testing.T) {
	settings := testSettings(t)
	exec := conformingHost(settings, 22)
	s := newTestSession(settings, 22, exec, 22)

	summary, sink := runCatalog(t, context.Background(), settings, s)

	_, rendered := sink.status("port-default-closed")
	assert.False(t, rendered)
	assert.Len(t, sink.checks, 19)
	assert.Equal(t, 18, summary.Total)
	assert.True(t, summary.OK())
}

func TestRunDefaultPortStillOpen(t *testing.T) {
	settings := testSettings(t)
	s := newTestSession(settings, 6677, conformingHost(settings, 6677), 6677, 22)

	summary, sink := runCatalog(t, context.Background(), settings, s)

	status, _ := sink.status("port-default-closed")
	assert.Equal(t, report.StatusWarn, status)
	assert.True(t, summary.OK())
}

func TestRunCommentedDirectiveFails(t *testing.T) {
	settings := testSettings(t)
	exec := conformingHost(settings, 6677)
	exec.responses[sshdConfigCommand] = "Port 6677\n#PasswordAuthentication no\nPermitRootLogin no\nPubkeyAuthentication yes\n"
	s := newTestSession(settings, 6677, exec, 6677)

	summary, sink := runCatalog(t, context.Background(), settings, s)

	status, _ := sink.status("ssh-password-auth")
	assert.Equal(t, report.StatusFail, status)
	status, _ = sink.status("ssh-root-login")
	assert.Equal(t, report.StatusPass, status)
	assert.Equal(t, 1, summary.Failed)
}

func TestRunMissingMarkersAndHelpersWarn(t *testing.T) {
	settings := testSettings(t)
	exec := conformingHost(settings, 6677)
	delete(exec.responses, "test -f "+utils.ShellQuote(settings.Markers[0]))
	delete(exec.responses, "test -x "+utils.ShellQuote(settings.HelperScripts[1]))
	s := newTestSession(settings, 6677, exec, 6677)

	summary, _ := runCatalog(t, context.Background(), settings, s)

	assert.True(t, summary.OK())
	assert.Equal(t, 2, summary.Warnings)
}

func TestRunCanceledContextStillCompletes(t *testing.T) {
	settings := testSettings(t)
	s := newTestSession(settings, 6677, conformingHost(settings, 6677), 6677)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, sink := runCatalog(t, ctx, settings, s)

	assert.Len(t, sink.checks, 20)
	assert.Equal(t, 1, summary.Passed, "a probe that cannot connect reads as a closed default port")
	assert.Equal(t, 13, summary.Failed)
	assert.False(t, summary.OK())
}

func TestCatalogOrder(t *testing.T) {
	settings := testSettings(t)
	rank := make(map[report.Category]int)
	for i, c := range report.CategoryOrder {
		rank[c] = i
	}

	checks := Catalog(settings)
	seen := make(map[string]bool)
	for i, c := range checks {
		assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
		assert.NotNil(t, c.Run, c.ID)
		if i > 0 {
			assert.LessOrEqual(t, rank[checks[i-1].Category], rank[c.Category], c.ID)
		}
	}
	assert.Equal(t, report.CategoryPortExposure, checks[0].Category)
	assert.Equal(t, report.CategoryHelperTooling, checks[len(checks)-1].Category)
}

func TestCheckStatus(t *testing.T) {
	warn := Check{Severity: report.StatusWarn}

	assert.Equal(t, report.StatusPass, warn.Status(Outcome{OK: true}))
	assert.Equal(t, report.StatusWarn, warn.Status(Outcome{}))
	assert.Equal(t, report.StatusFail, warn.Status(Outcome{Unverifiable: true}))
	assert.Equal(t, report.StatusInfo, warn.Status(Outcome{Informational: true}))
}

func TestSessionRemoteOutputRemembersFailures(t *testing.T) {
	settings := testSettings(t)
	exec := &fakeExecutor{responses: map[string]string{}, calls: make(map[string]int)}
	s := newTestSession(settings, 6677, exec)

	_, err := s.RemoteOutput(context.Background(), "iptables -S")
	require.Error(t, err)
	_, err = s.RemoteOutput(context.Background(), "iptables -S")
	require.Error(t, err)

	assert.Equal(t, utils.ErrKindCommand, utils.KindOf(err))
	assert.Equal(t, 1, exec.calls["iptables -S"])
}

func TestSessionPrimitives(t *testing.T) {
	settings := testSettings(t)
	exec := &fakeExecutor{
		responses: map[string]string{
			"systemctl is-active --quiet 'fail2ban'": "",
			"test -f '/var/log/it'\\''s-done'":       "",
			"command -v 'fail2ban-client'":           "",
		},
		calls: make(map[string]int),
	}
	s := newTestSession(settings, 6677, exec)
	ctx := context.Background()

	assert.True(t, s.RemoteServiceActive(ctx, "fail2ban"))
	assert.False(t, s.RemoteServiceActive(ctx, "ufw"))
	assert.True(t, s.RemoteFileExists(ctx, "/var/log/it's-done"))
	assert.False(t, s.RemoteFileExecutable(ctx, "/usr/local/bin/none"))
	assert.False(t, s.RemoteBinaryPresent(ctx, "fail2ban-client"), "empty command -v output")
}
