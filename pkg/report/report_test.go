package report

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func disableColor(t *testing.T) {
	t.Helper()
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		color.NoColor = original
	})
}

func newTestCheck(id string, category Category, status Status, message string) *Check {
	check := NewCheck(id, id, "", category)
	check.Result = NewResult(status, message)
	return check
}

func TestSummaryRecord(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   Summary
	}{
		{name: "pass", status: StatusPass, want: Summary{Total: 1, Passed: 1}},
		{name: "fail", status: StatusFail, want: Summary{Total: 1, Failed: 1}},
		{name: "warn is not part of total", status: StatusWarn, want: Summary{Warnings: 1}},
		{name: "info is not counted", status: StatusInfo, want: Summary{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Summary
			got := s.Record(tt.status)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, Summary{}, s, "Record must not mutate the receiver")
		})
	}
}

func TestSummaryInvariants(t *testing.T) {
	statuses := []Status{StatusPass, StatusFail, StatusWarn, StatusInfo}
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		var s Summary
		n := rng.Intn(40)
		for i := 0; i < n; i++ {
			s = s.Record(statuses[rng.Intn(len(statuses))])
		}
		require.Equal(t, s.Passed+s.Failed, s.Total)
		require.Equal(t, s.Failed == 0, s.OK())
	}
}

func TestConsoleRenderer(t *testing.T) {
	disableColor(t)

	var buf bytes.Buffer
	r := NewConsoleRenderer(&buf)
	r.Banner("SSH Security Test", "ubuntu@example:6677")
	r.AddCheck(newTestCheck("a", CategoryPortExposure, StatusPass, "SSH port 6677 is reachable"))
	r.AddCheck(newTestCheck("b", CategoryPortExposure, StatusWarn, "Default SSH port 22 is still open"))
	r.AddCheck(newTestCheck("c", CategoryKeyAuth, StatusFail, "Key authentication failed"))
	r.Note("later checks will likely fail")
	r.Summary(Summary{Total: 2, Passed: 1, Failed: 1, Warnings: 1})

	out := buf.String()
	assert.Contains(t, out, "Target: ubuntu@example:6677")
	assert.Equal(t, 1, strings.Count(out, "[1/8] Port Exposure"), "header printed once per category")
	assert.Contains(t, out, "[2/8] Key Authentication")
	assert.Contains(t, out, "✓ PASS SSH port 6677 is reachable")
	assert.Contains(t, out, "⚠ WARN Default SSH port 22 is still open")
	assert.Contains(t, out, "✗ FAIL Key authentication failed")
	assert.Contains(t, out, "    later checks will likely fail")
	assert.Contains(t, out, "Total tests: 2")
	assert.Contains(t, out, "Warnings:    1 (not counted)")
	assert.Contains(t, out, "✗ 1 security check(s) failed")
}

func TestConsoleRendererAllPassed(t *testing.T) {
	disableColor(t)

	var buf bytes.Buffer
	NewConsoleRenderer(&buf).Summary(Summary{Total: 3, Passed: 3})

	assert.Contains(t, buf.String(), "✓ All security checks passed")
	assert.NotContains(t, buf.String(), "Warnings:")
}

func TestFormatStatus(t *testing.T) {
	disableColor(t)

	assert.Equal(t, "ℹ INFO", FormatStatus(StatusInfo))
	assert.Equal(t, "custom", FormatStatus(Status("custom")))
}

func TestAsciiDocReportGenerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "host.adoc")
	r := NewAsciiDocReport(path)
	r.Initialize("collector-1", "SSH Security Conformance Report")

	failing := newTestCheck("ssh-password-auth", CategorySSHDaemon, StatusFail, "Password authentication is enabled")
	AddRecommendation(&failing.Result, "Set 'PasswordAuthentication no' in /etc/ssh/sshd_config")
	SetDetail(&failing.Result, "passwordauthentication yes")
	r.AddCheck(newTestCheck("ssh-port-open", CategoryPortExposure, StatusPass, "SSH port 6677 is reachable"))
	r.AddCheck(failing)

	written, err := r.Generate()
	require.NoError(t, err)
	assert.Equal(t, path, written)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	doc := string(content)

	assert.Contains(t, doc, "= SSH Security Conformance Report")
	assert.Contains(t, doc, "Hostname: collector-1")
	assert.Contains(t, doc, "Total: 2 | Passed: 1 | Failed: 1 | Warnings: 0")
	assert.Contains(t, doc, "== Port Exposure")
	assert.Contains(t, doc, "== SSH Daemon Policy")
	assert.Contains(t, doc, "[[ssh-password-auth]]")
	assert.Contains(t, doc, "passwordauthentication yes\n----")
	assert.Contains(t, doc, "* Set 'PasswordAuthentication no' in /etc/ssh/sshd_config")
	assert.Contains(t, doc, "Changes Required")
	assert.Less(t, strings.Index(doc, "== Port Exposure"), strings.Index(doc, "== SSH Daemon Policy"))
}

func TestCheckResultsSidecar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.adoc")
	r := NewAsciiDocReport(path)
	r.Initialize("monitor", "SSH Security Conformance Report")
	r.AddCheck(newTestCheck("kernel-ip-forward", CategoryKernelNetwork, StatusWarn, "IP forwarding is enabled"))
	r.AddCheck(newTestCheck("fail2ban-banned", CategoryIntrusion, StatusInfo, "Currently banned: 3"))

	require.NoError(t, SaveCheckResults(path, r))
	assert.FileExists(t, SidecarPath(path))

	loaded, err := LoadCheckResults(path)
	require.NoError(t, err)
	assert.Equal(t, "monitor", loaded.Hostname)
	require.Len(t, loaded.Checks, 2)
	assert.Equal(t, StatusWarn, loaded.Checks[0].Result.Status)
	assert.Equal(t, CategoryIntrusion, loaded.Checks[1].Category)
	assert.Equal(t, r.Summary(), loaded.Summary())

	_, err = LoadCheckResults(filepath.Join(t.TempDir(), "none.adoc"))
	assert.Error(t, err)
}

func TestSummaryReportGenerate(t *testing.T) {
	dir := t.TempDir()
	s := NewSummaryReport(dir)

	good := NewAsciiDocReport(filepath.Join(dir, "hosts", "engine.adoc"))
	good.AddCheck(newTestCheck("ssh-port-open", CategoryPortExposure, StatusPass, "SSH port 6677 is reachable"))

	bad := NewAsciiDocReport(filepath.Join(dir, "hosts", "collector.adoc"))
	bad.AddCheck(newTestCheck("firewall-default-deny", CategoryFirewall, StatusFail, "INPUT policy is ACCEPT"))
	bad.AddCheck(newTestCheck("marker-ssh", CategoryMarkers, StatusWarn, "Marker missing"))

	s.AddHostReport("engine", good)
	s.AddHostReport("collector", bad)
	s.AddHostError("monitor", errors.New("unable to read private key"))

	path, err := s.Generate()
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	doc := string(content)

	assert.Equal(t, 3, s.TotalHosts)
	assert.Equal(t, 1, s.FailingHostCount)
	assert.Equal(t, 1, s.CompliantHosts)
	assert.Contains(t, doc, "Total Hosts: 3 | Failing: 1 | Warnings: 0 | Compliant: 1 | Unreachable: 1")
	assert.Contains(t, doc, "|link:hosts/collector.adoc[collector] |1 |0 |1 |1 |{set:cellbgcolor:#FF0000}Failing")
	assert.Contains(t, doc, "=== firewall-default-deny (1 host(s))")
	assert.Contains(t, doc, "* monitor: unable to read private key")
}
