// pkg/checks/hardening/catalog.go

package hardening

import (
	"context"
	"fmt"
	"path"

	"gitlab.com/tradeinfra/host-conformance/pkg/config"
	"gitlab.com/tradeinfra/host-conformance/pkg/report"
	"gitlab.com/tradeinfra/host-conformance/pkg/utils"
)

// Remote commands whose output several checks share
const (
	sshdConfigCommand   = "sudo -n sshd -T 2>/dev/null || cat /etc/ssh/sshd_config"
	firewallDumpCommand = "sudo -n iptables -S 2>/dev/null || iptables -S"
	keyAuthCommand      = "echo ok"
)

func jailStatusCommand(client, jail string) string {
	c := utils.ShellQuote(client) + " status " + utils.ShellQuote(jail)
	return "sudo -n " + c + " 2>/dev/null || " + c
}

func sysctlCommand(key string) string {
	return "sysctl -n " + utils.ShellQuote(key)
}

// Outcome is what a check observed
type Outcome struct {
	// OK means the host conforms
	OK bool

	// Informational outcomes are rendered but never graded
	Informational bool

	// Unverifiable means the evidence could not be fetched; it grades Fail whatever the severity
	Unverifiable bool

	Message         string
	Detail          string
	Recommendations []string
}

func passed(format string, args ...any) Outcome {
	return Outcome{OK: true, Message: fmt.Sprintf(format, args...)}
}

func missed(message string, recommendations ...string) Outcome {
	return Outcome{Message: message, Recommendations: recommendations}
}

func unverifiable(message string, err error) Outcome {
	return Outcome{Unverifiable: true, Message: message, Detail: err.Error()}
}

func (o Outcome) withDetail(detail string) Outcome {
	o.Detail = detail
	return o
}

// Check is one entry of the catalog
type Check struct {
	ID          string
	Name        string
	Description string
	Category    report.Category

	// Severity is the status reported when the host does not conform: Fail or Warn
	Severity report.Status

	// Applies reports whether the check is relevant for the target; nil means always
	Applies func(Target) bool

	Run func(ctx context.Context, s *Session) Outcome

	// FailureNote is rendered under the check when it does not pass
	FailureNote string
}

// Status grades an outcome of c
func (c Check) Status(o Outcome) report.Status {
	switch {
	case o.Informational:
		return report.StatusInfo
	case o.OK:
		return report.StatusPass
	case o.Unverifiable:
		return report.StatusFail
	default:
		return c.Severity
	}
}

// Catalog returns the ordered list of checks for the given host contract
func Catalog(settings *config.Settings) []Check {
	var checks []Check
	checks = append(checks, portExposureChecks(settings)...)
	checks = append(checks, keyAuthChecks()...)
	checks = append(checks, sshDaemonChecks()...)
	checks = append(checks, intrusionChecks(settings)...)
	checks = append(checks, firewallChecks()...)
	checks = append(checks, kernelChecks()...)
	checks = append(checks, markerChecks(settings)...)
	checks = append(checks, helperChecks(settings)...)
	return checks
}

func portExposureChecks(settings *config.Settings) []Check {
	defaultPort := settings.DefaultSSHPort

	return []Check{
		{
			ID:          "port-custom-open",
			Name:        "Custom SSH Port Reachable",
			Description: "The SSH daemon accepts TCP connections on the configured port.",
			Category:    report.CategoryPortExposure,
			Severity:    report.StatusFail,
			Run: func(ctx context.Context, s *Session) Outcome {
				port := s.Target.Port
				if s.PortReachable(ctx, port) {
					return passed("SSH port %d is reachable", port)
				}
				return missed(fmt.Sprintf("SSH port %d is not reachable", port),
					fmt.Sprintf("Verify sshd listens on %d and the firewall accepts it", port))
			},
		},
		{
			ID:          "port-default-closed",
			Name:        "Default SSH Port Closed",
			Description: "Nothing answers on the platform default SSH port once SSH has moved.",
			Category:    report.CategoryPortExposure,
			Severity:    report.StatusWarn,
			Applies: func(t Target) bool {
				return t.Port != defaultPort
			},
			Run: func(ctx context.Context, s *Session) Outcome {
				if !s.PortReachable(ctx, defaultPort) {
					return passed("Default SSH port %d is closed", defaultPort)
				}
				return missed(fmt.Sprintf("Default SSH port %d is still open", defaultPort),
					fmt.Sprintf("Remove 'Port %d' from sshd_config and close it in the firewall", defaultPort))
			},
		},
	}
}

func keyAuthChecks() []Check {
	return []Check{
		{
			ID:          "key-auth",
			Name:        "Key-Based Authentication",
			Description: "A command can be run on the host with the configured identity file.",
			Category:    report.CategoryKeyAuth,
			Severity:    report.StatusFail,
			FailureNote: "Key authentication failed; remaining remote checks will likely fail",
			Run: func(ctx context.Context, s *Session) Outcome {
				out, err := s.RemoteCommand(ctx, keyAuthCommand)
				if err == nil && LineContains(out, "ok") {
					return passed("Key-based authentication works for %s", s.Target.User)
				}
				o := missed(fmt.Sprintf("Key-based authentication failed for %s", s.Target.User),
					"Check that the public key is in ~/.ssh/authorized_keys on the host",
					"Check the identity file path and permissions")
				if err != nil {
					o = o.withDetail(err.Error())
				}
				return o
			},
		},
	}
}

// sshDirectiveCheck verifies one directive in the shared sshd configuration text
func sshDirectiveCheck(id, name string, severity report.Status, directive func(Target) string) Check {
	return Check{
		ID:          id,
		Name:        name,
		Description: "The effective sshd configuration sets the expected directive.",
		Category:    report.CategorySSHDaemon,
		Severity:    severity,
		Run: func(ctx context.Context, s *Session) Outcome {
			want := directive(s.Target)
			if _, err := s.RemoteOutput(ctx, sshdConfigCommand); err != nil {
				return unverifiable(fmt.Sprintf("Could not read sshd configuration to verify '%s'", want), err)
			}
			if s.RemoteTextContains(ctx, sshdConfigCommand, want) {
				return passed("sshd: %s", want)
			}
			return missed(fmt.Sprintf("sshd does not set '%s'", want),
				fmt.Sprintf("Set '%s' in /etc/ssh/sshd_config and reload sshd", want))
		},
	}
}

func fixedDirective(d string) func(Target) string {
	return func(Target) string { return d }
}

func sshDaemonChecks() []Check {
	return []Check{
		sshDirectiveCheck("ssh-password-auth", "Password Authentication Disabled", report.StatusFail,
			fixedDirective("PasswordAuthentication no")),
		sshDirectiveCheck("ssh-root-login", "Root Login Disabled", report.StatusFail,
			fixedDirective("PermitRootLogin no")),
		sshDirectiveCheck("ssh-pubkey-auth", "Public Key Authentication Enabled", report.StatusWarn,
			fixedDirective("PubkeyAuthentication yes")),
		sshDirectiveCheck("ssh-port", "SSH Port Configured", report.StatusFail,
			func(t Target) string { return fmt.Sprintf("Port %d", t.Port) }),
	}
}

func intrusionChecks(settings *config.Settings) []Check {
	f2b := settings.Fail2ban
	jailStatus := jailStatusCommand(f2b.Client, f2b.Jail)

	return []Check{
		{
			ID:          "fail2ban-installed",
			Name:        "Fail2ban Installed",
			Description: "The fail2ban client is on the PATH.",
			Category:    report.CategoryIntrusion,
			Severity:    report.StatusFail,
			Run: func(ctx context.Context, s *Session) Outcome {
				if s.RemoteBinaryPresent(ctx, f2b.Client) {
					return passed("%s is installed", f2b.Client)
				}
				return missed(fmt.Sprintf("%s is not installed", f2b.Client), "Install fail2ban")
			},
		},
		{
			ID:          "fail2ban-service",
			Name:        "Fail2ban Service Active",
			Description: "The fail2ban systemd unit is running.",
			Category:    report.CategoryIntrusion,
			Severity:    report.StatusFail,
			Run: func(ctx context.Context, s *Session) Outcome {
				if s.RemoteServiceActive(ctx, f2b.Service) {
					return passed("%s service is active", f2b.Service)
				}
				return missed(fmt.Sprintf("%s service is not active", f2b.Service),
					fmt.Sprintf("systemctl enable --now %s", f2b.Service))
			},
		},
		{
			ID:          "fail2ban-jail",
			Name:        "SSH Jail Enabled",
			Description: "fail2ban runs a jail protecting sshd.",
			Category:    report.CategoryIntrusion,
			Severity:    report.StatusFail,
			Run: func(ctx context.Context, s *Session) Outcome {
				if _, err := s.RemoteOutput(ctx, jailStatus); err != nil {
					return missed(fmt.Sprintf("fail2ban jail '%s' is not enabled", f2b.Jail),
						fmt.Sprintf("Enable [%s] in /etc/fail2ban/jail.local", f2b.Jail)).
						withDetail(err.Error())
				}
				return passed("fail2ban jail '%s' is enabled", f2b.Jail)
			},
		},
		{
			ID:          "fail2ban-banned",
			Name:        "Currently Banned Sources",
			Description: "Number of sources the SSH jail currently bans.",
			Category:    report.CategoryIntrusion,
			Run: func(ctx context.Context, s *Session) Outcome {
				o := Outcome{Informational: true, Message: "Banned source count unavailable"}
				out, err := s.RemoteOutput(ctx, jailStatus)
				if err != nil {
					return o
				}
				if n, ok := bannedCount(out); ok {
					o.Message = fmt.Sprintf("Currently banned: %d", n)
				}
				return o.withDetail(out)
			},
		},
	}
}

func firewallChecks() []Check {
	return []Check{
		{
			ID:          "firewall-default-deny",
			Name:        "Inbound Default Deny",
			Description: "The INPUT chain drops traffic that no rule accepts.",
			Category:    report.CategoryFirewall,
			Severity:    report.StatusFail,
			Run: func(ctx context.Context, s *Session) Outcome {
				rules, err := s.RemoteOutput(ctx, firewallDumpCommand)
				if err != nil {
					return unverifiable("Could not read firewall rules", err)
				}
				policy := chainPolicy(rules, "INPUT")
				if policy == "DROP" {
					return passed("INPUT policy is DROP")
				}
				if policy == "" {
					policy = "unknown"
				}
				return missed(fmt.Sprintf("INPUT policy is %s, expected DROP", policy),
					"ufw default deny incoming").withDetail(rules)
			},
		},
		{
			ID:          "firewall-allow-ssh",
			Name:        "SSH Port Allowed",
			Description: "Some chain accepts inbound traffic to the SSH port.",
			Category:    report.CategoryFirewall,
			Severity:    report.StatusFail,
			Run: func(ctx context.Context, s *Session) Outcome {
				port := s.Target.Port
				rules, err := s.RemoteOutput(ctx, firewallDumpCommand)
				if err != nil {
					return unverifiable("Could not read firewall rules", err)
				}
				if rule, ok := acceptRule(rules, port); ok {
					return passed("Firewall accepts port %d", port).withDetail(rule)
				}
				return missed(fmt.Sprintf("No firewall rule accepts port %d", port),
					fmt.Sprintf("ufw allow %d/tcp", port))
			},
		},
	}
}

// sysctlCheck grades a kernel parameter against the accepted values
func sysctlCheck(id, name, key string, severity report.Status, accepted ...string) Check {
	return Check{
		ID:          id,
		Name:        name,
		Description: fmt.Sprintf("%s is set to a hardened value.", key),
		Category:    report.CategoryKernelNetwork,
		Severity:    severity,
		Run: func(ctx context.Context, s *Session) Outcome {
			out, err := s.RemoteCommand(ctx, sysctlCommand(key))
			if err != nil {
				return missed(fmt.Sprintf("Could not read %s", key)).withDetail(err.Error())
			}
			value := sysctlValue(out)
			for _, a := range accepted {
				if value == a {
					return passed("%s = %s", key, value)
				}
			}
			return missed(fmt.Sprintf("%s = %s, expected %s", key, value, accepted[0]),
				fmt.Sprintf("Persist '%s = %s' under /etc/sysctl.d/ and run sysctl --system", key, accepted[0]))
		},
	}
}

func kernelChecks() []Check {
	return []Check{
		sysctlCheck("kernel-ip-forward", "IP Forwarding Disabled", "net.ipv4.ip_forward", report.StatusWarn, "0"),
		sysctlCheck("kernel-syncookies", "TCP SYN Cookies Enabled", "net.ipv4.tcp_syncookies", report.StatusFail, "1"),
		sysctlCheck("kernel-rp-filter", "Reverse Path Filtering", "net.ipv4.conf.all.rp_filter", report.StatusFail, "1", "2"),
	}
}

func markerChecks(settings *config.Settings) []Check {
	checks := make([]Check, 0, len(settings.Markers))
	for _, marker := range settings.Markers {
		checks = append(checks, Check{
			ID:          "marker-" + path.Base(marker),
			Name:        "Completion Marker " + path.Base(marker),
			Description: "Provisioning left its completion marker.",
			Category:    report.CategoryMarkers,
			Severity:    report.StatusWarn,
			Run: func(ctx context.Context, s *Session) Outcome {
				if s.RemoteFileExists(ctx, marker) {
					return passed("Marker %s present", marker)
				}
				return missed(fmt.Sprintf("Marker %s missing", marker),
					"Re-run the hardening step that writes this marker")
			},
		})
	}
	return checks
}

func helperChecks(settings *config.Settings) []Check {
	checks := make([]Check, 0, len(settings.HelperScripts))
	for _, script := range settings.HelperScripts {
		checks = append(checks, Check{
			ID:          "helper-" + path.Base(script),
			Name:        "Helper Script " + path.Base(script),
			Description: "Operator helper script is installed and executable.",
			Category:    report.CategoryHelperTooling,
			Severity:    report.StatusWarn,
			Run: func(ctx context.Context, s *Session) Outcome {
				if s.RemoteFileExecutable(ctx, script) {
					return passed("%s is installed", script)
				}
				return missed(fmt.Sprintf("%s is missing or not executable", script),
					fmt.Sprintf("chmod 0755 %s", script))
			},
		})
	}
	return checks
}
