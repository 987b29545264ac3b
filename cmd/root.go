// cmd/root.go

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gitlab.com/tradeinfra/host-conformance/pkg/checks/hardening"
	"gitlab.com/tradeinfra/host-conformance/pkg/config"
	"gitlab.com/tradeinfra/host-conformance/pkg/logging"
	"gitlab.com/tradeinfra/host-conformance/pkg/report"
	"gitlab.com/tradeinfra/host-conformance/pkg/utils"
)

const reportTitle = "SSH Security Conformance Report"

// Positional defaults
const (
	defaultPort    = 6677
	defaultUser    = "ubuntu"
	defaultHost    = "localhost"
	defaultKeyFile = "~/.ssh/id_rsa"
)

var version = "dev"

// newExecutor is replaced in tests
var newExecutor = func(cfg *utils.SSHConfig, logger *zap.Logger) (utils.CommandExecutor, error) {
	exec, err := utils.NewRemoteExecutor(cfg, logger)
	if err != nil {
		return nil, err
	}
	return exec, nil
}

type rootOptions struct {
	timeout    time.Duration
	output     string
	configFile string
	logDir     string
	verbose    bool
	noColor    bool
}

// app holds what every subcommand shares once flags are parsed
type app struct {
	opts     rootOptions
	settings *config.Settings
	logger   *zap.Logger
}

// Execute runs the CLI until ctx is canceled
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "host-conformance [port] [user] [host] [keyfile]",
		Short: "Audit the SSH and firewall security posture of a provisioned host",
		Long: `Connects to a provisioned host over SSH with key authentication and grades it
against a fixed catalog of checks: port exposure, SSH daemon policy, fail2ban,
firewall policy, kernel network parameters, completion markers and helper tooling.

Positional defaults: port 6677, user ubuntu, host localhost, keyfile ~/.ssh/id_rsa.
Exit status is 0 when no Fail-graded check failed, 1 otherwise, 2 on setup errors.`,
		Version:           version,
		Args:              cobra.MaximumNArgs(4),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
		RunE: a.runSingle,
	}

	flags := rootCmd.PersistentFlags()
	flags.DurationVarP(&a.opts.timeout, "timeout", "t", 10*time.Second, "Timeout for each remote command and port probe")
	flags.StringVar(&a.opts.configFile, "config", "", "YAML file overriding the expected host contract")
	flags.StringVar(&a.opts.logDir, "log-dir", "", "Directory for the rotating JSON log file")
	flags.BoolVarP(&a.opts.verbose, "verbose", "v", false, "Log every remote call to stderr")
	flags.BoolVar(&a.opts.noColor, "no-color", false, "Disable colored output")

	rootCmd.Flags().StringVarP(&a.opts.output, "output", "o", "", "Also write an AsciiDoc report to this path")

	rootCmd.AddCommand(newMultiCmd(a))
	rootCmd.AddCommand(newShowCmd())

	return rootCmd
}

// setup loads settings and the logger before any subcommand runs
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.opts.noColor {
		color.NoColor = true
	}

	settings, err := config.LoadSettings(a.opts.configFile)
	if err != nil {
		return &SetupError{Err: err}
	}
	if f := cmd.Flag("timeout"); f != nil && f.Changed {
		if a.opts.timeout <= 0 {
			return setupErrorf("--timeout must be positive, got %s", a.opts.timeout)
		}
		settings.Timeout = a.opts.timeout
	}
	a.settings = settings

	logger, err := logging.NewLogger(a.opts.logDir, a.opts.verbose)
	if err != nil {
		return setupErrorf("failed to initialize logging: %w", err)
	}
	a.logger = logger
	return nil
}

// parseTarget applies the positional arguments over the defaults
func parseTarget(args []string) (hardening.Target, error) {
	target := hardening.Target{
		Host:    defaultHost,
		Port:    defaultPort,
		User:    defaultUser,
		KeyFile: defaultKeyFile,
	}

	if len(args) > 0 {
		port, err := strconv.Atoi(args[0])
		if err != nil || port < 1 || port > 65535 {
			return target, fmt.Errorf("invalid port %q", args[0])
		}
		target.Port = port
	}
	if len(args) > 1 {
		target.User = args[1]
	}
	if len(args) > 2 {
		target.Host = args[2]
	}
	if len(args) > 3 {
		target.KeyFile = args[3]
	}

	if strings.TrimSpace(target.User) == "" {
		return target, fmt.Errorf("user must not be empty")
	}
	if strings.TrimSpace(target.Host) == "" {
		return target, fmt.Errorf("host must not be empty")
	}
	target.KeyFile = config.ExpandPath(target.KeyFile)
	return target, nil
}

func sshConfigFor(target hardening.Target, timeout time.Duration) *utils.SSHConfig {
	return &utils.SSHConfig{
		Host:    target.Host,
		Port:    strconv.Itoa(target.Port),
		User:    target.User,
		KeyFile: target.KeyFile,
		Timeout: timeout,
	}
}

// openExecutor loads the identity file; failing here aborts before any check
func (a *app) openExecutor(target hardening.Target) (utils.CommandExecutor, error) {
	exec, err := newExecutor(sshConfigFor(target, a.settings.Timeout), a.logger)
	if err != nil {
		return nil, fmt.Errorf("cannot use identity file %s: %w", target.KeyFile, err)
	}
	return exec, nil
}

// audit runs the whole catalog against one target
func (a *app) audit(ctx context.Context, target hardening.Target, exec utils.CommandExecutor, sinks ...report.Sink) report.Summary {
	start := time.Now()
	session := hardening.NewSession(target, a.settings, exec, a.logger)
	summary := hardening.Run(ctx, hardening.Catalog(a.settings), session, sinks...)

	a.logger.Info("audit finished",
		zap.String("target", target.String()),
		zap.String("host", exec.GetHostname()),
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Int("warnings", summary.Warnings),
		zap.Duration("duration", time.Since(start)))
	return summary
}

func (a *app) runSingle(cmd *cobra.Command, args []string) error {
	target, err := parseTarget(args)
	if err != nil {
		return &SetupError{Err: err}
	}

	exec, err := a.openExecutor(target)
	if err != nil {
		return &SetupError{Err: err}
	}

	out := cmd.OutOrStdout()
	renderer := report.NewConsoleRenderer(out)
	renderer.Banner("SSH Security Conformance Test", target.String())

	sinks := []report.Sink{renderer}
	var adoc *report.AsciiDocReport
	if a.opts.output != "" {
		adoc = report.NewAsciiDocReport(a.opts.output)
		adoc.Initialize(target.Host, reportTitle)
		sinks = append(sinks, adoc)
	}

	ctx := cmd.Context()
	summary := a.audit(ctx, target, exec, sinks...)
	if ctx.Err() != nil {
		renderer.Note("Run interrupted; checks after the signal failed without reaching the host")
	}
	renderer.Summary(summary)

	// Report failures never change the exit code
	if adoc != nil {
		path, err := a.writeReport(adoc)
		if err != nil {
			a.logger.Error("failed to write report", zap.String("report", a.opts.output), zap.Error(err))
			fmt.Fprintf(cmd.ErrOrStderr(), "Report error: %v\n", err)
		} else {
			fmt.Fprintf(out, "\nReport written to: %s\n", path)
		}
	}

	if !summary.OK() {
		return ErrChecksFailed
	}
	return nil
}

// writeReport writes the AsciiDoc file, its JSON sidecar, and the optional archive
func (a *app) writeReport(adoc *report.AsciiDocReport) (string, error) {
	path, err := adoc.Generate()
	if err != nil {
		return "", err
	}
	if err := report.SaveCheckResults(path, adoc); err != nil {
		a.logger.Warn("failed to save check data", zap.String("report", path), zap.Error(err))
	}
	return a.compressReportIfNeeded(path)
}

// compressReportIfNeeded zips the report when COMPRESS_REPORT is set.
// Without REPORT_PASSWORD the report is left as is.
func (a *app) compressReportIfNeeded(reportPath string) (string, error) {
	compress := os.Getenv("COMPRESS_REPORT")
	if compress != "true" && compress != "1" {
		return reportPath, nil
	}

	password := os.Getenv("REPORT_PASSWORD")
	if password == "" {
		a.logger.Warn("COMPRESS_REPORT is set but REPORT_PASSWORD is empty; report left uncompressed",
			zap.String("report", reportPath))
		return reportPath, nil
	}

	compressedPath, err := utils.CompressWithPassword(reportPath, password)
	if err != nil {
		return reportPath, fmt.Errorf("failed to compress report: %w", err)
	}

	if os.Getenv("REMOVE_UNCOMPRESSED") == "true" {
		if err := os.Remove(reportPath); err != nil {
			a.logger.Warn("failed to remove uncompressed report", zap.Error(err))
		}
	}

	return compressedPath, nil
}

// sanitizeFilename removes or replaces characters that are problematic in filenames
func sanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "",
		"?", "",
		"\"", "",
		"<", "",
		">", "",
		"|", "-",
		" ", "_",
	)
	return replacer.Replace(filename)
}

func printRule(out io.Writer, title string) {
	fmt.Fprintf(out, "\n╔══════════════════════════════════════════════════╗\n")
	fmt.Fprintf(out, "║ %-48s ║\n", title)
	fmt.Fprintf(out, "╚══════════════════════════════════════════════════╝\n\n")
}
