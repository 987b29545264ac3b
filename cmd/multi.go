// cmd/multi.go

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gitlab.com/tradeinfra/host-conformance/pkg/checks/hardening"
	"gitlab.com/tradeinfra/host-conformance/pkg/config"
	"gitlab.com/tradeinfra/host-conformance/pkg/report"
)

// newMultiCmd creates the multi-host subcommand
func newMultiCmd(a *app) *cobra.Command {
	var hostsFile, outputDir, group string

	cmd := &cobra.Command{
		Use:   "multi",
		Short: "Audit every host of an inventory file",
		Long: `Audits every host listed in an Ansible-style INI inventory, one after the other.
Writes one AsciiDoc report per host and a consolidated summary report.
Recognized host variables: ansible_host, ansible_user, ansible_port,
ansible_ssh_private_key_file. [all:vars] supplies defaults.
--group restricts the audit to the hosts of one inventory group.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMulti(cmd, hostsFile, outputDir, group)
		},
	}

	cmd.Flags().StringVarP(&hostsFile, "hosts", "H", "", "Path to the inventory file")
	cmd.Flags().StringVar(&outputDir, "output-dir", "reports", "Directory for the generated reports")
	cmd.Flags().StringVarP(&group, "group", "g", "", "Audit only the hosts of this inventory group")
	_ = cmd.MarkFlagRequired("hosts")

	return cmd
}

type hostOutcome struct {
	hostname  string
	summary   report.Summary
	err       error
	reportErr error
	duration  time.Duration
}

func (a *app) runMulti(cmd *cobra.Command, hostsFile, outputDir, group string) error {
	hostsConfig := config.NewHostsConfig()
	if err := hostsConfig.LoadFromFile(hostsFile); err != nil {
		return &SetupError{Err: err}
	}

	allHosts := hostsConfig.GetAllHosts()
	if group != "" {
		allHosts = hostsConfig.GetHostsByGroup(group)
	}
	if len(allHosts) == 0 {
		if group != "" {
			return setupErrorf("no hosts in group %q of %s", group, hostsFile)
		}
		return setupErrorf("no hosts found in %s", hostsFile)
	}

	out := cmd.OutOrStdout()
	printRule(out, "Multi-Host SSH Security Audit")
	fmt.Fprintf(out, "Hosts to audit: %d\n\n", len(allHosts))

	timestamp := time.Now().Format("20060102-150405")
	baseOutputDir := filepath.Join(outputDir, fmt.Sprintf("multi-host-%s", timestamp))
	hostsOutputDir := filepath.Join(baseOutputDir, "hosts")
	if err := os.MkdirAll(hostsOutputDir, 0755); err != nil {
		return setupErrorf("failed to create output directories: %w", err)
	}

	summaryReport := report.NewSummaryReport(baseOutputDir)
	bar := newHostsProgressBar(len(allHosts), cmd.ErrOrStderr())

	ctx := cmd.Context()
	startTime := time.Now()
	outcomes := make([]hostOutcome, 0, len(allHosts))

	for _, host := range allHosts {
		bar.Describe(fmt.Sprintf("[cyan]Auditing[reset] %s", host.Hostname))

		hostStart := time.Now()
		outcome := hostOutcome{hostname: host.Hostname}

		hostReport, err := a.auditHost(ctx, host, hostsOutputDir)
		if err != nil {
			a.logger.Warn("host not audited", zap.String("host", host.Hostname), zap.Error(err))
			summaryReport.AddHostError(host.Hostname, err)
			outcome.err = err
		} else {
			if _, err := a.writeReport(hostReport); err != nil {
				a.logger.Error("failed to write host report", zap.String("host", host.Hostname), zap.Error(err))
				outcome.reportErr = err
			}
			summaryReport.AddHostReport(host.Hostname, hostReport)
			outcome.summary = hostReport.Summary()
		}

		outcome.duration = time.Since(hostStart)
		outcomes = append(outcomes, outcome)
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	failing := printHostOutcomes(out, outcomes)
	fmt.Fprintf(out, "\nAudited %d host(s) in %s\n", len(allHosts), time.Since(startTime).Round(time.Millisecond))

	summaryPath, err := summaryReport.Generate()
	if err != nil {
		a.logger.Error("failed to write summary report", zap.String("dir", baseOutputDir), zap.Error(err))
		fmt.Fprintf(cmd.ErrOrStderr(), "Report error: %v\n", err)
	} else {
		fmt.Fprintf(out, "Summary report: %s\n", summaryPath)
	}

	if failing > 0 {
		return ErrChecksFailed
	}
	return nil
}

// auditHost runs the catalog against one inventory host into its report
func (a *app) auditHost(ctx context.Context, host config.HostEntry, dir string) (*report.AsciiDocReport, error) {
	target := hardening.Target{
		Host:    host.Target(),
		Port:    host.Port,
		User:    host.User,
		KeyFile: host.SSHKeyFile,
	}

	exec, err := a.openExecutor(target)
	if err != nil {
		return nil, err
	}

	adoc := report.NewAsciiDocReport(filepath.Join(dir, sanitizeFilename(host.Hostname)+".adoc"))
	adoc.Initialize(host.Hostname, reportTitle)

	a.audit(ctx, target, exec, adoc)
	return adoc, nil
}

// printHostOutcomes prints one line per host and returns how many hosts need attention
func printHostOutcomes(out io.Writer, outcomes []hostOutcome) int {
	failing := 0
	fmt.Fprintf(out, "\n%-30s %6s %6s %6s %8s\n", "HOST", "TOTAL", "PASS", "FAIL", "WARN")
	for _, o := range outcomes {
		if o.err != nil {
			failing++
			fmt.Fprintf(out, "%-30s %s\n", o.hostname, report.FormatStatus(report.StatusFail)+" not audited: "+o.err.Error())
			continue
		}
		if !o.summary.OK() {
			failing++
		}
		fmt.Fprintf(out, "%-30s %6d %6d %6d %8d\n",
			o.hostname, o.summary.Total, o.summary.Passed, o.summary.Failed, o.summary.Warnings)
		if o.reportErr != nil {
			fmt.Fprintf(out, "%-30s report error: %v\n", "", o.reportErr)
		}
	}
	return failing
}

func newHostsProgressBar(total int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription("[cyan]Auditing hosts[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}
