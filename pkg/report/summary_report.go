// pkg/report/summary_report.go

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SummaryReport handles generation of the consolidated multi-host report
type SummaryReport struct {
	GeneratedTime     time.Time
	OutputDir         string
	HostReports       map[string]*AsciiDocReport
	UnreachableHosts  map[string]string
	TotalHosts        int
	FailingHostCount  int // Hosts with at least one Fail
	WarningHostCount  int // Hosts with Warns but no Fail
	CompliantHosts    int
	TotalFailedChecks int
	TotalWarnings     int
}

// IssueSummary is one failing or warning check on one host
type IssueSummary struct {
	Hostname string
	Message  string
}

// NewSummaryReport creates a new summary report generator
func NewSummaryReport(outputDir string) *SummaryReport {
	return &SummaryReport{
		GeneratedTime:    time.Now(),
		OutputDir:        outputDir,
		HostReports:      make(map[string]*AsciiDocReport),
		UnreachableHosts: make(map[string]string),
	}
}

// AddHostReport adds a host report to the summary
func (s *SummaryReport) AddHostReport(hostname string, report *AsciiDocReport) {
	s.HostReports[hostname] = report
	s.TotalHosts = len(s.HostReports) + len(s.UnreachableHosts)
}

// AddHostError records a host that could not be audited at all
func (s *SummaryReport) AddHostError(hostname string, err error) {
	s.UnreachableHosts[hostname] = err.Error()
	s.TotalHosts = len(s.HostReports) + len(s.UnreachableHosts)
}

// analyzeReports gathers per-host statistics
func (s *SummaryReport) analyzeReports() {
	s.FailingHostCount = 0
	s.WarningHostCount = 0
	s.CompliantHosts = 0
	s.TotalFailedChecks = 0
	s.TotalWarnings = 0

	for _, report := range s.HostReports {
		summary := report.Summary()
		s.TotalFailedChecks += summary.Failed
		s.TotalWarnings += summary.Warnings

		switch {
		case summary.Failed > 0:
			s.FailingHostCount++
		case summary.Warnings > 0:
			s.WarningHostCount++
		default:
			s.CompliantHosts++
		}
	}
}

// Generate writes the consolidated summary and returns its path
func (s *SummaryReport) Generate() (string, error) {
	s.analyzeReports()

	if err := os.MkdirAll(s.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(s.OutputDir, fmt.Sprintf("%s-infrastructure-summary.adoc",
		s.GeneratedTime.Format("2006-01-02-150405")))

	var content strings.Builder

	content.WriteString("= Infrastructure Conformance Summary\n")
	content.WriteString(fmt.Sprintf("Generated: %s\n", s.GeneratedTime.Format("2006-01-02 15:04:05")))
	content.WriteString(fmt.Sprintf("Total Hosts: %d | Failing: %d | Warnings: %d | Compliant: %d | Unreachable: %d\n\n",
		s.TotalHosts, s.FailingHostCount, s.WarningHostCount, s.CompliantHosts, len(s.UnreachableHosts)))

	content.WriteString(generateKeySection())

	content.WriteString("== Host Health Matrix\n\n")
	content.WriteString(s.generateHealthMatrix())

	if failures := s.groupIssuesByStatus(StatusFail); len(failures) > 0 {
		content.WriteString("== PRIORITY 1: Failed Checks\n\n")
		content.WriteString(formatGroupedIssues(failures))
	}

	if warnings := s.groupIssuesByStatus(StatusWarn); len(warnings) > 0 {
		content.WriteString("== PRIORITY 2: Warnings\n\n")
		content.WriteString(formatGroupedIssues(warnings))
	}

	if len(s.UnreachableHosts) > 0 {
		content.WriteString("== Hosts Not Audited\n\n")
		for _, hostname := range sortedKeys(s.UnreachableHosts) {
			content.WriteString(fmt.Sprintf("* %s: %s\n", hostname, s.UnreachableHosts[hostname]))
		}
		content.WriteString("\n")
	}

	if err := os.WriteFile(filename, []byte(content.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write summary report: %w", err)
	}
	return filename, nil
}

// generateHealthMatrix creates the host health matrix
func (s *SummaryReport) generateHealthMatrix() string {
	var sb strings.Builder

	sb.WriteString("[cols=\"3,1,1,1,1,1\", options=header]\n|===\n")
	sb.WriteString("|Host |Total |Passed |Failed |Warnings |Status\n\n")

	for _, hostname := range sortedKeys(s.HostReports) {
		report := s.HostReports[hostname]
		summary := report.Summary()

		healthColor := "#00FF00"
		healthStatus := "Compliant"
		if summary.Failed > 0 {
			healthColor = "#FF0000"
			healthStatus = "Failing"
		} else if summary.Warnings > 0 {
			healthColor = "#FEFE20"
			healthStatus = "Warning"
		}

		sb.WriteString(fmt.Sprintf("|link:hosts/%s[%s] |%d |%d |%d |%d |{set:cellbgcolor:%s}%s\n",
			filepath.Base(report.OutputPath), hostname,
			summary.Total, summary.Passed, summary.Failed, summary.Warnings, healthColor, healthStatus))
	}

	sb.WriteString("|===\n\n")
	sb.WriteString("{set:cellbgcolor!}\n\n")

	return sb.String()
}

// groupIssuesByStatus groups checks with the given status by check name
func (s *SummaryReport) groupIssuesByStatus(status Status) map[string][]IssueSummary {
	grouped := make(map[string][]IssueSummary)

	for _, hostname := range sortedKeys(s.HostReports) {
		for _, check := range s.HostReports[hostname].Checks {
			if check.Result.Status != status {
				continue
			}
			grouped[check.Name] = append(grouped[check.Name], IssueSummary{
				Hostname: hostname,
				Message:  check.Result.Message,
			})
		}
	}

	return grouped
}

// formatGroupedIssues renders grouped issues, most widespread first
func formatGroupedIssues(grouped map[string][]IssueSummary) string {
	var names []string
	for name := range grouped {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(grouped[names[i]]) != len(grouped[names[j]]) {
			return len(grouped[names[i]]) > len(grouped[names[j]])
		}
		return names[i] < names[j]
	})

	var sb strings.Builder
	for _, name := range names {
		issues := grouped[name]
		sb.WriteString(fmt.Sprintf("=== %s (%d host(s))\n\n", name, len(issues)))
		for _, issue := range issues {
			sb.WriteString(fmt.Sprintf("* *%s*: %s\n", issue.Hostname, issue.Message))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
