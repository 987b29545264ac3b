// pkg/report/asciidoc_report.go

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Status represents the outcome of a check
type Status string

const (
	// StatusPass indicates the host matches the expected policy
	StatusPass Status = "PASS"

	// StatusFail indicates a policy violation; any Fail makes the run exit non-zero
	StatusFail Status = "FAIL"

	// StatusWarn indicates a deviation that is reported but never changes the exit status
	StatusWarn Status = "WARN"

	// StatusInfo indicates informational output
	StatusInfo Status = "INFO"
)

// ResultKey represents the level of importance for a result in a report summary
type ResultKey string

const (
	// ResultKeyNoChange indicates no changes are needed
	ResultKeyNoChange ResultKey = "nochange"

	// ResultKeyRecommended indicates changes are recommended
	ResultKeyRecommended ResultKey = "recommended"

	// ResultKeyRequired indicates changes are required
	ResultKeyRequired ResultKey = "required"

	// ResultKeyAdvisory indicates additional information
	ResultKeyAdvisory ResultKey = "advisory"
)

// ResultKey maps a status onto the report colour scheme
func (s Status) ResultKey() ResultKey {
	switch s {
	case StatusFail:
		return ResultKeyRequired
	case StatusWarn:
		return ResultKeyRecommended
	case StatusInfo:
		return ResultKeyAdvisory
	}
	return ResultKeyNoChange
}

// Category represents a category of checks
type Category string

const (
	CategoryPortExposure  Category = "Port Exposure"
	CategoryKeyAuth       Category = "Key Authentication"
	CategorySSHDaemon     Category = "SSH Daemon Policy"
	CategoryIntrusion     Category = "Intrusion Prevention"
	CategoryFirewall      Category = "Firewall Policy"
	CategoryKernelNetwork Category = "Kernel Network Parameters"
	CategoryMarkers       Category = "Completion Markers"
	CategoryHelperTooling Category = "Helper Tooling"
)

// CategoryOrder is the order categories are run and reported in
var CategoryOrder = []Category{
	CategoryPortExposure,
	CategoryKeyAuth,
	CategorySSHDaemon,
	CategoryIntrusion,
	CategoryFirewall,
	CategoryKernelNetwork,
	CategoryMarkers,
	CategoryHelperTooling,
}

// Result represents the result of a check
type Result struct {
	// Status is Pass, Fail, Warn or Info
	Status Status

	// Message is the one-line rendering of the outcome
	Message string

	// Detail holds raw evidence, e.g. the matching config line or the error
	Detail string

	// Recommendations are suggestions to address any issues
	Recommendations []string
}

// Check represents one conformance check and its outcome
type Check struct {
	ID          string
	Name        string
	Description string
	Category    Category
	Result      Result
}

// Sink receives each check as soon as it completes
type Sink interface {
	AddCheck(check *Check)
}

// AsciiDocReport collects the checks of one host and writes them as AsciiDoc
type AsciiDocReport struct {
	// OutputPath is where the report will be saved
	OutputPath string

	// Hostname is the host that was audited
	Hostname string

	// Title is the title of the report
	Title string

	// GeneratedAt is set when the report is initialized
	GeneratedAt time.Time

	// Checks are all the checks performed for this report, in run order
	Checks []*Check
}

// NewAsciiDocReport creates a new AsciiDoc report
func NewAsciiDocReport(outputPath string) *AsciiDocReport {
	return &AsciiDocReport{
		OutputPath: outputPath,
		Checks:     []*Check{},
	}
}

// Initialize sets up the report with hostname and title
func (r *AsciiDocReport) Initialize(hostname, title string) {
	r.Hostname = hostname
	r.Title = title
	r.GeneratedAt = time.Now()
}

// AddCheck adds a check to the report
func (r *AsciiDocReport) AddCheck(check *Check) {
	r.Checks = append(r.Checks, check)
}

// Summary tallies the collected checks
func (r *AsciiDocReport) Summary() Summary {
	return Summarize(r.Checks)
}

// Generate writes the report to OutputPath and returns the path
func (r *AsciiDocReport) Generate() (string, error) {
	outputDir := filepath.Dir(r.OutputPath)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(r.OutputPath, []byte(r.generateReportContent()), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return r.OutputPath, nil
}

// generateReportContent creates the full report content
func (r *AsciiDocReport) generateReportContent() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("= %s\n\n", r.Title))
	sb.WriteString(fmt.Sprintf("Hostname: %s\n\n", r.Hostname))
	if !r.GeneratedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05")))
	}

	sb.WriteString(generateKeySection())
	sb.WriteString(r.generateSummarySection())

	categorized := r.organizeChecksByCategory()
	for _, category := range CategoryOrder {
		checks := categorized[category]
		if len(checks) == 0 {
			continue
		}
		sb.WriteString(r.generateCategorySection(category, checks))
	}

	sb.WriteString("{set:cellbgcolor!}\n")
	return sb.String()
}

// generateKeySection creates the color-coded key section
func generateKeySection() string {
	var sb strings.Builder

	sb.WriteString("== Key\n\n")
	sb.WriteString("[cols=\"1,3\", options=header]\n|===\n|Value\n|Description\n\n")

	sb.WriteString("|\n{set:cellbgcolor:#FF0000}\nChanges Required\n|\n{set:cellbgcolor!}\n")
	sb.WriteString("A Fail-graded check did not match policy. The run exits non-zero.\n\n")

	sb.WriteString("|\n{set:cellbgcolor:#FEFE20}\nChanges Recommended\n|\n{set:cellbgcolor!}\n")
	sb.WriteString("A Warn-graded check did not match policy. Reported only.\n\n")

	sb.WriteString("|\n{set:cellbgcolor:#80E5FF}\nAdvisory\n|\n{set:cellbgcolor!}\n")
	sb.WriteString("Information gathered from the host, not graded.\n\n")

	sb.WriteString("|\n{set:cellbgcolor:#00FF00}\nNo Change\n|\n{set:cellbgcolor!}\n")
	sb.WriteString("The host matches policy.\n|===\n\n")

	return sb.String()
}

// generateSummarySection lists totals followed by one row per check
func (r *AsciiDocReport) generateSummarySection() string {
	var sb strings.Builder
	summary := r.Summary()

	sb.WriteString("== Summary\n\n")
	sb.WriteString(fmt.Sprintf("Total: %d | Passed: %d | Failed: %d | Warnings: %d\n\n",
		summary.Total, summary.Passed, summary.Failed, summary.Warnings))

	sb.WriteString("[cols=\"1,2,2,1\", options=header]\n|===\n|*Category*\n|*Item Evaluated*\n|*Observed Result*\n|*Recommendation*\n\n")
	for _, check := range r.Checks {
		sb.WriteString(formatTableRow(check))
	}
	sb.WriteString("|===\n\n<<<\n\n")

	return sb.String()
}

// generateCategorySection creates a section for a specific category
func (r *AsciiDocReport) generateCategorySection(category Category, checks []*Check) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s\n\n", category))

	sb.WriteString("[cols=\"1,2,2,1\", options=header]\n|===\n|*Category*\n|*Item Evaluated*\n|*Observed Result*\n|*Recommendation*\n\n")
	for _, check := range checks {
		sb.WriteString(formatTableRow(check))
	}
	sb.WriteString("|===\n\n")

	for _, check := range checks {
		sb.WriteString(formatCheckDetail(check))
	}

	sb.WriteString("{set:cellbgcolor!}\n\n")
	return sb.String()
}

func formatTableRow(check *Check) string {
	var sb strings.Builder
	sb.WriteString("|\n{set:cellbgcolor!}\n" + string(check.Category) + "\n\n")
	sb.WriteString("a|\n<<" + check.ID + "," + check.Name + ">>\n\n")
	sb.WriteString("| " + check.Result.Message + " \n\n")
	sb.WriteString(getResultFormatting(check.Result.Status.ResultKey()) + "\n\n")
	return sb.String()
}

// formatCheckDetail formats detailed information about a check
func formatCheckDetail(check *Check) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[[%s]]\n=== %s\n\n", check.ID, check.Name))
	if check.Description != "" {
		sb.WriteString(check.Description + "\n\n")
	}

	if check.Result.Detail != "" {
		sb.WriteString("[source, bash]\n----\n")
		sb.WriteString(check.Result.Detail)
		sb.WriteString("----\n\n")
	}

	sb.WriteString("**Observation**\n\n")
	sb.WriteString(check.Result.Message + "\n\n")

	sb.WriteString("**Recommendation**\n\n")
	if len(check.Result.Recommendations) == 0 {
		sb.WriteString("None\n\n")
	}
	for _, rec := range check.Result.Recommendations {
		sb.WriteString("* " + rec + "\n")
	}
	if len(check.Result.Recommendations) > 0 {
		sb.WriteString("\n")
	}

	return sb.String()
}

// organizeChecksByCategory groups checks by their category
func (r *AsciiDocReport) organizeChecksByCategory() map[Category][]*Check {
	categorized := make(map[Category][]*Check)
	for _, check := range r.Checks {
		categorized[check.Category] = append(categorized[check.Category], check)
	}
	return categorized
}

// getResultFormatting returns formatted AsciiDoc for a result key (used in tables)
func getResultFormatting(resultKey ResultKey) string {
	options := map[ResultKey]string{
		ResultKeyRequired:    "|\n{set:cellbgcolor:#FF0000}\nChanges Required",
		ResultKeyRecommended: "|\n{set:cellbgcolor:#FEFE20}\nChanges Recommended",
		ResultKeyNoChange:    "|\n{set:cellbgcolor:#00FF00}\nNo Change",
		ResultKeyAdvisory:    "|\n{set:cellbgcolor:#80E5FF}\nAdvisory",
	}

	result, ok := options[resultKey]
	if !ok {
		return options[ResultKeyAdvisory]
	}
	return result
}

// NewCheck creates a new check
func NewCheck(id, name, description string, category Category) *Check {
	return &Check{
		ID:          id,
		Name:        name,
		Description: description,
		Category:    category,
	}
}

// NewResult creates a new result
func NewResult(status Status, message string) Result {
	return Result{
		Status:  status,
		Message: message,
	}
}

// AddRecommendation adds a recommendation to a Result
func AddRecommendation(result *Result, recommendation string) {
	result.Recommendations = append(result.Recommendations, recommendation)
}

// SetDetail sets the detail for a Result
func SetDetail(result *Result, detail string) {
	detail = strings.ReplaceAll(detail, "\r\n", "\n")
	if detail != "" && !strings.HasSuffix(detail, "\n") {
		detail += "\n"
	}
	result.Detail = detail
}
