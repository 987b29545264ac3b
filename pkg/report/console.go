// pkg/report/console.go

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	colorPass   = color.New(color.FgGreen).SprintFunc()
	colorFail   = color.New(color.FgRed).SprintFunc()
	colorWarn   = color.New(color.FgYellow).SprintFunc()
	colorInfo   = color.New(color.FgCyan).SprintFunc()
	colorHeader = color.New(color.FgBlue, color.Bold).SprintFunc()
)

const ruleWidth = 50

// ConsoleRenderer prints one line per check as it completes,
// a header whenever the category changes, and a closing summary.
type ConsoleRenderer struct {
	out          io.Writer
	lastCategory Category
}

// NewConsoleRenderer creates a renderer writing to out
func NewConsoleRenderer(out io.Writer) *ConsoleRenderer {
	return &ConsoleRenderer{out: out}
}

// Banner prints the run header
func (c *ConsoleRenderer) Banner(title, target string) {
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintln(c.out, colorHeader(rule))
	fmt.Fprintln(c.out, colorHeader(" "+title))
	fmt.Fprintln(c.out, colorHeader(rule))
	fmt.Fprintf(c.out, "Target: %s\n", target)
}

// AddCheck renders a completed check
func (c *ConsoleRenderer) AddCheck(check *Check) {
	if check.Category != c.lastCategory {
		c.lastCategory = check.Category
		fmt.Fprintf(c.out, "\n%s\n", colorHeader(categoryHeading(check.Category)))
	}
	fmt.Fprintf(c.out, "  %s %s\n", FormatStatus(check.Result.Status), check.Result.Message)
}

// Note prints an indented informational line that is not a check outcome
func (c *ConsoleRenderer) Note(message string) {
	fmt.Fprintf(c.out, "    %s\n", colorInfo(message))
}

// Summary prints the totals block
func (c *ConsoleRenderer) Summary(s Summary) {
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintf(c.out, "\n%s\n", colorHeader(rule))
	fmt.Fprintln(c.out, colorHeader(" Test Summary"))
	fmt.Fprintln(c.out, colorHeader(rule))
	fmt.Fprintf(c.out, "Total tests: %d\n", s.Total)
	fmt.Fprintf(c.out, "Passed:      %s\n", colorPass(s.Passed))
	fmt.Fprintf(c.out, "Failed:      %s\n", colorFail(s.Failed))
	if s.Warnings > 0 {
		fmt.Fprintf(c.out, "Warnings:    %s (not counted)\n", colorWarn(s.Warnings))
	}
	fmt.Fprintln(c.out)

	if s.OK() {
		fmt.Fprintln(c.out, colorPass("✓ All security checks passed"))
		return
	}
	fmt.Fprintln(c.out, colorFail(fmt.Sprintf("✗ %d security check(s) failed", s.Failed)))
}

// FormatStatus returns the coloured marker for a status
func FormatStatus(status Status) string {
	switch status {
	case StatusPass:
		return colorPass("✓ PASS")
	case StatusFail:
		return colorFail("✗ FAIL")
	case StatusWarn:
		return colorWarn("⚠ WARN")
	case StatusInfo:
		return colorInfo("ℹ INFO")
	}
	return string(status)
}

// categoryHeading numbers a category by its position in CategoryOrder
func categoryHeading(category Category) string {
	for i, c := range CategoryOrder {
		if c == category {
			return fmt.Sprintf("[%d/%d] %s", i+1, len(CategoryOrder), category)
		}
	}
	return string(category)
}
