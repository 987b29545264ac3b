// pkg/checks/hardening/runner.go

package hardening

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"gitlab.com/tradeinfra/host-conformance/pkg/report"
)

// Noter is implemented by sinks that can render free-form lines between checks
type Noter interface {
	Note(message string)
}

// Run executes the catalog against the session in order and hands every
// completed check to each sink. Every applicable check runs, even after the
// context is canceled; calls made after that fail fast and grade as misses.
func Run(ctx context.Context, catalog []Check, s *Session, sinks ...report.Sink) report.Summary {
	var summary report.Summary

	for _, c := range catalog {
		if c.Applies != nil && !c.Applies(s.Target) {
			s.logger.Debug("check skipped", zap.String("check", c.ID))
			continue
		}

		outcome := c.Run(ctx, s)
		status := c.Status(outcome)

		check := report.NewCheck(c.ID, c.Name, c.Description, c.Category)
		check.Result = report.NewResult(status, outcome.Message)
		if outcome.Detail != "" {
			report.SetDetail(&check.Result, strings.TrimSpace(outcome.Detail))
		}
		for _, rec := range outcome.Recommendations {
			report.AddRecommendation(&check.Result, rec)
		}

		summary = summary.Record(status)
		s.logger.Debug("check complete",
			zap.String("check", c.ID),
			zap.String("status", string(status)))

		for _, sink := range sinks {
			sink.AddCheck(check)
			if noter, ok := sink.(Noter); ok && !outcome.OK && c.FailureNote != "" {
				noter.Note(c.FailureNote)
			}
		}
	}

	return summary
}
