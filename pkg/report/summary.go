// pkg/report/summary.go

package report

// Summary tallies the outcomes of a run.
// Total always equals Passed + Failed; Warn outcomes are counted only in Warnings
// and Info outcomes are not counted at all.
type Summary struct {
	Total    int
	Passed   int
	Failed   int
	Warnings int
}

// Record returns the summary updated with one outcome
func (s Summary) Record(status Status) Summary {
	switch status {
	case StatusPass:
		s.Total++
		s.Passed++
	case StatusFail:
		s.Total++
		s.Failed++
	case StatusWarn:
		s.Warnings++
	}
	return s
}

// OK reports whether no Fail-graded check failed
func (s Summary) OK() bool {
	return s.Failed == 0
}

// Summarize folds a list of checks into a Summary
func Summarize(checks []*Check) Summary {
	var s Summary
	for _, check := range checks {
		s = s.Record(check.Result.Status)
	}
	return s
}
