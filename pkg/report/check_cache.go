// pkg/report/check_cache.go
// Structured JSON sidecar for a generated report, so a run can be re-rendered later

package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CheckResultData represents the structured check results for JSON storage
type CheckResultData struct {
	Hostname    string      `json:"hostname"`
	Title       string      `json:"title"`
	GeneratedAt time.Time   `json:"generated_at"`
	Summary     SummaryData `json:"summary"`
	Checks      []CheckData `json:"checks"`
}

// SummaryData mirrors Summary for storage
type SummaryData struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	Warnings int `json:"warnings"`
}

type CheckData struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	Status          string   `json:"status"`
	Message         string   `json:"message"`
	Detail          string   `json:"detail,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// SidecarPath returns where the JSON data for a report is stored
func SidecarPath(outputPath string) string {
	return filepath.Join(filepath.Dir(outputPath), ".data", filepath.Base(outputPath)+".json")
}

// SaveCheckResults saves check results to a JSON file
func SaveCheckResults(outputPath string, report *AsciiDocReport) error {
	jsonFile := SidecarPath(outputPath)
	if err := os.MkdirAll(filepath.Dir(jsonFile), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	summary := report.Summary()
	data := CheckResultData{
		Hostname:    report.Hostname,
		Title:       report.Title,
		GeneratedAt: report.GeneratedAt,
		Summary: SummaryData{
			Total:    summary.Total,
			Passed:   summary.Passed,
			Failed:   summary.Failed,
			Warnings: summary.Warnings,
		},
		Checks: make([]CheckData, len(report.Checks)),
	}

	for i, check := range report.Checks {
		data.Checks[i] = CheckData{
			ID:              check.ID,
			Name:            check.Name,
			Category:        string(check.Category),
			Status:          string(check.Result.Status),
			Message:         check.Result.Message,
			Detail:          check.Result.Detail,
			Recommendations: check.Result.Recommendations,
		}
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal check results: %w", err)
	}

	if err := os.WriteFile(jsonFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write check results: %w", err)
	}

	return nil
}

// LoadCheckResults loads check results from the JSON sidecar of a report
func LoadCheckResults(outputPath string) (*AsciiDocReport, error) {
	jsonData, err := os.ReadFile(SidecarPath(outputPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read check results: %w", err)
	}

	var data CheckResultData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal check results: %w", err)
	}

	report := &AsciiDocReport{
		OutputPath:  outputPath,
		Hostname:    data.Hostname,
		Title:       data.Title,
		GeneratedAt: data.GeneratedAt,
		Checks:      make([]*Check, len(data.Checks)),
	}

	for i, checkData := range data.Checks {
		report.Checks[i] = &Check{
			ID:       checkData.ID,
			Name:     checkData.Name,
			Category: Category(checkData.Category),
			Result: Result{
				Status:          Status(checkData.Status),
				Message:         checkData.Message,
				Detail:          checkData.Detail,
				Recommendations: checkData.Recommendations,
			},
		}
	}

	return report, nil
}
