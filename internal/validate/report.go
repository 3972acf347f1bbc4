package validate

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Summary aggregates pass/fail counts for one validation run.
type Summary struct {
	TotalTests  int     `json:"total_tests"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
	Timestamp   string  `json:"timestamp"`
}

// Report is the full validation output, serializable as JSON.
type Report struct {
	Summary         Summary  `json:"summary"`
	Results         []Result `json:"results"`
	Recommendations []string `json:"recommendations"`
}

// Passed reports whether every test in the run succeeded.
func (r *Report) Passed() bool {
	return r.Summary.Failed == 0 && r.Summary.TotalTests > 0
}

func (h *Harness) buildReport() *Report {
	total := len(h.results)
	passed := 0
	for _, r := range h.results {
		if r.Passed {
			passed++
		}
	}

	rate := 0.0
	if total > 0 {
		rate = float64(passed) / float64(total)
	}

	report := &Report{
		Summary: Summary{
			TotalTests:  total,
			Passed:      passed,
			Failed:      total - passed,
			SuccessRate: rate,
			Timestamp:   h.now().Format("2006-01-02T15:04:05"),
		},
		Results:         h.Results(),
		Recommendations: h.recommendations(),
	}
	return report
}

// recommendations derives followup advice from the failed tests.
func (h *Harness) recommendations() []string {
	var failed []Result
	for _, r := range h.results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}

	if len(failed) == 0 {
		return []string{"All validations passed - system ready for trading"}
	}

	recs := []string{"Address failed validation tests before proceeding with live trading"}
	if anyNameContains(failed, "Connection") {
		recs = append(recs, "Ensure OpenD gateway is running and accessible")
	}
	if anyNameContains(failed, "Configuration") {
		recs = append(recs, "Review and correct trading configuration")
	}
	if anyNameContains(failed, "Risk") {
		recs = append(recs, "Review risk control settings")
	}
	return recs
}

func anyNameContains(results []Result, fragment string) bool {
	for _, r := range results {
		if strings.Contains(r.TestName, fragment) {
			return true
		}
	}
	return false
}

// SaveReport writes the report to a file as indented JSON.
func SaveReport(report *Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
