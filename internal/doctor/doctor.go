// Package doctor diagnoses devenv installations and the assistant settings
// devenv edits. Checks report findings; checks that also implement Fixer can
// repair what they found.
package doctor

import (
	"context"
	"time"

	"github.com/thoreinstein/devenv/internal/logging"
)

// Check is a single diagnostic.
type Check interface {
	// Name is the stable identifier shown in reports.
	Name() string
	// Category groups related checks, e.g. "environment" or "assistants".
	Category() string
	Run(ctx context.Context) *CheckResult
}

// Runner executes checks in registration order.
type Runner struct {
	checks []Check
	now    func() time.Time
}

// NewRunner creates a Runner with the given checks.
func NewRunner(checks ...Check) *Runner {
	return &Runner{checks: checks, now: time.Now}
}

// AddCheck appends c to the runner.
func (r *Runner) AddCheck(c Check) {
	r.checks = append(r.checks, c)
}

// Run executes every check and aggregates the results.
func (r *Runner) Run(ctx context.Context) *Report {
	logger := logging.FromContext(ctx)
	report := &Report{
		Timestamp: r.now().UTC(),
		Results:   make([]*CheckResult, 0, len(r.checks)),
	}

	for _, check := range r.checks {
		start := time.Now()
		result := check.Run(ctx)
		if result == nil {
			result = &CheckResult{
				Name:     check.Name(),
				Category: check.Category(),
				Status:   SeverityError,
				Message:  "check returned no result",
			}
		}
		logger.Debug("doctor check finished",
			"check", result.Name,
			"status", result.Status.String(),
			"duration", time.Since(start),
		)
		report.Results = append(report.Results, result)
		report.Summary.add(result.Status)
	}
	return report
}

// Fix applies every available fix. Call it after Run; checks only know
// what to repair once they have run.
func (r *Runner) Fix(ctx context.Context) []FixResult {
	logger := logging.FromContext(ctx)
	var results []FixResult
	for _, check := range r.checks {
		fixer, ok := check.(Fixer)
		if !ok || !fixer.CanFix() {
			continue
		}
		for _, fr := range fixer.Fix() {
			if fr.Error != nil {
				logger.Warn("fix failed", "check", check.Name(), "path", fr.Path, "error", fr.Error)
			} else {
				logger.Info("fix applied", "check", check.Name(), "path", fr.Path, "action", fr.Description)
			}
			results = append(results, fr)
		}
	}
	return results
}

// Report is the aggregated outcome of a Runner.Run.
type Report struct {
	Timestamp time.Time      `json:"timestamp"`
	Results   []*CheckResult `json:"results"`
	Summary   Summary        `json:"summary"`
}

// HasErrors reports whether any check failed.
func (r *Report) HasErrors() bool {
	return r.Summary.Errors > 0
}

// HasWarnings reports whether any check warned.
func (r *Report) HasWarnings() bool {
	return r.Summary.Warnings > 0
}

// Fixable reports whether any result can be repaired automatically.
func (r *Report) Fixable() bool {
	for _, res := range r.Results {
		if res.Fixable {
			return true
		}
	}
	return false
}
