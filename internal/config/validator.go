package config

import (
	"fmt"
	"strings"

	"github.com/parleygit/parley/internal/logging"
)

// ValidationResult holds the outcome of config validation.
// Errors make the config unusable; warnings are advisory.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// Valid reports whether the config can be used.
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Summary renders the result as a human-readable string.
func (r *ValidationResult) Summary() string {
	var b strings.Builder
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "error: %s\n", e)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	return b.String()
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}

	if c.Governance.QuorumThreshold < 0 || c.Governance.QuorumThreshold > 1 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("governance.quorum_threshold must be in [0, 1], got %v",
				c.Governance.QuorumThreshold))
	}
	if c.Governance.QuorumThreshold == 0 {
		result.Warnings = append(result.Warnings,
			"governance.quorum_threshold is 0; every vote will meet quorum")
	}

	if c.Governance.EligibleVoters < 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("governance.eligible_voters must not be negative, got %d",
				c.Governance.EligibleVoters))
	}
	if c.Governance.EligibleVoters == 0 {
		result.Warnings = append(result.Warnings,
			"governance.eligible_voters is 0; quorum cannot be computed until set")
	}

	if c.Governance.MaxDelegationDepth < 1 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("governance.max_delegation_depth must be at least 1, got %d",
				c.Governance.MaxDelegationDepth))
	}
	if c.Governance.MaxDelegationDepth > 100 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("governance.max_delegation_depth of %d is unusually deep",
				c.Governance.MaxDelegationDepth))
	}

	if c.Governance.RetryDelayDays < 1 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("governance.retry_delay_days must be at least 1, got %d",
				c.Governance.RetryDelayDays))
	}

	if c.Git.TimeoutSeconds < 1 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("git.timeout_seconds must be at least 1, got %d",
				c.Git.TimeoutSeconds))
	}

	if c.Lock.StaleAfterMinutes < 1 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("lock.stale_after_minutes must be at least 1, got %d",
				c.Lock.StaleAfterMinutes))
	}

	if c.Oracle.LearningRate <= 0 || c.Oracle.LearningRate > 1 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("oracle.learning_rate must be in (0, 1], got %v",
				c.Oracle.LearningRate))
	}
	if c.Oracle.BaseConfidence < 0 || c.Oracle.BaseConfidence > 1 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("oracle.base_confidence must be in [0, 1], got %v",
				c.Oracle.BaseConfidence))
	}

	if c.Repo.TargetBranch == "" {
		result.Errors = append(result.Errors, "repo.target_branch must not be empty")
	}

	valid := false
	for _, l := range logging.ValidLevels() {
		if strings.EqualFold(c.Logging.Level, l) {
			valid = true
			break
		}
	}
	if !valid {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("logging.level %q is not recognized; defaulting to INFO",
				c.Logging.Level))
	}

	return result
}
