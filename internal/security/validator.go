// Package security validates and sanitizes all user-supplied governance
// input before it reaches git, and audits cast ballots for anomalies that
// should block a merge.
package security

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/parleygit/parley/internal/errors"
)

// Input size limits.
const (
	MaxTitleLen    = 200
	MaxBodyLen     = 10000
	MaxArgumentLen = 5000
	MaxIdentityLen = 100
	MaxWeight      = 10.0
)

var (
	motionIDPattern = regexp.MustCompile(`^M[a-f0-9]{12}$`)
	identityPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	branchPattern   = regexp.MustCompile(`^[a-zA-Z0-9/_.-]+$`)
	refPattern      = regexp.MustCompile(`^refs/[a-zA-Z0-9/@_.-]+$`)
	shaPattern      = regexp.MustCompile(`^[a-f0-9]{40}$`)

	// Characters stripped from free-text fields before they are handed to
	// git. These are shell metacharacters that must never survive even
	// though git arguments are passed as an argv, not a shell string.
	dangerousChars = regexp.MustCompile("[<>{}$`|;&]")
)

// ValidateTitle checks and sanitizes a motion title.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errors.NewValidationError("title", "must not be empty")
	}
	if len(title) > MaxTitleLen {
		return "", errors.NewValidationError("title",
			fmt.Sprintf("too long (max %d characters)", MaxTitleLen))
	}
	return dangerousChars.ReplaceAllString(title, ""), nil
}

// ValidateBody checks and sanitizes a motion body.
func ValidateBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", errors.NewValidationError("body", "must not be empty")
	}
	if len(body) > MaxBodyLen {
		return "", errors.NewValidationError("body",
			fmt.Sprintf("too long (max %d characters)", MaxBodyLen))
	}
	return dangerousChars.ReplaceAllString(body, ""), nil
}

// ValidateArgument checks and sanitizes a debate argument.
func ValidateArgument(argument string) (string, error) {
	argument = strings.TrimSpace(argument)
	if argument == "" {
		return "", errors.NewValidationError("argument", "must not be empty")
	}
	if len(argument) > MaxArgumentLen {
		return "", errors.NewValidationError("argument",
			fmt.Sprintf("too long (max %d characters)", MaxArgumentLen))
	}
	return dangerousChars.ReplaceAllString(argument, ""), nil
}

// ValidateIdentity checks that a voter or speaker identity is email-like.
func ValidateIdentity(identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return errors.NewValidationError("identity", "must not be empty")
	}
	if len(identity) > MaxIdentityLen {
		return errors.NewValidationError("identity",
			fmt.Sprintf("too long (max %d characters)", MaxIdentityLen))
	}
	if !identityPattern.MatchString(identity) {
		return errors.NewValidationError("identity", "must be an email address")
	}
	return nil
}

// ValidateMotionID checks a motion identifier ("M" + 12 hex characters).
func ValidateMotionID(id string) error {
	if !motionIDPattern.MatchString(id) {
		return errors.NewValidationError("motion_id",
			"must match M followed by 12 hex characters")
	}
	return nil
}

// ValidateBranchName checks a branch name against the safe character set.
func ValidateBranchName(name string) error {
	if name == "" || !branchPattern.MatchString(name) {
		return errors.NewValidationError("branch", "contains invalid characters")
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, "/") || strings.HasPrefix(name, ".") {
		return errors.NewValidationError("branch", "contains path traversal sequence")
	}
	return nil
}

// ValidateRefName checks a fully-qualified ref name.
func ValidateRefName(ref string) error {
	if !refPattern.MatchString(ref) {
		return errors.NewValidationError("ref", "contains invalid characters")
	}
	if strings.Contains(ref, "..") {
		return errors.NewValidationError("ref", "contains path traversal sequence")
	}
	return nil
}

// ValidateSHA checks a full 40-character object name.
func ValidateSHA(sha string) error {
	if !shaPattern.MatchString(sha) {
		return errors.NewValidationError("sha", "must be 40 hex characters")
	}
	return nil
}

// ValidateWeight checks that a vote weight is finite and within bounds.
func ValidateWeight(weight float64) error {
	if math.IsNaN(weight) {
		return errors.NewValidationError("weight", "must not be NaN").
			WithCause(errors.ErrWeightOutOfRange)
	}
	if math.IsInf(weight, 0) {
		return errors.NewValidationError("weight", "must be finite").
			WithCause(errors.ErrWeightOutOfRange)
	}
	if weight < 0 || weight > MaxWeight {
		return errors.NewValidationError("weight",
			fmt.Sprintf("must be between 0 and %g", MaxWeight)).
			WithCause(errors.ErrWeightOutOfRange)
	}
	return nil
}

// ValidateVoteValue checks a ballot value.
func ValidateVoteValue(value string) error {
	switch value {
	case "for", "against", "abstain":
		return nil
	}
	return errors.NewValidationError("vote",
		"must be one of: for, against, abstain").
		WithCause(errors.ErrInvalidVoteValue)
}

// ValidateStance checks a debate stance.
func ValidateStance(stance string) error {
	switch stance {
	case "pro", "con", "neutral":
		return nil
	}
	return errors.NewValidationError("stance", "must be one of: pro, con, neutral")
}
