package security

import (
	"math"
	"strings"
	"testing"

	"github.com/parleygit/parley/internal/errors"
)

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		want    string
		wantErr bool
	}{
		{"valid", "Adopt the new review policy", "Adopt the new review policy", false},
		{"trimmed", "  Adopt policy  ", "Adopt policy", false},
		{"empty", "   ", "", true},
		{"too long", strings.Repeat("x", MaxTitleLen+1), "", true},
		{"strips shell chars", "Adopt `rm -rf` policy; now", "Adopt rm -rf policy now", false},
		{"strips injection", "Title $(whoami) <script>", "Title (whoami) script", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateTitle(tt.title)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateBodyAndArgumentLimits(t *testing.T) {
	if _, err := ValidateBody(strings.Repeat("b", MaxBodyLen)); err != nil {
		t.Errorf("body at limit should pass: %v", err)
	}
	if _, err := ValidateBody(strings.Repeat("b", MaxBodyLen+1)); err == nil {
		t.Error("body over limit should fail")
	}
	if _, err := ValidateArgument(strings.Repeat("a", MaxArgumentLen+1)); err == nil {
		t.Error("argument over limit should fail")
	}
	if _, err := ValidateArgument(""); err == nil {
		t.Error("empty argument should fail")
	}
}

func TestValidateIdentity(t *testing.T) {
	valid := []string{
		"alice@example.com",
		"bob.smith@corp.example.org",
		"team-lead_1@example.io",
	}
	for _, id := range valid {
		if err := ValidateIdentity(id); err != nil {
			t.Errorf("ValidateIdentity(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{
		"",
		"alice",
		"alice@",
		"@example.com",
		"alice@localhost",
		"alice@example.com; rm -rf /",
		strings.Repeat("a", MaxIdentityLen) + "@example.com",
	}
	for _, id := range invalid {
		if err := ValidateIdentity(id); err == nil {
			t.Errorf("ValidateIdentity(%q) should fail", id)
		}
	}
}

func TestValidateMotionID(t *testing.T) {
	if err := ValidateMotionID("M1a2b3c4d5e6f"); err != nil {
		t.Errorf("valid motion ID rejected: %v", err)
	}

	invalid := []string{
		"",
		"1a2b3c4d5e6f",       // missing prefix
		"M1a2b3c4d5e6",       // too short
		"M1a2b3c4d5e6f0",     // too long
		"MXYZb3c4d5e6f",      // non-hex
		"M1A2B3C4D5E6F",      // uppercase hex
		"M1a2b3c4d5e6f/evil", // injection
	}
	for _, id := range invalid {
		if err := ValidateMotionID(id); err == nil {
			t.Errorf("ValidateMotionID(%q) should fail", id)
		}
	}
}

func TestValidateBranchName(t *testing.T) {
	if err := ValidateBranchName("motions/M1a2b3c4d5e6f"); err != nil {
		t.Errorf("valid branch rejected: %v", err)
	}
	invalid := []string{"", "../escape", "branch name", "branch;rm", "/abs", ".hidden"}
	for _, b := range invalid {
		if err := ValidateBranchName(b); err == nil {
			t.Errorf("ValidateBranchName(%q) should fail", b)
		}
	}
}

func TestValidateRefName(t *testing.T) {
	valid := []string{
		"refs/vote/M1a2b3c4d5e6f/alice@example.com/u-1",
		"refs/parliament/delegations/a@x.com-to-b@x.com",
		"refs/parliament/tasks/task-M1a2b3c4d5e6f-1700000000",
	}
	for _, ref := range valid {
		if err := ValidateRefName(ref); err != nil {
			t.Errorf("ValidateRefName(%q) = %v, want nil", ref, err)
		}
	}
	invalid := []string{"", "vote/M1", "refs/../heads/main", "refs/vote/M1;rm"}
	for _, ref := range invalid {
		if err := ValidateRefName(ref); err == nil {
			t.Errorf("ValidateRefName(%q) should fail", ref)
		}
	}
}

func TestValidateWeight(t *testing.T) {
	for _, w := range []float64{0, 0.5, 1, 10} {
		if err := ValidateWeight(w); err != nil {
			t.Errorf("ValidateWeight(%v) = %v, want nil", w, err)
		}
	}

	for _, w := range []float64{-0.1, 10.1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := ValidateWeight(w)
		if err == nil {
			t.Errorf("ValidateWeight(%v) should fail", w)
			continue
		}
		if !errors.Is(err, errors.ErrWeightOutOfRange) {
			t.Errorf("ValidateWeight(%v) = %v, want ErrWeightOutOfRange", w, err)
		}
	}
}

func TestValidateVoteValue(t *testing.T) {
	for _, v := range []string{"for", "against", "abstain"} {
		if err := ValidateVoteValue(v); err != nil {
			t.Errorf("ValidateVoteValue(%q) = %v, want nil", v, err)
		}
	}
	err := ValidateVoteValue("yes")
	if !errors.Is(err, errors.ErrInvalidVoteValue) {
		t.Errorf("err = %v, want ErrInvalidVoteValue", err)
	}
}

func TestValidateStance(t *testing.T) {
	for _, s := range []string{"pro", "con", "neutral"} {
		if err := ValidateStance(s); err != nil {
			t.Errorf("ValidateStance(%q) = %v, want nil", s, err)
		}
	}
	if err := ValidateStance("maybe"); err == nil {
		t.Error("unknown stance should fail")
	}
}

func TestAuditBallots(t *testing.T) {
	records := []BallotRecord{
		{Voter: "alice@example.com", Value: "for", Weight: 1},
		{Voter: "bob@example.com", Value: "against", Weight: 1},
		{Voter: "alice@example.com", Value: "for", Weight: 1}, // double vote
		{Voter: "carol@example.com", Value: "for", Weight: 99},
		{Voter: "dave@example.com", Value: "maybe", Weight: 1},
	}

	report := AuditBallots(records)
	if report.Clean() {
		t.Fatal("report should not be clean")
	}
	if len(report.DoubleVoters) != 1 || report.DoubleVoters[0] != "alice@example.com" {
		t.Errorf("DoubleVoters = %v", report.DoubleVoters)
	}
	if len(report.AnomalousWeights) != 1 || report.AnomalousWeights[0] != "carol@example.com" {
		t.Errorf("AnomalousWeights = %v", report.AnomalousWeights)
	}
	if len(report.InvalidValues) != 1 || report.InvalidValues[0] != "dave@example.com" {
		t.Errorf("InvalidValues = %v", report.InvalidValues)
	}
	if len(report.Issues()) != 3 {
		t.Errorf("Issues = %v, want 3 entries", report.Issues())
	}
}

func TestAuditBallotsClean(t *testing.T) {
	records := []BallotRecord{
		{Voter: "alice@example.com", Value: "for", Weight: 1},
		{Voter: "bob@example.com", Value: "abstain", Weight: 2},
	}

	report := AuditBallots(records)
	if !report.Clean() {
		t.Errorf("report should be clean, issues: %v", report.Issues())
	}
}
