package security

import (
	"fmt"
	"sort"
)

// BallotRecord is the view of a cast ballot the auditor needs.
type BallotRecord struct {
	Voter  string
	Value  string
	Weight float64
}

// AuditReport lists anomalies found in a motion's ballots.
// Any anomaly blocks the merge oracle from accepting the motion.
type AuditReport struct {
	DoubleVoters     []string // Voters with more than one ballot
	AnomalousWeights []string // Voters whose ballot weight is out of bounds
	InvalidValues    []string // Voters whose ballot value is unrecognized
}

// Clean reports whether the audit found no anomalies.
func (r *AuditReport) Clean() bool {
	return len(r.DoubleVoters) == 0 &&
		len(r.AnomalousWeights) == 0 &&
		len(r.InvalidValues) == 0
}

// Issues renders all anomalies as human-readable strings.
func (r *AuditReport) Issues() []string {
	var issues []string
	for _, v := range r.DoubleVoters {
		issues = append(issues, fmt.Sprintf("double vote by %s", v))
	}
	for _, v := range r.AnomalousWeights {
		issues = append(issues, fmt.Sprintf("anomalous weight from %s", v))
	}
	for _, v := range r.InvalidValues {
		issues = append(issues, fmt.Sprintf("invalid vote value from %s", v))
	}
	return issues
}

// AuditBallots inspects a motion's ballots for double voting, out-of-bounds
// weights, and unrecognized vote values.
func AuditBallots(records []BallotRecord) *AuditReport {
	report := &AuditReport{}

	seen := make(map[string]int)
	flaggedDouble := make(map[string]bool)
	for _, rec := range records {
		seen[rec.Voter]++
		if seen[rec.Voter] > 1 && !flaggedDouble[rec.Voter] {
			report.DoubleVoters = append(report.DoubleVoters, rec.Voter)
			flaggedDouble[rec.Voter] = true
		}
		if err := ValidateWeight(rec.Weight); err != nil {
			report.AnomalousWeights = append(report.AnomalousWeights, rec.Voter)
		}
		if err := ValidateVoteValue(rec.Value); err != nil {
			report.InvalidValues = append(report.InvalidValues, rec.Voter)
		}
	}

	sort.Strings(report.DoubleVoters)
	sort.Strings(report.AnomalousWeights)
	sort.Strings(report.InvalidValues)
	return report
}
