package tally

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/parleygit/parley/internal/delegation"
	"github.com/parleygit/parley/internal/errors"
	"github.com/parleygit/parley/internal/event"
	"github.com/parleygit/parley/internal/gitcli"
	"github.com/parleygit/parley/internal/logging"
	"github.com/parleygit/parley/internal/motion"
	"github.com/parleygit/parley/internal/motionlock"
	"github.com/parleygit/parley/internal/security"
)

// Tally outcomes.
const (
	OutcomePassed     = "passed"
	OutcomeFailed     = "failed"
	OutcomeTie        = "tie_vote"
	OutcomeLostQuorum = "lost_quorum"
	OutcomeProcedural = "procedural_error"
)

// Conflicted reports whether an outcome needs the conflict resolver.
func Conflicted(outcome string) bool {
	switch outcome {
	case OutcomeTie, OutcomeLostQuorum, OutcomeProcedural:
		return true
	}
	return false
}

// Result is the outcome of tallying a motion.
type Result struct {
	MotionID          string    `json:"motion_id"`
	TotalVotes        int       `json:"total_votes"`
	For               float64   `json:"for"`
	Against           float64   `json:"against"`
	Abstain           float64   `json:"abstain"`
	EligibleVoters    int       `json:"eligible_voters"`
	ParticipationRate float64   `json:"participation_rate"`
	QuorumMet         bool      `json:"quorum_met"`
	Outcome           string    `json:"outcome"`
	UnresolvedWeight  float64   `json:"unresolved_weight,omitempty"`
	Unresolved        []string  `json:"unresolved,omitempty"`
	AuditIssues       []string  `json:"audit_issues,omitempty"`
	TalliedAt         time.Time `json:"tallied_at"`
}

// Clean reports whether the ballot audit found no anomalies.
func (r *Result) Clean() bool {
	return len(r.AuditIssues) == 0
}

// Engine casts ballots and computes tallies.
type Engine struct {
	repo    *gitcli.Repo
	motions *motion.Store
	graph   *delegation.Graph
	locker  *motionlock.Locker
	bus     *event.Bus
	log     *logging.Logger

	quorumThreshold float64
	eligibleVoters  int
}

// NewEngine creates a tally engine.
func NewEngine(repo *gitcli.Repo, motions *motion.Store, graph *delegation.Graph,
	locker *motionlock.Locker, bus *event.Bus, log *logging.Logger,
	quorumThreshold float64, eligibleVoters int) *Engine {
	return &Engine{
		repo:            repo,
		motions:         motions,
		graph:           graph,
		locker:          locker,
		bus:             bus,
		log:             log.WithComponent("tally"),
		quorumThreshold: quorumThreshold,
		eligibleVoters:  eligibleVoters,
	}
}

// oracleRef returns the ref caching a motion's tally result.
func oracleRef(motionID string) string {
	return "refs/parliament/oracle/" + motionID
}

// Tally computes the weighted outcome for a motion. Every ballot is
// resolved through the delegation graph and its weight lands under the
// terminal voter's choice; ballots whose terminal voter cast no ballot, or
// whose chain cannot be resolved, accumulate as unresolved weight. The
// result is cached under refs/parliament/oracle/<motion>; the ballots stay
// the source of truth.
func (e *Engine) Tally(ctx context.Context, motionID string) (*Result, error) {
	votes, _, err := e.Votes(ctx, motionID)
	if err != nil {
		return nil, err
	}

	records := make([]security.BallotRecord, len(votes))
	choices := make(map[string]string, len(votes))
	for i, v := range votes {
		records[i] = security.BallotRecord{Voter: v.Voter, Value: v.Value, Weight: v.Weight}
		if _, ok := choices[v.Voter]; !ok {
			choices[v.Voter] = v.Value
		}
	}
	audit := security.AuditBallots(records)

	result := &Result{
		MotionID:       motionID,
		TotalVotes:     len(votes),
		EligibleVoters: e.eligibleVoters,
		AuditIssues:    audit.Issues(),
		TalliedAt:      time.Now().UTC(),
	}

	unresolved := make(map[string]bool)
	for _, v := range votes {
		res, err := e.graph.Resolve(ctx, v.Voter)
		if err != nil {
			if errors.Is(err, errors.ErrDelegationCycle) || errors.Is(err, errors.ErrDelegationDepthExceeded) {
				e.log.WithMotion(motionID).WithVoter(v.Voter).Warn(
					"ballot could not be resolved", "error", err.Error())
				result.UnresolvedWeight += v.Weight
				unresolved[v.Voter] = true
				continue
			}
			return nil, err
		}

		choice, ok := choices[res.Terminal]
		if !ok {
			// Terminal voter never cast a ballot; the delegated weight has
			// no choice to land on.
			result.UnresolvedWeight += v.Weight
			unresolved[v.Voter] = true
			continue
		}

		switch choice {
		case "for":
			result.For += v.Weight
		case "against":
			result.Against += v.Weight
		case "abstain":
			result.Abstain += v.Weight
		}
	}
	for voter := range unresolved {
		result.Unresolved = append(result.Unresolved, voter)
	}
	sort.Strings(result.Unresolved)

	if e.eligibleVoters > 0 {
		result.ParticipationRate = float64(result.TotalVotes) / float64(e.eligibleVoters)
	}
	result.QuorumMet = result.ParticipationRate >= e.quorumThreshold
	result.Outcome = classify(result)

	if err := e.cache(ctx, result); err != nil {
		return nil, err
	}

	e.log.WithMotion(motionID).Info("tally completed",
		"outcome", result.Outcome,
		"for", result.For, "against", result.Against, "abstain", result.Abstain,
		"quorum_met", result.QuorumMet)
	e.bus.Publish(event.NewTallyCompletedEvent(motionID, result.Outcome,
		result.For, result.Against, result.Abstain, result.QuorumMet, result.TotalVotes))
	return result, nil
}

// classify maps a tally to its outcome. Quorum is checked first, then the
// procedural abstain check, then ties, then the simple majority.
func classify(r *Result) string {
	if !r.QuorumMet {
		return OutcomeLostQuorum
	}
	if r.Abstain > r.For+r.Against {
		return OutcomeProcedural
	}
	if r.For == r.Against && r.For > 0 {
		return OutcomeTie
	}
	if r.For > r.Against {
		return OutcomePassed
	}
	return OutcomeFailed
}

// cache stores a result blob under the motion's oracle ref.
func (e *Engine) cache(ctx context.Context, r *Result) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = e.repo.WriteBlobRef(ctx, oracleRef(r.MotionID), string(payload))
	return err
}

// CachedResult returns the last cached tally for a motion, or a not-found
// error if the motion has never been tallied.
func (e *Engine) CachedResult(ctx context.Context, motionID string) (*Result, error) {
	raw, err := e.repo.ReadBlobRef(ctx, oracleRef(motionID))
	if err != nil {
		if errors.Is(err, errors.ErrRefNotFound) {
			return nil, errors.NewNotFoundError("tally result", motionID)
		}
		return nil, err
	}

	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, errors.NewTallyError("cached result is not valid JSON", err).
			WithMotion(motionID)
	}
	return &result, nil
}
