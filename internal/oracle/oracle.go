// Package oracle decides whether a passed motion merges. The verdict gates
// on the tally outcome, quorum, and the ballot audit; confidence is a
// bounded heuristic over approval margin and participation, shifted by a
// learned weight that operator feedback adjusts over time.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/parleygit/parley/internal/errors"
	"github.com/parleygit/parley/internal/event"
	"github.com/parleygit/parley/internal/gitcli"
	"github.com/parleygit/parley/internal/logging"
	"github.com/parleygit/parley/internal/motion"
	"github.com/parleygit/parley/internal/tally"
)

const weightRef = "refs/parliament/oracle/learning"

// Verdicts.
const (
	VerdictAccept = "accept"
	VerdictReject = "reject"
	VerdictDefer  = "defer"
)

// Decision is the oracle's verdict on a tallied motion.
type Decision struct {
	MotionID   string    `json:"motion_id"`
	Verdict    string    `json:"verdict"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
	Merged     bool      `json:"merged"`
	DecidedAt  time.Time `json:"decided_at"`
}

// Accepted reports whether the verdict clears the motion for merging.
func (d *Decision) Accepted() bool {
	return d.Verdict == VerdictAccept
}

// learningState is the persisted feedback-adjusted weight.
type learningState struct {
	Weight    float64   `json:"weight"`
	Samples   int       `json:"samples"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Oracle evaluates tallied motions and performs accepted merges.
type Oracle struct {
	repo    *gitcli.Repo
	motions *motion.Store
	bus     *event.Bus
	log     *logging.Logger

	targetBranch   string
	learningRate   float64
	baseConfidence float64
}

// New creates a merge oracle. Accepted motions merge into targetBranch.
func New(repo *gitcli.Repo, motions *motion.Store, bus *event.Bus, log *logging.Logger,
	targetBranch string, learningRate, baseConfidence float64) *Oracle {
	return &Oracle{
		repo:           repo,
		motions:        motions,
		bus:            bus,
		log:            log.WithComponent("oracle"),
		targetBranch:   targetBranch,
		learningRate:   learningRate,
		baseConfidence: baseConfidence,
	}
}

// Decide evaluates a tally result. Acceptance requires a passed outcome,
// quorum, and a clean ballot audit. Conflicted outcomes defer to the
// conflict resolver; everything else is rejected. When merge is true an
// accepted motion is merged immediately and its status moves to merged.
func (o *Oracle) Decide(ctx context.Context, result *tally.Result, merge bool) (*Decision, error) {
	d := &Decision{
		MotionID:  result.MotionID,
		DecidedAt: time.Now().UTC(),
	}

	switch {
	case tally.Conflicted(result.Outcome):
		d.Verdict = VerdictDefer
		d.Reason = "outcome " + result.Outcome + " awaits conflict resolution"
	case result.Outcome != tally.OutcomePassed:
		d.Verdict = VerdictReject
		d.Reason = "motion did not pass"
	case !result.QuorumMet:
		d.Verdict = VerdictReject
		d.Reason = "quorum not met"
	case !result.Clean():
		d.Verdict = VerdictReject
		d.Reason = fmt.Sprintf("ballot audit found %d anomalies", len(result.AuditIssues))
	default:
		d.Verdict = VerdictAccept
		d.Reason = "passed with quorum and a clean audit"
	}

	weight, err := o.learnedWeight(ctx)
	if err != nil {
		return nil, err
	}
	d.Confidence = confidence(result, weight)

	if d.Accepted() && merge {
		if err := o.ExecuteMerge(ctx, result.MotionID); err != nil {
			return nil, err
		}
		d.Merged = true
	}

	o.log.WithMotion(result.MotionID).Info("merge decided",
		"verdict", d.Verdict, "confidence", d.Confidence, "merged", d.Merged)
	o.bus.Publish(event.NewMergeDecidedEvent(result.MotionID, d.Accepted(), d.Confidence, d.Reason, d.Merged))
	return d, nil
}

// confidence scores a result in [0.05, 0.99]. The approval margin and the
// participation rate each contribute, scaled by the learned weight.
func confidence(r *tally.Result, weight float64) float64 {
	substantive := r.For + r.Against
	margin := 0.0
	if substantive > 0 {
		margin = (r.For - r.Against) / substantive
		if margin < 0 {
			margin = -margin
		}
	}
	participation := r.ParticipationRate
	if participation > 1 {
		participation = 1
	}

	c := weight * (0.6*margin + 0.4*participation)
	if c < 0.05 {
		c = 0.05
	}
	if c > 0.99 {
		c = 0.99
	}
	return c
}

// ExecuteMerge merges a motion's branch into the target branch with a
// merge commit and moves the motion to merged. A conflicted merge is
// aborted and surfaces as ErrMergeConflict; it is never retried here.
func (o *Oracle) ExecuteMerge(ctx context.Context, motionID string) error {
	m, err := o.motions.Get(ctx, motionID)
	if err != nil {
		return err
	}
	if m.Status != motion.StatusOpen && m.Status != motion.StatusClosed {
		return errors.NewMotionError("motion is not mergeable in status "+string(m.Status),
			errors.ErrInvalidTransition).WithMotion(motionID)
	}

	if err := o.repo.Checkout(ctx, o.targetBranch); err != nil {
		return err
	}
	message := fmt.Sprintf("merge %s: %s", motionID, m.Title)
	if err := o.repo.Merge(ctx, m.Branch, message); err != nil {
		return err
	}

	if m.Status == motion.StatusOpen {
		if err := o.motions.Close(ctx, motionID); err != nil {
			return err
		}
	}
	return o.motions.SetStatus(ctx, motionID, motion.StatusMerged)
}

// learnedWeight reads the persisted feedback weight, defaulting to the
// configured base confidence when no feedback has been recorded.
func (o *Oracle) learnedWeight(ctx context.Context) (float64, error) {
	raw, err := o.repo.ReadBlobRef(ctx, weightRef)
	if err != nil {
		if errors.Is(err, errors.ErrRefNotFound) {
			return o.baseConfidence, nil
		}
		return 0, err
	}
	var state learningState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		o.log.Warn("learning state is not valid JSON, falling back to base", "error", err.Error())
		return o.baseConfidence, nil
	}
	return state.Weight, nil
}

// Feedback records whether a past decision turned out correct and shifts
// the learned weight toward 1 or 0 by the learning rate. The updated
// weight is persisted and oracle.adjusted is published.
func (o *Oracle) Feedback(ctx context.Context, motionID string, correct bool) (float64, error) {
	old, err := o.learnedWeight(ctx)
	if err != nil {
		return 0, err
	}

	target := 0.0
	if correct {
		target = 1.0
	}
	next := old + o.learningRate*(target-old)

	state := learningState{Weight: next, UpdatedAt: time.Now().UTC()}
	if raw, err := o.repo.ReadBlobRef(ctx, weightRef); err == nil {
		var prev learningState
		if json.Unmarshal([]byte(raw), &prev) == nil {
			state.Samples = prev.Samples
		}
	}
	state.Samples++

	payload, err := json.Marshal(&state)
	if err != nil {
		return 0, err
	}
	if _, err := o.repo.WriteBlobRef(ctx, weightRef, string(payload)); err != nil {
		return 0, err
	}

	o.log.WithMotion(motionID).Info("oracle weight adjusted",
		"old", old, "new", next, "correct", correct)
	o.bus.Publish(event.NewOracleAdjustedEvent(motionID, old, next, correct))
	return next, nil
}
