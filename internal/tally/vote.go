// Package tally implements vote casting and weighted tallying. Each ballot
// is a JSON blob at refs/vote/<motion>/<voter>/<uuid>; tallying resolves
// every ballot through the delegation graph and classifies the outcome.
package tally

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parleygit/parley/internal/errors"
	"github.com/parleygit/parley/internal/event"
	"github.com/parleygit/parley/internal/motion"
	"github.com/parleygit/parley/internal/security"
)

// Vote is one cast ballot.
type Vote struct {
	MotionID  string    `json:"motion_id"`
	Voter     string    `json:"voter"`
	Value     string    `json:"vote"` // for, against, abstain
	Weight    float64   `json:"weight"`
	Timestamp time.Time `json:"ts"`
}

// voteRefPrefix returns the ref namespace holding a motion's ballots.
func voteRefPrefix(motionID string) string {
	return "refs/vote/" + motionID + "/"
}

// Cast records a ballot for an open motion. Each voter gets exactly one
// ballot per motion; a second cast is rejected.
func (e *Engine) Cast(ctx context.Context, motionID, voter, value string, weight float64) (*Vote, error) {
	if err := security.ValidateMotionID(motionID); err != nil {
		return nil, err
	}
	if err := security.ValidateIdentity(voter); err != nil {
		return nil, err
	}
	if err := security.ValidateVoteValue(value); err != nil {
		return nil, err
	}
	if err := security.ValidateWeight(weight); err != nil {
		return nil, err
	}

	var vote *Vote
	err := e.locker.WithLock(motionID, voter, func() error {
		m, err := e.motions.Get(ctx, motionID)
		if err != nil {
			return err
		}
		if m.Status != motion.StatusOpen {
			return errors.NewTallyError("voting is closed", errors.ErrMotionClosed).
				WithMotion(motionID).
				WithVoter(voter)
		}

		existing, err := e.repo.ForEachRef(ctx, voteRefPrefix(motionID)+voter+"/")
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return errors.NewTallyError("one ballot per voter per motion", errors.ErrDuplicateVote).
				WithMotion(motionID).
				WithVoter(voter)
		}

		vote = &Vote{
			MotionID:  motionID,
			Voter:     voter,
			Value:     value,
			Weight:    weight,
			Timestamp: time.Now().UTC(),
		}
		payload, err := json.Marshal(vote)
		if err != nil {
			return err
		}
		ref := voteRefPrefix(motionID) + voter + "/" + uuid.NewString()
		_, err = e.repo.WriteBlobRef(ctx, ref, string(payload))
		return err
	})
	if err != nil {
		return nil, err
	}

	e.log.WithMotion(motionID).WithVoter(voter).Info("vote cast",
		"value", value, "weight", weight)
	e.bus.Publish(event.NewVoteCastEvent(motionID, voter, value, weight))
	return vote, nil
}

// Votes returns all readable ballots for a motion, sorted by voter, along
// with the number of malformed ballot blobs skipped.
func (e *Engine) Votes(ctx context.Context, motionID string) ([]Vote, int, error) {
	if err := security.ValidateMotionID(motionID); err != nil {
		return nil, 0, err
	}

	refs, err := e.repo.ForEachRef(ctx, voteRefPrefix(motionID))
	if err != nil {
		return nil, 0, err
	}

	var votes []Vote
	malformed := 0
	for _, ref := range refs {
		raw, err := e.repo.CatBlob(ctx, ref.SHA)
		if err != nil {
			malformed++
			continue
		}
		var v Vote
		if err := json.Unmarshal([]byte(raw), &v); err != nil || v.Voter == "" {
			malformed++
			continue
		}
		votes = append(votes, v)
	}
	if malformed > 0 {
		e.log.WithMotion(motionID).Warn("skipped malformed ballots", "count", malformed)
	}

	sort.Slice(votes, func(i, j int) bool {
		if votes[i].Voter != votes[j].Voter {
			return votes[i].Voter < votes[j].Voter
		}
		return votes[i].Timestamp.Before(votes[j].Timestamp)
	})
	return votes, malformed, nil
}

// VoterFromRef extracts the voter from a ballot ref name, or "" if the ref
// is not a ballot ref.
func VoterFromRef(ref string) (motionID, voter string) {
	rest := strings.TrimPrefix(ref, "refs/vote/")
	if rest == ref {
		return "", ""
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) < 2 {
		return "", ""
	}
	return parts[0], parts[1]
}
