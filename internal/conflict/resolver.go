// Package conflict routes failed votes to governance follow-up. Each
// conflicted tally outcome maps to a resolution strategy and a follow-up
// task ref under refs/parliament/tasks/.
package conflict

import (
	"context"
	"time"

	"github.com/parleygit/parley/internal/event"
	"github.com/parleygit/parley/internal/gitcli"
	"github.com/parleygit/parley/internal/logging"
	"github.com/parleygit/parley/internal/tally"
)

// Resolution statuses.
const (
	StatusDeferred  = "deferred"
	StatusRetried   = "retried"
	StatusEscalated = "escalated"
	StatusAbandoned = "abandoned"
)

// Resolution describes how a conflicted vote is handled.
type Resolution struct {
	MotionID       string     `json:"motion_id"`
	Outcome        string     `json:"outcome"`
	Status         string     `json:"status"`
	Method         string     `json:"method"`
	EscalationPath string     `json:"escalation_path,omitempty"`
	ChairReview    bool       `json:"chair_review"`
	RetryDeadline  *time.Time `json:"retry_deadline,omitempty"`
	TaskRef        string     `json:"task_ref"`
	ResolvedAt     time.Time  `json:"resolved_at"`
}

// Resolver maps tally outcomes to resolutions and records follow-up tasks.
type Resolver struct {
	tasks      *TaskStore
	bus        *event.Bus
	log        *logging.Logger
	chair      string
	retryDelay time.Duration
}

// NewResolver creates a conflict resolver. Follow-up tasks are assigned to
// the chair; lost-quorum retries are scheduled retryDelay from resolution.
func NewResolver(repo *gitcli.Repo, bus *event.Bus, log *logging.Logger,
	chair string, retryDelay time.Duration) *Resolver {
	return &Resolver{
		tasks:      NewTaskStore(repo, log),
		bus:        bus,
		log:        log.WithComponent("conflict"),
		chair:      chair,
		retryDelay: retryDelay,
	}
}

// Tasks exposes the resolver's task store.
func (r *Resolver) Tasks() *TaskStore {
	return r.tasks
}

// Resolve routes a tally result to its resolution strategy, writes the
// follow-up task, and publishes conflict.resolved. A result that is not
// conflicted resolves to abandonment.
func (r *Resolver) Resolve(ctx context.Context, result *tally.Result) (*Resolution, error) {
	now := time.Now().UTC()
	res := &Resolution{
		MotionID:   result.MotionID,
		Outcome:    result.Outcome,
		ResolvedAt: now,
	}

	var description string
	priority := PriorityMedium
	switch result.Outcome {
	case tally.OutcomeTie:
		res.Status = StatusDeferred
		res.Method = "chair_review"
		res.ChairReview = true
		description = "tie vote requires chair review"
		priority = PriorityHigh
	case tally.OutcomeLostQuorum:
		res.Status = StatusRetried
		res.Method = "reschedule_vote"
		deadline := now.Add(r.retryDelay)
		res.RetryDeadline = &deadline
		description = "vote lost quorum, reschedule before deadline"
	case tally.OutcomeProcedural:
		res.Status = StatusEscalated
		res.Method = "committee_review"
		res.EscalationPath = "governance_committee"
		res.ChairReview = true
		description = "procedural anomaly escalated to governance committee"
		priority = PriorityHigh
	default:
		res.Status = StatusAbandoned
		res.Method = "automatic_abandonment"
		description = "motion abandoned after failed vote"
		priority = PriorityLow
	}

	task := &Task{
		MotionID:      result.MotionID,
		Description:   description,
		Priority:      priority,
		Assignee:      r.chair,
		Status:        TaskOpen,
		CreatedAt:     now,
		RetryDeadline: res.RetryDeadline,
	}
	ref, err := r.tasks.Create(ctx, task)
	if err != nil {
		return nil, err
	}
	res.TaskRef = ref

	r.log.WithMotion(result.MotionID).Info("conflict resolved",
		"outcome", result.Outcome, "status", res.Status, "method", res.Method)
	r.bus.Publish(event.NewConflictResolvedEvent(result.MotionID, result.Outcome, res.Status, ref))
	return res, nil
}
