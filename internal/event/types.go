// Package event defines event types for decoupling Parley components.
// These events let the motion store, tally engine, merge oracle, watcher,
// and dashboard communicate without direct dependencies.
package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "motion.opened", "vote.cast")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Motion Lifecycle Events
// -----------------------------------------------------------------------------

// MotionOpenedEvent is emitted when a new motion branch is created.
type MotionOpenedEvent struct {
	baseEvent
	MotionID string // Unique motion identifier
	Title    string // Motion title
	Author   string // Identity that opened the motion
	Branch   string // Git branch backing the motion
}

// NewMotionOpenedEvent creates a MotionOpenedEvent.
func NewMotionOpenedEvent(motionID, title, author, branch string) MotionOpenedEvent {
	return MotionOpenedEvent{
		baseEvent: newBaseEvent("motion.opened"),
		MotionID:  motionID,
		Title:     title,
		Author:    author,
		Branch:    branch,
	}
}

// MotionSecondedEvent is emitted when a motion receives a second.
type MotionSecondedEvent struct {
	baseEvent
	MotionID string // Motion that was seconded
	Seconder string // Identity that seconded
}

// NewMotionSecondedEvent creates a MotionSecondedEvent.
func NewMotionSecondedEvent(motionID, seconder string) MotionSecondedEvent {
	return MotionSecondedEvent{
		baseEvent: newBaseEvent("motion.seconded"),
		MotionID:  motionID,
		Seconder:  seconder,
	}
}

// MotionClosedEvent is emitted when a motion leaves the open state.
type MotionClosedEvent struct {
	baseEvent
	MotionID string // Motion that was closed
	Status   string // Final status ("closed", "merged", "abandoned")
}

// NewMotionClosedEvent creates a MotionClosedEvent.
func NewMotionClosedEvent(motionID, status string) MotionClosedEvent {
	return MotionClosedEvent{
		baseEvent: newBaseEvent("motion.closed"),
		MotionID:  motionID,
		Status:    status,
	}
}

// -----------------------------------------------------------------------------
// Debate Events
// -----------------------------------------------------------------------------

// DebatePostedEvent is emitted when a debate entry is appended.
type DebatePostedEvent struct {
	baseEvent
	MotionID string // Motion under debate
	Speaker  string // Identity that posted
	Stance   string // "pro", "con", or "neutral"
}

// NewDebatePostedEvent creates a DebatePostedEvent.
func NewDebatePostedEvent(motionID, speaker, stance string) DebatePostedEvent {
	return DebatePostedEvent{
		baseEvent: newBaseEvent("debate.posted"),
		MotionID:  motionID,
		Speaker:   speaker,
		Stance:    stance,
	}
}

// -----------------------------------------------------------------------------
// Delegation Events
// -----------------------------------------------------------------------------

// DelegationCreatedEvent is emitted when a delegation edge is recorded.
type DelegationCreatedEvent struct {
	baseEvent
	Delegator string // Identity handing off their vote
	Delegate  string // Identity receiving the vote weight
}

// NewDelegationCreatedEvent creates a DelegationCreatedEvent.
func NewDelegationCreatedEvent(delegator, delegate string) DelegationCreatedEvent {
	return DelegationCreatedEvent{
		baseEvent: newBaseEvent("delegation.created"),
		Delegator: delegator,
		Delegate:  delegate,
	}
}

// DelegationRemovedEvent is emitted when a delegation edge is revoked.
type DelegationRemovedEvent struct {
	baseEvent
	Delegator string // Identity whose delegation was removed
	Delegate  string // Identity the edge pointed to
}

// NewDelegationRemovedEvent creates a DelegationRemovedEvent.
func NewDelegationRemovedEvent(delegator, delegate string) DelegationRemovedEvent {
	return DelegationRemovedEvent{
		baseEvent: newBaseEvent("delegation.removed"),
		Delegator: delegator,
		Delegate:  delegate,
	}
}

// -----------------------------------------------------------------------------
// Vote Events
// -----------------------------------------------------------------------------

// VoteCastEvent is emitted when a ballot is recorded for a motion.
type VoteCastEvent struct {
	baseEvent
	MotionID string  // Motion being voted on
	Voter    string  // Identity that cast the ballot
	Value    string  // "for", "against", or "abstain"
	Weight   float64 // Ballot weight
}

// NewVoteCastEvent creates a VoteCastEvent.
func NewVoteCastEvent(motionID, voter, value string, weight float64) VoteCastEvent {
	return VoteCastEvent{
		baseEvent: newBaseEvent("vote.cast"),
		MotionID:  motionID,
		Voter:     voter,
		Value:     value,
		Weight:    weight,
	}
}

// VoteObservedEvent is emitted by the ref watcher when a new vote ref
// appears on disk. Unlike VoteCastEvent it may describe a vote cast by
// another process.
type VoteObservedEvent struct {
	baseEvent
	MotionID string // Motion the observed ref belongs to
	Ref      string // Full ref name that appeared
}

// NewVoteObservedEvent creates a VoteObservedEvent.
func NewVoteObservedEvent(motionID, ref string) VoteObservedEvent {
	return VoteObservedEvent{
		baseEvent: newBaseEvent("vote.observed"),
		MotionID:  motionID,
		Ref:       ref,
	}
}

// -----------------------------------------------------------------------------
// Tally Events
// -----------------------------------------------------------------------------

// TallyCompletedEvent is emitted when a tally run finishes.
type TallyCompletedEvent struct {
	baseEvent
	MotionID   string  // Motion that was tallied
	Outcome    string  // "passed", "failed", "tie_vote", "lost_quorum", "procedural_error"
	For        float64 // Weighted votes in favor
	Against    float64 // Weighted votes against
	Abstain    float64 // Weighted abstentions
	QuorumMet  bool    // Whether participation met the threshold
	TotalVotes int     // Number of ballots counted
}

// NewTallyCompletedEvent creates a TallyCompletedEvent.
func NewTallyCompletedEvent(motionID, outcome string, forW, againstW, abstainW float64, quorumMet bool, totalVotes int) TallyCompletedEvent {
	return TallyCompletedEvent{
		baseEvent:  newBaseEvent("tally.completed"),
		MotionID:   motionID,
		Outcome:    outcome,
		For:        forW,
		Against:    againstW,
		Abstain:    abstainW,
		QuorumMet:  quorumMet,
		TotalVotes: totalVotes,
	}
}

// -----------------------------------------------------------------------------
// Conflict Resolution Events
// -----------------------------------------------------------------------------

// ConflictResolvedEvent is emitted when a failed vote is routed to a
// resolution path and a follow-up task is created.
type ConflictResolvedEvent struct {
	baseEvent
	MotionID   string // Motion whose vote failed
	Outcome    string // Tally outcome that triggered resolution
	Resolution string // Resolution applied ("deferred", "retried", "escalated", "abandoned")
	TaskRef    string // Ref of the follow-up task, empty if none
}

// NewConflictResolvedEvent creates a ConflictResolvedEvent.
func NewConflictResolvedEvent(motionID, outcome, resolution, taskRef string) ConflictResolvedEvent {
	return ConflictResolvedEvent{
		baseEvent:  newBaseEvent("conflict.resolved"),
		MotionID:   motionID,
		Outcome:    outcome,
		Resolution: resolution,
		TaskRef:    taskRef,
	}
}

// -----------------------------------------------------------------------------
// Merge Oracle Events
// -----------------------------------------------------------------------------

// MergeDecidedEvent is emitted when the merge oracle reaches a verdict.
type MergeDecidedEvent struct {
	baseEvent
	MotionID   string  // Motion the verdict applies to
	Accepted   bool    // Whether the motion may merge
	Confidence float64 // Oracle confidence in the verdict
	Reason     string  // Human-readable explanation
	Merged     bool    // Whether a merge was actually executed
}

// NewMergeDecidedEvent creates a MergeDecidedEvent.
func NewMergeDecidedEvent(motionID string, accepted bool, confidence float64, reason string, merged bool) MergeDecidedEvent {
	return MergeDecidedEvent{
		baseEvent:  newBaseEvent("merge.decided"),
		MotionID:   motionID,
		Accepted:   accepted,
		Confidence: confidence,
		Reason:     reason,
		Merged:     merged,
	}
}

// OracleAdjustedEvent is emitted when operator feedback shifts the
// oracle's learned confidence weight.
type OracleAdjustedEvent struct {
	baseEvent
	MotionID  string  // Motion the feedback concerned
	OldWeight float64 // Weight before adjustment
	NewWeight float64 // Weight after adjustment
	Correct   bool    // Whether the verdict was judged correct
}

// NewOracleAdjustedEvent creates an OracleAdjustedEvent.
func NewOracleAdjustedEvent(motionID string, oldWeight, newWeight float64, correct bool) OracleAdjustedEvent {
	return OracleAdjustedEvent{
		baseEvent: newBaseEvent("oracle.adjusted"),
		MotionID:  motionID,
		OldWeight: oldWeight,
		NewWeight: newWeight,
		Correct:   correct,
	}
}
