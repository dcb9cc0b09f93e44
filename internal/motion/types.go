// Package motion implements the motion store. Each motion is a git branch
// motions/<id> carrying the motion document, with JSON metadata in a blob
// ref and seconds recorded as note lines anchored to the motion's first
// commit.
package motion

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Status is a motion's lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusOpen      Status = "open"
	StatusClosed    Status = "closed"
	StatusMerged    Status = "merged"
	StatusAbandoned Status = "abandoned"
)

// transitions maps each status to the statuses it may move to.
var transitions = map[Status][]Status{
	StatusDraft:  {StatusOpen},
	StatusOpen:   {StatusClosed, StatusAbandoned},
	StatusClosed: {StatusMerged, StatusAbandoned},
}

// CanTransitionTo reports whether a status change is legal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status accepts no further transitions.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Motion is a proposal under consideration.
type Motion struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Status    Status    `json:"status"`
	Branch    string    `json:"branch"`
	Commit    string    `json:"commit"` // First commit on the branch; note anchor
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Second records one member seconding a motion.
type Second struct {
	MotionID string    `json:"motion_id"`
	Speaker  string    `json:"speaker"`
	Time     time.Time `json:"ts"`
}

// NewID generates a motion identifier: "M" followed by 12 hex characters.
func NewID() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken; fall back to
		// a time-derived ID rather than panicking.
		now := time.Now().UnixNano()
		for i := range buf {
			buf[i] = byte(now >> (8 * i))
		}
	}
	return "M" + hex.EncodeToString(buf)
}

// BranchFor returns the branch name backing a motion.
func BranchFor(id string) string {
	return "motions/" + id
}

// MetaRef returns the ref holding a motion's metadata blob.
func MetaRef(id string) string {
	return "refs/parliament/motions/" + id
}
