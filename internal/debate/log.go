// Package debate implements the append-only debate log. Entries are JSON
// note lines under the "debate" namespace, anchored to the motion's first
// commit, ordered by sequence number.
package debate

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/parleygit/parley/internal/errors"
	"github.com/parleygit/parley/internal/event"
	"github.com/parleygit/parley/internal/gitcli"
	"github.com/parleygit/parley/internal/logging"
	"github.com/parleygit/parley/internal/motion"
	"github.com/parleygit/parley/internal/motionlock"
	"github.com/parleygit/parley/internal/security"
)

// Entry is one debate turn on a motion.
type Entry struct {
	MotionID  string    `json:"motion_id"`
	Speaker   string    `json:"sp"`
	Stance    string    `json:"st"` // pro, con, neutral
	Argument  string    `json:"arg"`
	Seq       int       `json:"seq"`
	Timestamp time.Time `json:"ts"`
}

// Log reads and appends debate entries.
type Log struct {
	repo    *gitcli.Repo
	motions *motion.Store
	locker  *motionlock.Locker
	bus     *event.Bus
	log     *logging.Logger
}

// NewLog creates a debate log.
func NewLog(repo *gitcli.Repo, motions *motion.Store, locker *motionlock.Locker, bus *event.Bus, log *logging.Logger) *Log {
	return &Log{
		repo:    repo,
		motions: motions,
		locker:  locker,
		bus:     bus,
		log:     log.WithComponent("debate"),
	}
}

// Post appends a debate entry to an open motion.
func (l *Log) Post(ctx context.Context, motionID, speaker, stance, argument string) (*Entry, error) {
	if err := security.ValidateIdentity(speaker); err != nil {
		return nil, err
	}
	if err := security.ValidateStance(stance); err != nil {
		return nil, err
	}
	argument, err := security.ValidateArgument(argument)
	if err != nil {
		return nil, err
	}

	var entry *Entry
	err = l.locker.WithLock(motionID, speaker, func() error {
		m, err := l.motions.Get(ctx, motionID)
		if err != nil {
			return err
		}
		if m.Status != motion.StatusOpen {
			return errors.NewMotionError("debate is closed", errors.ErrMotionClosed).
				WithMotion(motionID).
				WithStatus(string(m.Status))
		}

		existing, _, err := l.load(ctx, m)
		if err != nil {
			return err
		}

		entry = &Entry{
			MotionID:  motionID,
			Speaker:   speaker,
			Stance:    stance,
			Argument:  argument,
			Seq:       nextSeq(existing),
			Timestamp: time.Now().UTC(),
		}
		payload, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return l.repo.AppendNote(ctx, "debate", m.Commit, string(payload))
	})
	if err != nil {
		return nil, err
	}

	l.log.WithMotion(motionID).Info("debate entry posted",
		"speaker", speaker, "stance", stance, "seq", entry.Seq)
	l.bus.Publish(event.NewDebatePostedEvent(motionID, speaker, stance))
	return entry, nil
}

// List returns a motion's debate entries in sequence order, along with the
// number of malformed note lines that were skipped.
func (l *Log) List(ctx context.Context, motionID string) ([]Entry, int, error) {
	m, err := l.motions.Get(ctx, motionID)
	if err != nil {
		return nil, 0, err
	}
	return l.load(ctx, m)
}

// load reads and orders entries for a motion. Malformed lines are skipped
// and counted; only command failures abort.
func (l *Log) load(ctx context.Context, m *motion.Motion) ([]Entry, int, error) {
	lines, err := l.repo.NoteLines(ctx, "debate", m.Commit)
	if err != nil {
		return nil, 0, err
	}

	var entries []Entry
	malformed := 0
	for _, line := range lines {
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil || entry.Speaker == "" {
			malformed++
			continue
		}
		entries = append(entries, entry)
	}
	if malformed > 0 {
		l.log.WithMotion(m.ID).Warn("skipped malformed debate entries", "count", malformed)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Seq < entries[j].Seq
	})
	return entries, malformed, nil
}

// nextSeq returns one past the highest sequence number seen.
func nextSeq(entries []Entry) int {
	max := 0
	for _, e := range entries {
		if e.Seq > max {
			max = e.Seq
		}
	}
	return max + 1
}
