package motion

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/parleygit/parley/internal/errors"
	"github.com/parleygit/parley/internal/event"
	"github.com/parleygit/parley/internal/gitcli"
	"github.com/parleygit/parley/internal/logging"
	"github.com/parleygit/parley/internal/motionlock"
	"github.com/parleygit/parley/internal/security"
)

// Store persists motions in a git repository.
type Store struct {
	repo   *gitcli.Repo
	locker *motionlock.Locker
	bus    *event.Bus
	log    *logging.Logger
}

// NewStore creates a motion store.
func NewStore(repo *gitcli.Repo, locker *motionlock.Locker, bus *event.Bus, log *logging.Logger) *Store {
	return &Store{
		repo:   repo,
		locker: locker,
		bus:    bus,
		log:    log.WithComponent("motion"),
	}
}

// Open creates a new motion: a branch with the motion document committed on
// it, a metadata blob ref, and a motion.opened event. The motion starts in
// the open state.
func (s *Store) Open(ctx context.Context, title, body, author string) (*Motion, error) {
	title, err := security.ValidateTitle(title)
	if err != nil {
		return nil, err
	}
	body, err = security.ValidateBody(body)
	if err != nil {
		return nil, err
	}
	if err := security.ValidateIdentity(author); err != nil {
		return nil, err
	}

	id := NewID()
	branch := BranchFor(id)

	var m *Motion
	err = s.locker.WithLock(id, author, func() error {
		exists, err := s.repo.BranchExists(ctx, branch)
		if err != nil {
			return err
		}
		if exists {
			return errors.NewMotionError("motion branch already exists", errors.ErrMotionExists).
				WithMotion(id)
		}

		doc := fmt.Sprintf("# %s\n\n%s\n", title, body)
		message := fmt.Sprintf("motion: %s %s", id, truncate(title, 50))
		commit, err := s.repo.CommitFile(ctx, branch, "MOTION.md", doc, message, author)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		m = &Motion{
			ID:        id,
			Title:     title,
			Author:    author,
			Status:    StatusOpen,
			Branch:    branch,
			Commit:    commit,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.writeMeta(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithMotion(id).Info("motion opened", "title", title, "author", author)
	s.bus.Publish(event.NewMotionOpenedEvent(id, title, author, branch))
	return m, nil
}

// Get loads a motion by ID.
func (s *Store) Get(ctx context.Context, id string) (*Motion, error) {
	if err := security.ValidateMotionID(id); err != nil {
		return nil, err
	}

	raw, err := s.repo.ReadBlobRef(ctx, MetaRef(id))
	if err != nil {
		if errors.Is(err, errors.ErrRefNotFound) {
			return nil, errors.NewNotFoundError("motion", id)
		}
		return nil, err
	}

	var m Motion
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, errors.NewMotionError("metadata is not valid JSON", err).
			WithMotion(id)
	}
	return &m, nil
}

// List returns all motions sorted by creation time, newest first.
func (s *Store) List(ctx context.Context) ([]*Motion, error) {
	refs, err := s.repo.ForEachRef(ctx, "refs/parliament/motions/")
	if err != nil {
		return nil, err
	}

	var motions []*Motion
	skipped := 0
	for _, ref := range refs {
		id := strings.TrimPrefix(ref.Name, "refs/parliament/motions/")
		m, err := s.Get(ctx, id)
		if err != nil {
			skipped++
			s.log.Warn("skipping unreadable motion", "ref", ref.Name, "error", err.Error())
			continue
		}
		motions = append(motions, m)
	}
	if skipped > 0 {
		s.log.Warn("some motions could not be read", "skipped", skipped)
	}

	sort.Slice(motions, func(i, j int) bool {
		return motions[i].CreatedAt.After(motions[j].CreatedAt)
	})
	return motions, nil
}

// Second records a second for an open motion. A member may second a motion
// only once.
func (s *Store) Second(ctx context.Context, id, speaker string) error {
	if err := security.ValidateIdentity(speaker); err != nil {
		return err
	}

	err := s.locker.WithLock(id, speaker, func() error {
		m, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if m.Status != StatusOpen {
			return errors.NewMotionError("only open motions can be seconded", errors.ErrMotionClosed).
				WithMotion(id).
				WithStatus(string(m.Status))
		}

		seconds, err := s.Seconds(ctx, id)
		if err != nil {
			return err
		}
		for _, sec := range seconds {
			if sec.Speaker == speaker {
				return errors.NewAlreadyExistsError("second", speaker)
			}
		}

		payload, err := json.Marshal(Second{
			MotionID: id,
			Speaker:  speaker,
			Time:     time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		return s.repo.AppendNote(ctx, "second", m.Commit, string(payload))
	})
	if err != nil {
		return err
	}

	s.log.WithMotion(id).Info("motion seconded", "speaker", speaker)
	s.bus.Publish(event.NewMotionSecondedEvent(id, speaker))
	return nil
}

// Seconds returns all recorded seconds for a motion. Malformed note lines
// are skipped and counted, never fatal.
func (s *Store) Seconds(ctx context.Context, id string) ([]Second, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.NoteLines(ctx, "second", m.Commit)
	if err != nil {
		return nil, err
	}

	var seconds []Second
	malformed := 0
	for _, line := range lines {
		var sec Second
		if err := json.Unmarshal([]byte(line), &sec); err != nil {
			malformed++
			continue
		}
		seconds = append(seconds, sec)
	}
	if malformed > 0 {
		s.log.WithMotion(id).Warn("skipped malformed second entries", "count", malformed)
	}
	return seconds, nil
}

// SetStatus transitions a motion to a new status, enforcing the lifecycle
// state machine.
func (s *Store) SetStatus(ctx context.Context, id string, next Status) error {
	err := s.locker.WithLock(id, "status-change", func() error {
		m, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if !m.Status.CanTransitionTo(next) {
			return errors.NewMotionError(
				fmt.Sprintf("cannot transition from %s to %s", m.Status, next),
				errors.ErrInvalidTransition).
				WithMotion(id).
				WithStatus(string(m.Status))
		}

		m.Status = next
		m.UpdatedAt = time.Now().UTC()
		return s.writeMeta(ctx, m)
	})
	if err != nil {
		return err
	}

	s.log.WithMotion(id).Info("motion status changed", "status", string(next))
	switch next {
	case StatusClosed, StatusMerged, StatusAbandoned:
		s.bus.Publish(event.NewMotionClosedEvent(id, string(next)))
	}
	return nil
}

// Close moves an open motion to the closed state, ending voting.
func (s *Store) Close(ctx context.Context, id string) error {
	return s.SetStatus(ctx, id, StatusClosed)
}

// writeMeta stores a motion's metadata blob.
func (s *Store) writeMeta(ctx context.Context, m *Motion) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return errors.NewMotionError("failed to encode metadata", err).
			WithMotion(m.ID)
	}
	_, err = s.repo.WriteBlobRef(ctx, MetaRef(m.ID), string(payload))
	return err
}

// truncate shortens a string for commit messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
