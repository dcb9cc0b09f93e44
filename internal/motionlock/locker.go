// Package motionlock serializes writers per motion. A lock is an exclusive
// file under the repository's git directory, so concurrent parley processes
// on the same clone cannot interleave vote or status writes for one motion.
package motionlock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/parleygit/parley/internal/errors"
)

// LockInfo describes the holder of a motion lock.
type LockInfo struct {
	MotionID   string    `json:"motion_id"`
	Holder     string    `json:"holder"`
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Locker manages per-motion write locks.
// It maintains an in-memory map of locks held by this process and mirrors
// each one as an exclusive file on disk for cross-process safety.
type Locker struct {
	dir        string
	staleAfter time.Duration

	mu   sync.Mutex
	held map[string]string // motionID -> holder
}

// NewLocker creates a Locker storing lock files under dir, typically
// {gitdir}/parley/locks. Lock files older than staleAfter are treated as
// abandoned and may be broken.
func NewLocker(dir string, staleAfter time.Duration) *Locker {
	return &Locker{
		dir:        dir,
		staleAfter: staleAfter,
		held:       make(map[string]string),
	}
}

// lockPath returns the lock file path for a motion.
func (l *Locker) lockPath(motionID string) string {
	return filepath.Join(l.dir, motionID+".lock")
}

// Acquire takes the write lock for a motion on behalf of holder.
// Returns ErrMotionLocked if another live holder owns the lock.
// Re-acquiring a lock this process already holds is a no-op.
func (l *Locker) Acquire(motionID, holder string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.held[motionID]; ok {
		if existing == holder {
			return nil // idempotent
		}
		return errors.NewMotionError(
			fmt.Sprintf("%s holds the lock", existing), errors.ErrMotionLocked).
			WithMotion(motionID)
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return errors.NewMotionError("failed to create lock directory", err).
			WithMotion(motionID)
	}

	if err := l.createLockFile(motionID, holder); err != nil {
		if !errors.Is(err, errors.ErrMotionLocked) {
			return err
		}
		// Existing lock file. Break it only if it has gone stale.
		if !l.breakIfStale(motionID) {
			return err
		}
		if err := l.createLockFile(motionID, holder); err != nil {
			return err
		}
	}

	l.held[motionID] = holder
	return nil
}

// createLockFile creates the lock file exclusively.
func (l *Locker) createLockFile(motionID, holder string) error {
	path := l.lockPath(motionID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			info := l.readLockInfo(motionID)
			msg := "another process holds the lock"
			if info != nil && info.Holder != "" {
				msg = fmt.Sprintf("%s holds the lock (pid %d)", info.Holder, info.PID)
			}
			return errors.NewMotionError(msg, errors.ErrMotionLocked).
				WithMotion(motionID)
		}
		return errors.NewMotionError("failed to create lock file", err).
			WithMotion(motionID)
	}
	defer f.Close()

	info := LockInfo{
		MotionID:   motionID,
		Holder:     holder,
		PID:        os.Getpid(),
		AcquiredAt: time.Now(),
	}
	if err := json.NewEncoder(f).Encode(info); err != nil {
		os.Remove(path)
		return errors.NewMotionError("failed to write lock info", err).
			WithMotion(motionID)
	}
	return nil
}

// breakIfStale removes an abandoned lock file. Returns true if it was removed.
func (l *Locker) breakIfStale(motionID string) bool {
	path := l.lockPath(motionID)
	st, err := os.Stat(path)
	if err != nil {
		// Already gone; the caller retries the exclusive create.
		return os.IsNotExist(err)
	}
	if time.Since(st.ModTime()) < l.staleAfter {
		return false
	}
	return os.Remove(path) == nil
}

// readLockInfo reads the lock file for diagnostics. Returns nil on any error.
func (l *Locker) readLockInfo(motionID string) *LockInfo {
	data, err := os.ReadFile(l.lockPath(motionID))
	if err != nil {
		return nil
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil
	}
	return &info
}

// Release gives up the lock for a motion.
// Returns ErrLockNotHeld if this process does not hold it, or if a different
// holder within this process does.
func (l *Locker) Release(motionID, holder string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.releaseLocked(motionID, holder)
}

func (l *Locker) releaseLocked(motionID, holder string) error {
	existing, ok := l.held[motionID]
	if !ok {
		return errors.NewMotionError("lock is not held by this process", errors.ErrLockNotHeld).
			WithMotion(motionID)
	}
	if existing != holder {
		return errors.NewMotionError(
			fmt.Sprintf("%s holds the lock", existing), errors.ErrLockNotHeld).
			WithMotion(motionID)
	}

	if err := os.Remove(l.lockPath(motionID)); err != nil && !os.IsNotExist(err) {
		return errors.NewMotionError("failed to remove lock file", err).
			WithMotion(motionID)
	}
	delete(l.held, motionID)
	return nil
}

// ReleaseAll gives up every lock held by the given holder in this process.
func (l *Locker) ReleaseAll(holder string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var motions []string
	for id, h := range l.held {
		if h == holder {
			motions = append(motions, id)
		}
	}
	sort.Strings(motions)

	for _, id := range motions {
		if err := l.releaseLocked(id, holder); err != nil {
			return err
		}
	}
	return nil
}

// Holder returns the holder recorded in the lock file for a motion and true,
// or ("", false) if the motion is unlocked.
func (l *Locker) Holder(motionID string) (string, bool) {
	info := l.readLockInfo(motionID)
	if info == nil {
		return "", false
	}
	return info.Holder, true
}

// WithLock runs fn while holding the motion's lock.
func (l *Locker) WithLock(motionID, holder string, fn func() error) error {
	if err := l.Acquire(motionID, holder); err != nil {
		return err
	}
	defer func() {
		_ = l.Release(motionID, holder)
	}()
	return fn()
}
