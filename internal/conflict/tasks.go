package conflict

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/parleygit/parley/internal/errors"
	"github.com/parleygit/parley/internal/gitcli"
	"github.com/parleygit/parley/internal/logging"
)

const taskRefPrefix = "refs/parliament/tasks/"

// Task priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Task statuses.
const (
	TaskOpen = "open"
	TaskDone = "done"
)

// Task is a governance follow-up recorded after conflict resolution.
type Task struct {
	MotionID      string     `json:"motion_id"`
	Description   string     `json:"description"`
	Priority      string     `json:"priority"`
	Assignee      string     `json:"assignee"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	RetryDeadline *time.Time `json:"retry_deadline,omitempty"`
}

// TaskStore reads and writes follow-up task refs.
type TaskStore struct {
	repo *gitcli.Repo
	log  *logging.Logger
}

// NewTaskStore creates a task store.
func NewTaskStore(repo *gitcli.Repo, log *logging.Logger) *TaskStore {
	return &TaskStore{repo: repo, log: log.WithComponent("tasks")}
}

// taskRef returns the ref name for a motion's follow-up task.
func taskRef(motionID string, at time.Time) string {
	return fmt.Sprintf("%stask-%s-%d", taskRefPrefix, motionID, at.Unix())
}

// Create writes a task blob and returns its ref name.
func (s *TaskStore) Create(ctx context.Context, task *Task) (string, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return "", err
	}
	ref := taskRef(task.MotionID, task.CreatedAt)
	if _, err := s.repo.WriteBlobRef(ctx, ref, string(payload)); err != nil {
		return "", err
	}
	s.log.WithMotion(task.MotionID).Info("follow-up task created",
		"ref", ref, "priority", task.Priority, "assignee", task.Assignee)
	return ref, nil
}

// Get reads one task by ref.
func (s *TaskStore) Get(ctx context.Context, ref string) (*Task, error) {
	raw, err := s.repo.ReadBlobRef(ctx, ref)
	if err != nil {
		if errors.Is(err, errors.ErrRefNotFound) {
			return nil, errors.NewNotFoundError("task", ref)
		}
		return nil, err
	}
	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return nil, errors.NewValidationError("task", "payload is not valid JSON")
	}
	return &task, nil
}

// List returns all readable tasks, newest first, along with the number of
// malformed task blobs skipped.
func (s *TaskStore) List(ctx context.Context) ([]Task, int, error) {
	refs, err := s.repo.ForEachRef(ctx, taskRefPrefix)
	if err != nil {
		return nil, 0, err
	}

	var tasks []Task
	malformed := 0
	for _, ref := range refs {
		raw, err := s.repo.CatBlob(ctx, ref.SHA)
		if err != nil {
			malformed++
			continue
		}
		var task Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil || task.MotionID == "" {
			malformed++
			continue
		}
		tasks = append(tasks, task)
	}
	if malformed > 0 {
		s.log.Warn("skipped malformed task blobs", "count", malformed)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, malformed, nil
}
