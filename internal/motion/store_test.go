package motion

import (
	"context"
	"testing"
	"time"

	"github.com/parleygit/parley/internal/errors"
	"github.com/parleygit/parley/internal/event"
	"github.com/parleygit/parley/internal/gitcli"
	"github.com/parleygit/parley/internal/gitcli/gitclitest"
	"github.com/parleygit/parley/internal/logging"
	"github.com/parleygit/parley/internal/motionlock"
)

func newTestStore(t *testing.T) (*Store, *gitclitest.FakeGit, *event.Bus) {
	t.Helper()
	fake := gitclitest.NewFakeGit()
	repo := gitcli.NewRepoWithExecutor("/repo", 30*time.Second, fake)
	locker := motionlock.NewLocker(t.TempDir(), 15*time.Minute)
	bus := event.NewBus()
	return NewStore(repo, locker, bus, logging.NopLogger()), fake, bus
}

func TestOpenMotion(t *testing.T) {
	store, fake, bus := newTestStore(t)
	ctx := context.Background()

	var opened []event.MotionOpenedEvent
	bus.Subscribe("motion.opened", func(e event.Event) {
		opened = append(opened, e.(event.MotionOpenedEvent))
	})

	m, err := store.Open(ctx, "Adopt review policy", "All changes require review.", "alice@example.com")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if m.Status != StatusOpen {
		t.Errorf("Status = %q, want open", m.Status)
	}
	if m.Branch != "motions/"+m.ID {
		t.Errorf("Branch = %q", m.Branch)
	}
	if _, ok := fake.Ref("refs/heads/" + m.Branch); !ok {
		t.Error("motion branch ref should exist")
	}
	if _, ok := fake.Ref(MetaRef(m.ID)); !ok {
		t.Error("metadata ref should exist")
	}
	if len(opened) != 1 || opened[0].MotionID != m.ID {
		t.Errorf("opened events = %v", opened)
	}

	// Round-trip through Get.
	got, err := store.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Adopt review policy" || got.Author != "alice@example.com" {
		t.Errorf("Get returned %+v", got)
	}
}

func TestOpenValidation(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		title, body string
		author      string
	}{
		{"empty title", "", "body", "alice@example.com"},
		{"empty body", "title", "", "alice@example.com"},
		{"bad author", "title", "body", "not-an-email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Open(ctx, tt.title, tt.body, tt.author)
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestGetUnknownMotion(t *testing.T) {
	store, _, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "Mdeadbeef0000")
	if !errors.IsNotFound(err) {
		t.Errorf("err = %v, want not-found", err)
	}
}

func TestListMotions(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.Open(ctx, "First motion", "body", "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Open(ctx, "Second motion", "body", "bob@example.com")
	if err != nil {
		t.Fatal(err)
	}

	motions, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(motions) != 2 {
		t.Fatalf("got %d motions, want 2", len(motions))
	}
	ids := map[string]bool{motions[0].ID: true, motions[1].ID: true}
	if !ids[first.ID] || !ids[second.ID] {
		t.Errorf("List returned %v", ids)
	}
}

func TestSecondMotion(t *testing.T) {
	store, fake, bus := newTestStore(t)
	ctx := context.Background()

	var seconded int
	bus.Subscribe("motion.seconded", func(e event.Event) { seconded++ })

	m, err := store.Open(ctx, "Adopt policy", "body", "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Second(ctx, m.ID, "bob@example.com"); err != nil {
		t.Fatalf("Second: %v", err)
	}
	if _, ok := fake.Note("second", m.Commit); !ok {
		t.Error("second note should be attached to the motion commit")
	}
	if seconded != 1 {
		t.Errorf("seconded events = %d, want 1", seconded)
	}

	seconds, err := store.Seconds(ctx, m.ID)
	if err != nil {
		t.Fatalf("Seconds: %v", err)
	}
	if len(seconds) != 1 || seconds[0].Speaker != "bob@example.com" {
		t.Errorf("Seconds = %+v", seconds)
	}
}

func TestSecondTwiceRejected(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	m, err := store.Open(ctx, "Adopt policy", "body", "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Second(ctx, m.ID, "bob@example.com"); err != nil {
		t.Fatal(err)
	}

	err = store.Second(ctx, m.ID, "bob@example.com")
	var exists *errors.AlreadyExistsError
	if !errors.As(err, &exists) {
		t.Errorf("err = %v, want AlreadyExistsError", err)
	}
}

func TestSecondClosedMotionRejected(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	m, err := store.Open(ctx, "Adopt policy", "body", "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Close(ctx, m.ID); err != nil {
		t.Fatal(err)
	}

	err = store.Second(ctx, m.ID, "bob@example.com")
	if !errors.Is(err, errors.ErrMotionClosed) {
		t.Errorf("err = %v, want ErrMotionClosed", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusDraft, StatusOpen, true},
		{StatusOpen, StatusClosed, true},
		{StatusOpen, StatusAbandoned, true},
		{StatusClosed, StatusMerged, true},
		{StatusClosed, StatusAbandoned, true},
		{StatusOpen, StatusMerged, false},
		{StatusMerged, StatusOpen, false},
		{StatusAbandoned, StatusClosed, false},
		{StatusClosed, StatusOpen, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestSetStatusEnforcesMachine(t *testing.T) {
	store, _, bus := newTestStore(t)
	ctx := context.Background()

	var closedEvents []event.MotionClosedEvent
	bus.Subscribe("motion.closed", func(e event.Event) {
		closedEvents = append(closedEvents, e.(event.MotionClosedEvent))
	})

	m, err := store.Open(ctx, "Adopt policy", "body", "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}

	// open -> merged is illegal without closing first.
	err = store.SetStatus(ctx, m.ID, StatusMerged)
	if !errors.Is(err, errors.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}

	if err := store.SetStatus(ctx, m.ID, StatusClosed); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := store.SetStatus(ctx, m.ID, StatusMerged); err != nil {
		t.Fatalf("merge: %v", err)
	}

	got, err := store.Get(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusMerged {
		t.Errorf("Status = %q, want merged", got.Status)
	}
	if len(closedEvents) != 2 {
		t.Errorf("closed events = %d, want 2 (closed then merged)", len(closedEvents))
	}
}

func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 13 || id[0] != 'M' {
			t.Fatalf("NewID() = %q, want M plus 12 hex chars", id)
		}
		if seen[id] {
			t.Fatalf("NewID() produced duplicate %q", id)
		}
		seen[id] = true
	}
}
