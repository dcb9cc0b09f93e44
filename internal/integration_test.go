// Package internal contains integration tests that verify the packages
// work together: the full motion lifecycle from opening through debate,
// delegation, voting, tallying, conflict resolution, and the merge
// decision, with every stage publishing on the shared event bus.
package internal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/parleygit/parley/internal/conflict"
	"github.com/parleygit/parley/internal/debate"
	"github.com/parleygit/parley/internal/delegation"
	"github.com/parleygit/parley/internal/event"
	"github.com/parleygit/parley/internal/gitcli"
	"github.com/parleygit/parley/internal/gitcli/gitclitest"
	"github.com/parleygit/parley/internal/logging"
	"github.com/parleygit/parley/internal/motion"
	"github.com/parleygit/parley/internal/motionlock"
	"github.com/parleygit/parley/internal/oracle"
	"github.com/parleygit/parley/internal/tally"
)

type services struct {
	bus      *event.Bus
	motions  *motion.Store
	debate   *debate.Log
	graph    *delegation.Graph
	engine   *tally.Engine
	resolver *conflict.Resolver
	oracle   *oracle.Oracle
}

func newServices(t *testing.T, quorum float64, eligible int) *services {
	t.Helper()
	fake := gitclitest.NewFakeGit()
	repo := gitcli.NewRepoWithExecutor("/repo", 30*time.Second, fake)
	locker := motionlock.NewLocker(t.TempDir(), 15*time.Minute)
	bus := event.NewBus()
	log := logging.NopLogger()

	motions := motion.NewStore(repo, locker, bus, log)
	graph := delegation.NewGraph(repo, 10, bus, log)
	return &services{
		bus:      bus,
		motions:  motions,
		debate:   debate.NewLog(repo, motions, locker, bus, log),
		graph:    graph,
		engine:   tally.NewEngine(repo, motions, graph, locker, bus, log, quorum, eligible),
		resolver: conflict.NewResolver(repo, bus, log, "chair@example.com", 72*time.Hour),
		oracle:   oracle.New(repo, motions, bus, log, "main", 0.1, 0.55),
	}
}

// TestMotionLifecycleToMerge walks a motion from opening to an accepted
// merge: second, debate, delegation, votes, tally, decision.
func TestMotionLifecycleToMerge(t *testing.T) {
	s := newServices(t, 0.5, 4)
	ctx := context.Background()

	var mu sync.Mutex
	var seen []string
	s.bus.SubscribeAll(func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.EventType())
	})

	m, err := s.motions.Open(ctx, "Adopt the charter", "Full text.", "author@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.motions.Second(ctx, m.ID, "bob@example.com"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.debate.Post(ctx, m.ID, "bob@example.com", "pro", "long overdue"); err != nil {
		t.Fatal(err)
	}

	// dave delegates to alice; alice's choice carries both weights.
	if _, err := s.graph.Add(ctx, "dave@example.com", "alice@example.com", 1.0, nil); err != nil {
		t.Fatal(err)
	}
	for voter, value := range map[string]string{
		"alice@example.com": "for",
		"bob@example.com":   "for",
		"carol@example.com": "against",
		"dave@example.com":  "for",
	} {
		if _, err := s.engine.Cast(ctx, m.ID, voter, value, 1.0); err != nil {
			t.Fatalf("Cast(%s): %v", voter, err)
		}
	}

	result, err := s.engine.Tally(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != tally.OutcomePassed {
		t.Fatalf("Outcome = %q, want passed", result.Outcome)
	}
	if result.For != 3 || result.Against != 1 {
		t.Errorf("weights = %v/%v, want 3/1", result.For, result.Against)
	}

	d, err := s.oracle.Decide(ctx, result, true)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Merged {
		t.Fatalf("decision = %+v, want merged", d)
	}

	final, err := s.motions.Get(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if final.Status != motion.StatusMerged {
		t.Errorf("Status = %q, want merged", final.Status)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"motion.opened", "motion.seconded", "debate.posted",
		"delegation.created", "vote.cast", "tally.completed", "merge.decided"}
	have := map[string]bool{}
	for _, typ := range seen {
		have[typ] = true
	}
	for _, typ := range want {
		if !have[typ] {
			t.Errorf("event %q was never published (saw %v)", typ, seen)
		}
	}
}

// TestLostQuorumRoutesToFollowUp covers the underattended case: the tally
// loses quorum and the resolver schedules a retry with a deadline.
func TestLostQuorumRoutesToFollowUp(t *testing.T) {
	s := newServices(t, 0.5, 10)
	ctx := context.Background()

	m, err := s.motions.Open(ctx, "Underattended motion", "", "author@example.com")
	if err != nil {
		t.Fatal(err)
	}
	for _, voter := range []string{"alice@example.com", "bob@example.com"} {
		if _, err := s.engine.Cast(ctx, m.ID, voter, "for", 1.0); err != nil {
			t.Fatal(err)
		}
	}

	result, err := s.engine.Tally(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != tally.OutcomeLostQuorum {
		t.Fatalf("Outcome = %q, want lost_quorum", result.Outcome)
	}

	// The oracle defers; the resolver schedules the retry.
	d, err := s.oracle.Decide(ctx, result, false)
	if err != nil {
		t.Fatal(err)
	}
	if d.Verdict != oracle.VerdictDefer {
		t.Errorf("Verdict = %q, want defer", d.Verdict)
	}

	res, err := s.resolver.Resolve(ctx, result)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != conflict.StatusRetried || res.RetryDeadline == nil {
		t.Fatalf("resolution = %+v, want retried with deadline", res)
	}

	tasks, _, err := s.resolver.Tasks().List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].MotionID != m.ID {
		t.Errorf("tasks = %+v", tasks)
	}
}

// TestTieRoutesToChairReview covers an evenly split house.
func TestTieRoutesToChairReview(t *testing.T) {
	s := newServices(t, 0.5, 10)
	ctx := context.Background()

	m, err := s.motions.Open(ctx, "Split the house", "", "author@example.com")
	if err != nil {
		t.Fatal(err)
	}
	voters := map[string]string{
		"v1@example.com": "for", "v2@example.com": "for", "v3@example.com": "for",
		"v4@example.com": "against", "v5@example.com": "against", "v6@example.com": "against",
	}
	for voter, value := range voters {
		if _, err := s.engine.Cast(ctx, m.ID, voter, value, 1.0); err != nil {
			t.Fatal(err)
		}
	}

	result, err := s.engine.Tally(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != tally.OutcomeTie {
		t.Fatalf("Outcome = %q, want tie_vote", result.Outcome)
	}

	res, err := s.resolver.Resolve(ctx, result)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != conflict.StatusDeferred || !res.ChairReview {
		t.Errorf("resolution = %+v, want deferred chair review", res)
	}
}
