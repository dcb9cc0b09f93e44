package tally

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/parleygit/parley/internal/delegation"
	"github.com/parleygit/parley/internal/errors"
	"github.com/parleygit/parley/internal/event"
	"github.com/parleygit/parley/internal/gitcli"
	"github.com/parleygit/parley/internal/gitcli/gitclitest"
	"github.com/parleygit/parley/internal/logging"
	"github.com/parleygit/parley/internal/motion"
	"github.com/parleygit/parley/internal/motionlock"
)

type fixture struct {
	engine  *Engine
	motions *motion.Store
	graph   *delegation.Graph
	bus     *event.Bus
	fake    *gitclitest.FakeGit
	motion  *motion.Motion
}

func newFixture(t *testing.T, quorumThreshold float64, eligibleVoters int) *fixture {
	t.Helper()
	fake := gitclitest.NewFakeGit()
	repo := gitcli.NewRepoWithExecutor("/repo", 30*time.Second, fake)
	locker := motionlock.NewLocker(t.TempDir(), 15*time.Minute)
	bus := event.NewBus()
	log := logging.NopLogger()
	motions := motion.NewStore(repo, locker, bus, log)
	graph := delegation.NewGraph(repo, 10, bus, log)
	engine := NewEngine(repo, motions, graph, locker, bus, log, quorumThreshold, eligibleVoters)

	m, err := motions.Open(context.Background(), "Adopt policy", "body", "chair@example.com")
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{engine: engine, motions: motions, graph: graph, bus: bus, fake: fake, motion: m}
}

func (f *fixture) cast(t *testing.T, voter, value string) {
	t.Helper()
	if _, err := f.engine.Cast(context.Background(), f.motion.ID, voter, value, 1.0); err != nil {
		t.Fatalf("Cast(%s, %s): %v", voter, value, err)
	}
}

func voterN(n int) string {
	return fmt.Sprintf("voter%d@example.com", n)
}

func TestCastAndVotes(t *testing.T) {
	f := newFixture(t, 0.5, 10)
	ctx := context.Background()

	var castEvents []event.VoteCastEvent
	f.bus.Subscribe("vote.cast", func(e event.Event) {
		castEvents = append(castEvents, e.(event.VoteCastEvent))
	})

	f.cast(t, "alice@example.com", "for")
	f.cast(t, "bob@example.com", "against")

	votes, malformed, err := f.engine.Votes(ctx, f.motion.ID)
	if err != nil {
		t.Fatalf("Votes: %v", err)
	}
	if malformed != 0 {
		t.Errorf("malformed = %d", malformed)
	}
	if len(votes) != 2 {
		t.Fatalf("got %d votes, want 2", len(votes))
	}
	if votes[0].Voter != "alice@example.com" || votes[0].Value != "for" {
		t.Errorf("votes[0] = %+v", votes[0])
	}
	if len(castEvents) != 2 {
		t.Errorf("cast events = %d, want 2", len(castEvents))
	}
}

func TestCastDuplicateRejected(t *testing.T) {
	f := newFixture(t, 0.5, 10)

	f.cast(t, "alice@example.com", "for")

	_, err := f.engine.Cast(context.Background(), f.motion.ID, "alice@example.com", "against", 1.0)
	if !errors.Is(err, errors.ErrDuplicateVote) {
		t.Errorf("err = %v, want ErrDuplicateVote", err)
	}
}

func TestCastClosedMotionRejected(t *testing.T) {
	f := newFixture(t, 0.5, 10)
	ctx := context.Background()

	if err := f.motions.Close(ctx, f.motion.ID); err != nil {
		t.Fatal(err)
	}
	_, err := f.engine.Cast(ctx, f.motion.ID, "alice@example.com", "for", 1.0)
	if !errors.Is(err, errors.ErrMotionClosed) {
		t.Errorf("err = %v, want ErrMotionClosed", err)
	}
}

func TestCastValidation(t *testing.T) {
	f := newFixture(t, 0.5, 10)
	ctx := context.Background()

	if _, err := f.engine.Cast(ctx, f.motion.ID, "alice@example.com", "yes", 1.0); !errors.Is(err, errors.ErrInvalidVoteValue) {
		t.Errorf("bad value: err = %v, want ErrInvalidVoteValue", err)
	}
	if _, err := f.engine.Cast(ctx, f.motion.ID, "alice@example.com", "for", 11); !errors.Is(err, errors.ErrWeightOutOfRange) {
		t.Errorf("bad weight: err = %v, want ErrWeightOutOfRange", err)
	}
	if _, err := f.engine.Cast(ctx, "bogus-id", "alice@example.com", "for", 1.0); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("bad motion id: err = %v, want ErrInvalidInput", err)
	}
}

func TestTallyPassed(t *testing.T) {
	// 4 for, 1 against, 10 eligible, threshold 0.5: quorum met, passed.
	f := newFixture(t, 0.5, 10)

	for i := 0; i < 4; i++ {
		f.cast(t, voterN(i), "for")
	}
	f.cast(t, voterN(4), "against")

	var completed []event.TallyCompletedEvent
	f.bus.Subscribe("tally.completed", func(e event.Event) {
		completed = append(completed, e.(event.TallyCompletedEvent))
	})

	result, err := f.engine.Tally(context.Background(), f.motion.ID)
	if err != nil {
		t.Fatalf("Tally: %v", err)
	}
	if result.Outcome != OutcomePassed {
		t.Errorf("Outcome = %q, want passed", result.Outcome)
	}
	if !result.QuorumMet || result.ParticipationRate != 0.5 {
		t.Errorf("quorum = %v at rate %v", result.QuorumMet, result.ParticipationRate)
	}
	if result.For != 4 || result.Against != 1 || result.Abstain != 0 {
		t.Errorf("weights = %v/%v/%v", result.For, result.Against, result.Abstain)
	}
	if !result.Clean() {
		t.Errorf("audit issues = %v", result.AuditIssues)
	}
	if len(completed) != 1 || completed[0].Outcome != OutcomePassed {
		t.Errorf("completed events = %+v", completed)
	}
}

func TestTallyTie(t *testing.T) {
	// 3 for, 3 against of 10 eligible: quorum met, tie.
	f := newFixture(t, 0.5, 10)

	for i := 0; i < 3; i++ {
		f.cast(t, voterN(i), "for")
	}
	for i := 3; i < 6; i++ {
		f.cast(t, voterN(i), "against")
	}

	result, err := f.engine.Tally(context.Background(), f.motion.ID)
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeTie {
		t.Errorf("Outcome = %q, want tie_vote", result.Outcome)
	}
}

func TestTallyLostQuorum(t *testing.T) {
	// 2 ballots of 10 eligible: participation 0.2 < 0.5.
	f := newFixture(t, 0.5, 10)

	f.cast(t, voterN(0), "for")
	f.cast(t, voterN(1), "for")

	result, err := f.engine.Tally(context.Background(), f.motion.ID)
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeLostQuorum {
		t.Errorf("Outcome = %q, want lost_quorum", result.Outcome)
	}
	if result.QuorumMet {
		t.Error("quorum should not be met")
	}
}

func TestTallyProceduralError(t *testing.T) {
	// Abstentions outweigh substantive votes.
	f := newFixture(t, 0.5, 10)

	for i := 0; i < 4; i++ {
		f.cast(t, voterN(i), "abstain")
	}
	f.cast(t, voterN(4), "for")
	f.cast(t, voterN(5), "against")

	result, err := f.engine.Tally(context.Background(), f.motion.ID)
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeProcedural {
		t.Errorf("Outcome = %q, want procedural_error", result.Outcome)
	}
}

func TestTallyZeroForZeroAgainstIsFailedNotTie(t *testing.T) {
	f := newFixture(t, 0.0, 10)

	result, err := f.engine.Tally(context.Background(), f.motion.ID)
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != OutcomeFailed {
		t.Errorf("Outcome = %q, want failed (tie requires for == against > 0)", result.Outcome)
	}
}

func TestTallyDelegatedWeightFollowsTerminalChoice(t *testing.T) {
	// alice delegates to carol. alice's stated "against" is overridden by
	// carol's "for"; both weights land under for.
	f := newFixture(t, 0.1, 10)
	ctx := context.Background()

	if _, err := f.graph.Add(ctx, "alice@example.com", "carol@example.com", 1.0, nil); err != nil {
		t.Fatal(err)
	}
	f.cast(t, "alice@example.com", "against")
	f.cast(t, "carol@example.com", "for")

	result, err := f.engine.Tally(ctx, f.motion.ID)
	if err != nil {
		t.Fatal(err)
	}
	if result.For != 2 || result.Against != 0 {
		t.Errorf("weights = %v for / %v against, want 2/0", result.For, result.Against)
	}
	if result.Outcome != OutcomePassed {
		t.Errorf("Outcome = %q, want passed", result.Outcome)
	}
}

func TestTallyUnresolvedWhenTerminalDidNotVote(t *testing.T) {
	f := newFixture(t, 0.1, 10)
	ctx := context.Background()

	if _, err := f.graph.Add(ctx, "alice@example.com", "silent@example.com", 1.0, nil); err != nil {
		t.Fatal(err)
	}
	f.cast(t, "alice@example.com", "for")
	f.cast(t, "bob@example.com", "for")

	result, err := f.engine.Tally(ctx, f.motion.ID)
	if err != nil {
		t.Fatal(err)
	}
	if result.For != 1 {
		t.Errorf("For = %v, want 1 (only bob's direct ballot)", result.For)
	}
	if result.UnresolvedWeight != 1 {
		t.Errorf("UnresolvedWeight = %v, want 1", result.UnresolvedWeight)
	}
	if len(result.Unresolved) != 1 || result.Unresolved[0] != "alice@example.com" {
		t.Errorf("Unresolved = %v", result.Unresolved)
	}
}

func TestTallyCyclicDelegationBecomesUnresolved(t *testing.T) {
	f := newFixture(t, 0.1, 10)
	ctx := context.Background()

	if _, err := f.graph.Add(ctx, "alice@example.com", "bob@example.com", 1.0, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := f.graph.Add(ctx, "bob@example.com", "alice@example.com", 1.0, nil); err != nil {
		t.Fatal(err)
	}
	f.cast(t, "alice@example.com", "for")
	f.cast(t, "carol@example.com", "for")

	result, err := f.engine.Tally(ctx, f.motion.ID)
	if err != nil {
		t.Fatalf("a cyclic chain must not abort the whole tally: %v", err)
	}
	if result.For != 1 {
		t.Errorf("For = %v, want 1", result.For)
	}
	if result.UnresolvedWeight != 1 {
		t.Errorf("UnresolvedWeight = %v, want 1", result.UnresolvedWeight)
	}
}

func TestTallyAuditFlagsDoubleVote(t *testing.T) {
	f := newFixture(t, 0.1, 10)
	ctx := context.Background()

	f.cast(t, "alice@example.com", "for")

	// A second ballot ref written behind the engine's back.
	repo := gitcli.NewRepoWithExecutor("/repo", 30*time.Second, f.fake)
	payload := `{"motion_id":"` + f.motion.ID + `","voter":"alice@example.com","vote":"for","weight":1}`
	if _, err := repo.WriteBlobRef(ctx,
		"refs/vote/"+f.motion.ID+"/alice@example.com/rogue", payload); err != nil {
		t.Fatal(err)
	}

	result, err := f.engine.Tally(ctx, f.motion.ID)
	if err != nil {
		t.Fatal(err)
	}
	if result.Clean() {
		t.Error("audit should flag the double vote")
	}
}

func TestCachedResultRoundTrip(t *testing.T) {
	f := newFixture(t, 0.5, 10)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.cast(t, voterN(i), "for")
	}
	want, err := f.engine.Tally(ctx, f.motion.ID)
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.engine.CachedResult(ctx, f.motion.ID)
	if err != nil {
		t.Fatalf("CachedResult: %v", err)
	}
	if got.Outcome != want.Outcome || got.For != want.For || got.TotalVotes != want.TotalVotes {
		t.Errorf("cached = %+v, want %+v", got, want)
	}
}

func TestCachedResultMissing(t *testing.T) {
	f := newFixture(t, 0.5, 10)

	_, err := f.engine.CachedResult(context.Background(), f.motion.ID)
	if !errors.IsNotFound(err) {
		t.Errorf("err = %v, want not-found", err)
	}
}

func TestVoterFromRef(t *testing.T) {
	m, v := VoterFromRef("refs/vote/M1a2b3c4d5e6f/alice@example.com/u-1")
	if m != "M1a2b3c4d5e6f" || v != "alice@example.com" {
		t.Errorf("VoterFromRef = (%q, %q)", m, v)
	}
	if m, v := VoterFromRef("refs/heads/main"); m != "" || v != "" {
		t.Errorf("non-ballot ref should yield empty results, got (%q, %q)", m, v)
	}
}
