// Package delegation implements the liquid-democracy delegation graph.
// Each edge is a ref refs/parliament/delegations/<delegator>-to-<delegate>
// whose blob carries the edge metadata. Resolution walks edges to a
// terminal voter with cycle detection and a depth bound.
package delegation

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
	"github.com/parleygit/parley/internal/security"
)

const refPrefix = "refs/parliament/delegations/"

// Edge is a delegation from one voter to another.
type Edge struct {
	Delegator string     `json:"delegator"`
	Delegate  string     `json:"delegate"`
	Weight    float64    `json:"weight"`
	CreatedAt time.Time  `json:"created_at"`
	Expires   *time.Time `json:"expires,omitempty"`
}

// Expired reports whether the edge has passed its expiry.
func (e *Edge) Expired(now time.Time) bool {
	return e.Expires != nil && now.After(*e.Expires)
}

// Graph reads and writes delegation edges.
type Graph struct {
	repo     *gitcli.Repo
	maxDepth int
	bus      *event.Bus
	log      *logging.Logger
}

// NewGraph creates a delegation graph with the given maximum chain depth.
func NewGraph(repo *gitcli.Repo, maxDepth int, bus *event.Bus, log *logging.Logger) *Graph {
	return &Graph{
		repo:     repo,
		maxDepth: maxDepth,
		bus:      bus,
		log:      log.WithComponent("delegation"),
	}
}

// edgeRef returns the ref name for a delegation edge.
func edgeRef(delegator, delegate string) string {
	return refPrefix + delegator + "-to-" + delegate
}

// Add records a delegation edge. A voter may have at most one outgoing
// delegation; adding a second one for the same delegator is rejected.
func (g *Graph) Add(ctx context.Context, delegator, delegate string, weight float64, expires *time.Time) (*Edge, error) {
	if err := security.ValidateIdentity(delegator); err != nil {
		return nil, err
	}
	if err := security.ValidateIdentity(delegate); err != nil {
		return nil, err
	}
	if err := security.ValidateWeight(weight); err != nil {
		return nil, err
	}
	if delegator == delegate {
		return nil, errors.NewValidationError("delegate", "cannot delegate to yourself")
	}

	existing, err := g.Outgoing(ctx, delegator)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.NewAlreadyExistsError("delegation", delegator+"-to-"+existing.Delegate)
	}

	edge := &Edge{
		Delegator: delegator,
		Delegate:  delegate,
		Weight:    weight,
		CreatedAt: time.Now().UTC(),
		Expires:   expires,
	}
	payload, err := json.Marshal(edge)
	if err != nil {
		return nil, err
	}
	if _, err := g.repo.WriteBlobRef(ctx, edgeRef(delegator, delegate), string(payload)); err != nil {
		return nil, err
	}

	g.log.Info("delegation created", "delegator", delegator, "delegate", delegate)
	g.bus.Publish(event.NewDelegationCreatedEvent(delegator, delegate))
	return edge, nil
}

// Remove revokes a delegation edge.
func (g *Graph) Remove(ctx context.Context, delegator, delegate string) error {
	ref := edgeRef(delegator, delegate)
	exists, err := g.repo.RefExists(ctx, ref)
	if err != nil {
		return err
	}
	if !exists {
		return errors.NewDelegationError("no such delegation", errors.ErrDelegationNotFound).
			WithVoter(delegator)
	}
	if err := g.repo.DeleteRef(ctx, ref); err != nil {
		return err
	}

	g.log.Info("delegation removed", "delegator", delegator, "delegate", delegate)
	g.bus.Publish(event.NewDelegationRemovedEvent(delegator, delegate))
	return nil
}

// List returns all live delegation edges sorted by delegator.
// Malformed or expired edges are skipped and counted.
func (g *Graph) List(ctx context.Context) ([]Edge, int, error) {
	refs, err := g.repo.ForEachRef(ctx, refPrefix)
	if err != nil {
		return nil, 0, err
	}

	now := time.Now().UTC()
	var edges []Edge
	skipped := 0
	for _, ref := range refs {
		raw, err := g.repo.CatBlob(ctx, ref.SHA)
		if err != nil {
			skipped++
			continue
		}
		var edge Edge
		if err := json.Unmarshal([]byte(raw), &edge); err != nil || edge.Delegator == "" {
			skipped++
			continue
		}
		if edge.Expired(now) {
			skipped++
			continue
		}
		edges = append(edges, edge)
	}
	if skipped > 0 {
		g.log.Warn("skipped unreadable or expired delegation edges", "count", skipped)
	}

	sort.Slice(edges, func(i, j int) bool {
		return edges[i].Delegator < edges[j].Delegator
	})
	return edges, skipped, nil
}

// Outgoing returns the live outgoing edge for a voter, or nil if the voter
// has not delegated.
func (g *Graph) Outgoing(ctx context.Context, delegator string) (*Edge, error) {
	refs, err := g.repo.ForEachRef(ctx, refPrefix+delegator+"-to-")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, ref := range refs {
		raw, err := g.repo.CatBlob(ctx, ref.SHA)
		if err != nil {
			continue
		}
		var edge Edge
		if err := json.Unmarshal([]byte(raw), &edge); err != nil {
			continue
		}
		// Prefix matching on refs can catch a different delegator whose
		// name extends this one; check the payload.
		if edge.Delegator != delegator || edge.Expired(now) {
			continue
		}
		return &edge, nil
	}
	return nil, nil
}

// Resolution is the outcome of walking a voter's delegation chain.
type Resolution struct {
	Origin   string   // The voter whose ballot is being resolved
	Terminal string   // The voter whose choice carries the ballot
	Chain    []string // Every voter visited, origin first
}

// Resolve walks the delegation chain from a voter to its terminal voter.
// A voter with no outgoing delegation resolves to itself. Cycles return
// ErrDelegationCycle; chains longer than the depth bound return
// ErrDelegationDepthExceeded. Resolution always terminates.
func (g *Graph) Resolve(ctx context.Context, voter string) (*Resolution, error) {
	visited := map[string]bool{voter: true}
	chain := []string{voter}
	current := voter

	for hops := 0; ; {
		edge, err := g.Outgoing(ctx, current)
		if err != nil {
			return nil, err
		}
		if edge == nil {
			return &Resolution{Origin: voter, Terminal: current, Chain: chain}, nil
		}

		hops++
		if hops > g.maxDepth {
			return nil, errors.NewDelegationError(
				fmt.Sprintf("chain exceeds %d hops", g.maxDepth),
				errors.ErrDelegationDepthExceeded).
				WithVoter(voter).
				WithChain(chain)
		}

		next := edge.Delegate
		if visited[next] {
			return nil, errors.NewDelegationError(
				"chain loops back to "+next, errors.ErrDelegationCycle).
				WithVoter(voter).
				WithChain(append(chain, next))
		}
		visited[next] = true
		chain = append(chain, next)
		current = next
	}
}

// DelegatorOf extracts the delegator from an edge ref name, for callers
// that only have the ref.
func DelegatorOf(ref string) string {
	rest := strings.TrimPrefix(ref, refPrefix)
	if i := strings.Index(rest, "-to-"); i > 0 {
		return rest[:i]
	}
	return rest
}
