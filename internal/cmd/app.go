package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parleygit/parley/internal/config"
	"github.com/parleygit/parley/internal/conflict"
	"github.com/parleygit/parley/internal/debate"
	"github.com/parleygit/parley/internal/delegation"
	"github.com/parleygit/parley/internal/errors"
	"github.com/parleygit/parley/internal/event"
	"github.com/parleygit/parley/internal/gitcli"
	"github.com/parleygit/parley/internal/logging"
	"github.com/parleygit/parley/internal/motion"
	"github.com/parleygit/parley/internal/motionlock"
	"github.com/parleygit/parley/internal/oracle"
	"github.com/parleygit/parley/internal/tally"
)

// app bundles the wired services behind every subcommand.
type app struct {
	cfg      *config.Config
	log      *logging.Logger
	bus      *event.Bus
	repo     *gitcli.Repo
	locker   *motionlock.Locker
	motions  *motion.Store
	debate   *debate.Log
	graph    *delegation.Graph
	engine   *tally.Engine
	resolver *conflict.Resolver
	oracle   *oracle.Oracle

	gitDir string
}

// newApp loads and validates the config and wires the service graph.
// The repository must already be initialized; `parley init` handles the
// case where it is not.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	result := cfg.Validate()
	for _, w := range result.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	if !result.Valid() {
		fmt.Fprint(os.Stderr, result.Summary())
		return nil, errors.New("configuration is invalid")
	}

	log, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	repoPath := cfg.Repo.Path
	if repoPath == "" {
		repoPath, err = os.Getwd()
		if err != nil {
			return nil, err
		}
	}
	repo := gitcli.NewRepo(repoPath, cfg.GitTimeout())
	if !repo.IsRepository(ctx) {
		return nil, errors.NewGitError("not a git repository, run parley init first",
			errors.ErrNotGitRepository).WithRepository(repoPath)
	}
	gitDir, err := repo.GitDir(ctx)
	if err != nil {
		return nil, err
	}

	locker := motionlock.NewLocker(filepath.Join(gitDir, "parley", "locks"), cfg.LockStaleAfter())
	bus := event.NewBus()

	motions := motion.NewStore(repo, locker, bus, log)
	debateLog := debate.NewLog(repo, motions, locker, bus, log)
	graph := delegation.NewGraph(repo, cfg.Governance.MaxDelegationDepth, bus, log)
	engine := tally.NewEngine(repo, motions, graph, locker, bus, log,
		cfg.Governance.QuorumThreshold, cfg.Governance.EligibleVoters)
	resolver := conflict.NewResolver(repo, bus, log, cfg.Governance.Chair, cfg.RetryDelay())
	merger := oracle.New(repo, motions, bus, log, cfg.Repo.TargetBranch,
		cfg.Oracle.LearningRate, cfg.Oracle.BaseConfidence)

	return &app{
		cfg:      cfg,
		log:      log,
		bus:      bus,
		repo:     repo,
		locker:   locker,
		motions:  motions,
		debate:   debateLog,
		graph:    graph,
		engine:   engine,
		resolver: resolver,
		oracle:   merger,
		gitDir:   gitDir,
	}, nil
}

// close flushes the logger.
func (a *app) close() {
	_ = a.log.Close()
}

// userError renders an error for the terminal, hiding internal detail
// unless the error is marked user-facing.
func userError(err error) string {
	if errors.IsUserFacing(err) {
		return err.Error()
	}
	return "operation failed: " + err.Error()
}
