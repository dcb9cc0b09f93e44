package gitcli

import (
	"context"
	"strings"
	"time"

	"github.com/parleygit/parley/internal/errors"
)

// Ref pairs a fully-qualified ref name with the object it points at.
type Ref struct {
	Name string
	SHA  string
}

// Repo provides git operations against a single repository.
// Every invocation is bounded by the configured timeout.
type Repo struct {
	dir      string
	timeout  time.Duration
	executor Executor
}

// NewRepo creates a Repo using the real git CLI.
func NewRepo(dir string, timeout time.Duration) *Repo {
	return NewRepoWithExecutor(dir, timeout, NewCLIExecutor())
}

// NewRepoWithExecutor creates a Repo with a custom executor.
// This is primarily useful for testing.
func NewRepoWithExecutor(dir string, timeout time.Duration, executor Executor) *Repo {
	return &Repo{
		dir:      dir,
		timeout:  timeout,
		executor: executor,
	}
}

// Dir returns the repository root directory.
func (r *Repo) Dir() string {
	return r.dir
}

// bound derives a per-invocation context from the caller's context.
func (r *Repo) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// wrapCtx converts a context expiry into a typed timeout error.
func wrapCtx(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.NewGitError("git invocation timed out", errors.ErrTimeout).
			WithRetryable(true)
	}
	if ctx.Err() == context.Canceled {
		return errors.NewGitError("git invocation canceled", errors.ErrCanceled)
	}
	return err
}

// run executes git with the repo's directory and timeout.
func (r *Repo) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	out, err := r.executor.Run(ctx, r.dir, "git", args...)
	if err != nil {
		return out, wrapCtx(ctx, err)
	}
	return out, nil
}

// runInput executes git with stdin.
func (r *Repo) runInput(ctx context.Context, stdin string, args ...string) ([]byte, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	out, err := r.executor.RunInput(ctx, r.dir, stdin, "git", args...)
	if err != nil {
		return out, wrapCtx(ctx, err)
	}
	return out, nil
}

// runEnv executes git with extra environment variables.
func (r *Repo) runEnv(ctx context.Context, env []string, args ...string) ([]byte, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	out, err := r.executor.RunEnv(ctx, r.dir, env, "git", args...)
	if err != nil {
		return out, wrapCtx(ctx, err)
	}
	return out, nil
}

// IsRepository reports whether the directory is inside a git repository.
func (r *Repo) IsRepository(ctx context.Context) bool {
	_, err := r.run(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// GitDir returns the repository's .git directory path.
func (r *Repo) GitDir(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", errors.NewGitError("failed to locate git directory", errors.ErrNotGitRepository).
			WithRepository(r.dir).
			WithGitOutput(string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

// Init initializes a new repository with the given initial branch.
func (r *Repo) Init(ctx context.Context, initialBranch string) error {
	out, err := r.run(ctx, "init", "--initial-branch", initialBranch)
	if err != nil {
		return errors.NewGitError("failed to initialize repository", err).
			WithRepository(r.dir).
			WithGitOutput(string(out))
	}
	return nil
}

// -----------------------------------------------------------------------------
// Refs and blobs
// -----------------------------------------------------------------------------

// RefExists reports whether a fully-qualified ref exists.
func (r *Repo) RefExists(ctx context.Context, ref string) (bool, error) {
	_, err := r.run(ctx, "show-ref", "--verify", "--quiet", ref)
	if err == nil {
		return true, nil
	}
	// show-ref exits nonzero when the ref is absent; only context expiry is
	// a real failure here.
	if errors.Is(err, errors.ErrTimeout) || errors.Is(err, errors.ErrCanceled) {
		return false, err
	}
	return false, nil
}

// ResolveRef returns the SHA a ref points at.
func (r *Repo) ResolveRef(ctx context.Context, ref string) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--verify", ref)
	if err != nil {
		return "", errors.NewGitError("failed to resolve ref", errors.ErrRefNotFound).
			WithRef(ref).
			WithRepository(r.dir).
			WithGitOutput(string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

// UpdateRef points a ref at the given object, creating it if needed.
func (r *Repo) UpdateRef(ctx context.Context, ref, sha string) error {
	out, err := r.run(ctx, "update-ref", ref, sha)
	if err != nil {
		return errors.NewGitError("failed to update ref", err).
			WithRef(ref).
			WithRepository(r.dir).
			WithGitOutput(string(out))
	}
	return nil
}

// DeleteRef removes a ref.
func (r *Repo) DeleteRef(ctx context.Context, ref string) error {
	out, err := r.run(ctx, "update-ref", "-d", ref)
	if err != nil {
		return errors.NewGitError("failed to delete ref", err).
			WithRef(ref).
			WithRepository(r.dir).
			WithGitOutput(string(out))
	}
	return nil
}

// ForEachRef lists refs matching the given pattern, for example
// "refs/vote/M1a2b3c4d5e6f/".
func (r *Repo) ForEachRef(ctx context.Context, pattern string) ([]Ref, error) {
	out, err := r.run(ctx, "for-each-ref", "--format=%(refname) %(objectname)", pattern)
	if err != nil {
		return nil, errors.NewGitError("failed to list refs", err).
			WithRef(pattern).
			WithRepository(r.dir).
			WithGitOutput(string(out))
	}

	var refs []Ref
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		refs = append(refs, Ref{Name: fields[0], SHA: fields[1]})
	}
	return refs, nil
}

// HashObject writes content into the object database and returns its SHA.
func (r *Repo) HashObject(ctx context.Context, content string) (string, error) {
	out, err := r.runInput(ctx, content, "hash-object", "-w", "--stdin")
	if err != nil {
		return "", errors.NewGitError("failed to write object", err).
			WithRepository(r.dir).
			WithGitOutput(string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

// CatBlob returns the content of a blob object.
func (r *Repo) CatBlob(ctx context.Context, sha string) (string, error) {
	out, err := r.run(ctx, "cat-file", "blob", sha)
	if err != nil {
		return "", errors.NewGitError("failed to read object "+sha, err).
			WithRepository(r.dir).
			WithGitOutput(string(out))
	}
	return string(out), nil
}

// WriteBlobRef stores content as a blob and points ref at it.
func (r *Repo) WriteBlobRef(ctx context.Context, ref, content string) (string, error) {
	sha, err := r.HashObject(ctx, content)
	if err != nil {
		return "", err
	}
	if err := r.UpdateRef(ctx, ref, sha); err != nil {
		return "", err
	}
	return sha, nil
}

// ReadBlobRef returns the content of the blob a ref points at.
func (r *Repo) ReadBlobRef(ctx context.Context, ref string) (string, error) {
	sha, err := r.ResolveRef(ctx, ref)
	if err != nil {
		return "", err
	}
	return r.CatBlob(ctx, sha)
}

// -----------------------------------------------------------------------------
// Branches
// -----------------------------------------------------------------------------

// BranchExists reports whether a local branch exists.
func (r *Repo) BranchExists(ctx context.Context, branch string) (bool, error) {
	return r.RefExists(ctx, "refs/heads/"+branch)
}

// CreateBranch creates a branch at the given base.
func (r *Repo) CreateBranch(ctx context.Context, branch, base string) error {
	out, err := r.run(ctx, "branch", branch, base)
	if err != nil {
		if strings.Contains(string(out), "already exists") || strings.Contains(err.Error(), "already exists") {
			return errors.NewGitError("branch already exists", errors.ErrBranchExists).
				WithBranch(branch).
				WithRepository(r.dir)
		}
		return errors.NewGitError("failed to create branch "+branch, err).
			WithBranch(branch).
			WithRepository(r.dir).
			WithGitOutput(string(out))
	}
	return nil
}

// DeleteBranch force-deletes a branch.
func (r *Repo) DeleteBranch(ctx context.Context, branch string) error {
	out, err := r.run(ctx, "branch", "-D", branch)
	if err != nil {
		if strings.Contains(string(out), "not found") || strings.Contains(err.Error(), "not found") {
			return errors.NewGitError("branch not found", errors.ErrBranchNotFound).
				WithBranch(branch).
				WithRepository(r.dir)
		}
		return errors.NewGitError("failed to delete branch", err).
			WithBranch(branch).
			WithRepository(r.dir).
			WithGitOutput(string(out))
	}
	return nil
}

// CurrentBranch returns the checked-out branch name.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", errors.NewGitError("failed to get current branch", err).
			WithRepository(r.dir).
			WithGitOutput(string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

// Checkout switches the worktree to a branch.
func (r *Repo) Checkout(ctx context.Context, branch string) error {
	out, err := r.run(ctx, "checkout", branch)
	if err != nil {
		return errors.NewGitError("failed to checkout "+branch, err).
			WithBranch(branch).
			WithRepository(r.dir).
			WithGitOutput(string(out))
	}
	return nil
}

// -----------------------------------------------------------------------------
// Merging
// -----------------------------------------------------------------------------

// Merge merges a branch into the currently checked-out branch with a merge
// commit. On conflict the merge is aborted and ErrMergeConflict is returned.
func (r *Repo) Merge(ctx context.Context, branch, message string) error {
	out, err := r.run(ctx, "merge", "--no-ff", "-m", message, branch)
	if err != nil {
		outStr := string(out)
		if strings.Contains(outStr, "CONFLICT") || strings.Contains(err.Error(), "CONFLICT") {
			_ = r.AbortMerge(ctx)
			return errors.NewGitError("merge conflicts detected", errors.ErrMergeConflict).
				WithBranch(branch).
				WithRepository(r.dir).
				WithGitOutput(outStr)
		}
		return errors.NewGitError("failed to merge "+branch, err).
			WithBranch(branch).
			WithRepository(r.dir).
			WithGitOutput(outStr)
	}
	return nil
}

// AbortMerge aborts an in-progress merge.
func (r *Repo) AbortMerge(ctx context.Context) error {
	out, err := r.run(ctx, "merge", "--abort")
	if err != nil {
		return errors.NewGitError("failed to abort merge", err).
			WithRepository(r.dir).
			WithGitOutput(string(out))
	}
	return nil
}
