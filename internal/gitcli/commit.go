package gitcli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parleygit/parley/internal/errors"
)

// CommitFile commits a single file onto a branch without touching the
// user's worktree or index. It builds the commit with plumbing commands
// against a temporary index, so the checked-out branch is never disturbed.
//
// If the branch has no commits yet the commit is created without a parent.
func (r *Repo) CommitFile(ctx context.Context, branch, path, content, message, author string) (string, error) {
	ref := "refs/heads/" + branch

	parent := ""
	if exists, err := r.RefExists(ctx, ref); err != nil {
		return "", err
	} else if exists {
		sha, err := r.ResolveRef(ctx, ref)
		if err != nil {
			return "", err
		}
		parent = sha
	}

	blob, err := r.HashObject(ctx, content)
	if err != nil {
		return "", err
	}

	idx, err := os.CreateTemp("", "parley-index-*")
	if err != nil {
		return "", errors.NewGitError("failed to create temporary index", err).
			WithRepository(r.dir)
	}
	idxPath := idx.Name()
	idx.Close()
	defer os.Remove(idxPath)

	env := []string{"GIT_INDEX_FILE=" + idxPath}

	if parent != "" {
		if out, err := r.runEnv(ctx, env, "read-tree", parent); err != nil {
			return "", errors.NewGitError("failed to read tree", err).
				WithBranch(branch).
				WithRepository(r.dir).
				WithGitOutput(string(out))
		}
	} else {
		if out, err := r.runEnv(ctx, env, "read-tree", "--empty"); err != nil {
			return "", errors.NewGitError("failed to initialize index", err).
				WithBranch(branch).
				WithRepository(r.dir).
				WithGitOutput(string(out))
		}
	}

	cacheinfo := fmt.Sprintf("100644,%s,%s", blob, filepath.ToSlash(path))
	if out, err := r.runEnv(ctx, env, "update-index", "--add", "--cacheinfo", cacheinfo); err != nil {
		return "", errors.NewGitError("failed to stage "+path, err).
			WithBranch(branch).
			WithRepository(r.dir).
			WithGitOutput(string(out))
	}

	treeOut, err := r.runEnv(ctx, env, "write-tree")
	if err != nil {
		return "", errors.NewGitError("failed to write tree", err).
			WithBranch(branch).
			WithRepository(r.dir).
			WithGitOutput(string(treeOut))
	}
	tree := strings.TrimSpace(string(treeOut))

	name, email := splitIdentity(author)
	commitEnv := []string{
		"GIT_AUTHOR_NAME=" + name,
		"GIT_AUTHOR_EMAIL=" + email,
		"GIT_COMMITTER_NAME=" + name,
		"GIT_COMMITTER_EMAIL=" + email,
	}

	args := []string{"commit-tree", tree, "-m", message}
	if parent != "" {
		args = append(args, "-p", parent)
	}
	commitOut, err := r.runEnv(ctx, commitEnv, args...)
	if err != nil {
		return "", errors.NewGitError("failed to create commit", err).
			WithBranch(branch).
			WithRepository(r.dir).
			WithGitOutput(string(commitOut))
	}
	commit := strings.TrimSpace(string(commitOut))

	if err := r.UpdateRef(ctx, ref, commit); err != nil {
		return "", err
	}
	return commit, nil
}

// splitIdentity derives an author name and email from a voter identity.
// Identities are email addresses; the local part becomes the name.
func splitIdentity(identity string) (name, email string) {
	if identity == "" {
		return "parley", "parley@localhost"
	}
	at := strings.Index(identity, "@")
	if at <= 0 {
		return identity, identity + "@localhost"
	}
	return identity[:at], identity
}
