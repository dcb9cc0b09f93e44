package gitcli

import (
	"context"
	"strings"

	"github.com/parleygit/parley/internal/errors"
)

// AppendNote appends a message to the note attached to target under the
// given notes namespace (for example "debate" or "second"). The note is
// created if it does not exist yet.
//
// Callers store one record per line, so messages must not contain newlines.
func (r *Repo) AppendNote(ctx context.Context, namespace, target, message string) error {
	out, err := r.run(ctx, "notes", "--ref", namespace, "append", "-m", message, target)
	if err != nil {
		return errors.NewGitError("failed to append note", err).
			WithRef("refs/notes/" + namespace).
			WithRepository(r.dir).
			WithGitOutput(string(out))
	}
	return nil
}

// ShowNote returns the full note body attached to target under the given
// namespace. Returns ErrRefNotFound when no note exists.
func (r *Repo) ShowNote(ctx context.Context, namespace, target string) (string, error) {
	out, err := r.run(ctx, "notes", "--ref", namespace, "show", target)
	if err != nil {
		if errors.Is(err, errors.ErrTimeout) || errors.Is(err, errors.ErrCanceled) {
			return "", err
		}
		return "", errors.NewGitError("no note found", errors.ErrRefNotFound).
			WithRef("refs/notes/" + namespace).
			WithRepository(r.dir).
			WithGitOutput(string(out))
	}
	return string(out), nil
}

// NoteLines returns the non-empty lines of the note attached to target.
// A missing note yields an empty slice, not an error.
func (r *Repo) NoteLines(ctx context.Context, namespace, target string) ([]string, error) {
	body, err := r.ShowNote(ctx, namespace, target)
	if err != nil {
		if errors.Is(err, errors.ErrRefNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
