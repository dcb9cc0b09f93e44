// Package gitclitest provides an in-memory git fake for tests.
//
// FakeGit implements gitcli.Executor by emulating the small subset of git
// plumbing the ledger uses: refs, blobs, notes, branches, commits, and
// merges. Tests get real multi-step behavior (write then read back)
// without a repository on disk.
package gitclitest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// FakeGit is an in-memory stand-in for the git CLI.
type FakeGit struct {
	mu      sync.Mutex
	refs    map[string]string            // ref -> sha
	blobs   map[string]string            // sha -> content
	notes   map[string]map[string]string // namespace -> target -> body
	commits map[string]bool              // sha -> exists
	counter int
	branch  string // currently checked-out branch

	// Calls records every git invocation's arguments.
	Calls [][]string

	// FailOn maps a space-joined argument prefix to an error returned when
	// a matching command runs.
	FailOn map[string]error

	// MergeConflict makes the next merge fail with conflict output.
	MergeConflict bool
}

// NewFakeGit creates an empty fake repository on branch main.
func NewFakeGit() *FakeGit {
	return &FakeGit{
		refs:    make(map[string]string),
		blobs:   make(map[string]string),
		notes:   make(map[string]map[string]string),
		commits: make(map[string]bool),
		FailOn:  make(map[string]error),
		branch:  "main",
	}
}

// SetRef points a ref at a SHA directly, for test setup.
func (f *FakeGit) SetRef(ref, sha string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refs[ref] = sha
}

// Ref returns the SHA a ref points at, for assertions.
func (f *FakeGit) Ref(ref string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sha, ok := f.refs[ref]
	return sha, ok
}

// Blob returns stored blob content, for assertions.
func (f *FakeGit) Blob(sha string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.blobs[sha]
	return content, ok
}

// Note returns the note body for a namespace and target, for assertions.
func (f *FakeGit) Note(namespace, target string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ns, ok := f.notes[namespace]
	if !ok {
		return "", false
	}
	body, ok := ns[target]
	return body, ok
}

// CurrentBranch returns the checked-out branch, for assertions.
func (f *FakeGit) CurrentBranch() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.branch
}

// CalledWith reports whether any recorded call starts with the given args.
func (f *FakeGit) CalledWith(prefix ...string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, call := range f.Calls {
		if len(call) < len(prefix) {
			continue
		}
		match := true
		for i, p := range prefix {
			if call[i] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// Run implements gitcli.Executor.
func (f *FakeGit) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	return f.dispatch(args, "")
}

// RunInput implements gitcli.Executor.
func (f *FakeGit) RunInput(ctx context.Context, dir, stdin, name string, args ...string) ([]byte, error) {
	return f.dispatch(args, stdin)
}

// RunEnv implements gitcli.Executor.
func (f *FakeGit) RunEnv(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	return f.dispatch(args, "")
}

func (f *FakeGit) newSHA() string {
	f.counter++
	return fmt.Sprintf("%040x", f.counter)
}

func (f *FakeGit) resolve(name string) (string, bool) {
	if sha, ok := f.refs[name]; ok {
		return sha, true
	}
	if sha, ok := f.refs["refs/heads/"+name]; ok {
		return sha, true
	}
	if f.commits[name] {
		return name, true
	}
	if _, ok := f.blobs[name]; ok {
		return name, true
	}
	return "", false
}

func (f *FakeGit) dispatch(args []string, stdin string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, args)
	joined := strings.Join(args, " ")
	for prefix, err := range f.FailOn {
		if strings.HasPrefix(joined, prefix) {
			return nil, err
		}
	}

	switch args[0] {
	case "init":
		if len(args) >= 3 && args[1] == "--initial-branch" {
			f.branch = args[2]
		}
		return nil, nil

	case "rev-parse":
		switch args[1] {
		case "--git-dir", "--absolute-git-dir":
			return []byte(".git\n"), nil
		case "--abbrev-ref":
			return []byte(f.branch + "\n"), nil
		case "--verify":
			if sha, ok := f.resolve(args[2]); ok {
				return []byte(sha + "\n"), nil
			}
			return nil, fmt.Errorf("exit status 128: fatal: needed a single revision")
		}
		return nil, fmt.Errorf("fake: unsupported rev-parse %v", args)

	case "show-ref":
		ref := args[len(args)-1]
		if _, ok := f.refs[ref]; ok {
			return nil, nil
		}
		return nil, errors.New("exit status 1")

	case "update-ref":
		if args[1] == "-d" {
			delete(f.refs, args[2])
			return nil, nil
		}
		sha := args[2]
		if _, ok := f.resolve(sha); !ok {
			return nil, fmt.Errorf("exit status 128: fatal: %s: not a valid SHA1", sha)
		}
		f.refs[args[1]] = sha
		return nil, nil

	case "for-each-ref":
		pattern := args[len(args)-1]
		prefix := strings.TrimSuffix(pattern, "*")
		var b strings.Builder
		for ref, sha := range f.refs {
			if strings.HasPrefix(ref, prefix) {
				fmt.Fprintf(&b, "%s %s\n", ref, sha)
			}
		}
		return []byte(b.String()), nil

	case "hash-object":
		sha := f.newSHA()
		f.blobs[sha] = stdin
		return []byte(sha + "\n"), nil

	case "cat-file":
		if content, ok := f.blobs[args[2]]; ok {
			return []byte(content), nil
		}
		return nil, fmt.Errorf("exit status 128: fatal: bad object %s", args[2])

	case "notes":
		// notes --ref NS append -m MSG TARGET / notes --ref NS show TARGET
		ns := args[2]
		switch args[3] {
		case "append":
			msg, target := args[5], args[6]
			if f.notes[ns] == nil {
				f.notes[ns] = make(map[string]string)
			}
			if existing := f.notes[ns][target]; existing != "" {
				f.notes[ns][target] = existing + "\n" + msg + "\n"
			} else {
				f.notes[ns][target] = msg + "\n"
			}
			return nil, nil
		case "show":
			target := args[4]
			if body, ok := f.notes[ns][target]; ok {
				return []byte(body), nil
			}
			return nil, fmt.Errorf("exit status 1: error: no note found for object %s", target)
		}
		return nil, fmt.Errorf("fake: unsupported notes %v", args)

	case "branch":
		if args[1] == "-D" {
			ref := "refs/heads/" + args[2]
			if _, ok := f.refs[ref]; !ok {
				return nil, fmt.Errorf("exit status 1: error: branch '%s' not found", args[2])
			}
			delete(f.refs, ref)
			return nil, nil
		}
		ref := "refs/heads/" + args[1]
		if _, ok := f.refs[ref]; ok {
			return nil, fmt.Errorf("exit status 128: fatal: a branch named '%s' already exists", args[1])
		}
		base, ok := f.resolve(args[2])
		if !ok {
			return nil, fmt.Errorf("exit status 128: fatal: not a valid object name: '%s'", args[2])
		}
		f.refs[ref] = base
		return nil, nil

	case "checkout":
		f.branch = args[1]
		return nil, nil

	case "merge":
		if args[1] == "--abort" {
			return nil, nil
		}
		if f.MergeConflict {
			return []byte("CONFLICT (content): Merge conflict in MOTION.md"), errors.New("exit status 1")
		}
		// merge --no-ff -m MSG BRANCH
		source := args[len(args)-1]
		if _, ok := f.resolve(source); !ok {
			return nil, fmt.Errorf("exit status 1: merge: %s - not something we can merge", source)
		}
		sha := f.newSHA()
		f.commits[sha] = true
		f.refs["refs/heads/"+f.branch] = sha
		return nil, nil

	case "read-tree", "update-index":
		return nil, nil

	case "write-tree":
		sha := f.newSHA()
		f.commits[sha] = true
		return []byte(sha + "\n"), nil

	case "commit-tree":
		sha := f.newSHA()
		f.commits[sha] = true
		return []byte(sha + "\n"), nil
	}

	return nil, fmt.Errorf("fake: unsupported git command %v", args)
}
