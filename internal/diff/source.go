package diff

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Source enumerates the files of a pending change. It is the only way
// change data enters the presubmit core.
type Source interface {
	ChangeSet(ctx context.Context) (*ChangeSet, error)
}

// GitSource reads the change from a git working tree.
type GitSource struct {
	RepoDir string
	// Base is the revision the change is compared against. Defaults to HEAD.
	Base string
	// Staged compares the index instead of the working tree, as a
	// pre-commit hook sees the change. Contents then come from the index.
	Staged bool
}

// ChangeSet runs git diff and attaches a content loader for each file.
func (s *GitSource) ChangeSet(ctx context.Context) (*ChangeSet, error) {
	base := s.Base
	if base == "" {
		base = "HEAD"
	}

	args := []string{"--no-color", "--no-ext-diff", "-M", "-U3"}
	if s.Staged {
		args = append(args, "--cached")
	}
	args = append(args, base)

	raw, err := GitDiff(ctx, s.RepoDir, args...)
	if err != nil {
		return nil, err
	}

	cs, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	if s.Staged {
		cs.attach(func(path string) ([]byte, error) {
			return gitShow(ctx, s.RepoDir, ":"+path)
		})
	} else {
		cs.attach(worktreeLoader(s.RepoDir))
	}
	return cs, nil
}

// PatchSource reads a unified diff from a reader. When RepoDir is set,
// contents of modified files are read from that directory.
type PatchSource struct {
	Reader  io.Reader
	RepoDir string
}

// ChangeSet parses the patch.
func (s *PatchSource) ChangeSet(ctx context.Context) (*ChangeSet, error) {
	data, err := io.ReadAll(s.Reader)
	if err != nil {
		return nil, fmt.Errorf("reading patch: %w", err)
	}

	cs, err := Parse(string(data))
	if err != nil {
		return nil, err
	}

	if s.RepoDir != "" {
		load := worktreeLoader(s.RepoDir)
		for _, f := range cs.Files {
			if f.IsDeleted || f.IsBinary || f.IsNew {
				continue
			}
			path := f.Path()
			f.load = func() ([]byte, error) { return load(path) }
		}
	}
	return cs, nil
}

// worktreeLoader reads files under repoDir. Paths that are absolute or climb
// out of repoDir are refused.
func worktreeLoader(repoDir string) func(string) ([]byte, error) {
	return func(path string) ([]byte, error) {
		local := filepath.FromSlash(path)
		if !filepath.IsLocal(local) {
			return nil, fmt.Errorf("reading %s: path is outside the repository", path)
		}
		data, err := os.ReadFile(filepath.Join(repoDir, local))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return data, nil
	}
}

// GitDiff runs `git diff` with the given arguments and returns the raw output.
func GitDiff(ctx context.Context, repoDir string, args ...string) (string, error) {
	out, err := git(ctx, repoDir, append([]string{"diff"}, args...)...)
	if err != nil {
		return "", fmt.Errorf("git diff: %w", err)
	}
	return string(out), nil
}

// RepoRoot returns the top-level directory of the repository containing dir.
func RepoRoot(ctx context.Context, dir string) (string, error) {
	out, err := git(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func gitShow(ctx context.Context, repoDir, object string) ([]byte, error) {
	out, err := git(ctx, repoDir, "show", object)
	if err != nil {
		return nil, fmt.Errorf("git show %s: %w", object, err)
	}
	return out, nil
}

func git(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return out, nil
}
