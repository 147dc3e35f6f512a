package vault

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitClient shells out to the git binary against a single working tree.
// Grounded on the same operation set as the source's GitPython wrapper
// (initialize/pull/get_changed_files/commit/push), reimplemented with
// os/exec since no git-plumbing library appears anywhere in the retrieved
// pack.
type GitClient struct {
	vaultPath string
	enabled   bool
	userName  string
	userEmail string
}

func NewGitClient(vaultPath string, enabled bool, userName, userEmail string) *GitClient {
	return &GitClient{vaultPath: vaultPath, enabled: enabled, userName: userName, userEmail: userEmail}
}

func (g *GitClient) Enabled() bool { return g.enabled }

func (g *GitClient) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.vaultPath
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(errOut.String()))
	}
	return out.String(), nil
}

// Initialize configures the commit author identity. A no-op in disabled
// mode.
func (g *GitClient) Initialize(ctx context.Context) error {
	if !g.enabled {
		return nil
	}
	if _, err := g.run(ctx, "config", "user.name", g.userName); err != nil {
		return err
	}
	_, err := g.run(ctx, "config", "user.email", g.userEmail)
	return err
}

// Pull fetches and fast-forwards from origin. A no-op in disabled mode.
func (g *GitClient) Pull(ctx context.Context) error {
	if !g.enabled {
		return nil
	}
	_, err := g.run(ctx, "pull", "--ff-only")
	return err
}

// ChangedFiles lists modified, added, deleted, and untracked paths
// relative to the vault root. Empty (not an error) in disabled mode.
func (g *GitClient) ChangedFiles(ctx context.Context) ([]string, error) {
	if !g.enabled {
		return nil, nil
	}
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if len(line) < 4 {
			continue
		}
		files = append(files, strings.TrimSpace(line[3:]))
	}
	return files, nil
}

// Commit stages the given paths (relative to the vault root) and commits
// them with message. A no-op in disabled mode.
func (g *GitClient) Commit(ctx context.Context, message string, paths []string) (commitHash string, err error) {
	if !g.enabled {
		return "", nil
	}
	if len(paths) == 0 {
		return "", nil
	}
	addArgs := append([]string{"add", "--"}, paths...)
	if _, err := g.run(ctx, addArgs...); err != nil {
		return "", err
	}
	if _, err := g.run(ctx, "commit", "-m", message); err != nil {
		return "", err
	}
	hash, err := g.run(ctx, "rev-parse", "HEAD")
	return strings.TrimSpace(hash), err
}

// Push pushes HEAD to origin. A no-op in disabled mode.
func (g *GitClient) Push(ctx context.Context) error {
	if !g.enabled {
		return nil
	}
	_, err := g.run(ctx, "push")
	return err
}

// RelPath returns path relative to the vault root, for commit argument
// lists built from absolute paths.
func (g *GitClient) RelPath(path string) (string, error) {
	return filepath.Rel(g.vaultPath, path)
}
