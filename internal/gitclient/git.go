// Package gitclient reads branch, commit and repository details from a local working copy.
package gitclient

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/huangsam/gatekeeper/internal/contract"
)

// LocalGitClient implements the GitClient interface by executing the
// local 'git' binary installed on the machine.
type LocalGitClient struct{}

var _ contract.GitClient = &LocalGitClient{} // Compile-time check

// NewLocalGitClient creates a new instance of the local Git client.
func NewLocalGitClient() *LocalGitClient {
	return &LocalGitClient{}
}

// Run executes a git command and returns its stdout.
func (c *LocalGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, fmt.Errorf("git '%v' exit: %s", strings.Join(fullArgs, " "), strings.TrimSpace(string(exitErr.Stderr)))
	} else if err != nil {
		return nil, fmt.Errorf("git '%v' unknown: %w", strings.Join(fullArgs, " "), err)
	}
	return out, nil
}

// GetRepoRoot implements the GitClient interface by executing 'git rev-parse --show-toplevel'.
func (c *LocalGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	return c.output(ctx, contextPath, "rev-parse", "--show-toplevel")
}

// GetBranch implements the GitClient interface.
func (c *LocalGitClient) GetBranch(ctx context.Context, repoPath string) (string, error) {
	branch, err := c.output(ctx, repoPath, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if branch == "HEAD" {
		return "", fmt.Errorf("detached HEAD in %s", repoPath)
	}
	return branch, nil
}

// GetHeadCommit implements the GitClient interface.
func (c *LocalGitClient) GetHeadCommit(ctx context.Context, repoPath string) (string, error) {
	return c.output(ctx, repoPath, "rev-parse", "HEAD")
}

// GetRemoteRepository implements the GitClient interface.
func (c *LocalGitClient) GetRemoteRepository(ctx context.Context, repoPath string) (string, error) {
	url, err := c.output(ctx, repoPath, "remote", "get-url", "origin")
	if err != nil {
		return "", err
	}
	slug := RepositorySlug(url)
	if slug == "" {
		return "", fmt.Errorf("cannot derive repository from remote '%s'", url)
	}
	return slug, nil
}

func (c *LocalGitClient) output(ctx context.Context, repoPath string, args ...string) (string, error) {
	out, err := c.Run(ctx, repoPath, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// RepositorySlug converts a remote URL into an owner/name slug.
// It handles https, ssh and scp-like remotes and strips a trailing .git.
func RepositorySlug(remote string) string {
	s := strings.TrimSpace(remote)
	s = strings.TrimSuffix(strings.TrimSuffix(s, "/"), ".git")
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "/"); j >= 0 {
			s = s[j+1:]
		} else {
			return ""
		}
	} else if i := strings.Index(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return ""
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1]
}
