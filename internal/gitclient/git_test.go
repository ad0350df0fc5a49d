package gitclient

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}
	dir := t.TempDir()
	steps := [][]string{
		{"init", "-q", "-b", "release/3.1"},
		{"config", "user.email", "ci@example.com"},
		{"config", "user.name", "ci"},
		{"commit", "-q", "--allow-empty", "-m", "initial"},
		{"remote", "add", "origin", "git@github.com:acme/payments.git"},
	}
	for _, args := range steps {
		out, err := exec.Command("git", append([]string{"-C", dir}, args...)...).CombinedOutput()
		require.NoError(t, err, string(out))
	}
	return dir
}

func TestLocalGitClient(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()
	client := NewLocalGitClient()

	root, err := client.GetRepoRoot(ctx, dir)
	require.NoError(t, err)
	resolvedDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	resolvedRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, resolvedDir, resolvedRoot)

	branch, err := client.GetBranch(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, "release/3.1", branch)

	commit, err := client.GetHeadCommit(ctx, dir)
	require.NoError(t, err)
	assert.Len(t, commit, 40)

	repo, err := client.GetRemoteRepository(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, "acme/payments", repo)
}

func TestLocalGitClientOutsideRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}
	_, err := NewLocalGitClient().GetRepoRoot(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestRepositorySlug(t *testing.T) {
	tests := []struct {
		remote   string
		expected string
	}{
		{"https://github.com/acme/app.git", "acme/app"},
		{"https://github.com/acme/app", "acme/app"},
		{"git@github.com:acme/app.git", "acme/app"},
		{"ssh://git@gitlab.example.com:2222/group/sub/app.git", "sub/app"},
		{"https://github.com/acme/app/", "acme/app"},
		{"https://github.com", ""},
		{"app", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			assert.Equal(t, tt.expected, RepositorySlug(tt.remote))
		})
	}
}

func TestMockGitClient(t *testing.T) {
	ctx := context.Background()
	m := new(MockGitClient)
	m.On("Run", ctx, "/repo", "rev-parse", "HEAD").Return([]byte("abc\n"), nil).Once()
	m.On("GetBranch", ctx, "/repo").Return("", errors.New("detached HEAD in /repo"))

	out, err := m.Run(ctx, "/repo", "rev-parse", "HEAD")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc\n"), out)

	_, err = m.GetBranch(ctx, "/repo")
	assert.Error(t, err)
	m.AssertExpectations(t)
}
