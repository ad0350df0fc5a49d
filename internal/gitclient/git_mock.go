package gitclient

import (
	"context"

	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/stretchr/testify/mock"
)

// MockGitClient is a testify mock for the GitClient interface.
type MockGitClient struct {
	mock.Mock
}

var _ contract.GitClient = &MockGitClient{} // Compile-time check

// Run mocks the Run method.
func (m *MockGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	callArgs := []any{ctx, repoPath}
	for _, arg := range args {
		callArgs = append(callArgs, arg)
	}
	ret := m.Called(callArgs...)
	var out []byte
	if v := ret.Get(0); v != nil {
		out = v.([]byte)
	}
	return out, ret.Error(1)
}

// GetRepoRoot mocks the GetRepoRoot method.
func (m *MockGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	ret := m.Called(ctx, contextPath)
	return ret.String(0), ret.Error(1)
}

// GetBranch mocks the GetBranch method.
func (m *MockGitClient) GetBranch(ctx context.Context, repoPath string) (string, error) {
	ret := m.Called(ctx, repoPath)
	return ret.String(0), ret.Error(1)
}

// GetHeadCommit mocks the GetHeadCommit method.
func (m *MockGitClient) GetHeadCommit(ctx context.Context, repoPath string) (string, error) {
	ret := m.Called(ctx, repoPath)
	return ret.String(0), ret.Error(1)
}

// GetRemoteRepository mocks the GetRemoteRepository method.
func (m *MockGitClient) GetRemoteRepository(ctx context.Context, repoPath string) (string, error) {
	ret := m.Called(ctx, repoPath)
	return ret.String(0), ret.Error(1)
}
