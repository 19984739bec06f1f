package github

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghtesting "github.com/cexll/homework-bot/internal/github/testing"
)

func TestIssueCommenter_CreateComment(t *testing.T) {
	srv := ghtesting.NewMockGitHubServer()
	defer srv.Close()

	commenter, err := NewIssueCommenter(StaticToken("ghp_test"), NewClientFactory(srv.Client(), srv.URL), "owner/repo", 7)
	require.NoError(t, err)
	assert.Equal(t, "owner/repo#7", commenter.Repo())

	id, err := commenter.CreateComment(context.Background(), "status changed")
	require.NoError(t, err)
	assert.Equal(t, int64(123456), id)
	assert.Equal(t, []string{"status changed"}, srv.Comments())
	assert.Equal(t, []string{"Bearer ghp_test"}, srv.Authorizations())
}

func TestIssueCommenter_Errors(t *testing.T) {
	_, err := NewIssueCommenter(StaticToken("x"), nil, "bad", 1)
	assert.Error(t, err)

	srv := ghtesting.NewMockGitHubServer()
	defer srv.Close()

	commenter, err := NewIssueCommenter(StaticToken(""), NewClientFactory(srv.Client(), srv.URL), "owner/repo", 7)
	require.NoError(t, err)
	_, err = commenter.CreateComment(context.Background(), "body")
	assert.Error(t, err)

	missing, err := NewIssueCommenter(StaticToken("x"), NewClientFactory(srv.Client(), srv.URL), "other/repo", 7)
	require.NoError(t, err)
	_, err = missing.CreateComment(context.Background(), "body")
	assert.Error(t, err)
}

func TestIssueCommenter_RedactsSecrets(t *testing.T) {
	srv := ghtesting.NewMockGitHubServer()
	defer srv.Close()

	commenter, err := NewIssueCommenter(StaticToken("ghp_test"), NewClientFactory(srv.Client(), srv.URL), "owner/repo", 7)
	require.NoError(t, err)
	commenter.RedactSecrets("", "practicum-secret")

	_, err = commenter.CreateComment(context.Background(), "request with practicum-secret failed<!-- debug -->")
	require.NoError(t, err)
	assert.Equal(t, []string{"request with [REDACTED] failed"}, srv.Comments())
}
