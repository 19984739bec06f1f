package notifier

import (
	"context"
)

// IssueCommenter posts a comment to a fixed issue.
type IssueCommenter interface {
	CreateComment(ctx context.Context, body string) (int64, error)
	Repo() string
}

// GitHubIssue mirrors messages as comments on a GitHub issue.
type GitHubIssue struct {
	commenter IssueCommenter
}

// NewGitHubIssue creates a mirror notifier.
func NewGitHubIssue(commenter IssueCommenter) *GitHubIssue {
	return &GitHubIssue{commenter: commenter}
}

// Name returns "github:owner/repo#n"
func (g *GitHubIssue) Name() string { return "github:" + g.commenter.Repo() }

// Notify posts text as an issue comment.
func (g *GitHubIssue) Notify(ctx context.Context, text string) error {
	_, err := g.commenter.CreateComment(ctx, text)
	return err
}
