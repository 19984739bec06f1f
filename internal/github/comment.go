package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v66/github"
)

// ClientFactory builds an authenticated go-github client
type ClientFactory func(token string) (*gh.Client, error)

// NewClientFactory returns a factory targeting baseURL, or api.github.com when empty
func NewClientFactory(httpClient *http.Client, baseURL string) ClientFactory {
	return func(token string) (*gh.Client, error) {
		client := gh.NewClient(httpClient).WithAuthToken(token)
		if baseURL == "" {
			return client, nil
		}
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL: %w", err)
		}
		client.BaseURL = u
		return client, nil
	}
}

// IssueCommenter posts comments to one issue
type IssueCommenter struct {
	tokens  TokenSource
	factory ClientFactory
	owner   string
	repo    string
	number  int
	secrets []string
}

// NewIssueCommenter creates a commenter for repo ("owner/repo") issue number
func NewIssueCommenter(tokens TokenSource, factory ClientFactory, repo string, number int) (*IssueCommenter, error) {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return nil, err
	}
	if factory == nil {
		factory = NewClientFactory(nil, "")
	}
	return &IssueCommenter{
		tokens:  tokens,
		factory: factory,
		owner:   owner,
		repo:    name,
		number:  number,
	}, nil
}

// Repo returns "owner/repo#number"
func (c *IssueCommenter) Repo() string {
	return fmt.Sprintf("%s/%s#%d", c.owner, c.repo, c.number)
}

// RedactSecrets registers values that must never appear in a posted comment.
func (c *IssueCommenter) RedactSecrets(secrets ...string) {
	for _, s := range secrets {
		if s != "" {
			c.secrets = append(c.secrets, s)
		}
	}
}

// CreateComment sanitizes body, creates the comment and returns its ID
func (c *IssueCommenter) CreateComment(ctx context.Context, body string) (int64, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get GitHub token: %w", err)
	}

	client, err := c.factory(token)
	if err != nil {
		return 0, err
	}

	comment, _, err := client.Issues.CreateComment(ctx, c.owner, c.repo, c.number, &gh.IssueComment{
		Body: gh.String(SanitizeComment(body, c.secrets)),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create comment on %s: %w", c.Repo(), err)
	}
	return comment.GetID(), nil
}
