package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultAPIBaseURL = "https://api.github.com"

// TokenSource provides an access token for GitHub API calls
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a personal access token used as-is
type StaticToken string

// Token returns the static token
func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("github token is empty")
	}
	return string(s), nil
}

// AppAuth holds GitHub App authentication configuration and mints
// installation tokens for a single repository
type AppAuth struct {
	AppID      string
	PrivateKey string
	Repo       string

	// APIBaseURL defaults to https://api.github.com
	APIBaseURL string
	HTTPClient *http.Client

	mu     sync.Mutex
	cached *InstallationToken
}

// InstallationToken represents a GitHub App installation access token
type InstallationToken struct {
	Token     string
	ExpiresAt time.Time
}

// GenerateJWT creates a JWT token for GitHub App authentication
func (a *AppAuth) GenerateJWT() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(a.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}

	appID, err := strconv.ParseInt(a.AppID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid app ID: %w", err)
	}

	// Backdate issuance to tolerate clock drift
	now := time.Now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(9 * time.Minute)),
		Issuer:    strconv.FormatInt(appID, 10),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}

	return signedToken, nil
}

// Token returns a cached installation token, refreshing it shortly before expiry
func (a *AppAuth) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cached != nil && time.Until(a.cached.ExpiresAt) > time.Minute {
		return a.cached.Token, nil
	}

	tok, err := a.GetInstallationToken(ctx, a.Repo)
	if err != nil {
		return "", err
	}
	a.cached = tok
	return tok.Token, nil
}

// GetInstallationToken gets an installation access token for a repository
func (a *AppAuth) GetInstallationToken(ctx context.Context, repo string) (*InstallationToken, error) {
	jwtToken, err := a.GenerateJWT()
	if err != nil {
		return nil, err
	}

	installationID, err := a.getInstallationID(ctx, jwtToken, repo)
	if err != nil {
		return nil, err
	}

	return a.getInstallationAccessToken(ctx, jwtToken, installationID)
}

func (a *AppAuth) baseURL() string {
	if a.APIBaseURL == "" {
		return defaultAPIBaseURL
	}
	return strings.TrimSuffix(a.APIBaseURL, "/")
}

func (a *AppAuth) client() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// getInstallationID retrieves the installation ID for a repository
func (a *AppAuth) getInstallationID(ctx context.Context, jwtToken, repo string) (int64, error) {
	owner, repoName, err := SplitRepo(repo)
	if err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/repos/%s/%s/installation", a.baseURL(), owner, repoName)
	var result struct {
		ID int64 `json:"id"`
	}
	if err := a.do(ctx, http.MethodGet, url, jwtToken, http.StatusOK, &result); err != nil {
		return 0, fmt.Errorf("failed to get installation: %w", err)
	}
	return result.ID, nil
}

// getInstallationAccessToken retrieves an installation access token
func (a *AppAuth) getInstallationAccessToken(ctx context.Context, jwtToken string, installationID int64) (*InstallationToken, error) {
	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", a.baseURL(), installationID)
	var result struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := a.do(ctx, http.MethodPost, url, jwtToken, http.StatusCreated, &result); err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	return &InstallationToken{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	}, nil
}

func (a *AppAuth) do(ctx context.Context, method, url, jwtToken string, wantStatus int, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+jwtToken)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := a.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("GitHub API error: %d - %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// SplitRepo splits "owner/repo"
func SplitRepo(repo string) (string, string, error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo format: %s (expected owner/repo)", repo)
	}
	return parts[0], parts[1], nil
}
