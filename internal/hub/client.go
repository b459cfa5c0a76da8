package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ekisa-team/sam3lab/internal/envvar"
)

// DefaultEndpoint is the public hub.
const DefaultEndpoint = "https://huggingface.co"

// Identity is the account a token belongs to.
type Identity struct {
	Name     string `json:"name"`
	FullName string `json:"fullname,omitempty"`
	Type     string `json:"type,omitempty"`
	Auth     struct {
		AccessToken struct {
			DisplayName string `json:"displayName,omitempty"`
			Role        string `json:"role,omitempty"`
		} `json:"accessToken"`
	} `json:"auth"`
}

// RepoInfo is the subset of repository metadata sam3lab relies on.
type RepoInfo struct {
	ID       string `json:"id"`
	SHA      string `json:"sha,omitempty"`
	Private  bool   `json:"private"`
	Gated    any    `json:"gated,omitempty"`
	Siblings []struct {
		Filename string `json:"rfilename"`
	} `json:"siblings,omitempty"`
}

// HasFile reports whether the repository lists filename.
func (r RepoInfo) HasFile(filename string) bool {
	for _, s := range r.Siblings {
		if s.Filename == filename {
			return true
		}
	}
	return false
}

// Client talks to the hub REST API for identity and repository checks.
type Client struct {
	endpoint string
	http     *http.Client
	tokens   TokenStore
}

// ResolveEndpoint returns endpoint, falling back to HF_ENDPOINT and then the
// public hub.
func ResolveEndpoint(endpoint string) string {
	if endpoint == "" {
		endpoint = os.Getenv(envvar.HFEndpoint)
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return strings.TrimRight(endpoint, "/")
}

// NewClient creates a hub client. An empty endpoint uses HF_ENDPOINT or the public hub.
func NewClient(endpoint string, httpClient *http.Client, tokens TokenStore) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		endpoint: ResolveEndpoint(endpoint),
		http:     httpClient,
		tokens:   tokens,
	}
}

// Endpoint returns the hub base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// WhoAmI returns the identity of the stored token.
func (c *Client) WhoAmI(ctx context.Context) (Identity, error) {
	token, err := c.tokens.Load()
	if err != nil {
		return Identity{}, err
	}
	return c.whoAmI(ctx, token)
}

// Login validates token against the hub and stores it for later runs.
func (c *Client) Login(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrNoToken
	}

	id, err := c.whoAmI(ctx, token)
	if err != nil {
		return Identity{}, err
	}

	if err := c.tokens.Save(token); err != nil {
		return Identity{}, fmt.Errorf("hub: store token: %w", err)
	}

	slog.Debug("Token stored", "user", id.Name)
	return id, nil
}

// RepoInfo returns model repository metadata using the stored token when present.
func (c *Client) RepoInfo(ctx context.Context, repo string) (RepoInfo, error) {
	if err := ValidateRepo(repo); err != nil {
		return RepoInfo{}, err
	}

	resp, err := c.do(ctx, http.MethodGet, "/api/models/"+repo, c.optionalToken())
	if err != nil {
		return RepoInfo{}, err
	}
	defer resp.Body.Close()

	if err := repoStatusError(resp, repo); err != nil {
		return RepoInfo{}, err
	}

	var info RepoInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return RepoInfo{}, fmt.Errorf("hub: decode repo info: %w", err)
	}
	return info, nil
}

// CheckAccess verifies that filename in repo can be downloaded with the stored
// token. Gated repositories answer 401/403 until their license is accepted.
func (c *Client) CheckAccess(ctx context.Context, repo, filename string) error {
	if err := ValidateRepo(repo); err != nil {
		return err
	}

	path := fmt.Sprintf("/%s/resolve/main/%s", repo, url.PathEscape(filename))
	resp, err := c.do(ctx, http.MethodHead, path, c.optionalToken())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return repoStatusError(resp, repo)
}

func (c *Client) whoAmI(ctx context.Context, token string) (Identity, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/whoami-v2", token)
	if err != nil {
		return Identity{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return Identity{}, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return Identity{}, statusError(resp)
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return Identity{}, fmt.Errorf("hub: decode whoami: %w", err)
	}
	return id, nil
}

func (c *Client) optionalToken() string {
	token, err := c.tokens.Load()
	if err != nil {
		return ""
	}
	return token
}

func (c *Client) do(ctx context.Context, method, path, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("hub: create request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", "sam3lab")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hub: %s %s: %w", method, path, err)
	}
	return resp, nil
}

func repoStatusError(resp *http.Response, repo string) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s (status %d)", ErrGated, repo, resp.StatusCode)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrRepoNotFound, repo)
	default:
		return statusError(resp)
	}
}

func statusError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("hub: unexpected status %d", resp.StatusCode)
	}
	return errors.New("hub: unexpected status " + resp.Status + ": " + strings.TrimSpace(string(body)))
}
