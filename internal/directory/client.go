// Package directory talks to the conferencing platform's user directory
// using server-to-server OAuth.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotConfigured = errors.New("directory credentials not configured")
	ErrNotFound      = errors.New("directory user not found")
)

const (
	pageSize     = 300
	maxPages     = 50
	refreshSkew  = 60 * time.Second
	defaultLimit = 1 << 20
)

type Config struct {
	ClientID     string
	ClientSecret string
	AccountID    string
	APIBase      string
	TokenURL     string
	Timeout      time.Duration
}

func (c Config) configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.AccountID != ""
}

type Client struct {
	cfg  Config
	HTTP *http.Client
	now  func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	return &Client{cfg: cfg, HTTP: &http.Client{Timeout: timeout}, now: time.Now}
}

func (c *Client) Configured() bool {
	return c != nil && c.cfg.configured()
}

// accessToken returns the cached bearer token, fetching a new one when the
// cached token is within refreshSkew of expiring.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if !c.cfg.configured() {
		return "", ErrNotConfigured
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Add(refreshSkew).Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "account_credentials")
	form.Set("account_id", c.cfg.AccountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("directory token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("directory token: status %d", resp.StatusCode)
	}
	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, defaultLimit)).Decode(&out); err != nil {
		return "", fmt.Errorf("directory token: %w", err)
	}
	if out.AccessToken == "" {
		return "", errors.New("directory token: empty access token")
	}
	c.token = out.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(out.ExpiresIn) * time.Second)
	return c.token, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	u := c.cfg.APIBase + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("directory request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("directory returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 16*defaultLimit)).Decode(out); err != nil {
		return fmt.Errorf("decode directory response: %w", err)
	}
	return nil
}

// GetUser fetches one user by platform id or email.
func (c *Client) GetUser(ctx context.Context, idOrEmail string) (Profile, error) {
	if idOrEmail == "" {
		return Profile{}, ErrNotFound
	}
	var raw apiUser
	if err := c.get(ctx, "/users/"+url.PathEscape(idOrEmail), nil, &raw); err != nil {
		return Profile{}, err
	}
	return raw.profile(), nil
}

// ListUsers pages through every active user.
func (c *Client) ListUsers(ctx context.Context) ([]Profile, error) {
	var (
		out  []Profile
		next string
	)
	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("status", "active")
		q.Set("page_size", fmt.Sprint(pageSize))
		if next != "" {
			q.Set("next_page_token", next)
		}
		var resp struct {
			Users         []apiUser `json:"users"`
			NextPageToken string    `json:"next_page_token"`
		}
		if err := c.get(ctx, "/users", q, &resp); err != nil {
			return nil, err
		}
		for _, u := range resp.Users {
			out = append(out, u.profile())
		}
		next = resp.NextPageToken
		if next == "" {
			break
		}
	}
	return out, nil
}
