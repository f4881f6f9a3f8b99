// Package provider is the client for the hosted auth backend. The backend
// owns the real credential state; this client only exchanges passwords and
// refresh tokens for sessions and reports whether a live session is held.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSession = errors.New("no provider session")

// Session is the provider-side credential state as observed locally.
type Session struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	ExpiresAt    time.Time
}

// Client talks to a GoTrue-style auth REST endpoint and caches the current
// session the way a hosted-backend SDK would. All methods are safe for
// concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client

	mu      sync.Mutex
	session *Session
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

// SignInWithPassword performs the password grant and replaces the cached
// session on success.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	body := map[string]string{"email": email, "password": password}
	var resp tokenResponse
	if err := c.post(ctx, "/token?grant_type=password", body, &resp, ""); err != nil {
		return Session{}, fmt.Errorf("password sign-in: %w", err)
	}
	session := c.storeSession(resp)
	return session, nil
}

// Refresh exchanges the cached refresh token for a new session. Fails with
// ErrNoSession when no session is held.
func (c *Client) Refresh(ctx context.Context) (Session, error) {
	c.mu.Lock()
	current := c.session
	c.mu.Unlock()
	if current == nil || current.RefreshToken == "" {
		return Session{}, ErrNoSession
	}

	body := map[string]string{"refresh_token": current.RefreshToken}
	var resp tokenResponse
	if err := c.post(ctx, "/token?grant_type=refresh_token", body, &resp, ""); err != nil {
		return Session{}, fmt.Errorf("refresh session: %w", err)
	}
	return c.storeSession(resp), nil
}

// CurrentSession returns the cached session, or nil when none is held or the
// access token has expired.
func (c *Client) CurrentSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	if !c.session.ExpiresAt.IsZero() && time.Now().After(c.session.ExpiresAt) {
		return nil
	}
	copied := *c.session
	return &copied
}

// CurrentUserID returns the user id of the held session, or ErrNoSession.
func (c *Client) CurrentUserID(ctx context.Context) (string, error) {
	session := c.CurrentSession()
	if session == nil {
		return "", ErrNoSession
	}
	return session.UserID, nil
}

// SignOut revokes the session remotely and always drops the cached session,
// even when the remote call fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if session == nil {
		return nil
	}
	if err := c.post(ctx, "/logout", nil, nil, session.AccessToken); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func (c *Client) storeSession(resp tokenResponse) Session {
	session := Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       resp.User.ID,
	}
	if resp.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	} else if exp, ok := tokenExpiry(resp.AccessToken); ok {
		session.ExpiresAt = exp
	}

	c.mu.Lock()
	c.session = &session
	c.mu.Unlock()
	return session
}

// tokenExpiry reads the exp claim without verifying the signature. The
// signing key belongs to the provider; locally the claim is only a hint for
// when to refresh.
func tokenExpiry(accessToken string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (c *Client) post(ctx context.Context, path string, body, target any, bearer string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
