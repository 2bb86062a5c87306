// Package client talks to the creators-platform API and keeps the login
// session (token plus user summary) in an injected Storage.
package client

import (
	"bytes"
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

	"github.com/Prachi-Sharma23/creators-platform/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// Storage keys.
const (
	TokenKey = "token"
	UserKey  = "user"
)

var (
	// ErrNotAuthenticated is returned by protected calls when no usable
	// session exists. No request is sent.
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrUnauthorized     = errors.New("unauthorized")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%d: %s", e.Status, e.Message)
	}
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, k+": "+v)
	}
	return fmt.Sprintf("%d: %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
}

// Is makes a 401 match ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// TokenExpired reports whether the token's exp claim is at or before now.
// The signature is not checked; undecodable tokens count as expired.
func TokenExpired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return !now.Before(claims.ExpiresAt.Time)
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client is the Go counterpart of the browser auth context.
type Client struct {
	baseURL string
	http    *http.Client
	store   Storage
	now     func() time.Time

	mu    sync.RWMutex
	token string
	user  *models.User
}

// New creates a client for the API at baseURL. Call Restore to pick up a
// session saved by a previous run.
func New(baseURL string, store Storage, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		store:   store,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Restore loads the saved session. Corrupt or expired state is discarded.
func (c *Client) Restore() error {
	token, hasToken, err := c.store.Get(TokenKey)
	if err != nil {
		return err
	}
	rawUser, hasUser, err := c.store.Get(UserKey)
	if err != nil {
		return err
	}
	if !hasToken || !hasUser {
		return nil
	}

	var user models.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil || TokenExpired(token, c.now()) {
		return c.Logout()
	}

	c.mu.Lock()
	c.token, c.user = token, &user
	c.mu.Unlock()
	return nil
}

// IsAuthenticated reports whether a session with an unexpired token exists.
// An expired session is cleared.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	token, user := c.token, c.user
	c.mu.RUnlock()

	if token == "" || user == nil {
		return false
	}
	if TokenExpired(token, c.now()) {
		_ = c.Logout()
		return false
	}
	return true
}

// User returns the logged-in user, if any.
func (c *Client) User() (models.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return models.User{}, false
	}
	return *c.user, true
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Logout forgets the session in memory and in storage.
func (c *Client) Logout() error {
	c.mu.Lock()
	c.token, c.user = "", nil
	c.mu.Unlock()

	return errors.Join(c.store.Clear(TokenKey), c.store.Clear(UserKey))
}

func (c *Client) saveSession(token string, user models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := c.store.Set(TokenKey, token); err != nil {
		return err
	}
	if err := c.store.Set(UserKey, string(raw)); err != nil {
		return err
	}

	c.mu.Lock()
	c.token, c.user = token, &user
	c.mu.Unlock()
	return nil
}

type userEnvelope struct {
	Message string      `json:"message"`
	User    models.User `json:"user"`
}

type loginEnvelope struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    models.User `json:"user"`
}

// HealthStatus is the body of GET /api/health.
type HealthStatus struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *Client) Register(ctx context.Context, name, email, password string) (models.User, error) {
	var out userEnvelope
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/users/register", false, body, &out); err != nil {
		return models.User{}, err
	}
	return out.User, nil
}

// Login authenticates and stores the returned token and user.
func (c *Client) Login(ctx context.Context, email, password string) (models.User, error) {
	var out loginEnvelope
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", false, body, &out); err != nil {
		return models.User{}, err
	}
	if out.Token == "" {
		return models.User{}, errors.New("login response carried no token")
	}
	if err := c.saveSession(out.Token, out.User); err != nil {
		return models.User{}, fmt.Errorf("save session: %w", err)
	}
	return out.User, nil
}

func (c *Client) Profile(ctx context.Context) (models.User, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/users/profile", true, nil, &out); err != nil {
		return models.User{}, err
	}
	return out.User, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := c.do(ctx, http.MethodGet, "/api/users", true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (models.User, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodGet, userPath(id), true, nil, &out); err != nil {
		return models.User{}, err
	}
	return out.User, nil
}

// UpdateUser changes name and/or email; nil leaves a field as it is.
func (c *Client) UpdateUser(ctx context.Context, id string, name, email *string) (models.User, error) {
	body := map[string]string{}
	if name != nil {
		body["name"] = *name
	}
	if email != nil {
		body["email"] = *email
	}

	var out userEnvelope
	if err := c.do(ctx, http.MethodPut, userPath(id), true, body, &out); err != nil {
		return models.User{}, err
	}
	return out.User, nil
}

func (c *Client) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	body := map[string]string{"currentPassword": currentPassword, "newPassword": newPassword}
	return c.do(ctx, http.MethodPut, userPath(id)+"/password", true, body, nil)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, userPath(id), true, nil, nil)
}

func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var out HealthStatus
	if err := c.do(ctx, http.MethodGet, "/api/health", false, nil, &out); err != nil {
		return HealthStatus{}, err
	}
	return out, nil
}

func userPath(id string) string {
	return "/api/users/" + url.PathEscape(id)
}

// do sends a JSON request and decodes a JSON answer into out. Protected
// calls attach the bearer token, and a 401 ends the session.
func (c *Client) do(ctx context.Context, method, path string, protected bool, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if protected {
		if !c.IsAuthenticated() {
			return ErrNotAuthenticated
		}
		req.Header.Set("Authorization", "Bearer "+c.Token())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Message string            `json:"message"`
			Errors  map[string]string `json:"errors"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil && payload.Message != "" {
			apiErr.Message = payload.Message
			apiErr.Fields = payload.Errors
		}
		if protected && resp.StatusCode == http.StatusUnauthorized {
			_ = c.Logout()
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
