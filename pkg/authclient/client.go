// Package authclient is a Go client for the account/session API. It keeps the session cookie in
// a jar, mirrors the signed-in state in a Session and drives the multi-step verify and reset
// flows.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"
)

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type UserData struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	IsAccountVerified bool   `json:"isAccountVerified"`
}

// APIError is a non-success response. Message is the server's human-readable text.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("authclient: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("authclient: %d: %s", e.Status, e.Message)
}

// IsCode reports whether err is an APIError carrying code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	bearer  bool

	mu    sync.Mutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBearerToken sends the token returned by sign-up and sign-in in the Authorization header
// in addition to the cookie jar.
func WithBearerToken() Option {
	return func(c *Client) { c.bearer = true }
}

func WithSession(s *Session) Option {
	return func(c *Client) { c.session = s }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second, Jar: jar},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		c.http.Jar = jar
	}
	if c.session == nil {
		c.session = NewSession()
	}
	return c, nil
}

func (c *Client) Session() *Session { return c.session }

func (c *Client) SignUp(ctx context.Context, username, email, password string) (*User, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/auth/sign-up", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	c.setToken(env.Token)
	c.session.signedIn(env.User)
	return env.User, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*User, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/auth/sign-in", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	c.setToken(env.Token)
	c.session.signedIn(env.User)
	return env.User, nil
}

// SignOut clears the local session even when the request fails.
func (c *Client) SignOut(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/sign-out", nil)
	c.setToken("")
	c.session.Reset()
	return err
}

func (c *Client) SendVerifyOTP(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/send-verify-otp", nil)
	return err
}

func (c *Client) VerifyEmail(ctx context.Context, otp string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/verify-email", map[string]string{"otp": otp})
	return err
}

// IsAuth asks the server whether the current credential is valid. A 401 is reported as
// (nil, false, nil).
func (c *Client) IsAuth(ctx context.Context) (*User, bool, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/auth/is-auth", nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, false, nil
		}
		return nil, false, err
	}
	return env.User, env.authenticated(), nil
}

func (c *Client) UserData(ctx context.Context) (*UserData, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/user/data", nil)
	if err != nil {
		return nil, err
	}
	if env.UserData == nil {
		return nil, &APIError{Status: http.StatusOK, Message: "response carried no user data"}
	}
	return env.UserData, nil
}

// CheckAuth refreshes the Session from the server: signed-in state from is-auth, then user data
// when signed in. Any failure leaves the Session signed out.
func (c *Client) CheckAuth(ctx context.Context) (bool, error) {
	user, ok, err := c.IsAuth(ctx)
	if err != nil || !ok {
		c.session.Reset()
		return false, err
	}
	c.session.signedIn(user)
	if err := c.RefreshUserData(ctx); err != nil {
		return true, err
	}
	return true, nil
}

func (c *Client) RefreshUserData(ctx context.Context) error {
	data, err := c.UserData(ctx)
	if err != nil {
		c.session.SetUserData(nil)
		return err
	}
	c.session.SetUserData(data)
	return nil
}

func (c *Client) SendResetOTP(ctx context.Context, email string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/send-reset-otp", map[string]string{"email": email})
	return err
}

func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/reset-password", map[string]string{
		"email":       email,
		"otp":         otp,
		"newPassword": newPassword,
	})
	return err
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.currentToken(); c.bearer && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeEnvelope(resp)
}
