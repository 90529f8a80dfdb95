// Package platform wraps the hosted backend's REST surface: identity
// operations, token refresh, the OAuth redirect flow, and server routines
// (serverless functions). All real auth work happens on the platform side;
// this client is call-and-wait plumbing with a typed error taxonomy.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stagedesk/internal/config"
	"stagedesk/internal/models"
)

type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
}

func NewClient(cfg config.PlatformConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		anonKey: cfg.AnonKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type apiUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata"`
	CreatedAt    time.Time      `json:"created_at"`
	LastSignInAt time.Time      `json:"last_sign_in_at"`
}

func (u apiUser) toModel() models.User {
	return models.User{
		ID:           u.ID,
		Email:        u.Email,
		Role:         u.Role,
		Metadata:     u.UserMetadata,
		CreatedAt:    u.CreatedAt,
		LastSignInAt: u.LastSignInAt,
	}
}

type tokenResponse struct {
	AccessToken  string  `json:"access_token"`
	TokenType    string  `json:"token_type"`
	ExpiresIn    int     `json:"expires_in"`
	RefreshToken string  `json:"refresh_token"`
	User         apiUser `json:"user"`
}

func (t tokenResponse) toSession() models.Session {
	return models.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		ExpiresAt:    time.Now().Add(time.Duration(t.ExpiresIn) * time.Second),
		UserID:       t.User.ID,
	}
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (models.Session, models.User, error) {
	body := map[string]string{"email": email, "password": password}

	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &resp); err != nil {
		return models.Session{}, models.User{}, err
	}
	return resp.toSession(), resp.User.toModel(), nil
}

// SignUp creates an identity record with the given profile metadata. The
// platform may or may not return a session depending on its email
// confirmation settings; only the user is reported here.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (models.User, error) {
	body := map[string]any{"email": email, "password": password}
	if len(metadata) > 0 {
		body["data"] = metadata
	}

	var resp struct {
		apiUser
		User *apiUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", body, &resp); err != nil {
		return models.User{}, err
	}
	if resp.User != nil {
		return resp.User.toModel(), nil
	}
	return resp.apiUser.toModel(), nil
}

// SignOut revokes the session behind the given access token.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
}

// SendPasswordReset triggers an out-of-band reset email. No local state
// changes.
func (c *Client) SendPasswordReset(ctx context.Context, email, redirectTo string) error {
	path := "/auth/v1/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	return c.do(ctx, http.MethodPost, path, "", map[string]string{"email": email}, nil)
}

// UpdatePassword sets a new password on the current session's identity.
func (c *Client) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	return c.do(ctx, http.MethodPut, "/auth/v1/user", accessToken, map[string]string{"password": newPassword}, nil)
}

// GetUser returns the identity behind an access token.
func (c *Client) GetUser(ctx context.Context, accessToken string) (models.User, error) {
	var resp apiUser
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &resp); err != nil {
		return models.User{}, err
	}
	return resp.toModel(), nil
}

// UpdateUserMetadata merges the given keys into the identity's metadata map.
func (c *Client) UpdateUserMetadata(ctx context.Context, accessToken string, metadata map[string]any) (models.User, error) {
	var resp apiUser
	if err := c.do(ctx, http.MethodPut, "/auth/v1/user", accessToken, map[string]any{"data": metadata}, &resp); err != nil {
		return models.User{}, err
	}
	return resp.toModel(), nil
}

// RefreshSession rotates the token bundle.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (models.Session, models.User, error) {
	body := map[string]string{"refresh_token": refreshToken}

	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", body, &resp); err != nil {
		return models.Session{}, models.User{}, err
	}
	return resp.toSession(), resp.User.toModel(), nil
}

// AuthorizeURL builds the browser redirect URL starting the platform's OAuth
// flow for the given provider. Resolution happens out-of-band via the
// callback route.
func (c *Client) AuthorizeURL(provider, redirectTo, codeChallenge string) string {
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("redirect_to", redirectTo)
	if codeChallenge != "" {
		q.Set("code_challenge", codeChallenge)
		q.Set("code_challenge_method", "s256")
	}
	return c.baseURL + "/auth/v1/authorize?" + q.Encode()
}

// ExchangeCode completes the OAuth flow: the code delivered to the callback
// route plus the PKCE verifier buy a session.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (models.Session, models.User, error) {
	body := map[string]string{"auth_code": code, "code_verifier": verifier}

	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=pkce", "", body, &resp); err != nil {
		return models.Session{}, models.User{}, err
	}
	return resp.toSession(), resp.User.toModel(), nil
}

// InvokeFunction calls a named server routine with a JSON payload and
// returns the raw JSON result. Used for demo registration, reset, cleanup
// and usage tracking.
func (c *Client) InvokeFunction(ctx context.Context, name string, accessToken string, payload any) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/functions/v1/"+name, accessToken, payload, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

type apiErrorBody struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func (b apiErrorBody) text() string {
	for _, s := range []string{b.Msg, b.Message, b.ErrorDescription} {
		if s != "" {
			return s
		}
	}
	return "request failed"
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("platform request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errBody apiErrorBody
		_ = json.Unmarshal(raw, &errBody)
		return classify(&APIError{
			Status:  resp.StatusCode,
			Code:    errBody.ErrorCode,
			Message: errBody.text(),
		})
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
