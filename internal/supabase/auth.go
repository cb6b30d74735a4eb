package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// AuthClient performs the auth verbs against the backend and keeps the
// session store in sync with the results.
type AuthClient struct {
	client *Client
}

// SignUp creates a new auth user. The raw response is returned alongside the
// probed user ID because the endpoint nests the user differently depending on
// backend settings.
func (a *AuthClient) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, statusCode, _, err := a.client.requestAnonymous(ctx, "POST", a.client.authURL+"/signup", body, nil)
	if err != nil {
		return nil, err
	}
	if statusCode >= 400 {
		return nil, authError(respBody, statusCode, "Signup failed")
	}

	return &SignUpResult{
		UserID: probeUserID(respBody),
		Raw:    respBody,
	}, nil
}

// SignInWithPassword exchanges credentials for a session and persists it.
// Every subsequent request carries the new bearer token.
func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, statusCode, _, err := a.client.requestAnonymous(ctx, "POST", a.client.authURL+"/token?grant_type=password", body, nil)
	if err != nil {
		return nil, err
	}
	if statusCode >= 400 {
		return nil, authError(respBody, statusCode, "Login failed")
	}

	var session Session
	if err := json.Unmarshal(respBody, &session); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if err := a.client.sessions.Save(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

// RefreshToken exchanges a refresh token for a fresh session and persists it.
// Nothing calls this automatically; an expired session degrades to signed-out
// until the caller re-authenticates.
func (a *AuthClient) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	body, err := json.Marshal(map[string]string{
		"refresh_token": refreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, statusCode, _, err := a.client.requestAnonymous(ctx, "POST", a.client.authURL+"/token?grant_type=refresh_token", body, nil)
	if err != nil {
		return nil, err
	}
	if statusCode >= 400 {
		return nil, authError(respBody, statusCode, "Token refresh failed")
	}

	var session Session
	if err := json.Unmarshal(respBody, &session); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if err := a.client.sessions.Save(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SignOut clears the session store. No backend call is made; the token simply
// stops being sent.
func (a *AuthClient) SignOut(ctx context.Context) error {
	return a.client.sessions.Clear()
}

// GetSession returns the current session, restoring it from durable storage
// when needed. A missing or expired session yields (nil, nil).
func (a *AuthClient) GetSession(ctx context.Context) (*Session, error) {
	return a.client.sessions.Load()
}

// GetUser returns the user of the current session, or nil when signed out.
func (a *AuthClient) GetUser(ctx context.Context) (*User, error) {
	if session := a.client.sessions.Current(); session != nil {
		return session.User, nil
	}
	session, err := a.client.sessions.Load()
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	return session.User, nil
}

// OnAuthStateChange registers a listener for session transitions. The
// listener fires once with INITIAL_SESSION when a session already exists and
// again on every later sign-in and sign-out. The returned func unsubscribes.
func (a *AuthClient) OnAuthStateChange(listener AuthListener) func() {
	return a.client.sessions.OnChange(listener)
}

// probeUserID extracts the user ID from a signup response, probing both the
// nested and the top-level shape.
func probeUserID(body []byte) string {
	if id := gjson.GetBytes(body, "user.id"); id.Exists() {
		return id.String()
	}
	return gjson.GetBytes(body, "id").String()
}

// authError normalizes the auth endpoints' error shape, which reports the
// message under error_description or msg rather than message.
func authError(body []byte, statusCode int, fallback string) error {
	err := parseError(body, statusCode)
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message == "" {
		apiErr.Message = fallback
	}
	return err
}
