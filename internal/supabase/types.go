// Package supabase provides a REST client for a Supabase-style backend:
// GoTrue auth endpoints plus PostgREST table access. It is the only code
// path through which the application talks to the hosted backend.
package supabase

import (
	"time"
)

// =============================================================================
// Configuration
// =============================================================================

// Config holds client configuration.
type Config struct {
	// ProjectURL is the backend project URL (e.g., https://xxx.supabase.co)
	ProjectURL string

	// AnonKey is the anonymous API key sent as the apikey header and as the
	// Authorization bearer when no user session is active.
	AnonKey string

	// Sessions is the durable storage for the auth session. Defaults to an
	// in-memory store when nil.
	Sessions SessionStorage

	// DefaultHeaders are added to every request.
	DefaultHeaders map[string]string

	// Timeout for HTTP requests.
	Timeout time.Duration
}

// =============================================================================
// Auth Types
// =============================================================================

// User represents a backend auth user.
type User struct {
	ID           string                 `json:"id"`
	Aud          string                 `json:"aud,omitempty"`
	Role         string                 `json:"role,omitempty"`
	Email        string                 `json:"email"`
	Phone        string                 `json:"phone,omitempty"`
	AppMetadata  map[string]interface{} `json:"app_metadata,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at,omitempty"`
	UpdatedAt    time.Time              `json:"updated_at,omitempty"`
}

// Session represents an auth session. ExpiresAt is epoch seconds.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// SignUpResult is the raw signup response plus the probed user ID. The signup
// endpoint returns the user either top-level or nested under "user" depending
// on whether email confirmation is enabled, so callers get both the raw body
// and the ID extracted from whichever shape came back.
type SignUpResult struct {
	UserID string
	Raw    []byte
}

// =============================================================================
// Query Types
// =============================================================================

// FilterOperator for query filters.
type FilterOperator string

const (
	OpEq    FilterOperator = "eq"
	OpNeq   FilterOperator = "neq"
	OpGt    FilterOperator = "gt"
	OpGte   FilterOperator = "gte"
	OpLt    FilterOperator = "lt"
	OpLte   FilterOperator = "lte"
	OpLike  FilterOperator = "like"
	OpILike FilterOperator = "ilike"
	OpIs    FilterOperator = "is"
	OpIn    FilterOperator = "in"
)

// OrderDirection for sorting.
type OrderDirection string

const (
	OrderAsc  OrderDirection = "asc"
	OrderDesc OrderDirection = "desc"
)
