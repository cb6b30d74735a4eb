// Package auth exposes the sign-up/sign-in lifecycle and the current-user
// lookup the other services build on.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pawsadopt/pawsadopt/internal/domain"
	"github.com/pawsadopt/pawsadopt/internal/supabase"
)

// ErrNotSignedIn is returned by operations that require an authenticated
// user. The message is surfaced verbatim to the user.
var ErrNotSignedIn = errors.New("请先登录")

// Defaults applied to a freshly created profile row.
const (
	defaultAvatarURL = "https://images.unsplash.com/photo-1438761681033-6461ffad8d80?q=80&w=200&auto=format&fit=crop"
	defaultLocation  = "北京市"
)

// Service performs authentication and keeps the users profile table in step
// with the auth backend.
type Service struct {
	client *supabase.Client
	log    zerolog.Logger
}

// New constructs an auth service.
func New(client *supabase.Client, log zerolog.Logger) *Service {
	return &Service{client: client, log: log.With().Str("service", "auth").Logger()}
}

// SignUp registers a new auth user and creates the matching profile row. The
// profile insert reuses the user ID probed from the signup response.
func (s *Service) SignUp(ctx context.Context, email, password, name string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return nil, supabase.NewError(supabase.KindValidation, "email, password and name are required", 0)
	}

	result, err := s.client.Auth().SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if result.UserID == "" {
		s.log.Error().Str("email", email).Msg("signup response carried no user id")
		return nil, errors.New("注册失败：无法获取用户ID")
	}

	profile := domain.User{
		ID:        result.UserID,
		Email:     email,
		Name:      name,
		AvatarURL: defaultAvatarURL,
		Location:  defaultLocation,
	}
	var created []domain.User
	if err := s.client.From("users").Insert(profile).ExecuteInto(ctx, &created); err != nil {
		return nil, fmt.Errorf("create user profile: %w", err)
	}

	s.log.Info().Str("user_id", result.UserID).Msg("user signed up")
	if len(created) > 0 {
		return &created[0], nil
	}
	return &profile, nil
}

// SignIn authenticates with email/password. The returned session is already
// persisted; subsequent requests carry its bearer token.
func (s *Service) SignIn(ctx context.Context, email, password string) (*supabase.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, supabase.NewError(supabase.KindValidation, "email and password are required", 0)
	}
	session, err := s.client.Auth().SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("email", email).Msg("user signed in")
	return session, nil
}

// SignOut drops the session; no backend call is made.
func (s *Service) SignOut(ctx context.Context) error {
	if err := s.client.Auth().SignOut(ctx); err != nil {
		return err
	}
	s.log.Info().Msg("user signed out")
	return nil
}

// CurrentUser returns the signed-in auth user, or nil when signed out.
func (s *Service) CurrentUser(ctx context.Context) (*supabase.User, error) {
	return s.client.Auth().GetUser(ctx)
}

// RequireUser returns the signed-in auth user or ErrNotSignedIn.
func (s *Service) RequireUser(ctx context.Context) (*supabase.User, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotSignedIn
	}
	return user, nil
}

// Session returns the current session, or nil when signed out or expired.
func (s *Service) Session(ctx context.Context) (*supabase.Session, error) {
	return s.client.Auth().GetSession(ctx)
}

// OnAuthStateChange registers a listener for session transitions. Unlike a
// one-shot check, the listener keeps firing on every later sign-in and
// sign-out until the returned func is called.
func (s *Service) OnAuthStateChange(listener supabase.AuthListener) func() {
	return s.client.Auth().OnAuthStateChange(listener)
}
