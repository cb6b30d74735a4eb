// Package users manages the signed-in user's profile row and activity stats.
package users

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pawsadopt/pawsadopt/internal/domain"
	"github.com/pawsadopt/pawsadopt/internal/services/auth"
	"github.com/pawsadopt/pawsadopt/internal/supabase"
)

const (
	defaultAvatarURL = "https://images.unsplash.com/photo-1438761681033-6461ffad8d80?q=80&w=200&auto=format&fit=crop"
	defaultLocation  = "北京市"
	defaultName      = "新用户"

	avatarBucket = "avatars"
)

// Service reads and writes the users profile table.
type Service struct {
	client *supabase.Client
	auth   *auth.Service
	log    zerolog.Logger
}

// New constructs a users service.
func New(client *supabase.Client, authSvc *auth.Service, log zerolog.Logger) *Service {
	return &Service{client: client, auth: authSvc, log: log.With().Str("service", "users").Logger()}
}

// Profile returns the signed-in user's profile row, creating a default one
// when the auth user exists but the row does not (e.g. signup was interrupted
// between the two inserts). Nil when signed out.
func (s *Service) Profile(ctx context.Context) (*domain.User, error) {
	user, err := s.auth.CurrentUser(ctx)
	if err != nil || user == nil {
		return nil, err
	}

	var profile domain.User
	err = s.client.From("users").Select("*").Eq("id", user.ID).Single().ExecuteInto(ctx, &profile)
	if err == nil {
		return &profile, nil
	}
	if !supabase.IsNotFound(err) {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("profile missing, creating default")
	name := defaultName
	if at := strings.Index(user.Email, "@"); at > 0 {
		name = user.Email[:at]
	}
	fresh := domain.User{
		ID:        user.ID,
		Email:     user.Email,
		Name:      name,
		AvatarURL: defaultAvatarURL,
		Location:  defaultLocation,
	}
	if _, err := s.client.From("users").Insert(fresh).Execute(ctx); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return &fresh, nil
}

// Update patches the signed-in user's profile row and returns the updated
// row.
func (s *Service) Update(ctx context.Context, updates map[string]interface{}) (*domain.User, error) {
	user, err := s.auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	var updated []domain.User
	err = s.client.From("users").Update(updates).Eq("id", user.ID).ExecuteInto(ctx, &updated)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if len(updated) == 0 {
		return nil, supabase.NewError(supabase.KindNotFound, "profile not found", 0)
	}
	return &updated[0], nil
}

// UploadAvatar stores an avatar image in the avatars bucket under a name
// derived from the user ID, points the profile's avatar_url at its public
// URL and returns that URL.
func (s *Service) UploadAvatar(ctx context.Context, fileName string, data []byte) (string, error) {
	user, err := s.auth.RequireUser(ctx)
	if err != nil {
		return "", err
	}

	ext := path.Ext(fileName)
	objectPath := fmt.Sprintf("avatars/%s-%d%s", user.ID, time.Now().UnixMilli(), ext)
	contentType := mime.TypeByExtension(ext)

	if err := s.client.Storage().Upload(ctx, avatarBucket, objectPath, data, contentType); err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}

	publicURL := s.client.Storage().PublicURL(avatarBucket, objectPath)
	if _, err := s.Update(ctx, map[string]interface{}{"avatar_url": publicURL}); err != nil {
		return "", err
	}

	s.log.Info().Str("user_id", user.ID).Msg("avatar updated")
	return publicURL, nil
}

// Stats returns the signed-in user's activity counters; zeros when signed
// out.
func (s *Service) Stats(ctx context.Context) (domain.UserStats, error) {
	user, err := s.auth.CurrentUser(ctx)
	if err != nil || user == nil {
		return domain.UserStats{}, err
	}

	pending, err := s.client.From("applications").Select("*").
		Eq("user_id", user.ID).
		Eq("status", domain.StatusPending).
		ExecuteCount(ctx)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("count applications: %w", err)
	}

	favorites, err := s.client.From("favorites").Select("*").
		Eq("user_id", user.ID).
		ExecuteCount(ctx)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("count favorites: %w", err)
	}

	adopted, err := s.client.From("applications").Select("*").
		Eq("user_id", user.ID).
		Eq("status", domain.StatusApproved).
		ExecuteCount(ctx)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("count adoptions: %w", err)
	}

	return domain.UserStats{
		Applications: pending,
		Favorites:    favorites,
		Adopted:      adopted,
	}, nil
}
