// Package applications manages adoption applications.
package applications

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pawsadopt/pawsadopt/internal/domain"
	"github.com/pawsadopt/pawsadopt/internal/services/auth"
	"github.com/pawsadopt/pawsadopt/internal/services/notifications"
	"github.com/pawsadopt/pawsadopt/internal/services/pets"
	"github.com/pawsadopt/pawsadopt/internal/supabase"
)

// Service reads and writes the applications table.
type Service struct {
	client        *supabase.Client
	auth          *auth.Service
	pets          *pets.Service
	notifications *notifications.Service
	log           zerolog.Logger
}

// New constructs an applications service.
func New(client *supabase.Client, authSvc *auth.Service, petsSvc *pets.Service, notifSvc *notifications.Service, log zerolog.Logger) *Service {
	return &Service{
		client:        client,
		auth:          authSvc,
		pets:          petsSvc,
		notifications: notifSvc,
		log:           log.With().Str("service", "applications").Logger(),
	}
}

// Submit files a pending adoption application for the signed-in user and
// notifies them. Requires authentication; nothing is sent otherwise.
func (s *Service) Submit(ctx context.Context, petID string, form domain.ApplicationForm) (*domain.Application, error) {
	user, err := s.auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"user_id":   user.ID,
		"pet_id":    petID,
		"status":    domain.StatusPending,
		"form_data": form,
	}
	var created []domain.Application
	if err := s.client.From("applications").Insert(payload).ExecuteInto(ctx, &created); err != nil {
		return nil, fmt.Errorf("submit application: %w", err)
	}

	if pet, petErr := s.pets.Get(ctx, petID); petErr == nil && pet != nil {
		s.notifications.ApplicationSubmitted(ctx, user.ID, petID, pet.Name, pet.Image)
	}

	s.log.Info().Str("user_id", user.ID).Str("pet_id", petID).Msg("application submitted")
	if len(created) > 0 {
		return &created[0], nil
	}
	return nil, nil
}

// Mine returns the signed-in user's applications, newest first, with pet and
// shelter joined client-side. Signed-out users have none.
func (s *Service) Mine(ctx context.Context) ([]domain.Application, error) {
	user, err := s.auth.CurrentUser(ctx)
	if err != nil || user == nil {
		return nil, err
	}

	var apps []domain.Application
	err = s.client.From("applications").Select("*").
		Eq("user_id", user.ID).
		Order("created_at", supabase.OrderDesc).
		ExecuteInto(ctx, &apps)
	if err != nil {
		return nil, fmt.Errorf("fetch applications: %w", err)
	}

	for i := range apps {
		pet, petErr := s.pets.Get(ctx, apps[i].PetID)
		if petErr != nil {
			s.log.Warn().Err(petErr).Str("pet_id", apps[i].PetID).Msg("pet lookup failed")
			continue
		}
		apps[i].Pet = pet
	}
	return apps, nil
}

// Cancel moves one of the signed-in user's applications to cancelled. Only
// the owner's own rows match the filter, so foreign IDs are a no-op.
func (s *Service) Cancel(ctx context.Context, applicationID string) error {
	user, err := s.auth.RequireUser(ctx)
	if err != nil {
		return err
	}

	_, err = s.client.From("applications").
		Update(map[string]interface{}{"status": domain.StatusCancelled}).
		Eq("id", applicationID).
		Eq("user_id", user.ID).
		Execute(ctx)
	if err != nil {
		return fmt.Errorf("cancel application: %w", err)
	}
	s.log.Info().Str("application_id", applicationID).Msg("application cancelled")
	return nil
}

// PendingCount returns the signed-in user's pending application count; zero
// when signed out.
func (s *Service) PendingCount(ctx context.Context) (int64, error) {
	user, err := s.auth.CurrentUser(ctx)
	if err != nil || user == nil {
		return 0, err
	}
	count, err := s.client.From("applications").Select("*").
		Eq("user_id", user.ID).
		Eq("status", domain.StatusPending).
		ExecuteCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("count applications: %w", err)
	}
	return count, nil
}
