// Package admin exposes the back-office operations: user listing, pet CRUD
// and application review.
package admin

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pawsadopt/pawsadopt/internal/domain"
	"github.com/pawsadopt/pawsadopt/internal/services/notifications"
	"github.com/pawsadopt/pawsadopt/internal/supabase"
)

// Service performs the back-office operations. Authorization is enforced by
// the backend's row-level security under the caller's session.
type Service struct {
	client        *supabase.Client
	notifications *notifications.Service
	log           zerolog.Logger
}

// New constructs an admin service.
func New(client *supabase.Client, notifSvc *notifications.Service, log zerolog.Logger) *Service {
	return &Service{client: client, notifications: notifSvc, log: log.With().Str("service", "admin").Logger()}
}

// Users returns all profile rows, newest first.
func (s *Service) Users(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := s.client.From("users").Select("*").
		Order("created_at", supabase.OrderDesc).
		ExecuteInto(ctx, &users)
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	return users, nil
}

// Pets returns all pets, newest first, with shelters joined client-side.
func (s *Service) Pets(ctx context.Context) ([]domain.Pet, error) {
	var pets []domain.Pet
	err := s.client.From("pets").Select("*").
		Order("created_at", supabase.OrderDesc).
		ExecuteInto(ctx, &pets)
	if err != nil {
		return nil, fmt.Errorf("fetch pets: %w", err)
	}

	shelters := make(map[string]*domain.Shelter)
	for i := range pets {
		id := pets[i].ShelterID
		if id == "" {
			continue
		}
		if shelter, ok := shelters[id]; ok {
			pets[i].Shelter = shelter
			continue
		}
		var shelter domain.Shelter
		err := s.client.From("shelters").Select("*").Eq("id", id).Single().ExecuteInto(ctx, &shelter)
		if supabase.IsNotFound(err) {
			shelters[id] = nil
			continue
		}
		if err != nil {
			s.log.Warn().Err(err).Str("shelter_id", id).Msg("shelter lookup failed")
			continue
		}
		shelters[id] = &shelter
		pets[i].Shelter = &shelter
	}
	return pets, nil
}

// CreatePet inserts a pet and returns the created row.
func (s *Service) CreatePet(ctx context.Context, pet domain.Pet) (*domain.Pet, error) {
	var created []domain.Pet
	if err := s.client.From("pets").Insert(pet).ExecuteInto(ctx, &created); err != nil {
		return nil, fmt.Errorf("create pet: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("create pet: backend returned no row")
	}
	s.log.Info().Str("pet_id", created[0].ID).Msg("pet created")
	return &created[0], nil
}

// UpdatePet patches a pet and returns the updated row.
func (s *Service) UpdatePet(ctx context.Context, id string, updates map[string]interface{}) (*domain.Pet, error) {
	var updated []domain.Pet
	err := s.client.From("pets").Update(updates).Eq("id", id).ExecuteInto(ctx, &updated)
	if err != nil {
		return nil, fmt.Errorf("update pet: %w", err)
	}
	if len(updated) == 0 {
		return nil, supabase.NewError(supabase.KindNotFound, fmt.Sprintf("pet %s not found", id), 0)
	}
	return &updated[0], nil
}

// DeletePet removes a pet.
func (s *Service) DeletePet(ctx context.Context, id string) error {
	if _, err := s.client.From("pets").Delete().Eq("id", id).Execute(ctx); err != nil {
		return fmt.Errorf("delete pet: %w", err)
	}
	s.log.Info().Str("pet_id", id).Msg("pet deleted")
	return nil
}

// Applications returns all applications, newest first, with pet and applicant
// joined client-side.
func (s *Service) Applications(ctx context.Context) ([]domain.Application, error) {
	var apps []domain.Application
	err := s.client.From("applications").Select("*").
		Order("created_at", supabase.OrderDesc).
		ExecuteInto(ctx, &apps)
	if err != nil {
		return nil, fmt.Errorf("fetch applications: %w", err)
	}

	for i := range apps {
		var pet domain.Pet
		err := s.client.From("pets").Select("*").Eq("id", apps[i].PetID).Single().ExecuteInto(ctx, &pet)
		if err == nil {
			apps[i].Pet = &pet
		}

		var user domain.User
		err = s.client.From("users").Select("*").Eq("id", apps[i].UserID).Single().ExecuteInto(ctx, &user)
		if err == nil {
			apps[i].User = &user
		}
	}
	return apps, nil
}

// ReviewApplication approves or rejects an application and notifies the
// applicant.
func (s *Service) ReviewApplication(ctx context.Context, id, status string) error {
	if status != domain.StatusApproved && status != domain.StatusRejected {
		return supabase.NewError(supabase.KindValidation, fmt.Sprintf("invalid review status %q", status), 0)
	}

	var updated []domain.Application
	err := s.client.From("applications").
		Update(map[string]interface{}{"status": status}).
		Eq("id", id).
		ExecuteInto(ctx, &updated)
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	if len(updated) == 0 {
		return supabase.NewError(supabase.KindNotFound, fmt.Sprintf("application %s not found", id), 0)
	}

	app := updated[0]
	var pet domain.Pet
	petErr := s.client.From("pets").Select("*").Eq("id", app.PetID).Single().ExecuteInto(ctx, &pet)
	if petErr != nil {
		s.log.Warn().Err(petErr).Str("pet_id", app.PetID).Msg("pet lookup failed, skipping notification")
		return nil
	}

	switch status {
	case domain.StatusApproved:
		s.notifications.ApplicationApproved(ctx, app.UserID, pet.ID, pet.Name, pet.Image)
	case domain.StatusRejected:
		s.notifications.ApplicationRejected(ctx, app.UserID, pet.ID, pet.Name, pet.Image)
	}

	s.log.Info().Str("application_id", id).Str("status", status).Msg("application reviewed")
	return nil
}
