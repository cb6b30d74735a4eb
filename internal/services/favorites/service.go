// Package favorites manages the signed-in user's favorited pets.
package favorites

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pawsadopt/pawsadopt/internal/domain"
	"github.com/pawsadopt/pawsadopt/internal/services/auth"
	"github.com/pawsadopt/pawsadopt/internal/services/pets"
	"github.com/pawsadopt/pawsadopt/internal/supabase"
)

// Service reads and writes the favorites table.
type Service struct {
	client *supabase.Client
	auth   *auth.Service
	pets   *pets.Service
	log    zerolog.Logger
}

// New constructs a favorites service.
func New(client *supabase.Client, authSvc *auth.Service, petsSvc *pets.Service, log zerolog.Logger) *Service {
	return &Service{client: client, auth: authSvc, pets: petsSvc, log: log.With().Str("service", "favorites").Logger()}
}

// List returns the favorited pets of the signed-in user; empty when signed
// out.
func (s *Service) List(ctx context.Context) ([]domain.Pet, error) {
	user, err := s.auth.CurrentUser(ctx)
	if err != nil || user == nil {
		return nil, err
	}

	var favorites []domain.Favorite
	err = s.client.From("favorites").Select("*").Eq("user_id", user.ID).ExecuteInto(ctx, &favorites)
	if err != nil {
		return nil, fmt.Errorf("fetch favorites: %w", err)
	}

	result := make([]domain.Pet, 0, len(favorites))
	for _, fav := range favorites {
		pet, petErr := s.pets.Get(ctx, fav.PetID)
		if petErr != nil {
			s.log.Warn().Err(petErr).Str("pet_id", fav.PetID).Msg("pet lookup failed")
			continue
		}
		if pet != nil {
			result = append(result, *pet)
		}
	}
	return result, nil
}

// IDs returns the favorited pet IDs of the signed-in user.
func (s *Service) IDs(ctx context.Context) ([]string, error) {
	user, err := s.auth.CurrentUser(ctx)
	if err != nil || user == nil {
		return nil, err
	}

	var favorites []domain.Favorite
	err = s.client.From("favorites").Select("*").Eq("user_id", user.ID).ExecuteInto(ctx, &favorites)
	if err != nil {
		return nil, fmt.Errorf("fetch favorite ids: %w", err)
	}

	ids := make([]string, 0, len(favorites))
	for _, fav := range favorites {
		ids = append(ids, fav.PetID)
	}
	return ids, nil
}

// IsFavorite reports whether the signed-in user has favorited the pet.
func (s *Service) IsFavorite(ctx context.Context, petID string) (bool, error) {
	user, err := s.auth.CurrentUser(ctx)
	if err != nil || user == nil {
		return false, err
	}

	var fav domain.Favorite
	err = s.client.From("favorites").Select("*").
		Eq("user_id", user.ID).
		Eq("pet_id", petID).
		Single().
		ExecuteInto(ctx, &fav)
	if supabase.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return true, nil
}

// Add favorites a pet for the signed-in user.
func (s *Service) Add(ctx context.Context, petID string) error {
	user, err := s.auth.RequireUser(ctx)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		"user_id": user.ID,
		"pet_id":  petID,
	}
	if _, err := s.client.From("favorites").Insert(payload).Execute(ctx); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// Remove unfavorites a pet for the signed-in user.
func (s *Service) Remove(ctx context.Context, petID string) error {
	user, err := s.auth.RequireUser(ctx)
	if err != nil {
		return err
	}

	_, err = s.client.From("favorites").Delete().
		Eq("user_id", user.ID).
		Eq("pet_id", petID).
		Execute(ctx)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// Toggle flips the favorite state and returns the new state: exactly one
// insert when it was off, exactly one delete when it was on.
func (s *Service) Toggle(ctx context.Context, petID string) (bool, error) {
	isFav, err := s.IsFavorite(ctx, petID)
	if err != nil {
		return false, err
	}

	if isFav {
		if err := s.Remove(ctx, petID); err != nil {
			return true, err
		}
		return false, nil
	}
	if err := s.Add(ctx, petID); err != nil {
		return false, err
	}
	return true, nil
}
