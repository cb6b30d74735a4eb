// Package pets exposes pet browsing and the shelter join.
package pets

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pawsadopt/pawsadopt/internal/domain"
	"github.com/pawsadopt/pawsadopt/internal/supabase"
)

// Service reads the pets and shelters tables.
type Service struct {
	client *supabase.Client
	log    zerolog.Logger
}

// New constructs a pets service.
func New(client *supabase.Client, log zerolog.Logger) *Service {
	return &Service{client: client, log: log.With().Str("service", "pets").Logger()}
}

// List returns pets, newest first, optionally filtered by category and a
// name/breed search. Shelters are joined client-side, one lookup per pet,
// because the REST layer has no relational join.
func (s *Service) List(ctx context.Context, category, search string) ([]domain.Pet, error) {
	query := s.client.From("pets").Select("*")
	if category != "" {
		query = query.Eq("category", category)
	}
	if search = strings.TrimSpace(search); search != "" {
		pattern := "*" + search + "*"
		query = query.Or(fmt.Sprintf("name.ilike.%s,breed.ilike.%s", pattern, pattern))
	}
	query = query.Order("created_at", supabase.OrderDesc)

	var pets []domain.Pet
	if err := query.ExecuteInto(ctx, &pets); err != nil {
		return nil, fmt.Errorf("fetch pets: %w", err)
	}

	for i := range pets {
		if pets[i].ShelterID == "" {
			continue
		}
		shelter, err := s.Shelter(ctx, pets[i].ShelterID)
		if err != nil {
			s.log.Warn().Err(err).Str("shelter_id", pets[i].ShelterID).Msg("shelter lookup failed")
			continue
		}
		pets[i].Shelter = shelter
	}
	return pets, nil
}

// Get returns one pet with its shelter joined, or nil when the pet does not
// exist.
func (s *Service) Get(ctx context.Context, id string) (*domain.Pet, error) {
	var pet domain.Pet
	err := s.client.From("pets").Select("*").Eq("id", id).Single().ExecuteInto(ctx, &pet)
	if supabase.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch pet %s: %w", id, err)
	}

	if pet.ShelterID != "" {
		shelter, err := s.Shelter(ctx, pet.ShelterID)
		if err != nil {
			s.log.Warn().Err(err).Str("shelter_id", pet.ShelterID).Msg("shelter lookup failed")
		} else {
			pet.Shelter = shelter
		}
	}
	return &pet, nil
}

// Shelter returns one shelter, or nil when it does not exist.
func (s *Service) Shelter(ctx context.Context, id string) (*domain.Shelter, error) {
	var shelter domain.Shelter
	err := s.client.From("shelters").Select("*").Eq("id", id).Single().ExecuteInto(ctx, &shelter)
	if supabase.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch shelter %s: %w", id, err)
	}
	return &shelter, nil
}

// Categories returns the browsable categories. Static for now.
func (s *Service) Categories() []domain.Category {
	return []domain.Category{
		{ID: domain.CategoryDogs, Name: "小狗", Icon: "pets"},
		{ID: domain.CategoryCats, Name: "小猫", Icon: "cruelty_free"},
	}
}
