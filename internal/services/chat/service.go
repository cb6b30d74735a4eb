// Package chat manages conversations with shelters and their messages.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pawsadopt/pawsadopt/internal/domain"
	"github.com/pawsadopt/pawsadopt/internal/services/auth"
	"github.com/pawsadopt/pawsadopt/internal/services/pets"
	"github.com/pawsadopt/pawsadopt/internal/supabase"
)

// Service reads and writes the conversations and messages tables.
type Service struct {
	client *supabase.Client
	auth   *auth.Service
	pets   *pets.Service
	log    zerolog.Logger
}

// New constructs a chat service.
func New(client *supabase.Client, authSvc *auth.Service, petsSvc *pets.Service, log zerolog.Logger) *Service {
	return &Service{client: client, auth: authSvc, pets: petsSvc, log: log.With().Str("service", "chat").Logger()}
}

// GetOrCreateConversation finds the signed-in user's conversation with a
// shelter, creating it on first contact. The shelter must exist.
func (s *Service) GetOrCreateConversation(ctx context.Context, shelterID string) (*domain.Conversation, error) {
	user, err := s.auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	shelter, err := s.pets.Shelter(ctx, shelterID)
	if err != nil {
		return nil, err
	}
	if shelter == nil {
		return nil, supabase.NewError(supabase.KindNotFound, fmt.Sprintf("shelter %s not found", shelterID), 0)
	}

	var conversations []domain.Conversation
	err = s.client.From("conversations").Select("*").
		Eq("user_id", user.ID).
		Eq("shelter_id", shelterID).
		ExecuteInto(ctx, &conversations)
	if err != nil {
		return nil, fmt.Errorf("fetch conversation: %w", err)
	}
	if len(conversations) > 0 {
		conv := conversations[0]
		conv.Shelter = shelter
		return &conv, nil
	}

	payload := map[string]interface{}{
		"user_id":    user.ID,
		"shelter_id": shelterID,
	}
	var created []domain.Conversation
	if err := s.client.From("conversations").Insert(payload).ExecuteInto(ctx, &created); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("create conversation: backend returned no row")
	}

	conv := created[0]
	conv.Shelter = shelter
	s.log.Info().Str("conversation_id", conv.ID).Str("shelter_id", shelterID).Msg("conversation created")
	return &conv, nil
}

// Conversations returns the signed-in user's conversations, newest first,
// with shelter and latest message joined client-side.
func (s *Service) Conversations(ctx context.Context) ([]domain.Conversation, error) {
	user, err := s.auth.CurrentUser(ctx)
	if err != nil || user == nil {
		return nil, err
	}

	var conversations []domain.Conversation
	err = s.client.From("conversations").Select("*").
		Eq("user_id", user.ID).
		Order("created_at", supabase.OrderDesc).
		ExecuteInto(ctx, &conversations)
	if err != nil {
		return nil, fmt.Errorf("fetch conversations: %w", err)
	}

	for i := range conversations {
		conv := &conversations[i]

		shelter, shelterErr := s.pets.Shelter(ctx, conv.ShelterID)
		if shelterErr != nil {
			s.log.Warn().Err(shelterErr).Str("shelter_id", conv.ShelterID).Msg("shelter lookup failed")
		} else {
			conv.Shelter = shelter
		}

		var latest []domain.Message
		err = s.client.From("messages").Select("*").
			Eq("conversation_id", conv.ID).
			Order("created_at", supabase.OrderDesc).
			Limit(1).
			ExecuteInto(ctx, &latest)
		if err != nil {
			s.log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("last message lookup failed")
			continue
		}
		if len(latest) > 0 {
			conv.LastMessage = latest[0].Content
			conv.LastMessageTime = latest[0].CreatedAt
		} else {
			conv.LastMessageTime = conv.CreatedAt
		}
	}
	return conversations, nil
}

// Messages returns a conversation's messages in chronological order.
func (s *Service) Messages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var messages []domain.Message
	err := s.client.From("messages").Select("*").
		Eq("conversation_id", conversationID).
		Order("created_at", supabase.OrderAsc).
		ExecuteInto(ctx, &messages)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	return messages, nil
}

// Send posts a message from the signed-in user into a conversation and
// returns the created row.
func (s *Service) Send(ctx context.Context, conversationID, content string) (*domain.Message, error) {
	user, err := s.auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, supabase.NewError(supabase.KindValidation, "message content is required", 0)
	}

	payload := map[string]interface{}{
		"conversation_id": conversationID,
		"sender_id":       user.ID,
		"sender_type":     domain.SenderUser,
		"content":         content,
	}
	var created []domain.Message
	if err := s.client.From("messages").Insert(payload).ExecuteInto(ctx, &created); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	if len(created) == 0 {
		return nil, nil
	}
	return &created[0], nil
}

// ConversationByPetID resolves a pet to its shelter and returns the
// conversation with that shelter, creating it if needed.
func (s *Service) ConversationByPetID(ctx context.Context, petID string) (*domain.Conversation, error) {
	pet, err := s.pets.Get(ctx, petID)
	if err != nil {
		return nil, err
	}
	if pet == nil || pet.ShelterID == "" {
		return nil, nil
	}
	return s.GetOrCreateConversation(ctx, pet.ShelterID)
}

// Subscribe polls a conversation for new messages and invokes handler for
// each. Stop by cancelling ctx or calling Stop on the returned poller.
func (s *Service) Subscribe(ctx context.Context, conversationID string, interval time.Duration, handler func(domain.Message)) (*supabase.ChangePoller, error) {
	poller := s.client.NewChangePoller("messages", interval).
		Where("conversation_id", supabase.OpEq, conversationID).
		OnChange(func(record map[string]interface{}) {
			handler(messageFromRecord(record))
		})
	if err := poller.Start(ctx); err != nil {
		return nil, err
	}
	return poller, nil
}

func messageFromRecord(record map[string]interface{}) domain.Message {
	str := func(key string) string {
		v, _ := record[key].(string)
		return v
	}
	return domain.Message{
		ID:             str("id"),
		ConversationID: str("conversation_id"),
		SenderID:       str("sender_id"),
		SenderType:     str("sender_type"),
		Content:        str("content"),
		CreatedAt:      str("created_at"),
	}
}
