package domain

// Message sender types.
const (
	SenderUser    = "user"
	SenderShelter = "shelter"
)

// Conversation is a row of the conversations table. Shelter and LastMessage
// are filled in by separate lookups.
type Conversation struct {
	ID        string `json:"id,omitempty"`
	UserID    string `json:"user_id"`
	ShelterID string `json:"shelter_id"`
	CreatedAt string `json:"created_at,omitempty"`

	Shelter         *Shelter `json:"shelter,omitempty"`
	LastMessage     string   `json:"last_message,omitempty"`
	LastMessageTime string   `json:"last_message_time,omitempty"`
}

// Message is a row of the messages table.
type Message struct {
	ID             string `json:"id,omitempty"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	SenderType     string `json:"sender_type"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at,omitempty"`
}
