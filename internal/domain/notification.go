package domain

// Notification types.
const (
	NotificationApplicationSubmitted = "application_submitted"
	NotificationApplicationApproved  = "application_approved"
	NotificationApplicationRejected  = "application_rejected"
	NotificationSystem               = "system"
)

// Notification is a row of the notifications table.
type Notification struct {
	ID        string `json:"id,omitempty"`
	UserID    string `json:"user_id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	PetID     string `json:"pet_id,omitempty"`
	PetName   string `json:"pet_name,omitempty"`
	PetImage  string `json:"pet_image,omitempty"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at,omitempty"`
}
