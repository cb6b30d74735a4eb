// Package domain holds the application's plain records, mirroring backend
// table rows. Relationships are foreign keys; joined fields are filled in by
// the services through extra lookups, never by the REST layer.
package domain

// User is a row of the users profile table (distinct from the auth user).
type User struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Location  string `json:"location,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Bio       string `json:"bio,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// UserStats summarizes a user's adoption activity.
type UserStats struct {
	Applications int64 `json:"applications"`
	Favorites    int64 `json:"favorites"`
	Adopted      int64 `json:"adopted"`
}
