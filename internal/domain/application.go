package domain

// Application statuses.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

// ApplicationForm is the adoption questionnaire captured with an application.
type ApplicationForm struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	Job            string `json:"job"`
	HousingType    string `json:"housingType"`
	HasPets        bool   `json:"hasPets"`
	Reason         string `json:"reason"`
	Experience     string `json:"experience"`
	TimeCommitment int    `json:"timeCommitment"`
	ActivityLevel  string `json:"activityLevel"`
}

// Application is a row of the applications table. Pet and User are filled in
// by separate lookups.
type Application struct {
	ID        string          `json:"id,omitempty"`
	UserID    string          `json:"user_id"`
	PetID     string          `json:"pet_id"`
	Status    string          `json:"status"`
	FormData  ApplicationForm `json:"form_data"`
	CreatedAt string          `json:"created_at,omitempty"`

	Pet  *Pet  `json:"pet,omitempty"`
	User *User `json:"user,omitempty"`
}

// Favorite is a row of the favorites table.
type Favorite struct {
	ID        string `json:"id,omitempty"`
	UserID    string `json:"user_id"`
	PetID     string `json:"pet_id"`
	CreatedAt string `json:"created_at,omitempty"`
}
