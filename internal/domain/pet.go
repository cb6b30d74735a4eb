package domain

// Pet categories.
const (
	CategoryDogs  = "dogs"
	CategoryCats  = "cats"
	CategoryBirds = "birds"
)

// Shelter is a row of the shelters table.
type Shelter struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Logo      string `json:"logo"`
	Distance  string `json:"distance"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Pet is a row of the pets table. Shelter is filled in by a separate lookup
// keyed on ShelterID.
type Pet struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Breed       string   `json:"breed"`
	Age         string   `json:"age"`
	AgeUnit     string   `json:"age_unit"`
	Gender      string   `json:"gender"`
	Distance    string   `json:"distance"`
	Image       string   `json:"image"`
	Price       string   `json:"price"`
	Location    string   `json:"location"`
	Weight      string   `json:"weight"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	ShelterID   string   `json:"shelter_id"`
	CreatedAt   string   `json:"created_at,omitempty"`

	Shelter *Shelter `json:"shelter,omitempty"`
}

// Category is a browsable pet category.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}
