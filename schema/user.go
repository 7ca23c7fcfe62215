package schema

import "time"

const (
	UserCollection = "users"
)

const (
	RoleDonor     = "donor"
	RoleRequester = "requester"
	RoleAdmin     = "admin"
)

// User is a person using the system, either donating or requesting
type User struct {
	ID               string     `json:"id" bson:"_id"`
	Name             string     `json:"name" bson:"name"`
	Email            string     `json:"email" bson:"email"`
	PasswordHash     string     `json:"-" bson:"password"`
	BloodGroup       string     `json:"bloodGroup" bson:"blood_group"`
	Role             string     `json:"role" bson:"role"`
	Location         *Location  `json:"location,omitempty" bson:"location,omitempty"`
	Point            *GeoJSON   `json:"-" bson:"point,omitempty"`
	IsAvailable      bool       `json:"isAvailable" bson:"is_available"`
	LastDonationDate *time.Time `json:"lastDonationDate,omitempty" bson:"last_donation_date,omitempty"`
	CreatedAt        time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt        time.Time  `json:"updatedAt" bson:"updated_at"`
}

// HasLocation tells if the user can take part in distance queries
func (u *User) HasLocation() bool {
	return u != nil && u.Location != nil
}

// Summary is the public part of a user shown to counterparts
type Summary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	BloodGroup  string    `json:"bloodGroup"`
	Role        string    `json:"role"`
	IsAvailable bool      `json:"isAvailable"`
	Location    *Location `json:"location,omitempty"`
}

// Summary returns the public view of a user
func (u *User) Summary() Summary {
	return Summary{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		BloodGroup:  u.BloodGroup,
		Role:        u.Role,
		IsAvailable: u.IsAvailable,
		Location:    u.Location,
	}
}
