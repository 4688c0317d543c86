package entities

// UserProfile is the profile of an authenticated user. ID equals the auth
// identity; Email is owned by the auth provider and never changed here.
type UserProfile struct {
	ID         string `json:"id" db:"id"`
	Email      string `json:"email" db:"email"`
	Name       string `json:"name" db:"name"`
	Phone      string `json:"phone" db:"phone"`
	Occupation string `json:"occupation" db:"occupation"`
}

// DisplayName returns the name, or the email when no name was set
func (u *UserProfile) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Session identifies the signed-in user of a request
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
