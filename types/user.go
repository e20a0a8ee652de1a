package types

import "time"

// Role names understood by the API.
const (
	RoleAdmin     = "admin"
	RoleEmployee  = "employee"
	RoleApplicant = "applicant"
)

// User represents a staff account in the system.
// It contains identity, contact details, role and creation metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int64 `json:"id" db:"id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Email is the user's unique email address, used to log in.
	Email string `json:"email" db:"email"`

	// Phone is the user's optional, unique phone number.
	Phone *string `json:"phone" db:"phone"`

	// Role indicates the user's authorization level
	// within the system ("admin", "employee" or "applicant").
	Role string `json:"role" db:"role"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserSummary is the reduced user view returned on login.
type UserSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Summary reduces the user to the fields returned alongside a token.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}
