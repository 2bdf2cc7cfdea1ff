package users

import "time"

// Roles a user account can hold.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// User is the full account record. PasswordHash never leaves the domain layer.
type User struct {
	ID                  string
	Email               string
	PasswordHash        string
	Name                string
	Role                string
	EmailVerified       bool
	VerificationToken   *string
	VerificationExpires *time.Time
	IsBlocked           bool
	CreatedAt           time.Time
}

// Projection is the public shape embedded in API responses.
type Projection struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (u *User) Projection() Projection {
	return Projection{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// Profile is the authenticated user's own view of their account.
type Profile struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AdminUser is the admin listing row with derived activity counts.
type AdminUser struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"emailVerified"`
	IsBlocked     bool      `json:"isBlocked"`
	CreatedAt     time.Time `json:"createdAt"`
	EventsCreated int       `json:"eventsCreated"`
	Registrations int       `json:"registrations"`
}

// Session is the result of a successful login.
type Session struct {
	Token string     `json:"token"`
	User  Projection `json:"user"`
}

// VerifyResult reports the outcome of consuming a verification token.
type VerifyResult struct {
	Verified        bool
	AlreadyVerified bool
}

type CreateParams struct {
	Email               string
	PasswordHash        string
	Name                string
	Role                string
	EmailVerified       bool
	VerificationToken   *string
	VerificationExpires *time.Time
}
