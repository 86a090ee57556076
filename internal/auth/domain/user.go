package domain

import (
	"encoding/json"
	"time"
)

// Role is the closed set of back-office roles. Anything outside this set is
// rejected at the storage boundary.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOwner    Role = "owner"
	RoleEmployee Role = "employee"
	RoleViewer   Role = "viewer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOwner, RoleEmployee, RoleViewer:
		return true
	}
	return false
}

type User struct {
	ID              string
	Email           string
	PasswordHash    string
	FirstName       string
	LastName        string
	BusinessName    string
	Role            Role
	IsActive        bool
	IsEmailVerified bool
	LoginAttempts   int
	LockUntil       *time.Time
	LastLogin       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsLocked reports whether the account is inside an active lockout window.
func (u *User) IsLocked() bool {
	return u.LockUntil != nil && time.Now().Before(*u.LockUntil)
}

// MarshalJSON keeps the credential hash and lockout counters out of every
// external representation of a user.
func (u User) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID              string     `json:"id"`
		Email           string     `json:"email"`
		FirstName       string     `json:"first_name"`
		LastName        string     `json:"last_name"`
		BusinessName    string     `json:"business_name,omitempty"`
		Role            Role       `json:"role"`
		IsActive        bool       `json:"is_active"`
		IsEmailVerified bool       `json:"is_email_verified"`
		LastLogin       *time.Time `json:"last_login,omitempty"`
		CreatedAt       time.Time  `json:"created_at"`
		UpdatedAt       time.Time  `json:"updated_at"`
	}{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		BusinessName:    u.BusinessName,
		Role:            u.Role,
		IsActive:        u.IsActive,
		IsEmailVerified: u.IsEmailVerified,
		LastLogin:       u.LastLogin,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	})
}

// UserUpdate carries the optional profile fields an update may touch. Nil
// means "leave unchanged".
type UserUpdate struct {
	FirstName    *string
	LastName     *string
	BusinessName *string
	Role         *Role
	IsActive     *bool
}

// LockState is the post-increment lockout state returned by the account
// store so the orchestrator never has to read-modify-write the counter.
type LockState struct {
	Attempts  int
	LockUntil *time.Time
}

type RefreshToken struct {
	ID                string
	UserID            string
	Token             string
	DeviceFingerprint string
	IPAddress         string
	UserAgent         string
	ExpiresAt         time.Time
	CreatedAt         time.Time
}

type LoginAttempt struct {
	ID          string
	Email       string
	IPAddress   string
	AttemptTime time.Time
	Successful  bool
}

// ActionToken is a single-use email-verification or password-reset token.
type ActionToken struct {
	Token     string
	UserID    string
	Purpose   string
	ExpiresAt time.Time
	CreatedAt time.Time
}
