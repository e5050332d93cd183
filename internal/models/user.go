package models

import (
	"time"
)

// User represents a user in the system
type User struct {
	ID           string     `json:"id"`
	AccountID    string     `json:"accountId"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never expose in JSON
	Name         *string    `json:"name,omitempty"`
	Phone        *string    `json:"phone,omitempty"`
	Roles        []string   `json:"roles"`
	IsActive     bool       `json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// CreateUserRequest represents the request body for creating a new user
type CreateUserRequest struct {
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=8"`
	Name      *string  `json:"name,omitempty" validate:"omitempty,max=255"`
	Phone     *string  `json:"phone,omitempty" validate:"omitempty,max=32"`
	AccountID *string  `json:"accountId,omitempty"` // Optional: platform admins can specify, others use their own
	Roles     []string `json:"roles" validate:"required,min=1,dive,oneof=admin owner staff"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Name     *string  `json:"name,omitempty" validate:"omitempty,max=255"`
	Phone    *string  `json:"phone,omitempty" validate:"omitempty,max=32"`
	Roles    []string `json:"roles,omitempty" validate:"omitempty,dive,oneof=admin owner staff"`
	IsActive *bool    `json:"isActive,omitempty"`
}

// LoginRequest represents the request body for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the response body for successful login
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// RefreshRequest carries the refresh token for /auth/refresh and /auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// TokenResponse is the body returned by /auth/refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest represents the request body for changing password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

// UpdateProfileRequest represents the request body for updating user profile
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

const (
	RoleAdmin = "admin"
	RoleOwner = "owner"
	RoleStaff = "staff"
)

// ValidRoles defines the available roles in the system
var ValidRoles = []string{
	RoleAdmin,
	RoleOwner,
	RoleStaff,
}

// IsValidRole checks if a role is valid
func IsValidRole(role string) bool {
	for _, validRole := range ValidRoles {
		if role == validRole {
			return true
		}
	}
	return false
}

// ValidateRoles checks if all provided roles are valid
func ValidateRoles(roles []string) bool {
	for _, role := range roles {
		if !IsValidRole(role) {
			return false
		}
	}
	return len(roles) > 0
}

// HasRole checks if the user has a specific role
func (u *User) HasRole(role string) bool {
	for _, userRole := range u.Roles {
		if userRole == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks if the user has any of the specified roles
func (u *User) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// GetDisplayName returns the user's display name
func (u *User) GetDisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}

// Redacted returns a copy of the user with sensitive fields removed
func (u *User) Redacted() User {
	out := *u
	out.PasswordHash = ""
	return out
}
