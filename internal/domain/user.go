package domain

import (
	"regexp"
	"time"
)

var handleRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)

// User represents an account that can host, speak, react and follow
type User struct {
	ID           string    `json:"id"`
	Handle       string    `json:"handle"`
	DisplayName  string    `json:"display_name"`
	Bio          string    `json:"bio,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate validates the user fields
func (u *User) Validate() error {
	if !handleRegex.MatchString(u.Handle) {
		return NewValidationError("handle", "handle must be 3-30 letters, digits or underscores")
	}
	if len(u.DisplayName) > 50 {
		return NewValidationError("display_name", "display name must be at most 50 characters")
	}
	if len(u.Bio) > 160 {
		return NewValidationError("bio", "bio must be at most 160 characters")
	}
	if u.PasswordHash == "" {
		return NewValidationError("password", "password is required")
	}
	return nil
}

// UserSummary is a search result row as shown by the search screen
type UserSummary struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	IsFollowing bool   `json:"is_following"`
}

// ToSummary converts a user to a search row
func (u *User) ToSummary(isFollowing bool) UserSummary {
	return UserSummary{
		ID:          u.ID,
		Handle:      u.Handle,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		IsFollowing: isFollowing,
	}
}

// UserRegisterRequest represents a user registration request
type UserRegisterRequest struct {
	Handle      string `json:"handle" binding:"required,min=3,max=30"`
	DisplayName string `json:"display_name" binding:"max=50"`
	Bio         string `json:"bio" binding:"max=160"`
	AvatarURL   string `json:"avatar_url" binding:"omitempty,url"`
	Password    string `json:"password" binding:"required,min=8"`
}

// UserLoginRequest represents a user login request
type UserLoginRequest struct {
	Handle   string `json:"handle" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthTokens represents authentication tokens
type AuthTokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	User   UserSummary `json:"user"`
	Tokens *AuthTokens `json:"tokens"`
}

// UserProfile is the public view of a user
type UserProfile struct {
	UserSummary
	Bio           string    `json:"bio,omitempty"`
	BioHTML       string    `json:"bio_html,omitempty"`
	FollowerCount int       `json:"follower_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserUpdateRequest represents a profile update
type UserUpdateRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=50"`
	Bio         *string `json:"bio" binding:"omitempty,max=160"`
	AvatarURL   *string `json:"avatar_url" binding:"omitempty,url"`
}
