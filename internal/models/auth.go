package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RegisterRequest creates a new operator account. The role is assigned by
// the server: the first account becomes ADMIN, later ones STAFF.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name" validate:"notblank"`
}

// SignInRequest holds credentials for authenticating a user.
type SignInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse returns the issued session token and profile.
type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        UserInfo  `json:"user"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	Role        UserRole   `json:"role"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens. The registered ID
// (jti) is what sign-out revokes.
type JWTClaims struct {
	UserID      string   `json:"user_id"`
	Role        UserRole `json:"role"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	jwt.RegisteredClaims
}

// Session returns the caller identity carried by the claims.
func (c *JWTClaims) Session() Session {
	return Session{UserID: c.UserID, Email: c.Email, Role: c.Role}
}
