package types

import "github.com/golang-jwt/jwt/v5"

// Claims are the access token claims the API accepts.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
