package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload is the identity minted into an access token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Name   string
	Role   string
	JTI    string
}

// AccessTokenClaims is the JWT claims shape carried by every access token.
type AccessTokenClaims struct {
	UserID uuid.UUID `json:"uid"`
	Name   string    `json:"name,omitempty"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}
