package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the signed payload of an access token. Values are trusted as of
// issuance; profile changes show up only after the next login.
type Claims struct {
	UserID     int64  `json:"userId"`
	Login      string `json:"login"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	MiddleName string `json:"middleName"`
	jwt.RegisteredClaims
}

// ExpiresAtTime returns the expiry or the zero time.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// MeView is returned by the "who am I" endpoint.
type MeView struct {
	ID         int64     `json:"id"`
	Login      string    `json:"login"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	MiddleName string    `json:"middleName"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// TokenResponse is the body of successful register and login calls.
type TokenResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}
