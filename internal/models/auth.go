package models

import "github.com/golang-jwt/jwt/v5"

// Caller identifies whoever invoked an action. A zero Caller is unauthenticated.
type Caller struct {
	UserID string
}

// Authenticated reports whether the identity provider vouched for the caller.
func (c Caller) Authenticated() bool {
	return c.UserID != ""
}

// IdentityClaims is the token payload issued by the identity provider. The subject is the user id.
type IdentityClaims struct {
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Caller converts verified claims into a caller identity.
func (c *IdentityClaims) Caller() Caller {
	if c == nil {
		return Caller{}
	}
	return Caller{UserID: c.Subject}
}
