package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionTokenClaims is the signed cookie payload. The JWT ID (jti) is the
// session identifier; everything else about the visitor lives in Redis.
type SessionTokenClaims struct {
	jwt.RegisteredClaims
}

// SessionID returns the session identifier carried as the jti claim.
func (c *SessionTokenClaims) SessionID() string {
	if c == nil {
		return ""
	}
	return c.ID
}
