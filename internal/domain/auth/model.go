package auth

import (
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwt"
)

// AccessTokenClaims are the claims for the access token. The session
// subsystem only cares about the opaque "sid" claim linking the token to
// its persisted record.
type AccessTokenClaims struct {
	Sid   string
	Token jwt.Token
}

func (c *AccessTokenClaims) Subject() string {
	sub, _ := c.Token.Subject()
	return sub
}

func (c *AccessTokenClaims) Issuer() string {
	iss, _ := c.Token.Issuer()
	return iss
}

func (c *AccessTokenClaims) Expiration() time.Time {
	exp, _ := c.Token.Expiration()
	return exp
}

// GetSid returns the session ID from the token claims, with fallback to
// the stored Sid field
func (c *AccessTokenClaims) GetSid() string {
	var sid any
	if c.Token.Get("sid", &sid) == nil {
		if s, ok := sid.(string); ok {
			c.Sid = s
			return s
		}
	}
	return c.Sid
}

// Validate validates standard JWT claims
func (c *AccessTokenClaims) Validate(issuer string) error {
	exp := c.Expiration()
	if exp.IsZero() {
		return errors.New("token missing expiration claim")
	}
	if time.Now().After(exp) {
		return errors.New("token expired")
	}

	if issuer != "" && c.Issuer() != issuer {
		return errors.New("token issuer mismatch")
	}

	return nil
}
