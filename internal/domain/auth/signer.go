package auth

import (
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

func (ks *KeyStore) Sign(claims *AccessTokenClaims) (string, error) {
	key, err := ks.GetActiveKey()
	if err != nil {
		return "", err
	}

	// The key ID is already set on the key, so it ends up in the header
	signed, err := jwt.Sign(claims.Token, jwt.WithKey(jwa.RS256(), key))
	if err != nil {
		return "", err
	}

	return string(signed), nil
}
