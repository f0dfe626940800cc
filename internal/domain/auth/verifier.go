package auth

import (
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

func (ks *KeyStore) Verify(tokenString string) (*AccessTokenClaims, error) {
	// The library matches the kid from the token header against the set
	verifiedToken, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKeySet(ks.KeySet, jws.WithInferAlgorithmFromKey(true)),
	)
	if err != nil {
		return nil, err
	}

	var sidStr string
	var sid interface{}
	if verifiedToken.Get("sid", &sid) == nil {
		if s, ok := sid.(string); ok {
			sidStr = s
		}
	}

	return &AccessTokenClaims{
		Sid:   sidStr,
		Token: verifiedToken,
	}, nil
}
