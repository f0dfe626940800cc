package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// ErrUnknownKey is returned when the configured active kid is not in the key set
var ErrUnknownKey = errors.New("unknown signing key")

// KeyStore holds the RSA signing keys as a JWK set
type KeyStore struct {
	ActiveKid string
	KeySet    jwk.Set
}

// LoadKeys builds a KeyStore from private-<kid>.pem files under path
func LoadKeys(path, activeKid string) (*KeyStore, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("keys directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("keys path %s is not a directory", path)
	}

	keySet := jwk.NewSet()

	files, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keys directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		fileName := file.Name()
		if !strings.HasPrefix(fileName, "private") || filepath.Ext(fileName) != ".pem" {
			continue
		}

		kid := strings.TrimPrefix(fileName, "private-")
		kid = strings.TrimSuffix(kid, ".pem")
		if kid == "" {
			continue
		}

		privData, err := os.ReadFile(filepath.Join(path, fileName))
		if err != nil {
			return nil, fmt.Errorf("failed to read private key %s: %w", fileName, err)
		}

		priv, err := parseRSAPrivateKey(privData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key %s: %w", fileName, err)
		}

		if err := addKey(keySet, priv, "key-"+kid); err != nil {
			return nil, err
		}
	}

	return &KeyStore{ActiveKid: activeKid, KeySet: keySet}, nil
}

// NewDevKeyStore generates an in-memory RSA key pair. Used in development
// and tests when no keys directory is configured; never in production.
func NewDevKeyStore() (*KeyStore, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate dev key: %w", err)
	}

	keySet := jwk.NewSet()
	if err := addKey(keySet, priv, "key-dev"); err != nil {
		return nil, err
	}

	return &KeyStore{ActiveKid: "dev", KeySet: keySet}, nil
}

func parseRSAPrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	pkcs8Key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := pkcs8Key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("key is not an RSA private key")
	}
	return rsaKey, nil
}

func addKey(keySet jwk.Set, priv *rsa.PrivateKey, keyID string) error {
	jwkKey, err := jwk.Import(priv)
	if err != nil {
		return fmt.Errorf("failed to convert private key to JWK: %w", err)
	}
	if err := jwkKey.Set(jwk.KeyIDKey, keyID); err != nil {
		return fmt.Errorf("failed to set key ID: %w", err)
	}
	if err := jwkKey.Set(jwk.AlgorithmKey, jwa.RS256()); err != nil {
		return fmt.Errorf("failed to set algorithm: %w", err)
	}
	if err := keySet.AddKey(jwkKey); err != nil {
		return fmt.Errorf("failed to add key to set: %w", err)
	}
	return nil
}

// GetActiveKey returns the key matching the configured active kid
func (ks *KeyStore) GetActiveKey() (jwk.Key, error) {
	activeKid := ks.ActiveKid
	if !strings.HasPrefix(activeKid, "key-") {
		activeKid = "key-" + activeKid
	}

	key, ok := ks.KeySet.LookupKeyID(activeKid)
	if !ok {
		return nil, ErrUnknownKey
	}
	return key, nil
}

// JWKS returns the public half of the key set
func (ks *KeyStore) JWKS() jwk.Set {
	publicSet, err := jwk.PublicSetOf(ks.KeySet)
	if err != nil {
		return jwk.NewSet()
	}
	return publicSet
}
