package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/reservio/reservio/internal/domain/session"
)

// IssueResult is returned from a successful session issuance
type IssueResult struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service issues and revokes authenticated sessions. Login and OAuth
// callback handlers call IssueSession after they have authenticated the
// user by their own means.
type Service struct {
	Sessions session.Service
	KeyStore *KeyStore
	issuer   string
}

// NewService creates a new auth service
func NewService(sessions session.Service, keyStore *KeyStore, issuer string) *Service {
	return &Service{
		Sessions: sessions,
		KeyStore: keyStore,
		issuer:   issuer,
	}
}

// IssueSession runs the two-phase issuance protocol: the record is
// created with an empty hash placeholder, the session id is embedded in
// the signed token, and the token's hash is then written back. A crash
// between the phases leaves a record that can never validate and ages
// out through normal pruning.
func (s *Service) IssueSession(ctx context.Context, userID string, meta session.Metadata) (*IssueResult, error) {
	sess, err := s.Sessions.Create(ctx, userID, "", meta, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.signAccessToken(userID, sess.ID, sess.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	if err := s.Sessions.SetTokenHash(ctx, sess.ID, token); err != nil {
		return nil, fmt.Errorf("failed to finalize session: %w", err)
	}

	return &IssueResult{
		SessionID: sess.ID,
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// Logout revokes the session behind the presented token
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.Sessions.Revoke(ctx, sessionID)
}

// LogoutAll revokes every session of the user
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	return s.Sessions.RevokeAllUserSessions(ctx, userID)
}

func (s *Service) signAccessToken(sub, sid string, exp time.Time) (string, error) {
	now := time.Now()

	token, err := jwt.NewBuilder().
		Subject(sub).
		Issuer(s.issuer).
		IssuedAt(now).
		Expiration(exp).
		Claim("sid", sid).
		Build()
	if err != nil {
		return "", err
	}

	return s.KeyStore.Sign(&AccessTokenClaims{Sid: sid, Token: token})
}
