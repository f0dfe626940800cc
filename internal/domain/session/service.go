package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Reason classifies a failed validation. These are expected domain
// outcomes, not errors; storage failures travel on the error return.
type Reason string

const (
	ReasonNotFound     Reason = "not_found"
	ReasonRevoked      Reason = "revoked"
	ReasonExpired      Reason = "expired"
	ReasonInvalidToken Reason = "invalid"
)

// Validation is the typed result of validating a bearer token against
// its session record
type Validation struct {
	Valid   bool
	Reason  Reason
	Session *Session
}

// CleanupMode selects what a pruning pass removes
type CleanupMode string

const (
	CleanupFull    CleanupMode = "full"
	CleanupRevoked CleanupMode = "revoked"
	CleanupExpired CleanupMode = "expired"
)

// Options configure the session service policies
type Options struct {
	// MaxPerUser caps non-revoked sessions per user; 0 disables the cap.
	// The cap is soft: concurrent creations may transiently exceed it
	// by one, which self-heals on the next creation for that user.
	MaxPerUser int
	// DefaultTTL is used when a creation passes no explicit TTL
	DefaultTTL time.Duration
	// IdleTTL expires sessions not validated for this long; 0 disables
	IdleTTL time.Duration
	// AbsoluteTTL caps session lifetime regardless of activity; 0 disables
	AbsoluteTTL time.Duration
}

// Service orchestrates a Store: creation with eviction, validation with
// touch-on-success, revocation, and delegated pruning. It holds no
// driver-specific logic; backend selection happened at construction.
type Service interface {
	// Create persists a new session for userID. When rawToken is empty
	// the record carries an empty hash placeholder and must be
	// finalized with SetTokenHash before it can ever validate.
	Create(ctx context.Context, userID, rawToken string, meta Metadata, ttl time.Duration) (*Session, error)
	// SetTokenHash finalizes issuance by storing the signed token's hash
	SetTokenHash(ctx context.Context, id, rawToken string) error
	// Validate checks a bearer token against its record and touches the
	// record on success
	Validate(ctx context.Context, id, rawToken string) (Validation, error)
	// Touch advances the record's last-seen timestamp
	Touch(ctx context.Context, id string) error
	// Revoke invalidates a single session irreversibly
	Revoke(ctx context.Context, id string) error
	// RevokeAllUserSessions invalidates every session of a user
	RevokeAllUserSessions(ctx context.Context, userID string) error
	// ListUserSessions returns the user's non-revoked sessions, newest first
	ListUserSessions(ctx context.Context, userID string) ([]*Session, error)
	// Prune physically removes dead records according to mode
	Prune(ctx context.Context, mode CleanupMode) (int64, error)
	// Close releases the underlying store resources
	Close() error
}

type service struct {
	store Store
	opts  Options
	now   func() time.Time
}

// NewService creates a session Service on top of the given Store
func NewService(store Store, opts Options) Service {
	return &service{
		store: store,
		opts:  opts,
		now:   time.Now,
	}
}

func (s *service) Create(ctx context.Context, userID, rawToken string, meta Metadata, ttl time.Duration) (*Session, error) {
	now := s.now().UTC()

	if s.opts.MaxPerUser > 0 {
		active, err := s.store.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		// ListByUser is newest-first, so eviction walks the tail. The
		// count check and the insert are not atomic; two concurrent
		// creations may both pass, leaving maxPerUser+1 sessions until
		// the next creation evicts again.
		for i := s.opts.MaxPerUser - 1; i < len(active); i++ {
			if err := s.store.Revoke(ctx, active[i].ID); err != nil {
				return nil, err
			}
		}
	}

	sess := &Session{
		ID:        NewSessionID(),
		UserID:    userID,
		Metadata:  meta,
		CreatedAt: now,
		LastSeen:  now,
		ExpiresAt: ExpiryFrom(now, ttl, s.opts.DefaultTTL),
	}
	if rawToken != "" {
		sess.TokenHash = HashToken(rawToken)
	}

	if err := s.store.Create(ctx, sess); err != nil {
		return nil, err
	}

	return sess, nil
}

func (s *service) SetTokenHash(ctx context.Context, id, rawToken string) error {
	if rawToken == "" {
		return errors.New("raw token must not be empty")
	}
	return s.store.UpdateTokenHash(ctx, id, HashToken(rawToken))
}

func (s *service) Validate(ctx context.Context, id, rawToken string) (Validation, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Validation{Reason: ReasonNotFound}, nil
		}
		return Validation{}, err
	}

	if sess.Revoked {
		return Validation{Reason: ReasonRevoked}, nil
	}

	now := s.now().UTC()
	if Expired(sess, now) {
		return Validation{Reason: ReasonExpired}, nil
	}
	if s.opts.AbsoluteTTL > 0 && now.After(sess.CreatedAt.Add(s.opts.AbsoluteTTL)) {
		return Validation{Reason: ReasonExpired}, nil
	}
	if s.opts.IdleTTL > 0 && !sess.LastSeen.IsZero() && now.After(sess.LastSeen.Add(s.opts.IdleTTL)) {
		return Validation{Reason: ReasonExpired}, nil
	}

	// An empty hash is the issuance placeholder; it matches nothing,
	// including the hash of an empty token.
	if sess.TokenHash == "" || sess.TokenHash != HashToken(rawToken) {
		return Validation{Reason: ReasonInvalidToken}, nil
	}

	if err := s.store.Touch(ctx, id, now); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			// The record vanished between read and touch; fail closed.
			return Validation{Reason: ReasonNotFound}, nil
		}
		return Validation{}, err
	}
	sess.LastSeen = now

	return Validation{Valid: true, Session: sess}, nil
}

func (s *service) Touch(ctx context.Context, id string) error {
	return s.store.Touch(ctx, id, s.now().UTC())
}

func (s *service) Revoke(ctx context.Context, id string) error {
	return s.store.Revoke(ctx, id)
}

func (s *service) RevokeAllUserSessions(ctx context.Context, userID string) error {
	return s.store.RevokeAllForUser(ctx, userID)
}

func (s *service) ListUserSessions(ctx context.Context, userID string) ([]*Session, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *service) Prune(ctx context.Context, mode CleanupMode) (int64, error) {
	switch mode {
	case CleanupExpired:
		return s.store.PruneExpired(ctx)
	case CleanupRevoked:
		return s.store.DeleteRevoked(ctx)
	case CleanupFull, "":
		expired, err := s.store.PruneExpired(ctx)
		if err != nil {
			return expired, err
		}
		revoked, err := s.store.DeleteRevoked(ctx)
		return expired + revoked, err
	default:
		return 0, fmt.Errorf("unknown cleanup mode %q", mode)
	}
}

func (s *service) Close() error {
	return s.store.Close()
}
