package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	// ErrSessionNotFound is returned by stores when no record exists for an id
	ErrSessionNotFound = errors.New("session not found")
	// ErrStoreUnavailable wraps network or driver failures of the underlying store
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrUnsupportedDriver is returned by the factory for an unknown driver value
	ErrUnsupportedDriver = errors.New("unsupported session driver")
)

const (
	// DriverPostgres selects the durable gorm-backed store
	DriverPostgres = "postgres"
	// DriverRedis selects the TTL-native redis-backed store
	DriverRedis = "redis"
)

// Store is the storage contract shared by both backends. Every method
// must behave identically across implementations; the service layered on
// top contains no driver-specific branches.
type Store interface {
	// Create persists a new record. The record's TTL is derived from
	// ExpiresAt relative to the current time.
	Create(ctx context.Context, sess *Session) error
	// Get returns the record for id, ErrSessionNotFound when absent
	Get(ctx context.Context, id string) (*Session, error)
	// ListByUser returns the user's non-revoked sessions, newest first
	ListByUser(ctx context.Context, userID string) ([]*Session, error)
	// Touch advances LastSeen on a live record
	Touch(ctx context.Context, id string, at time.Time) error
	// UpdateTokenHash replaces the token hash, finalizing issuance
	UpdateTokenHash(ctx context.Context, id, tokenHash string) error
	// Revoke marks the record dead without deleting it
	Revoke(ctx context.Context, id string) error
	// RevokeAllForUser revokes every non-revoked session of a user
	RevokeAllForUser(ctx context.Context, userID string) error
	// PruneExpired removes records past their expiry; a no-op for
	// backends that expire natively
	PruneExpired(ctx context.Context) (int64, error)
	// DeleteRevoked physically removes revoked records
	DeleteRevoked(ctx context.Context) (int64, error)
	// DeleteExpired physically removes expired records; a no-op for
	// backends that expire natively
	DeleteExpired(ctx context.Context) (int64, error)
	// Close releases the underlying client resources
	Close() error
}

// NewStore selects a backend exactly once, at construction time.
// Only the handle matching the driver needs to be non-nil.
func NewStore(driver string, db *gorm.DB, rdb *redis.Client) (Store, error) {
	switch driver {
	case DriverPostgres:
		if db == nil {
			return nil, fmt.Errorf("%w: postgres driver requires a database connection", ErrUnsupportedDriver)
		}
		return newGormStore(db), nil
	case DriverRedis:
		if rdb == nil {
			return nil, fmt.Errorf("%w: redis driver requires a redis client", ErrUnsupportedDriver)
		}
		return newRedisStore(rdb), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}
