package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	userKeyPrefix    = "user_sessions:"

	// minBlobTTL keeps SET from failing on a record that is already at
	// or past its expiry; validation reads ExpiresAt, not the key TTL.
	minBlobTTL = time.Second
)

// sessionBlob is the JSON wire shape stored at session:<id>.
// It mirrors the durable row field for field.
type sessionBlob struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	TokenHash string    `json:"tokenHash"`
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsRevoked bool      `json:"isRevoked"`
}

func toBlob(sess *Session) *sessionBlob {
	return &sessionBlob{
		SessionID: sess.ID,
		UserID:    sess.UserID,
		TokenHash: sess.TokenHash,
		Metadata:  sess.Metadata,
		CreatedAt: sess.CreatedAt,
		LastSeen:  sess.LastSeen,
		ExpiresAt: sess.ExpiresAt,
		IsRevoked: sess.Revoked,
	}
}

func fromBlob(blob *sessionBlob) *Session {
	return &Session{
		ID:        blob.SessionID,
		UserID:    blob.UserID,
		TokenHash: blob.TokenHash,
		Metadata:  blob.Metadata,
		CreatedAt: blob.CreatedAt,
		LastSeen:  blob.LastSeen,
		ExpiresAt: blob.ExpiresAt,
		Revoked:   blob.IsRevoked,
	}
}

type redisStore struct {
	rdb *redis.Client
}

func newRedisStore(rdb *redis.Client) *redisStore {
	return &redisStore{rdb: rdb}
}

func (s *redisStore) key(id string) string {
	return sessionKeyPrefix + id
}

func (s *redisStore) userKey(userID string) string {
	return userKeyPrefix + userID
}

func (s *redisStore) Create(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(toBlob(sess))
	if err != nil {
		return err
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl < minBlobTTL {
		ttl = minBlobTTL
	}

	key := s.key(sess.ID)
	userKey := s.userKey(sess.UserID)

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, ttl)
		pipe.ZAdd(ctx, userKey, redis.Z{
			Score:  float64(sess.CreatedAt.UnixNano()),
			Member: sess.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// The index must outlive its longest-lived member so it self-expires
	// alongside them; only ever extend its TTL, never shorten it.
	idxTTL, err := s.rdb.TTL(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if idxTTL < ttl {
		if err := s.rdb.Expire(ctx, userKey, ttl).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	return nil
}

func (s *redisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var blob sessionBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("%w: corrupt session blob: %v", ErrStoreUnavailable, err)
	}
	return fromBlob(&blob), nil
}

func (s *redisStore) ListByUser(ctx context.Context, userID string) ([]*Session, error) {
	ids, err := s.rdb.ZRevRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Session{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return []*Session{}, nil
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	sessions := make([]*Session, 0, len(ids))
	var stale []interface{}
	for i, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				// Index member whose blob already expired; drop it.
				stale = append(stale, ids[i])
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, cmdErr)
		}

		var blob sessionBlob
		if err := json.Unmarshal(data, &blob); err != nil {
			return nil, fmt.Errorf("%w: corrupt session blob: %v", ErrStoreUnavailable, err)
		}
		if blob.IsRevoked {
			continue
		}
		sessions = append(sessions, fromBlob(&blob))
	}

	if len(stale) > 0 {
		if err := s.rdb.ZRem(ctx, s.userKey(userID), stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	return sessions, nil
}

func (s *redisStore) Touch(ctx context.Context, id string, at time.Time) error {
	return s.rewrite(ctx, id, func(blob *sessionBlob) error {
		if blob.IsRevoked {
			return ErrSessionNotFound
		}
		blob.LastSeen = at
		return nil
	})
}

func (s *redisStore) UpdateTokenHash(ctx context.Context, id, tokenHash string) error {
	return s.rewrite(ctx, id, func(blob *sessionBlob) error {
		if blob.IsRevoked {
			return ErrSessionNotFound
		}
		blob.TokenHash = tokenHash
		return nil
	})
}

func (s *redisStore) Revoke(ctx context.Context, id string) error {
	err := s.rewrite(ctx, id, func(blob *sessionBlob) error {
		blob.IsRevoked = true
		return nil
	})
	if errors.Is(err, ErrSessionNotFound) {
		// Revoking a session that already aged out is not a failure.
		return nil
	}
	return err
}

func (s *redisStore) RevokeAllForUser(ctx context.Context, userID string) error {
	ids, err := s.rdb.ZRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	for _, id := range ids {
		if err := s.Revoke(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// PruneExpired is a documented no-op: redis reclaims expired blobs via
// native key expiry, and stale index members are filtered at read time.
func (s *redisStore) PruneExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

// DeleteRevoked sweeps revoked blobs that are still within their TTL.
// This is an O(n) SCAN and runs from the cleanup job, never a hot path.
func (s *redisStore) DeleteRevoked(ctx context.Context) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)

	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, sessionKeyPrefix+"*", 1000).Result()
		if err != nil {
			return deleted, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		for _, key := range keys {
			data, err := s.rdb.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return deleted, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}

			var blob sessionBlob
			if err := json.Unmarshal(data, &blob); err != nil {
				continue
			}
			if !blob.IsRevoked {
				continue
			}

			_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.ZRem(ctx, s.userKey(blob.UserID), blob.SessionID)
				return nil
			})
			if err != nil {
				return deleted, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			deleted++
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return deleted, nil
}

// DeleteExpired is a documented no-op, same as PruneExpired
func (s *redisStore) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func (s *redisStore) Close() error {
	return s.rdb.Close()
}

// rewrite replaces a blob in place while preserving its remaining TTL
func (s *redisStore) rewrite(ctx context.Context, id string, mutate func(*sessionBlob) error) error {
	key := s.key(id)

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var blob sessionBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return fmt.Errorf("%w: corrupt session blob: %v", ErrStoreUnavailable, err)
	}

	if err := mutate(&blob); err != nil {
		return err
	}

	updated, err := json.Marshal(&blob)
	if err != nil {
		return err
	}

	if err := s.rdb.Set(ctx, key, updated, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
