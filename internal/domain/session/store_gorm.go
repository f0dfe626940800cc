package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reservio/reservio/internal/database"
)

// sessionRow is the gorm shape of a session. It never leaves this file;
// the service only ever sees the canonical Session value.
type sessionRow struct {
	database.BaseModel

	UserID    string    `gorm:"column:user_id;type:uuid;not null;index"`
	TokenHash string    `gorm:"column:token_hash;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	IsRevoked bool      `gorm:"column:is_revoked;default:false"`
	LastSeen  time.Time `gorm:"column:last_seen"`

	UserAgent string `gorm:"column:user_agent;type:text"`
	IPAddress string `gorm:"column:ip_address;type:text"`
	Device    string `gorm:"column:device;type:text"`
	Browser   string `gorm:"column:browser;type:text"`
	OS        string `gorm:"column:os;type:text"`
}

func (sessionRow) TableName() string {
	return "sessions"
}

// Model exposes the gorm model for migrations
func Model() any {
	return &sessionRow{}
}

func toRow(sess *Session) (*sessionRow, error) {
	id, err := uuid.Parse(sess.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", sess.ID, err)
	}
	row := &sessionRow{
		UserID:    sess.UserID,
		TokenHash: sess.TokenHash,
		ExpiresAt: sess.ExpiresAt,
		IsRevoked: sess.Revoked,
		LastSeen:  sess.LastSeen,
		UserAgent: sess.Metadata.UserAgent,
		IPAddress: sess.Metadata.IPAddress,
		Device:    sess.Metadata.Device,
		Browser:   sess.Metadata.Browser,
		OS:        sess.Metadata.OS,
	}
	row.ID = id
	row.CreatedAt = sess.CreatedAt
	return row, nil
}

func fromRow(row *sessionRow) *Session {
	return &Session{
		ID:        row.ID.String(),
		UserID:    row.UserID,
		TokenHash: row.TokenHash,
		CreatedAt: row.CreatedAt,
		LastSeen:  row.LastSeen,
		ExpiresAt: row.ExpiresAt,
		Revoked:   row.IsRevoked,
		Metadata: Metadata{
			UserAgent: row.UserAgent,
			IPAddress: row.IPAddress,
			Device:    row.Device,
			Browser:   row.Browser,
			OS:        row.OS,
		},
	}
}

type gormStore struct {
	db *gorm.DB
}

func newGormStore(db *gorm.DB) *gormStore {
	return &gormStore{db: db}
}

func (s *gormStore) Create(ctx context.Context, sess *Session) error {
	row, err := toRow(sess)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *gormStore) Get(ctx context.Context, id string) (*Session, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return fromRow(&row), nil
}

func (s *gormStore) ListByUser(ctx context.Context, userID string) ([]*Session, error) {
	var rows []sessionRow
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_revoked = false", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	sessions := make([]*Session, 0, len(rows))
	for i := range rows {
		sessions = append(sessions, fromRow(&rows[i]))
	}
	return sessions, nil
}

func (s *gormStore) Touch(ctx context.Context, id string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&sessionRow{}).
		Where("id = ? AND is_revoked = false", id).
		Update("last_seen", at)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *gormStore) UpdateTokenHash(ctx context.Context, id, tokenHash string) error {
	res := s.db.WithContext(ctx).Model(&sessionRow{}).
		Where("id = ? AND is_revoked = false", id).
		Update("token_hash", tokenHash)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *gormStore) Revoke(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Model(&sessionRow{}).
		Where("id = ? AND is_revoked = false", id).
		Update("is_revoked", true).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *gormStore) RevokeAllForUser(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).Model(&sessionRow{}).
		Where("user_id = ? AND is_revoked = false", userID).
		Update("is_revoked", true).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// PruneExpired issues a bulk delete for rows past their expiry. There is
// no native expiry in postgres, so this is how space gets reclaimed.
func (s *gormStore) PruneExpired(ctx context.Context) (int64, error) {
	return s.DeleteExpired(ctx)
}

func (s *gormStore) DeleteRevoked(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("is_revoked = true").
		Delete(&sessionRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) DeleteExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now().UTC()).
		Delete(&sessionRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
