package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UnlockToken grants a portal access to full exports for a limited period
// after payment.
type UnlockToken struct {
	Token     string `gorm:"primaryKey;size:36"`
	PortalID  string `gorm:"size:32;index"`
	Email     string `gorm:"size:255"`
	CreatedAt time.Time
	ExpiresAt time.Time
}

// UnlockDownload records each export produced under a token.
type UnlockDownload struct {
	ID        uint   `gorm:"primaryKey"`
	Token     string `gorm:"size:36;index"`
	Format    string `gorm:"size:16"`
	CreatedAt time.Time
}

var (
	ErrTokenNotFound = errors.New("unlock token not found")
	ErrTokenExpired  = errors.New("unlock token expired")
)

// UnlockRepo manages unlock tokens and their download log.
type UnlockRepo struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewUnlockRepo(db *gorm.DB, ttl time.Duration) *UnlockRepo {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &UnlockRepo{db: db, ttl: ttl}
}

// Create mints a fresh token for the portal.
func (r *UnlockRepo) Create(ctx context.Context, portalID, email string, now time.Time) (*UnlockToken, error) {
	token := UnlockToken{
		Token:     uuid.NewString(),
		PortalID:  portalID,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(r.ttl),
	}
	if err := r.db.WithContext(ctx).Create(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// Validate looks a token up and checks it has not expired.
func (r *UnlockRepo) Validate(ctx context.Context, token string, now time.Time) (*UnlockToken, error) {
	var row UnlockToken
	err := r.db.WithContext(ctx).First(&row, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	if now.After(row.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return &row, nil
}

// StatusForPortal reports whether the portal currently holds a valid token.
func (r *UnlockRepo) StatusForPortal(ctx context.Context, portalID string, now time.Time) (*UnlockToken, error) {
	var row UnlockToken
	err := r.db.WithContext(ctx).
		Where("portal_id = ? AND expires_at > ?", portalID, now).
		Order("expires_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// LogDownload records that an export was served under the token.
func (r *UnlockRepo) LogDownload(ctx context.Context, token, format string, now time.Time) error {
	return r.db.WithContext(ctx).Create(&UnlockDownload{
		Token:     token,
		Format:    format,
		CreatedAt: now,
	}).Error
}
