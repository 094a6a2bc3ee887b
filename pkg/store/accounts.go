package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// CreateUser inserts a user. The email must be unused.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	var existing int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrEmailTaken
	}

	u := &User{Email: email, PasswordHash: passwordHash}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.logger.Info("user created", "user_id", u.ID)
	return u, nil
}

// UserByEmail looks a user up by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	return s.findUser(ctx, "email = ?", email)
}

// UserByID looks a user up by id.
func (s *Store) UserByID(ctx context.Context, id uint) (*User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *Store) findUser(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where(query, arg).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// TouchLogin records a successful login.
func (s *Store) TouchLogin(ctx context.Context, userID uint, at time.Time) error {
	return s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Update("last_login", at.UTC()).Error
}

// CreateSession records an issued token by its hash.
func (s *Store) CreateSession(ctx context.Context, userID uint, tokenHash string, expiresAt time.Time) error {
	return s.db.WithContext(ctx).Create(&UserSession{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt.UTC(),
		IsActive:  true,
	}).Error
}

// DeactivateSession marks every session with tokenHash inactive. It reports
// whether any session changed.
func (s *Store) DeactivateSession(ctx context.Context, tokenHash string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&UserSession{}).
		Where("token_hash = ? AND is_active = ?", tokenHash, true).
		Update("is_active", false)
	return res.RowsAffected > 0, res.Error
}

// SessionActive reports whether an unexpired, active session exists for tokenHash.
func (s *Store) SessionActive(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&UserSession{}).
		Where("token_hash = ? AND is_active = ? AND expires_at > ?", tokenHash, true, now.UTC()).
		Count(&n).Error
	return n > 0, err
}

// PurgeSessions deletes sessions that expired before now and returns how many.
func (s *Store) PurgeSessions(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&UserSession{})
	return res.RowsAffected, res.Error
}
