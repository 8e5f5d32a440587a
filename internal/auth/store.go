package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"rutasonora/internal/db"
)

// Store persists users and sessions.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	SaveSession(ctx context.Context, s Session) error
	SessionByID(ctx context.Context, id string) (Session, error)
	DeleteSession(ctx context.Context, id string) error
	// LiveSessions counts the sessions of userID that expire after now.
	LiveSessions(ctx context.Context, userID string, now time.Time) (int64, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(d *gorm.DB) *GormStore {
	return &GormStore{db: d}
}

// Migrate creates the app_auth schema and its tables.
func (s *GormStore) Migrate() error {
	if err := db.EnsureSchema(s.db, "app_auth"); err != nil {
		return fmt.Errorf("auth: ensure schema: %w", err)
	}
	if err := s.db.AutoMigrate(&User{}, &Session{}); err != nil {
		return fmt.Errorf("auth: migrate: %w", err)
	}
	return nil
}

func (s *GormStore) CreateUser(ctx context.Context, u *User) error {
	err := s.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (s *GormStore) UserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error
	return u, notFound(err)
}

func (s *GormStore) UserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := s.db.WithContext(ctx).First(&u, "user_id = ?", id).Error
	return u, notFound(err)
}

func (s *GormStore) SaveSession(ctx context.Context, sess Session) error {
	return s.db.WithContext(ctx).Create(&sess).Error
}

func (s *GormStore) SessionByID(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.db.WithContext(ctx).First(&sess, "session_id = ?", id).Error
	return sess, notFound(err)
}

func (s *GormStore) DeleteSession(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("session_id = ?", id).Delete(&Session{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) LiveSessions(ctx context.Context, userID string, now time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Session{}).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Count(&n).Error
	return n, err
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
