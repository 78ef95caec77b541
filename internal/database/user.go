package database

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUserExists is returned when a user with the same identifier is already registered.
var ErrUserExists = errors.New("user already exists")

// User is a registered voter or admin.
// The identifier is the enrollment number and never changes after registration.
type User struct {
	Identifier   string `gorm:"primaryKey;size:64"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"not null"`
	Phone        string
	PasswordHash string `gorm:"not null"`
	IsAdmin      bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserDB defines the user related database operations.
type UserDB interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByIdentifier(ctx context.Context, identifier string) (*User, error)
	SetUserAdmin(ctx context.Context, identifier string, isAdmin bool) error
	CountUsers(ctx context.Context) (int64, error)
}

// CreateUser inserts the user unless the identifier is already taken,
// in which case ErrUserExists is returned. The check and the insert are a single statement.
func (c *Client) CreateUser(ctx context.Context, user *User) error {
	result := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identifier"}},
		DoNothing: true,
	}).Create(user)
	if result.Error != nil {
		log.Error("failed to create user", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserExists
	}
	return nil
}

// GetUserByIdentifier returns gorm.ErrRecordNotFound if the user does not exist.
func (c *Client) GetUserByIdentifier(ctx context.Context, identifier string) (*User, error) {
	var user User
	if err := c.db.WithContext(ctx).Where("identifier = ?", identifier).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get user by identifier", "error", err)
		}
		return nil, err
	}
	return &user, nil
}

// SetUserAdmin toggles the admin flag. Returns gorm.ErrRecordNotFound if the user does not exist.
func (c *Client) SetUserAdmin(ctx context.Context, identifier string, isAdmin bool) error {
	result := c.db.WithContext(ctx).Model(&User{}).
		Where("identifier = ?", identifier).
		Update("is_admin", isAdmin)
	if result.Error != nil {
		log.Error("failed to update user admin flag", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (c *Client) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := c.db.WithContext(ctx).Model(&User{}).Count(&count).Error; err != nil {
		log.Error("failed to count users", "error", err)
		return 0, err
	}
	return count, nil
}
