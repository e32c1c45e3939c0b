package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User carries the fields this subsystem reads: invite target lookup by
// username or email, leaderboard name search, and the platform-admin flag the
// Identity Gate resolves. Account management lives elsewhere.
type User struct {
	UserID        uuid.UUID      `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	UserName      string         `gorm:"column:user_name;not null;uniqueIndex" json:"user_name"`
	FullName      string         `gorm:"column:full_name;not null" json:"full_name"`
	Email         string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PlatformAdmin bool           `gorm:"column:platform_admin;not null;default:false" json:"platform_admin"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}
