package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Membership roles. OWNER is only reachable via group creation or an
// ownership transfer, never via promote.
const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// Membership records a user's role in a group. At most one row exists per
// (user, group) pair — leaving and rejoining reuses the row. LeftAt nil means
// the membership is active.
type Membership struct {
	MembershipID uuid.UUID  `gorm:"column:membership_id;type:uuid;primaryKey" json:"membership_id"`
	UserID       uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_memberships_user_group" json:"user_id"`
	GroupID      uuid.UUID  `gorm:"column:group_id;type:uuid;not null;uniqueIndex:idx_memberships_user_group" json:"group_id"`
	Role         string     `gorm:"column:role;not null;default:MEMBER" json:"role"`
	JoinedAt     time.Time  `gorm:"column:joined_at;not null" json:"joined_at"`
	LeftAt       *time.Time `gorm:"column:left_at" json:"left_at"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (Membership) TableName() string {
	return "memberships"
}

func (m *Membership) BeforeCreate(tx *gorm.DB) error {
	if m.MembershipID == uuid.Nil {
		m.MembershipID = uuid.New()
	}
	return nil
}

// Active reports whether the membership is current.
func (m *Membership) Active() bool {
	return m.LeftAt == nil
}
