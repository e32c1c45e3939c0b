package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Invite statuses. A pending invite transitions to a terminal status exactly
// once; terminal states are never reopened.
const (
	InviteStatusPending   = "pending"
	InviteStatusAccepted  = "accepted"
	InviteStatusRejected  = "rejected"
	InviteStatusCancelled = "cancelled"
	InviteStatusExpired   = "expired"
)

// Invite is an offer of membership in a group with a requested role.
type Invite struct {
	InviteID   uuid.UUID `gorm:"column:invite_id;type:uuid;primaryKey" json:"invite_id"`
	GroupID    uuid.UUID `gorm:"column:group_id;type:uuid;not null;index" json:"group_id"`
	FromUserID uuid.UUID `gorm:"column:from_user_id;type:uuid;not null" json:"from_user_id"`
	ToUserID   uuid.UUID `gorm:"column:to_user_id;type:uuid;not null;index" json:"to_user_id"`
	Role       string    `gorm:"column:role;not null;default:MEMBER" json:"role"`
	Status     string    `gorm:"column:status;not null;default:'pending'" json:"status"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (Invite) TableName() string {
	return "invites"
}

func (i *Invite) BeforeCreate(tx *gorm.DB) error {
	if i.InviteID == uuid.Nil {
		i.InviteID = uuid.New()
	}
	return nil
}

// Expired reports whether the invite's deadline has passed. Expiry is
// evaluated lazily at response/list time, not by a background sweep.
func (i *Invite) Expired(now time.Time) bool {
	return i.ExpiresAt.Before(now)
}
