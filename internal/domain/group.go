package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Group kinds.
const (
	GroupKindCustom   = "CUSTOM"
	GroupKindCategory = "CATEGORY"
)

// Group visibilities. CATEGORY groups are always PUBLIC.
const (
	VisibilityPublic  = "PUBLIC"
	VisibilityPrivate = "PRIVATE"
)

// Group is a user-created (CUSTOM) or platform-curated (CATEGORY) group.
// Soft-deleted groups keep their memberships and scores for audit.
type Group struct {
	GroupID     uuid.UUID      `gorm:"column:group_id;type:uuid;primaryKey" json:"group_id"`
	Name        string         `gorm:"column:name;not null;index:idx_groups_active_name,unique,where:deleted_at IS NULL" json:"name"`
	Description *string        `gorm:"column:description" json:"description"`
	Kind        string         `gorm:"column:kind;not null;default:CUSTOM" json:"kind"`
	Visibility  string         `gorm:"column:visibility;not null;default:PUBLIC" json:"visibility"`
	OwnerID     *uuid.UUID     `gorm:"column:owner_id;type:uuid" json:"owner_id"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Group) TableName() string {
	return "groups"
}

// BeforeCreate sets the UUID for DBs without gen_random_uuid.
func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.GroupID == uuid.Nil {
		g.GroupID = uuid.New()
	}
	return nil
}
