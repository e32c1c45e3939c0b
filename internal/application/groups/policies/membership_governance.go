// Package policies holds the governance checks shared by the membership
// lifecycle operations.
package policies

import (
	"learnhub-backend/internal/domain"
	"learnhub-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActiveMembership loads the caller's active membership in a group, or nil.
func ActiveMembership(db *gorm.DB, groupID, userID uuid.UUID) (*domain.Membership, error) {
	var m domain.Membership
	err := db.Where("group_id = ? AND user_id = ? AND left_at IS NULL", groupID, userID).First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RequireManager checks that the actor may administer the group: active OWNER
// or ADMIN membership, or platform admin.
func RequireManager(db *gorm.DB, groupID, actorID uuid.UUID, platformAdmin bool) error {
	if platformAdmin {
		return nil
	}
	m, err := ActiveMembership(db, groupID, actorID)
	if err != nil {
		return err
	}
	if m == nil || (m.Role != domain.RoleOwner && m.Role != domain.RoleAdmin) {
		return apperr.Forbidden("You are not authorized to manage this group")
	}
	return nil
}

// RequireManageableTarget checks that target is an active non-owner member
// distinct from the actor, and returns the target's membership.
func RequireManageableTarget(db *gorm.DB, groupID, actorID, targetID uuid.UUID) (*domain.Membership, error) {
	if actorID == targetID {
		return nil, apperr.SelfAction("You cannot manage your own membership")
	}
	m, err := ActiveMembership(db, groupID, targetID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.NotMember("Target user is not an active member of this group")
	}
	if m.Role == domain.RoleOwner {
		return nil, apperr.OwnerImmutable("The group owner cannot be managed; transfer ownership first")
	}
	return m, nil
}
