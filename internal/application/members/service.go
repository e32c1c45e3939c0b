package members

import (
	"context"
	"time"

	groupsvc "learnhub-backend/internal/application/groups"
	"learnhub-backend/internal/application/groups/policies"
	"learnhub-backend/internal/application/notifications"
	"learnhub-backend/internal/domain"
	"learnhub-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Member actions.
const (
	ActionPromote = "promote"
	ActionDemote  = "demote"
	ActionRemove  = "remove"
)

// Service administers non-owner members of a group.
type Service struct {
	DB     *gorm.DB
	Groups *groupsvc.Service
	Sink   notifications.Sink
}

func (s *Service) notify(ctx context.Context, ev notifications.Event) {
	if s.Sink == nil {
		return
	}
	s.Sink.Publish(ctx, ev)
}

type ManageMemberInput struct {
	ActorID       uuid.UUID
	PlatformAdmin bool
	GroupID       uuid.UUID
	TargetID      uuid.UUID
	Action        string
}

// ManageMember promotes, demotes, or removes an active non-owner member.
// Self-management is rejected; OWNER is never assignable here.
func (s *Service) ManageMember(ctx context.Context, in ManageMemberInput) error {
	if _, err := s.Groups.ActiveGroup(ctx, in.GroupID); err != nil {
		return err
	}
	db := s.DB.WithContext(ctx)
	if err := policies.RequireManager(db, in.GroupID, in.ActorID, in.PlatformAdmin); err != nil {
		return err
	}
	target, err := policies.RequireManageableTarget(db, in.GroupID, in.ActorID, in.TargetID)
	if err != nil {
		return err
	}

	var eventType string
	switch in.Action {
	case ActionPromote:
		if target.Role == domain.RoleAdmin {
			return apperr.NoOp("User is already an admin")
		}
		target.Role = domain.RoleAdmin
		eventType = notifications.EventMemberPromoted
	case ActionDemote:
		if target.Role == domain.RoleMember {
			return apperr.NoOp("User is already a regular member")
		}
		target.Role = domain.RoleMember
		eventType = notifications.EventMemberDemoted
	case ActionRemove:
		now := time.Now()
		target.LeftAt = &now
		eventType = notifications.EventMemberRemoved
	default:
		return apperr.BadRequest("Unknown member action")
	}

	if err := db.Save(target).Error; err != nil {
		return err
	}

	actor := in.ActorID
	s.notify(ctx, notifications.Event{
		Type:    eventType,
		UserID:  in.TargetID,
		ActorID: &actor,
		GroupID: &in.GroupID,
	})
	return nil
}

// MemberView is a member row joined with the user's display fields.
type MemberView struct {
	UserID   uuid.UUID `json:"user_id"`
	UserName string    `json:"user_name"`
	FullName string    `json:"full_name"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// ListMembers returns the group's active members, owner first.
func (s *Service) ListMembers(ctx context.Context, callerID uuid.UUID, groupID uuid.UUID) ([]MemberView, error) {
	if _, _, err := s.Groups.GetGroup(ctx, callerID, groupID); err != nil {
		return nil, err
	}

	var members []MemberView
	err := s.DB.WithContext(ctx).
		Model(&domain.Membership{}).
		Select("memberships.user_id, users.user_name, users.full_name, memberships.role, memberships.joined_at").
		Joins("JOIN users ON users.user_id = memberships.user_id").
		Where("memberships.group_id = ? AND memberships.left_at IS NULL", groupID).
		Order("CASE memberships.role WHEN 'OWNER' THEN 0 WHEN 'ADMIN' THEN 1 ELSE 2 END, memberships.joined_at ASC").
		Scan(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}
