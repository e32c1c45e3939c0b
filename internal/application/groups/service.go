package groups

import (
	"context"
	"errors"
	"strings"
	"time"

	"learnhub-backend/internal/application/groups/policies"
	"learnhub-backend/internal/application/notifications"
	"learnhub-backend/internal/domain"
	"learnhub-backend/internal/pkg/apperr"
	"learnhub-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Syncer recomputes score records. Satisfied by scores.Service; substitutable
// in tests.
type Syncer interface {
	SyncGroupScore(ctx context.Context, userID, groupID uuid.UUID) error
	SyncGlobalScore(ctx context.Context, userID uuid.UUID) error
}

const syncTimeout = 10 * time.Second

// Service is the membership lifecycle manager. Membership mutations are ACID
// transactions over the minimal row set; score sync and notifications run
// after commit and never fail the operation.
type Service struct {
	DB               *gorm.DB
	Sink             notifications.Sink
	Syncer           Syncer
	DefaultGroupName string
}

// ScheduleSync recomputes the (user, group) score off the caller's request
// path. Failures are logged and swallowed: score correctness is eventually
// consistent, membership correctness is not.
func (s *Service) ScheduleSync(userID, groupID uuid.UUID) {
	if s.Syncer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()
		if err := s.Syncer.SyncGroupScore(ctx, userID, groupID); err != nil {
			log.Error().Err(err).
				Str("user_id", userID.String()).
				Str("group_id", groupID.String()).
				Msg("group score sync failed")
		}
		if err := s.Syncer.SyncGlobalScore(ctx, userID); err != nil {
			log.Error().Err(err).
				Str("user_id", userID.String()).
				Msg("global score sync failed")
		}
	}()
}

func (s *Service) notify(ctx context.Context, ev notifications.Event) {
	if s.Sink == nil {
		return
	}
	s.Sink.Publish(ctx, ev)
}

// ActiveGroup loads a non-deleted group or returns NotFound.
func (s *Service) ActiveGroup(ctx context.Context, groupID uuid.UUID) (*domain.Group, error) {
	var g domain.Group
	if err := s.DB.WithContext(ctx).Where("group_id = ?", groupID).First(&g).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Group not found")
		}
		return nil, err
	}
	return &g, nil
}

type CreateGroupInput struct {
	ActorID       uuid.UUID
	PlatformAdmin bool
	Name          string
	Kind          string
	Visibility    string
	Description   *string
}

// CreateGroup creates a group with the actor as OWNER and schedules the
// initial score sync. CATEGORY groups require platform-admin privilege and
// are always PUBLIC.
func (s *Service) CreateGroup(ctx context.Context, in CreateGroupInput) (*domain.Group, error) {
	name := strings.TrimSpace(in.Name)
	if !validation.IsValidGroupName(name) {
		return nil, apperr.BadRequest("A valid group name is required")
	}

	kind := in.Kind
	if kind == "" {
		kind = domain.GroupKindCustom
	}
	if kind != domain.GroupKindCustom && kind != domain.GroupKindCategory {
		return nil, apperr.BadRequest("Unknown group kind")
	}
	visibility := in.Visibility
	if visibility == "" {
		visibility = domain.VisibilityPublic
	}
	if visibility != domain.VisibilityPublic && visibility != domain.VisibilityPrivate {
		return nil, apperr.BadRequest("Unknown group visibility")
	}
	if kind == domain.GroupKindCategory {
		if !in.PlatformAdmin {
			return nil, apperr.Forbidden("Only platform admins can create category groups")
		}
		// Category groups are always public, whatever was requested.
		visibility = domain.VisibilityPublic
	}

	owner := in.ActorID
	group := &domain.Group{
		Name:        name,
		Description: in.Description,
		Kind:        kind,
		Visibility:  visibility,
		OwnerID:     &owner,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			// The partial unique index on active group names is the arbiter,
			// so concurrent creates resolve here rather than racing a
			// count-then-insert check.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.NameConflict("A group with this name already exists")
			}
			return err
		}
		membership := &domain.Membership{
			UserID:   in.ActorID,
			GroupID:  group.GroupID,
			Role:     domain.RoleOwner,
			JoinedAt: time.Now(),
		}
		return tx.Create(membership).Error
	})
	if err != nil {
		return nil, err
	}

	s.ScheduleSync(in.ActorID, group.GroupID)
	return group, nil
}

// Admit inserts or reactivates the (user, group) membership row with the
// given role. Reactivation clears left_at and refreshes joined_at; the row
// count never grows for a returning member. A unique-constraint race resolves
// to AlreadyMember.
func (s *Service) Admit(ctx context.Context, userID uuid.UUID, group *domain.Group, role string) (*domain.Membership, error) {
	var membership *domain.Membership
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		membership, err = s.AdmitTx(tx, userID, group, role)
		return err
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// AdmitTx is Admit running inside the caller's transaction, so an invite
// acceptance can flip the invite and admit the member as one unit.
func (s *Service) AdmitTx(tx *gorm.DB, userID uuid.UUID, group *domain.Group, role string) (*domain.Membership, error) {
	var existing domain.Membership
	err := tx.Where("user_id = ? AND group_id = ?", userID, group.GroupID).First(&existing).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		membership := domain.Membership{
			UserID:   userID,
			GroupID:  group.GroupID,
			Role:     role,
			JoinedAt: time.Now(),
		}
		if createErr := tx.Create(&membership).Error; createErr != nil {
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return nil, apperr.AlreadyMember("You are already a member of this group")
			}
			return nil, createErr
		}
		return &membership, nil
	case err != nil:
		return nil, err
	}
	if existing.Active() {
		return nil, apperr.AlreadyMember("You are already a member of this group")
	}
	existing.LeftAt = nil
	existing.JoinedAt = time.Now()
	existing.Role = role
	if err := tx.Save(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// Join adds the caller to a group as MEMBER. Private groups require an
// unexpired pending invite unless the caller is the owner.
func (s *Service) Join(ctx context.Context, userID, groupID uuid.UUID) (*domain.Membership, error) {
	group, err := s.ActiveGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if group.Visibility == domain.VisibilityPrivate {
		isOwner := group.OwnerID != nil && *group.OwnerID == userID
		if !isOwner {
			var invites int64
			if err := s.DB.WithContext(ctx).Model(&domain.Invite{}).
				Where("group_id = ? AND to_user_id = ? AND status = ? AND expires_at > ?",
					groupID, userID, domain.InviteStatusPending, time.Now()).
				Count(&invites).Error; err != nil {
				return nil, err
			}
			if invites == 0 {
				return nil, apperr.Forbidden("This group is private; an invitation is required")
			}
		}
	}

	membership, err := s.Admit(ctx, userID, group, domain.RoleMember)
	if err != nil {
		return nil, err
	}

	s.ScheduleSync(userID, groupID)
	s.notify(ctx, notifications.Event{
		Type:    notifications.EventMemberJoined,
		UserID:  userID,
		GroupID: &groupID,
	})
	return membership, nil
}

// Leave soft-leaves the group by setting left_at. The owner must transfer
// ownership before leaving.
func (s *Service) Leave(ctx context.Context, userID, groupID uuid.UUID) error {
	if _, err := s.ActiveGroup(ctx, groupID); err != nil {
		return err
	}
	m, err := policies.ActiveMembership(s.DB.WithContext(ctx), groupID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return apperr.NotMember("You are not an active member of this group")
	}
	if m.Role == domain.RoleOwner {
		return apperr.OwnerImmutable("The owner cannot leave; transfer ownership first")
	}

	now := time.Now()
	m.LeftAt = &now
	if err := s.DB.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}

	s.notify(ctx, notifications.Event{
		Type:    notifications.EventMemberLeft,
		UserID:  userID,
		GroupID: &groupID,
	})
	return nil
}

type TransferOwnershipInput struct {
	ActorID       uuid.UUID
	PlatformAdmin bool
	GroupID       uuid.UUID
	NewOwnerID    uuid.UUID
}

// TransferOwnership atomically demotes the outgoing owner to ADMIN, promotes
// the incoming owner, and repoints Group.OwnerID. Either all three writes
// commit or none do. Every decision is made from state read inside the
// transaction; the owner_id repoint is a compare-and-swap against that in-tx
// read, so a transfer that raced another one fails with Conflict instead of
// committing a second owner.
func (s *Service) TransferOwnership(ctx context.Context, in TransferOwnershipInput) error {
	if _, err := s.ActiveGroup(ctx, in.GroupID); err != nil {
		return err
	}
	if err := policies.RequireManager(s.DB.WithContext(ctx), in.GroupID, in.ActorID, in.PlatformAdmin); err != nil {
		return err
	}

	var outgoingID *uuid.UUID
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group domain.Group
		if err := tx.Where("group_id = ?", in.GroupID).First(&group).Error; err != nil {
			return err
		}
		if group.OwnerID != nil && *group.OwnerID == in.NewOwnerID {
			return apperr.AlreadyOwner("This user already owns the group")
		}
		outgoingID = group.OwnerID

		incoming, err := policies.ActiveMembership(tx, in.GroupID, in.NewOwnerID)
		if err != nil {
			return err
		}
		if incoming == nil {
			return apperr.NotMember("The new owner must be an active member of the group")
		}

		// Demote every active OWNER row the group actually has, not just the
		// one owner_id points at, so the single-owner invariant holds even if
		// the rows drifted.
		if err := tx.Model(&domain.Membership{}).
			Where("group_id = ? AND role = ? AND left_at IS NULL AND user_id <> ?",
				in.GroupID, domain.RoleOwner, in.NewOwnerID).
			Update("role", domain.RoleAdmin).Error; err != nil {
			return err
		}

		incoming.Role = domain.RoleOwner
		if err := tx.Save(incoming).Error; err != nil {
			return err
		}

		repoint := tx.Model(&domain.Group{}).Where("group_id = ?", in.GroupID)
		if group.OwnerID != nil {
			repoint = repoint.Where("owner_id = ?", *group.OwnerID)
		} else {
			repoint = repoint.Where("owner_id IS NULL")
		}
		res := repoint.Update("owner_id", in.NewOwnerID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Another transfer repointed the owner between our read and this
			// write; rolling back leaves that transfer's result intact.
			return apperr.Conflict("Ownership changed concurrently; retry the transfer")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if outgoingID != nil {
		actor := in.ActorID
		s.notify(ctx, notifications.Event{
			Type:    notifications.EventOwnershipTransferred,
			UserID:  *outgoingID,
			ActorID: &actor,
			GroupID: &in.GroupID,
			Payload: map[string]interface{}{"new_owner_id": in.NewOwnerID.String()},
		})
	}
	actor := in.ActorID
	s.notify(ctx, notifications.Event{
		Type:    notifications.EventOwnershipTransferred,
		UserID:  in.NewOwnerID,
		ActorID: &actor,
		GroupID: &in.GroupID,
		Payload: map[string]interface{}{"new_owner_id": in.NewOwnerID.String()},
	})
	return nil
}

type UpdateGroupInput struct {
	ActorID       uuid.UUID
	PlatformAdmin bool
	GroupID       uuid.UUID
	Name          *string
	Description   *string
	Visibility    *string
}

// UpdateGroup renames/describes a group or toggles its privacy. Category
// groups stay public.
func (s *Service) UpdateGroup(ctx context.Context, in UpdateGroupInput) (*domain.Group, error) {
	group, err := s.ActiveGroup(ctx, in.GroupID)
	if err != nil {
		return nil, err
	}
	if err := policies.RequireManager(s.DB.WithContext(ctx), in.GroupID, in.ActorID, in.PlatformAdmin); err != nil {
		return nil, err
	}

	privacyChanged := false
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if !validation.IsValidGroupName(name) {
				return apperr.BadRequest("A valid group name is required")
			}
			group.Name = name
		}
		if in.Description != nil {
			group.Description = in.Description
		}
		if in.Visibility != nil && *in.Visibility != group.Visibility {
			if *in.Visibility != domain.VisibilityPublic && *in.Visibility != domain.VisibilityPrivate {
				return apperr.BadRequest("Unknown group visibility")
			}
			if group.Kind == domain.GroupKindCategory {
				return apperr.InvalidState("Category groups are always public")
			}
			group.Visibility = *in.Visibility
			privacyChanged = true
		}
		if err := tx.Save(group).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.NameConflict("A group with this name already exists")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if privacyChanged {
		actor := in.ActorID
		s.notify(ctx, notifications.Event{
			Type:    notifications.EventPrivacyChanged,
			UserID:  in.ActorID,
			ActorID: &actor,
			GroupID: &in.GroupID,
			Payload: map[string]interface{}{"visibility": group.Visibility},
		})
	}
	return group, nil
}

// DeleteGroup soft-deletes a group. Memberships and scores are retained for
// audit; the group disappears from listings and joins.
func (s *Service) DeleteGroup(ctx context.Context, actorID uuid.UUID, platformAdmin bool, groupID uuid.UUID) error {
	group, err := s.ActiveGroup(ctx, groupID)
	if err != nil {
		return err
	}
	isOwner := group.OwnerID != nil && *group.OwnerID == actorID
	if !isOwner && !platformAdmin {
		return apperr.Forbidden("Only the owner or a platform admin can delete this group")
	}
	return s.DB.WithContext(ctx).Delete(group).Error
}

// ListGroups returns the non-deleted groups visible to the caller: every
// public group plus private groups the caller is an active member of. When no
// groups exist at all, the default public group is bootstrapped lazily.
func (s *Service) ListGroups(ctx context.Context, callerID uuid.UUID) ([]domain.Group, error) {
	db := s.DB.WithContext(ctx)

	var total int64
	if err := db.Model(&domain.Group{}).Count(&total).Error; err != nil {
		return nil, err
	}
	if total == 0 && s.DefaultGroupName != "" {
		def := &domain.Group{
			Name:       s.DefaultGroupName,
			Kind:       domain.GroupKindCategory,
			Visibility: domain.VisibilityPublic,
		}
		if err := db.Create(def).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	}

	var groups []domain.Group
	err := db.
		Where("visibility = ?", domain.VisibilityPublic).
		Or("group_id IN (?)", db.Session(&gorm.Session{NewDB: true}).
			Model(&domain.Membership{}).
			Select("group_id").
			Where("user_id = ? AND left_at IS NULL", callerID)).
		Order("created_at ASC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// GetGroup returns a group the caller can see, plus the caller's membership
// if any. Private groups are invisible to outsiders.
func (s *Service) GetGroup(ctx context.Context, callerID, groupID uuid.UUID) (*domain.Group, *domain.Membership, error) {
	group, err := s.ActiveGroup(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	membership, err := policies.ActiveMembership(s.DB.WithContext(ctx), groupID, callerID)
	if err != nil {
		return nil, nil, err
	}
	if group.Visibility == domain.VisibilityPrivate && membership == nil {
		return nil, nil, apperr.NotFound("Group not found")
	}
	return group, membership, nil
}
