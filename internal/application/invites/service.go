package invites

import (
	"context"
	"time"

	"learnhub-backend/internal/application/emails"
	groupsvc "learnhub-backend/internal/application/groups"
	"learnhub-backend/internal/application/groups/policies"
	"learnhub-backend/internal/application/notifications"
	"learnhub-backend/internal/domain"
	"learnhub-backend/internal/pkg/apperr"
	"learnhub-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const inviteExpiry = 7 * 24 * time.Hour

// Service manages the invite lifecycle. Expiry is evaluated lazily when an
// invite is responded to or listed; no background sweep exists.
type Service struct {
	DB      *gorm.DB
	Groups  *groupsvc.Service
	Sink    notifications.Sink
	Mailer  emails.Mailer
	BaseURL string
}

func (s *Service) notify(ctx context.Context, ev notifications.Event) {
	if s.Sink == nil {
		return
	}
	s.Sink.Publish(ctx, ev)
}

type SendInviteInput struct {
	ActorID       uuid.UUID
	PlatformAdmin bool
	GroupID       uuid.UUID
	TargetQuery   string // username or email
	Role          string
}

// SendInvite creates a pending invite with a 7-day expiry. At most one
// pending invite may exist per (group, target); a stale pending invite past
// its deadline is flipped to expired and replaced.
func (s *Service) SendInvite(ctx context.Context, in SendInviteInput) (*domain.Invite, error) {
	group, err := s.Groups.ActiveGroup(ctx, in.GroupID)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	if err := policies.RequireManager(db, in.GroupID, in.ActorID, in.PlatformAdmin); err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = domain.RoleMember
	}
	if role != domain.RoleMember && role != domain.RoleAdmin && role != domain.RoleOwner {
		return nil, apperr.BadRequest("Unknown membership role")
	}

	target, err := s.resolveTarget(ctx, in.TargetQuery)
	if err != nil {
		return nil, err
	}

	targetIsOwner := group.OwnerID != nil && *group.OwnerID == target.UserID
	if (targetIsOwner || role == domain.RoleOwner) && !in.PlatformAdmin {
		return nil, apperr.OwnerImmutable("Ownership cannot be granted by invitation")
	}

	existing, err := policies.ActiveMembership(db, in.GroupID, target.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.AlreadyMember("User is already an active member of this group")
	}

	now := time.Now()
	var invite domain.Invite
	err = db.Transaction(func(tx *gorm.DB) error {
		var pending domain.Invite
		err := tx.Where("group_id = ? AND to_user_id = ? AND status = ?",
			in.GroupID, target.UserID, domain.InviteStatusPending).First(&pending).Error
		switch {
		case err == nil:
			if !pending.Expired(now) {
				return apperr.Conflict("A pending invitation already exists for this user")
			}
			// Lazy expiry: retire the stale invite, then issue a fresh one.
			pending.Status = domain.InviteStatusExpired
			if err := tx.Save(&pending).Error; err != nil {
				return err
			}
		case err != gorm.ErrRecordNotFound:
			return err
		}

		invite = domain.Invite{
			GroupID:    in.GroupID,
			FromUserID: in.ActorID,
			ToUserID:   target.UserID,
			Role:       role,
			Status:     domain.InviteStatusPending,
			ExpiresAt:  now.Add(inviteExpiry),
		}
		return tx.Create(&invite).Error
	})
	if err != nil {
		return nil, err
	}

	actor := in.ActorID
	s.notify(ctx, notifications.Event{
		Type:    notifications.EventInviteCreated,
		UserID:  target.UserID,
		ActorID: &actor,
		GroupID: &in.GroupID,
		Payload: map[string]interface{}{"invite_id": invite.InviteID.String(), "role": role},
	})
	s.mailInvite(target.Email, group.Name, role, invite.InviteID)
	return &invite, nil
}

// mailInvite emails the target off the request path. The invite row already
// committed; a delivery failure is logged and dropped.
func (s *Service) mailInvite(toEmail, groupName, role string, inviteID uuid.UUID) {
	if s.Mailer == nil {
		return
	}
	link := s.BaseURL + "/invites/" + inviteID.String()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Mailer.SendInvite(ctx, toEmail, groupName, role, link); err != nil {
			log.Warn().Err(err).Str("invite_id", inviteID.String()).Msg("invite email delivery failed")
		}
	}()
}

func (s *Service) resolveTarget(ctx context.Context, query string) (*domain.User, error) {
	normalized := validation.NormalizeQuery(query)
	if normalized == "" {
		return nil, apperr.BadRequest("An invite target is required")
	}
	var user domain.User
	err := s.DB.WithContext(ctx).
		Where("LOWER(user_name) = ? OR LOWER(email) = ?", normalized, normalized).
		First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.NotFound("Invite target not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Respond accepts or rejects a pending invite. Only the invite's target may
// respond; accept admits the target with the invited role, bypassing the
// group's visibility check.
func (s *Service) Respond(ctx context.Context, callerID, inviteID uuid.UUID, accept bool) error {
	db := s.DB.WithContext(ctx)

	var invite domain.Invite
	if err := db.Where("invite_id = ?", inviteID).First(&invite).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperr.NotFound("Invitation not found")
		}
		return err
	}
	if invite.ToUserID != callerID {
		return apperr.Forbidden("Only the invited user may respond to this invitation")
	}
	if invite.Status != domain.InviteStatusPending {
		return apperr.InvalidState("Invitation is no longer pending")
	}
	if invite.Expired(time.Now()) {
		invite.Status = domain.InviteStatusExpired
		if err := db.Save(&invite).Error; err != nil {
			log.Warn().Err(err).Str("invite_id", invite.InviteID.String()).
				Msg("failed to persist invite expiry")
		}
		return apperr.InvalidState("Invitation has expired")
	}

	group, err := s.Groups.ActiveGroup(ctx, invite.GroupID)
	if err != nil {
		// The group was deleted after the invite went out.
		return apperr.InvalidState("The group behind this invitation is gone")
	}

	if !accept {
		invite.Status = domain.InviteStatusRejected
		if err := db.Save(&invite).Error; err != nil {
			return err
		}
		from := invite.FromUserID
		s.notify(ctx, notifications.Event{
			Type:    notifications.EventInviteRejected,
			UserID:  from,
			ActorID: &callerID,
			GroupID: &invite.GroupID,
		})
		return nil
	}

	role := invite.Role
	if role == "" || role == domain.RoleOwner {
		role = domain.RoleMember
	}
	// Admission and the status flip commit together; a failure on either side
	// leaves the invite pending and the member out.
	err = db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.Groups.AdmitTx(tx, callerID, group, role); err != nil {
			return err
		}
		invite.Status = domain.InviteStatusAccepted
		return tx.Save(&invite).Error
	})
	if err != nil {
		return err
	}

	s.Groups.ScheduleSync(callerID, invite.GroupID)
	from := invite.FromUserID
	s.notify(ctx, notifications.Event{
		Type:    notifications.EventInviteAccepted,
		UserID:  from,
		ActorID: &callerID,
		GroupID: &invite.GroupID,
	})
	s.notify(ctx, notifications.Event{
		Type:    notifications.EventMemberJoined,
		UserID:  callerID,
		GroupID: &invite.GroupID,
	})
	return nil
}

// Cancel retires a pending invite. The inviter or any group manager may
// cancel.
func (s *Service) Cancel(ctx context.Context, actorID uuid.UUID, platformAdmin bool, inviteID uuid.UUID) error {
	db := s.DB.WithContext(ctx)

	var invite domain.Invite
	if err := db.Where("invite_id = ?", inviteID).First(&invite).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperr.NotFound("Invitation not found")
		}
		return err
	}
	if invite.Status != domain.InviteStatusPending {
		return apperr.InvalidState("Invitation is no longer pending")
	}
	if invite.FromUserID != actorID {
		if err := policies.RequireManager(db, invite.GroupID, actorID, platformAdmin); err != nil {
			return err
		}
	}

	invite.Status = domain.InviteStatusCancelled
	return db.Save(&invite).Error
}

// ListGroupInvites lists a group's invites, flipping overdue pending invites
// to expired on the way out.
func (s *Service) ListGroupInvites(ctx context.Context, actorID uuid.UUID, platformAdmin bool, groupID uuid.UUID, status string) ([]domain.Invite, error) {
	if _, err := s.Groups.ActiveGroup(ctx, groupID); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	if err := policies.RequireManager(db, groupID, actorID, platformAdmin); err != nil {
		return nil, err
	}

	now := time.Now()
	q := db.Where("group_id = ?", groupID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var invites []domain.Invite
	if err := q.Order("created_at DESC").Find(&invites).Error; err != nil {
		return nil, err
	}
	for i := range invites {
		if invites[i].Status == domain.InviteStatusPending && invites[i].Expired(now) {
			invites[i].Status = domain.InviteStatusExpired
			if err := db.Save(&invites[i]).Error; err != nil {
				log.Warn().Err(err).Str("invite_id", invites[i].InviteID.String()).
					Msg("failed to persist invite expiry")
			}
		}
	}
	return invites, nil
}
