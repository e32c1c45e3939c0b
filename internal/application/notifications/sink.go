// Package notifications emits membership lifecycle events to an external
// delivery system. Emission is fire-and-forget: a sink failure is logged and
// never propagated to the operation that triggered it.
package notifications

import (
	"context"
	"encoding/json"
	"time"

	"learnhub-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event types published by the lifecycle manager.
const (
	EventMemberJoined         = "member.joined"
	EventMemberLeft           = "member.left"
	EventMemberPromoted       = "member.promoted"
	EventMemberDemoted        = "member.demoted"
	EventMemberRemoved        = "member.removed"
	EventOwnershipTransferred = "ownership.transferred"
	EventPrivacyChanged       = "group.privacy_changed"
	EventInviteCreated        = "invite.created"
	EventInviteAccepted       = "invite.accepted"
	EventInviteRejected       = "invite.rejected"
)

// Event says "deliver this to user U". Payload carries event-specific extras.
type Event struct {
	Type    string                 `json:"type"`
	UserID  uuid.UUID              `json:"user_id"`
	GroupID *uuid.UUID             `json:"group_id,omitempty"`
	ActorID *uuid.UUID             `json:"actor_id,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	At      time.Time              `json:"at"`
}

// Sink accepts lifecycle events for delivery.
type Sink interface {
	Publish(ctx context.Context, ev Event)
}

// RedisSink publishes events on a redis channel and records an audit row.
// Both writes are best effort.
type RedisSink struct {
	Rdb     *redis.Client
	DB      *gorm.DB
	Channel string
}

func (s *RedisSink) Publish(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("type", ev.Type).Msg("notification marshal failed")
		return
	}
	if s.Rdb != nil {
		if err := s.Rdb.Publish(ctx, s.Channel, body).Err(); err != nil {
			log.Error().Err(err).Str("type", ev.Type).Msg("notification publish failed")
		}
	}
	if s.DB != nil {
		payload, _ := json.Marshal(ev.Payload)
		record := domain.NotificationEvent{
			Type:    ev.Type,
			GroupID: ev.GroupID,
			UserID:  ev.UserID,
			ActorID: ev.ActorID,
			Payload: datatypes.JSON(payload),
		}
		if err := s.DB.WithContext(ctx).Create(&record).Error; err != nil {
			log.Error().Err(err).Str("type", ev.Type).Msg("notification audit write failed")
		}
	}
}

// NopSink drops every event. Used when no redis is configured and in tests
// that don't assert on notifications.
type NopSink struct{}

func (NopSink) Publish(ctx context.Context, ev Event) {}
