package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"learnhub-backend/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupSinkTest(t *testing.T) (*RedisSink, *miniredis.Miniredis, *gorm.DB) {
	t.Helper()
	mr := miniredis.RunT(t)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.NotificationEvent{}))
	sink := &RedisSink{
		Rdb:     redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		DB:      db,
		Channel: "learnhub:events",
	}
	return sink, mr, db
}

func TestRedisSink_PublishesAndAudits(t *testing.T) {
	sink, mr, db := setupSinkTest(t)

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()}).
		Subscribe(context.Background(), "learnhub:events")
	defer sub.Close()
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	groupID, userID, actorID := uuid.New(), uuid.New(), uuid.New()
	sink.Publish(context.Background(), Event{
		Type:    EventMemberPromoted,
		UserID:  userID,
		GroupID: &groupID,
		ActorID: &actorID,
		Payload: map[string]interface{}{"role": domain.RoleAdmin},
	})

	msg, err := sub.ReceiveTimeout(context.Background(), time.Second)
	require.NoError(t, err)
	received, ok := msg.(*redis.Message)
	require.True(t, ok)

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(received.Payload), &ev))
	assert.Equal(t, EventMemberPromoted, ev.Type)
	assert.Equal(t, userID, ev.UserID)
	assert.False(t, ev.At.IsZero())

	var record domain.NotificationEvent
	require.NoError(t, db.First(&record).Error)
	assert.Equal(t, EventMemberPromoted, record.Type)
	assert.Equal(t, userID, record.UserID)
	require.NotNil(t, record.GroupID)
	assert.Equal(t, groupID, *record.GroupID)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(record.Payload, &payload))
	assert.Equal(t, domain.RoleAdmin, payload["role"])
}

func TestRedisSink_AuditsWithoutRedis(t *testing.T) {
	_, _, db := setupSinkTest(t)
	sink := &RedisSink{DB: db, Channel: "learnhub:events"}

	sink.Publish(context.Background(), Event{Type: EventMemberLeft, UserID: uuid.New()})

	var count int64
	require.NoError(t, db.Model(&domain.NotificationEvent{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRedisSink_PublishErrorSwallowed(t *testing.T) {
	sink, mr, db := setupSinkTest(t)
	mr.Close()

	// Must not panic or error out even with redis down.
	sink.Publish(context.Background(), Event{Type: EventMemberJoined, UserID: uuid.New()})

	var count int64
	require.NoError(t, db.Model(&domain.NotificationEvent{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
