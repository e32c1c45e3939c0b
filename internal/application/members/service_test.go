package members

import (
	"context"
	"testing"

	groupsvc "learnhub-backend/internal/application/groups"
	"learnhub-backend/internal/domain"
	"learnhub-backend/internal/pkg/apperr"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupMembersTest(t *testing.T) (*Service, *groupsvc.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.User{}, &domain.Group{}, &domain.Membership{}, &domain.Invite{},
		&domain.GroupScore{}, &domain.Score{},
	))

	gs := &groupsvc.Service{DB: db}
	return &Service{DB: db, Groups: gs}, gs, db
}

func seedUser(t *testing.T, db *gorm.DB, name string) uuid.UUID {
	t.Helper()
	u := domain.User{UserName: name, FullName: name, Email: name + "@example.com"}
	require.NoError(t, db.Create(&u).Error)
	return u.UserID
}

func seedGroupWithMember(t *testing.T, gs *groupsvc.Service, db *gorm.DB) (group *domain.Group, owner, member uuid.UUID) {
	t.Helper()
	owner = seedUser(t, db, "alice")
	member = seedUser(t, db, "bob")
	g, err := gs.CreateGroup(context.Background(), groupsvc.CreateGroupInput{ActorID: owner, Name: "Alpha"})
	require.NoError(t, err)
	_, err = gs.Join(context.Background(), member, g.GroupID)
	require.NoError(t, err)
	return g, owner, member
}

func TestManageMember_PromoteDemote(t *testing.T) {
	svc, _, db := setupMembersTest(t)
	group, owner, member := seedGroupWithMember(t, svc.Groups, db)

	require.NoError(t, svc.ManageMember(context.Background(), ManageMemberInput{
		ActorID: owner, GroupID: group.GroupID, TargetID: member, Action: ActionPromote,
	}))
	var m domain.Membership
	require.NoError(t, db.Where("group_id = ? AND user_id = ?", group.GroupID, member).First(&m).Error)
	assert.Equal(t, domain.RoleAdmin, m.Role)

	// Promote again is a NoOp.
	err := svc.ManageMember(context.Background(), ManageMemberInput{
		ActorID: owner, GroupID: group.GroupID, TargetID: member, Action: ActionPromote,
	})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeNoOp, ae.Code)

	require.NoError(t, svc.ManageMember(context.Background(), ManageMemberInput{
		ActorID: owner, GroupID: group.GroupID, TargetID: member, Action: ActionDemote,
	}))
	require.NoError(t, db.Where("group_id = ? AND user_id = ?", group.GroupID, member).First(&m).Error)
	assert.Equal(t, domain.RoleMember, m.Role)
}

func TestManageMember_Remove(t *testing.T) {
	svc, _, db := setupMembersTest(t)
	group, owner, member := seedGroupWithMember(t, svc.Groups, db)

	require.NoError(t, svc.ManageMember(context.Background(), ManageMemberInput{
		ActorID: owner, GroupID: group.GroupID, TargetID: member, Action: ActionRemove,
	}))

	var m domain.Membership
	require.NoError(t, db.Where("group_id = ? AND user_id = ?", group.GroupID, member).First(&m).Error)
	assert.NotNil(t, m.LeftAt)
}

func TestManageMember_SelfActionRejected(t *testing.T) {
	svc, _, db := setupMembersTest(t)
	group, owner, _ := seedGroupWithMember(t, svc.Groups, db)

	err := svc.ManageMember(context.Background(), ManageMemberInput{
		ActorID: owner, GroupID: group.GroupID, TargetID: owner, Action: ActionPromote,
	})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeSelfAction, ae.Code)
}

func TestManageMember_OwnerImmutable(t *testing.T) {
	svc, gs, db := setupMembersTest(t)
	group, owner, member := seedGroupWithMember(t, gs, db)

	// Make the member an admin so they hold manage rights, then point them at
	// the owner.
	require.NoError(t, svc.ManageMember(context.Background(), ManageMemberInput{
		ActorID: owner, GroupID: group.GroupID, TargetID: member, Action: ActionPromote,
	}))

	err := svc.ManageMember(context.Background(), ManageMemberInput{
		ActorID: member, GroupID: group.GroupID, TargetID: owner, Action: ActionDemote,
	})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeOwnerImmutable, ae.Code)
}

func TestManageMember_NonManagerForbidden(t *testing.T) {
	svc, gs, db := setupMembersTest(t)
	group, _, member := seedGroupWithMember(t, gs, db)
	other := seedUser(t, db, "carol")
	_, err := gs.Join(context.Background(), other, group.GroupID)
	require.NoError(t, err)

	err = svc.ManageMember(context.Background(), ManageMemberInput{
		ActorID: member, GroupID: group.GroupID, TargetID: other, Action: ActionPromote,
	})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeForbidden, ae.Code)
}

func TestListMembers_OwnerFirstActiveOnly(t *testing.T) {
	svc, gs, db := setupMembersTest(t)
	group, owner, member := seedGroupWithMember(t, gs, db)
	gone := seedUser(t, db, "carol")
	_, err := gs.Join(context.Background(), gone, group.GroupID)
	require.NoError(t, err)
	require.NoError(t, gs.Leave(context.Background(), gone, group.GroupID))

	members, err := svc.ListMembers(context.Background(), member, group.GroupID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, owner, members[0].UserID)
	assert.Equal(t, domain.RoleOwner, members[0].Role)
}
