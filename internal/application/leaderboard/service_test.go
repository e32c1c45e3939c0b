package leaderboard

import (
	"context"
	"fmt"
	"testing"
	"time"

	groupsvc "learnhub-backend/internal/application/groups"
	"learnhub-backend/internal/domain"
	"learnhub-backend/internal/pkg/apperr"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupLeaderboardTest(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.User{}, &domain.Group{}, &domain.Membership{},
		&domain.GroupScore{}, &domain.Score{},
	))
	groups := &groupsvc.Service{DB: db}
	return &Service{DB: db, Groups: groups}, db
}

func seedLeaderboardUser(t *testing.T, db *gorm.DB, name string) *domain.User {
	t.Helper()
	u := &domain.User{UserName: name, FullName: name, Email: name + "@learnhub.dev"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedPublicGroup(t *testing.T, db *gorm.DB, owner uuid.UUID) *domain.Group {
	t.Helper()
	g := &domain.Group{Name: "Leaders", Kind: domain.GroupKindCustom, Visibility: domain.VisibilityPublic, OwnerID: &owner}
	require.NoError(t, db.Create(g).Error)
	require.NoError(t, db.Create(&domain.Membership{
		UserID: owner, GroupID: g.GroupID, Role: domain.RoleOwner, JoinedAt: time.Now(),
	}).Error)
	return g
}

// seedRankedMember creates a user, an active membership and a score row in one
// shot. updated lets tests control the recency tie-break.
func seedRankedMember(t *testing.T, db *gorm.DB, groupID uuid.UUID, name string, score float64, updated time.Time) *domain.GroupScore {
	t.Helper()
	u := seedLeaderboardUser(t, db, name)
	require.NoError(t, db.Create(&domain.Membership{
		UserID: u.UserID, GroupID: groupID, Role: domain.RoleMember, JoinedAt: time.Now(),
	}).Error)
	row := &domain.GroupScore{
		UserID: u.UserID, GroupID: groupID,
		FinalScore: score, LastUpdatedDate: updated,
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func TestGetPage_OrderingAndDenseRanks(t *testing.T) {
	svc, db := setupLeaderboardTest(t)
	owner := seedLeaderboardUser(t, db, "owner")
	g := seedPublicGroup(t, db, owner.UserID)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	seedRankedMember(t, db, g.GroupID, "low", 10, base)
	seedRankedMember(t, db, g.GroupID, "high", 90, base)
	seedRankedMember(t, db, g.GroupID, "mid", 50, base)

	page, err := svc.GetPage(context.Background(), owner.UserID, g.GroupID, 10, nil)
	require.NoError(t, err)
	require.Len(t, page.Entries, 3)
	assert.False(t, page.HasMore)
	assert.Nil(t, page.NextCursor)

	assert.Equal(t, "high", page.Entries[0].UserName)
	assert.Equal(t, "mid", page.Entries[1].UserName)
	assert.Equal(t, "low", page.Entries[2].UserName)
	for i, e := range page.Entries {
		assert.Equal(t, i+1, e.Rank)
	}
}

func TestGetPage_TieBreaksByRecencyThenID(t *testing.T) {
	svc, db := setupLeaderboardTest(t)
	owner := seedLeaderboardUser(t, db, "owner")
	g := seedPublicGroup(t, db, owner.UserID)

	older := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	stale := seedRankedMember(t, db, g.GroupID, "stale", 50, older)
	fresh := seedRankedMember(t, db, g.GroupID, "fresh", 50, newer)

	page, err := svc.GetPage(context.Background(), owner.UserID, g.GroupID, 10, nil)
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	// Equal scores: more recently updated first.
	assert.Equal(t, fresh.ScoreID, page.Entries[0].ScoreID)
	assert.Equal(t, stale.ScoreID, page.Entries[1].ScoreID)
}

func TestGetPage_KeysetPaginationIsStable(t *testing.T) {
	svc, db := setupLeaderboardTest(t)
	owner := seedLeaderboardUser(t, db, "owner")
	g := seedPublicGroup(t, db, owner.UserID)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedRankedMember(t, db, g.GroupID, fmt.Sprintf("user%d", i), float64(100-i*10), base)
	}

	first, err := svc.GetPage(context.Background(), owner.UserID, g.GroupID, 2, nil)
	require.NoError(t, err)
	require.Len(t, first.Entries, 2)
	require.True(t, first.HasMore)
	require.NotNil(t, first.NextCursor)
	assert.Equal(t, []int{1, 2}, []int{first.Entries[0].Rank, first.Entries[1].Rank})

	// A row inserted between page fetches must not shift the next page.
	seedRankedMember(t, db, g.GroupID, "latecomer", 200, base)

	second, err := svc.GetPage(context.Background(), owner.UserID, g.GroupID, 2, first.NextCursor)
	require.NoError(t, err)
	require.Len(t, second.Entries, 2)
	assert.Equal(t, "user2", second.Entries[0].UserName)
	assert.Equal(t, "user3", second.Entries[1].UserName)

	seen := map[uuid.UUID]bool{}
	for _, e := range append(first.Entries, second.Entries...) {
		assert.False(t, seen[e.ScoreID], "entry repeated across pages")
		seen[e.ScoreID] = true
	}
	// Ranks stay dense relative to the cursor even after the insert: the
	// latecomer sorts before the cursor row, so the base rank absorbs it.
	assert.Equal(t, 4, second.Entries[0].Rank)
	assert.Equal(t, 5, second.Entries[1].Rank)
}

func TestGetPage_ExcludesFormerMembers(t *testing.T) {
	svc, db := setupLeaderboardTest(t)
	owner := seedLeaderboardUser(t, db, "owner")
	g := seedPublicGroup(t, db, owner.UserID)

	base := time.Now()
	seedRankedMember(t, db, g.GroupID, "active", 30, base)
	gone := seedRankedMember(t, db, g.GroupID, "gone", 80, base)
	left := time.Now()
	require.NoError(t, db.Model(&domain.Membership{}).
		Where("user_id = ? AND group_id = ?", gone.UserID, g.GroupID).
		Update("left_at", left).Error)

	page, err := svc.GetPage(context.Background(), owner.UserID, g.GroupID, 10, nil)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "active", page.Entries[0].UserName)
	assert.Equal(t, 1, page.Entries[0].Rank)
}

func TestGetPage_WriteBackPersistsRanks(t *testing.T) {
	svc, db := setupLeaderboardTest(t)
	owner := seedLeaderboardUser(t, db, "owner")
	g := seedPublicGroup(t, db, owner.UserID)

	base := time.Now()
	top := seedRankedMember(t, db, g.GroupID, "top", 99, base)
	second := seedRankedMember(t, db, g.GroupID, "second", 1, base)

	_, err := svc.GetPage(context.Background(), owner.UserID, g.GroupID, 10, nil)
	require.NoError(t, err)

	var rows []domain.GroupScore
	require.NoError(t, db.Where("score_id IN ?", []uuid.UUID{top.ScoreID, second.ScoreID}).Find(&rows).Error)
	ranks := map[uuid.UUID]int{}
	for _, r := range rows {
		require.NotNil(t, r.Rank)
		ranks[r.ScoreID] = *r.Rank
	}
	assert.Equal(t, 1, ranks[top.ScoreID])
	assert.Equal(t, 2, ranks[second.ScoreID])
}

func TestGetPage_UnknownCursorRejected(t *testing.T) {
	svc, db := setupLeaderboardTest(t)
	owner := seedLeaderboardUser(t, db, "owner")
	g := seedPublicGroup(t, db, owner.UserID)

	bogus := uuid.New()
	_, err := svc.GetPage(context.Background(), owner.UserID, g.GroupID, 10, &bogus)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeBadRequest, appErr.Code)
}

func TestGetPage_PrivateGroupHiddenFromOutsiders(t *testing.T) {
	svc, db := setupLeaderboardTest(t)
	owner := seedLeaderboardUser(t, db, "owner")
	outsider := seedLeaderboardUser(t, db, "outsider")

	g := &domain.Group{Name: "Hidden", Kind: domain.GroupKindCustom, Visibility: domain.VisibilityPrivate, OwnerID: &owner.UserID}
	require.NoError(t, db.Create(g).Error)
	require.NoError(t, db.Create(&domain.Membership{
		UserID: owner.UserID, GroupID: g.GroupID, Role: domain.RoleOwner, JoinedAt: time.Now(),
	}).Error)

	_, err := svc.GetPage(context.Background(), outsider.UserID, g.GroupID, 10, nil)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeNotFound, appErr.Code)
}

func seedGlobalScore(t *testing.T, db *gorm.DB, name string, score float64, updated time.Time) *domain.Score {
	t.Helper()
	u := seedLeaderboardUser(t, db, name)
	row := &domain.Score{UserID: u.UserID, FinalScore: score, LastUpdatedDate: updated}
	require.NoError(t, db.Create(row).Error)
	return row
}

func TestGetGlobalPage_OrderingAndPagination(t *testing.T) {
	svc, db := setupLeaderboardTest(t)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		seedGlobalScore(t, db, fmt.Sprintf("dev%d", i), float64(40-i*10), base)
	}

	first, err := svc.GetGlobalPage(context.Background(), 3, nil, GlobalFilters{})
	require.NoError(t, err)
	require.Len(t, first.Entries, 3)
	require.True(t, first.HasMore)
	assert.Equal(t, "dev0", first.Entries[0].UserName)

	second, err := svc.GetGlobalPage(context.Background(), 3, first.NextCursor, GlobalFilters{})
	require.NoError(t, err)
	require.Len(t, second.Entries, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "dev3", second.Entries[0].UserName)
	assert.Equal(t, 4, second.Entries[0].Rank)
}

func TestGetGlobalPage_SearchFilter(t *testing.T) {
	svc, db := setupLeaderboardTest(t)

	now := time.Now()
	seedGlobalScore(t, db, "alice", 50, now)
	seedGlobalScore(t, db, "bob", 80, now)

	page, err := svc.GetGlobalPage(context.Background(), 10, nil, GlobalFilters{Search: "ALI"})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "alice", page.Entries[0].UserName)
	// Filtered ranks are positions within the filtered set.
	assert.Equal(t, 1, page.Entries[0].Rank)
}

func TestGetGlobalPage_GroupFilter(t *testing.T) {
	svc, db := setupLeaderboardTest(t)

	now := time.Now()
	inside := seedGlobalScore(t, db, "inside", 10, now)
	seedGlobalScore(t, db, "outside", 90, now)

	groupID := uuid.New()
	require.NoError(t, db.Create(&domain.Membership{
		UserID: inside.UserID, GroupID: groupID, Role: domain.RoleMember, JoinedAt: now,
	}).Error)

	page, err := svc.GetGlobalPage(context.Background(), 10, nil, GlobalFilters{GroupID: &groupID})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "inside", page.Entries[0].UserName)
}

func TestGetGlobalPage_SinceFilter(t *testing.T) {
	svc, db := setupLeaderboardTest(t)

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	seedGlobalScore(t, db, "dormant", 90, old)
	seedGlobalScore(t, db, "active", 10, recent)

	since := recent.Add(-time.Hour)
	page, err := svc.GetGlobalPage(context.Background(), 10, nil, GlobalFilters{Since: &since})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "active", page.Entries[0].UserName)
}

func TestGetGlobalPage_FirstPageCached(t *testing.T) {
	svc, db := setupLeaderboardTest(t)
	mr := miniredis.RunT(t)
	svc.Rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	now := time.Now()
	seedGlobalScore(t, db, "cached", 42, now)

	first, err := svc.GetGlobalPage(context.Background(), 10, nil, GlobalFilters{})
	require.NoError(t, err)
	require.Len(t, first.Entries, 1)
	require.True(t, mr.Exists("leaderboard:global:first:10"))

	// New rows are invisible until the TTL lapses.
	seedGlobalScore(t, db, "newcomer", 99, now)
	cached, err := svc.GetGlobalPage(context.Background(), 10, nil, GlobalFilters{})
	require.NoError(t, err)
	assert.Len(t, cached.Entries, 1)

	mr.FastForward(globalCacheTTL + time.Second)
	refreshed, err := svc.GetGlobalPage(context.Background(), 10, nil, GlobalFilters{})
	require.NoError(t, err)
	assert.Len(t, refreshed.Entries, 2)
}

func TestInvalidateGlobalCache(t *testing.T) {
	svc, db := setupLeaderboardTest(t)
	mr := miniredis.RunT(t)
	svc.Rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	seedGlobalScore(t, db, "solo", 5, time.Now())
	_, err := svc.GetGlobalPage(context.Background(), 10, nil, GlobalFilters{})
	require.NoError(t, err)
	require.True(t, mr.Exists("leaderboard:global:first:10"))

	svc.InvalidateGlobalCache(context.Background())
	assert.False(t, mr.Exists("leaderboard:global:first:10"))
}
