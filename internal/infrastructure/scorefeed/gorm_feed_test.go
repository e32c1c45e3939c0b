package scorefeed

import (
	"context"
	"testing"

	"learnhub-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupFeedTest(t *testing.T) (*GormFeed, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.CourseProgress{}, &domain.ProjectProgress{}))
	return &GormFeed{DB: db}, db
}

func TestGroupCounters_Aggregation(t *testing.T) {
	feed, db := setupFeedTest(t)
	userID, groupID := uuid.New(), uuid.New()

	// Two started courses at 40% and 80%, one untouched course.
	require.NoError(t, db.Create(&domain.CourseProgress{
		UserID: userID, GroupID: groupID, CourseID: uuid.New(),
		Started: true, CompletionPercent: 40,
	}).Error)
	require.NoError(t, db.Create(&domain.CourseProgress{
		UserID: userID, GroupID: groupID, CourseID: uuid.New(),
		Started: true, Completed: true, CompletionPercent: 80,
	}).Error)
	require.NoError(t, db.Create(&domain.CourseProgress{
		UserID: userID, GroupID: groupID, CourseID: uuid.New(),
	}).Error)

	// One started project, one completed with an evaluation.
	require.NoError(t, db.Create(&domain.ProjectProgress{
		UserID: userID, GroupID: groupID, ProjectID: uuid.New(),
		Started: true,
	}).Error)
	require.NoError(t, db.Create(&domain.ProjectProgress{
		UserID: userID, GroupID: groupID, ProjectID: uuid.New(),
		Started: true, Completed: true, EvaluationScore: 17.5,
	}).Error)

	c, err := feed.GroupCounters(context.Background(), userID, groupID)
	require.NoError(t, err)
	assert.Equal(t, 2, c.CoursesStarted)
	assert.Equal(t, 60.0, c.AverageCourseCompletion)
	assert.Equal(t, 2, c.ProjectsStarted)
	assert.Equal(t, 1, c.ProjectsCompleted)
	assert.Equal(t, 17.5, c.TotalEvaluationScore)
}

func TestGroupCounters_ScopedToGroup(t *testing.T) {
	feed, db := setupFeedTest(t)
	userID := uuid.New()
	groupA, groupB := uuid.New(), uuid.New()

	require.NoError(t, db.Create(&domain.CourseProgress{
		UserID: userID, GroupID: groupA, CourseID: uuid.New(),
		Started: true, CompletionPercent: 100,
	}).Error)
	require.NoError(t, db.Create(&domain.CourseProgress{
		UserID: userID, GroupID: groupB, CourseID: uuid.New(),
		Started: true, CompletionPercent: 10,
	}).Error)

	c, err := feed.GroupCounters(context.Background(), userID, groupA)
	require.NoError(t, err)
	assert.Equal(t, 1, c.CoursesStarted)
	assert.Equal(t, 100.0, c.AverageCourseCompletion)
}

func TestGroupCounters_EmptyProgress(t *testing.T) {
	feed, _ := setupFeedTest(t)

	c, err := feed.GroupCounters(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, c.CoursesStarted)
	assert.Zero(t, c.AverageCourseCompletion)
	assert.Zero(t, c.ProjectsStarted)
	assert.Zero(t, c.ProjectsCompleted)
	assert.Zero(t, c.TotalEvaluationScore)
}

func TestGlobalCounters_SpansGroups(t *testing.T) {
	feed, db := setupFeedTest(t)
	userID := uuid.New()
	groupA, groupB := uuid.New(), uuid.New()

	require.NoError(t, db.Create(&domain.CourseProgress{
		UserID: userID, GroupID: groupA, CourseID: uuid.New(),
		Started: true, Completed: true, CommitCount: 3,
	}).Error)
	require.NoError(t, db.Create(&domain.ProjectProgress{
		UserID: userID, GroupID: groupB, ProjectID: uuid.New(),
		Started: true, Completed: true, EvaluationScore: 9, CommitCount: 4,
	}).Error)
	// Another user's rows must not bleed in.
	require.NoError(t, db.Create(&domain.ProjectProgress{
		UserID: uuid.New(), GroupID: groupB, ProjectID: uuid.New(),
		Started: true, Completed: true, EvaluationScore: 50, CommitCount: 99,
	}).Error)

	c, err := feed.GlobalCounters(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 7, c.Commits)
	assert.Equal(t, 1, c.CoursesCompleted)
	assert.Equal(t, 1, c.ProjectsCompleted)
	assert.Equal(t, 9.0, c.TotalEvaluationScore)
}
