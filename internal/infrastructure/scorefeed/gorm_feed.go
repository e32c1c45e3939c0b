// Package scorefeed implements the score feed over the progress tables the
// upstream course/project pipeline maintains.
package scorefeed

import (
	"context"

	"learnhub-backend/internal/application/scores"
	"learnhub-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFeed aggregates course and project progress with plain SQL that stays
// portable between postgres and the sqlite test driver.
type GormFeed struct {
	DB *gorm.DB
}

var _ scores.Feed = (*GormFeed)(nil)

func (f *GormFeed) GroupCounters(ctx context.Context, userID, groupID uuid.UUID) (*scores.GroupCounters, error) {
	db := f.DB.WithContext(ctx)
	var counters scores.GroupCounters

	var started int64
	if err := db.Model(&domain.CourseProgress{}).
		Where("user_id = ? AND group_id = ? AND started = ?", userID, groupID, true).
		Count(&started).Error; err != nil {
		return nil, err
	}
	counters.CoursesStarted = int(started)

	var avg float64
	if err := db.Model(&domain.CourseProgress{}).
		Where("user_id = ? AND group_id = ? AND started = ?", userID, groupID, true).
		Select("COALESCE(AVG(completion_percent), 0)").
		Scan(&avg).Error; err != nil {
		return nil, err
	}
	counters.AverageCourseCompletion = avg

	var projStarted, projCompleted int64
	if err := db.Model(&domain.ProjectProgress{}).
		Where("user_id = ? AND group_id = ? AND started = ?", userID, groupID, true).
		Count(&projStarted).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.ProjectProgress{}).
		Where("user_id = ? AND group_id = ? AND completed = ?", userID, groupID, true).
		Count(&projCompleted).Error; err != nil {
		return nil, err
	}
	counters.ProjectsStarted = int(projStarted)
	counters.ProjectsCompleted = int(projCompleted)

	var eval float64
	if err := db.Model(&domain.ProjectProgress{}).
		Where("user_id = ? AND group_id = ? AND completed = ?", userID, groupID, true).
		Select("COALESCE(SUM(evaluation_score), 0)").
		Scan(&eval).Error; err != nil {
		return nil, err
	}
	counters.TotalEvaluationScore = eval

	return &counters, nil
}

func (f *GormFeed) GlobalCounters(ctx context.Context, userID uuid.UUID) (*scores.GlobalCounters, error) {
	db := f.DB.WithContext(ctx)
	var counters scores.GlobalCounters

	var courseCommits, projectCommits int64
	if err := db.Model(&domain.CourseProgress{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(commit_count), 0)").
		Scan(&courseCommits).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.ProjectProgress{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(commit_count), 0)").
		Scan(&projectCommits).Error; err != nil {
		return nil, err
	}
	counters.Commits = int(courseCommits + projectCommits)

	var coursesCompleted, projectsCompleted int64
	if err := db.Model(&domain.CourseProgress{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&coursesCompleted).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.ProjectProgress{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&projectsCompleted).Error; err != nil {
		return nil, err
	}
	counters.CoursesCompleted = int(coursesCompleted)
	counters.ProjectsCompleted = int(projectsCompleted)

	var eval float64
	if err := db.Model(&domain.ProjectProgress{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Select("COALESCE(SUM(evaluation_score), 0)").
		Scan(&eval).Error; err != nil {
		return nil, err
	}
	counters.TotalEvaluationScore = eval

	return &counters, nil
}
