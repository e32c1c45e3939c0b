package scores

import (
	"context"
	"fmt"
	"math"
	"time"

	"learnhub-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Weights of the final-score formula. Fixed: recomputation from the same feed
// state always yields the same score.
const (
	weightCourseStarted    = 10.0
	weightAvgCompletion    = 0.5
	weightProjectStarted   = 5.0
	weightProjectCompleted = 25.0

	weightCommit          = 2.0
	weightCourseCompleted = 20.0
)

// Service recomputes score records from the feed. Sync failures are the
// caller's to swallow — membership correctness never depends on them.
type Service struct {
	DB   *gorm.DB
	Feed Feed
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// GroupFinalScore computes the weighted group-scope score.
func GroupFinalScore(c *GroupCounters) float64 {
	return round2(weightCourseStarted*float64(c.CoursesStarted) +
		weightAvgCompletion*c.AverageCourseCompletion +
		weightProjectStarted*float64(c.ProjectsStarted) +
		weightProjectCompleted*float64(c.ProjectsCompleted) +
		c.TotalEvaluationScore)
}

// GlobalFinalScore computes the weighted global-scope score.
func GlobalFinalScore(c *GlobalCounters) float64 {
	return round2(weightCommit*float64(c.Commits) +
		weightCourseCompleted*float64(c.CoursesCompleted) +
		weightProjectCompleted*float64(c.ProjectsCompleted) +
		c.TotalEvaluationScore)
}

// SyncGroupScore pulls current counters for (user, group) and upserts the
// GroupScore row keyed by its natural unique constraint. Idempotent; the only
// side effect is the single row write. The cached rank is left untouched —
// the leaderboard query path refreshes it.
func (s *Service) SyncGroupScore(ctx context.Context, userID, groupID uuid.UUID) error {
	counters, err := s.Feed.GroupCounters(ctx, userID, groupID)
	if err != nil {
		return fmt.Errorf("group counters for user %s: %w", userID, err)
	}

	row := domain.GroupScore{
		UserID:                  userID,
		GroupID:                 groupID,
		CoursesStarted:          counters.CoursesStarted,
		AverageCourseCompletion: round2(counters.AverageCourseCompletion),
		ProjectsStarted:         counters.ProjectsStarted,
		ProjectsCompleted:       counters.ProjectsCompleted,
		TotalEvaluationScore:    round2(counters.TotalEvaluationScore),
		FinalScore:              GroupFinalScore(counters),
		LastUpdatedDate:         time.Now(),
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "group_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"courses_started", "average_course_completion", "projects_started",
			"projects_completed", "total_evaluation_score", "final_score",
			"last_updated_date", "updated_at",
		}),
	}).Create(&row).Error
}

// SyncGlobalScore is the global counterpart of SyncGroupScore.
func (s *Service) SyncGlobalScore(ctx context.Context, userID uuid.UUID) error {
	counters, err := s.Feed.GlobalCounters(ctx, userID)
	if err != nil {
		return fmt.Errorf("global counters for user %s: %w", userID, err)
	}

	row := domain.Score{
		UserID:               userID,
		Commits:              counters.Commits,
		CoursesCompleted:     counters.CoursesCompleted,
		ProjectsCompleted:    counters.ProjectsCompleted,
		TotalEvaluationScore: round2(counters.TotalEvaluationScore),
		FinalScore:           GlobalFinalScore(counters),
		LastUpdatedDate:      time.Now(),
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"commits", "courses_completed", "projects_completed",
			"total_evaluation_score", "final_score", "last_updated_date", "updated_at",
		}),
	}).Create(&row).Error
}

// BulkSyncSummary reports an administrative sweep. Failures are collected,
// never fatal to the sweep.
type BulkSyncSummary struct {
	Memberships int      `json:"memberships"`
	Users       int      `json:"users"`
	Synced      int      `json:"synced"`
	Failed      int      `json:"failed"`
	Errors      []string `json:"errors,omitempty"`
}

// BulkSync re-syncs every active membership's group score and every active
// user's global score.
func (s *Service) BulkSync(ctx context.Context) (*BulkSyncSummary, error) {
	var memberships []domain.Membership
	if err := s.DB.WithContext(ctx).Where("left_at IS NULL").Find(&memberships).Error; err != nil {
		return nil, err
	}

	summary := &BulkSyncSummary{Memberships: len(memberships)}
	seen := map[uuid.UUID]bool{}
	for _, m := range memberships {
		if err := s.SyncGroupScore(ctx, m.UserID, m.GroupID); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, err.Error())
		} else {
			summary.Synced++
		}
		seen[m.UserID] = true
	}
	summary.Users = len(seen)
	for userID := range seen {
		if err := s.SyncGlobalScore(ctx, userID); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, err.Error())
		} else {
			summary.Synced++
		}
	}
	return summary, nil
}
