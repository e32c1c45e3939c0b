package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GroupScore is the per-(user, group) ranking record derived from the score
// feed. Rank is a cache refreshed opportunistically by the leaderboard query
// path; it may lag FinalScore and is never authoritative.
type GroupScore struct {
	ScoreID                 uuid.UUID `gorm:"column:score_id;type:uuid;primaryKey" json:"score_id"`
	UserID                  uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_group_scores_user_group" json:"user_id"`
	GroupID                 uuid.UUID `gorm:"column:group_id;type:uuid;not null;uniqueIndex:idx_group_scores_user_group" json:"group_id"`
	CoursesStarted          int       `gorm:"column:courses_started;not null;default:0" json:"courses_started"`
	AverageCourseCompletion float64   `gorm:"column:average_course_completion;not null;default:0" json:"average_course_completion"`
	ProjectsStarted         int       `gorm:"column:projects_started;not null;default:0" json:"projects_started"`
	ProjectsCompleted       int       `gorm:"column:projects_completed;not null;default:0" json:"projects_completed"`
	TotalEvaluationScore    float64   `gorm:"column:total_evaluation_score;not null;default:0" json:"total_evaluation_score"`
	FinalScore              float64   `gorm:"column:final_score;not null;default:0;index" json:"final_score"`
	Rank                    *int      `gorm:"column:rank" json:"rank"`
	LastUpdatedDate         time.Time `gorm:"column:last_updated_date;not null" json:"last_updated_date"`
	CreatedAt               time.Time `json:"createdAt"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

func (GroupScore) TableName() string {
	return "group_scores"
}

func (s *GroupScore) BeforeCreate(tx *gorm.DB) error {
	if s.ScoreID == uuid.Nil {
		s.ScoreID = uuid.New()
	}
	return nil
}

// Score is the per-user global ranking record behind the global leaderboard.
type Score struct {
	ScoreID              uuid.UUID `gorm:"column:score_id;type:uuid;primaryKey" json:"score_id"`
	UserID               uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"user_id"`
	Commits              int       `gorm:"column:commits;not null;default:0" json:"commits"`
	CoursesCompleted     int       `gorm:"column:courses_completed;not null;default:0" json:"courses_completed"`
	ProjectsCompleted    int       `gorm:"column:projects_completed;not null;default:0" json:"projects_completed"`
	TotalEvaluationScore float64   `gorm:"column:total_evaluation_score;not null;default:0" json:"total_evaluation_score"`
	FinalScore           float64   `gorm:"column:final_score;not null;default:0;index" json:"final_score"`
	Rank                 *int      `gorm:"column:rank" json:"rank"`
	LastUpdatedDate      time.Time `gorm:"column:last_updated_date;not null" json:"last_updated_date"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func (Score) TableName() string {
	return "scores"
}

func (s *Score) BeforeCreate(tx *gorm.DB) error {
	if s.ScoreID == uuid.Nil {
		s.ScoreID = uuid.New()
	}
	return nil
}
