package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CourseProgress is written by the upstream course pipeline. This subsystem
// only aggregates it through the score feed.
type CourseProgress struct {
	ProgressID        uuid.UUID `gorm:"column:progress_id;type:uuid;primaryKey" json:"progress_id"`
	UserID            uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_course_progress_key" json:"user_id"`
	GroupID           uuid.UUID `gorm:"column:group_id;type:uuid;not null;uniqueIndex:idx_course_progress_key" json:"group_id"`
	CourseID          uuid.UUID `gorm:"column:course_id;type:uuid;not null;uniqueIndex:idx_course_progress_key" json:"course_id"`
	Started           bool      `gorm:"column:started;not null;default:false" json:"started"`
	Completed         bool      `gorm:"column:completed;not null;default:false" json:"completed"`
	CompletionPercent float64   `gorm:"column:completion_percent;not null;default:0" json:"completion_percent"`
	CommitCount       int       `gorm:"column:commit_count;not null;default:0" json:"commit_count"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (CourseProgress) TableName() string {
	return "course_progress"
}

func (p *CourseProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ProgressID == uuid.Nil {
		p.ProgressID = uuid.New()
	}
	return nil
}

// ProjectProgress is the project counterpart of CourseProgress.
type ProjectProgress struct {
	ProgressID      uuid.UUID `gorm:"column:progress_id;type:uuid;primaryKey" json:"progress_id"`
	UserID          uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_project_progress_key" json:"user_id"`
	GroupID         uuid.UUID `gorm:"column:group_id;type:uuid;not null;uniqueIndex:idx_project_progress_key" json:"group_id"`
	ProjectID       uuid.UUID `gorm:"column:project_id;type:uuid;not null;uniqueIndex:idx_project_progress_key" json:"project_id"`
	Started         bool      `gorm:"column:started;not null;default:false" json:"started"`
	Completed       bool      `gorm:"column:completed;not null;default:false" json:"completed"`
	EvaluationScore float64   `gorm:"column:evaluation_score;not null;default:0" json:"evaluation_score"`
	CommitCount     int       `gorm:"column:commit_count;not null;default:0" json:"commit_count"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (ProjectProgress) TableName() string {
	return "project_progress"
}

func (p *ProjectProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ProgressID == uuid.Nil {
		p.ProgressID = uuid.New()
	}
	return nil
}
