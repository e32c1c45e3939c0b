package scores

import (
	"context"

	"github.com/google/uuid"
)

// GroupCounters are the per-(user, group) progress counters the upstream
// pipeline exposes. The engine treats them as an opaque numeric feed.
type GroupCounters struct {
	CoursesStarted          int
	AverageCourseCompletion float64
	ProjectsStarted         int
	ProjectsCompleted       int
	TotalEvaluationScore    float64
}

// GlobalCounters are the per-user platform-wide counters.
type GlobalCounters struct {
	Commits              int
	CoursesCompleted     int
	ProjectsCompleted    int
	TotalEvaluationScore float64
}

// Feed supplies current counters. Implementations must be read-only; the
// engine re-reads the feed on every sync rather than diffing.
type Feed interface {
	GroupCounters(ctx context.Context, userID, groupID uuid.UUID) (*GroupCounters, error)
	GlobalCounters(ctx context.Context, userID uuid.UUID) (*GlobalCounters, error)
}
