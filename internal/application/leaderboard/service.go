package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	groupsvc "learnhub-backend/internal/application/groups"
	"learnhub-backend/internal/domain"
	"learnhub-backend/internal/pkg/apperr"
	"learnhub-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	defaultLimit = 20
	maxLimit     = 100

	globalCacheTTL = 30 * time.Second
)

// Entry is one ranked leaderboard row. Rank is dense and per-query-time:
// recomputed from current data on every page, not a stored identity.
type Entry struct {
	ScoreID     uuid.UUID `json:"score_id"`
	UserID      uuid.UUID `json:"user_id"`
	UserName    string    `json:"user_name"`
	FullName    string    `json:"full_name"`
	FinalScore  float64   `json:"final_score"`
	Rank        int       `json:"rank"`
	LastUpdated time.Time `json:"last_updated"`
}

// Page is a keyset-paginated slice of the leaderboard. NextCursor is the
// score id of the last returned row.
type Page struct {
	Entries    []Entry    `json:"entries"`
	NextCursor *uuid.UUID `json:"next_cursor,omitempty"`
	HasMore    bool       `json:"has_more"`
}

// GlobalFilters are pre-filters applied to the global candidate set before
// ordering.
type GlobalFilters struct {
	Since   *time.Time
	GroupID *uuid.UUID
	Search  string
}

func (f GlobalFilters) empty() bool {
	return f.Since == nil && f.GroupID == nil && f.Search == ""
}

// Service is the leaderboard read path. It takes no locks and tolerates
// scores mid-sync; read-committed semantics suffice.
type Service struct {
	DB     *gorm.DB
	Groups *groupsvc.Service
	Rdb    *redis.Client
}

// cursorRow is the sort key of the row a cursor points at.
type cursorRow struct {
	ScoreID     uuid.UUID
	FinalScore  float64
	LastUpdated time.Time
}

// The single ordering key used by BOTH the ORDER BY and the cursor predicate:
// final_score DESC, last_updated_date DESC, score_id ASC. Sharing the key is
// what keeps pages from skipping or repeating rows within a score tie.
const orderClause = "final_score DESC, last_updated_date DESC, score_id ASC"

func afterCursor(q *gorm.DB, c *cursorRow) *gorm.DB {
	return q.Where(
		"final_score < ? OR (final_score = ? AND (last_updated_date < ? OR (last_updated_date = ? AND score_id > ?)))",
		c.FinalScore, c.FinalScore, c.LastUpdated, c.LastUpdated, c.ScoreID,
	)
}

func atOrBeforeCursor(q *gorm.DB, c *cursorRow) *gorm.DB {
	return q.Where(
		"final_score > ? OR (final_score = ? AND (last_updated_date > ? OR (last_updated_date = ? AND score_id <= ?)))",
		c.FinalScore, c.FinalScore, c.LastUpdated, c.LastUpdated, c.ScoreID,
	)
}

// GetPage returns one ranked page of a group's leaderboard, restricted to
// active members. Rows that sort at or before the cursor row are counted with
// the identical ordering predicate to produce the base rank.
func (s *Service) GetPage(ctx context.Context, callerID, groupID uuid.UUID, limit int, cursor *uuid.UUID) (*Page, error) {
	if _, _, err := s.Groups.GetGroup(ctx, callerID, groupID); err != nil {
		return nil, err
	}
	limit = validation.ClampLimit(limit, defaultLimit, maxLimit)

	base := func() *gorm.DB {
		return s.DB.WithContext(ctx).
			Model(&domain.GroupScore{}).
			Joins("JOIN memberships ON memberships.user_id = group_scores.user_id AND memberships.group_id = group_scores.group_id AND memberships.left_at IS NULL").
			Joins("JOIN users ON users.user_id = group_scores.user_id").
			Where("group_scores.group_id = ?", groupID)
	}

	var cur *cursorRow
	if cursor != nil {
		var row domain.GroupScore
		err := s.DB.WithContext(ctx).
			Where("score_id = ? AND group_id = ?", *cursor, groupID).
			First(&row).Error
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.BadRequest("Unknown leaderboard cursor")
		}
		if err != nil {
			return nil, err
		}
		cur = &cursorRow{ScoreID: row.ScoreID, FinalScore: row.FinalScore, LastUpdated: row.LastUpdatedDate}
	}

	baseRank := 0
	if cur != nil {
		var count int64
		if err := atOrBeforeCursor(base(), cur).Count(&count).Error; err != nil {
			return nil, err
		}
		baseRank = int(count)
	}

	q := base().
		Select("group_scores.score_id, group_scores.user_id, users.user_name, users.full_name, group_scores.final_score, group_scores.last_updated_date AS last_updated").
		Order(orderClause).
		Limit(limit + 1)
	if cur != nil {
		q = afterCursor(q, cur)
	}

	var entries []Entry
	if err := q.Scan(&entries).Error; err != nil {
		return nil, err
	}

	page := buildPage(entries, limit, baseRank)
	s.writeBackGroupRanks(ctx, page.Entries)
	return page, nil
}

func buildPage(entries []Entry, limit, baseRank int) *Page {
	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = baseRank + i + 1
	}
	page := &Page{Entries: entries, HasMore: hasMore}
	if hasMore && len(entries) > 0 {
		last := entries[len(entries)-1].ScoreID
		page.NextCursor = &last
	}
	return page
}

// writeBackGroupRanks caches the computed ranks on the score rows for other
// readers (profile views). Stale-tolerant, never authoritative; failures are
// only logged.
func (s *Service) writeBackGroupRanks(ctx context.Context, entries []Entry) {
	for _, e := range entries {
		err := s.DB.WithContext(ctx).
			Model(&domain.GroupScore{}).
			Where("score_id = ?", e.ScoreID).
			Update("rank", e.Rank).Error
		if err != nil {
			log.Debug().Err(err).Str("score_id", e.ScoreID.String()).Msg("rank write-back failed")
			return
		}
	}
}

func (s *Service) writeBackGlobalRanks(ctx context.Context, entries []Entry) {
	for _, e := range entries {
		err := s.DB.WithContext(ctx).
			Model(&domain.Score{}).
			Where("score_id = ?", e.ScoreID).
			Update("rank", e.Rank).Error
		if err != nil {
			log.Debug().Err(err).Str("score_id", e.ScoreID.String()).Msg("rank write-back failed")
			return
		}
	}
}

func globalCacheKey(limit int) string {
	return fmt.Sprintf("leaderboard:global:first:%d", limit)
}

// GetGlobalPage is the group algorithm without the group-scoping join,
// operating over global scores, with optional pre-filters. The unfiltered
// first page is served through a short-TTL redis cache.
func (s *Service) GetGlobalPage(ctx context.Context, limit int, cursor *uuid.UUID, filters GlobalFilters) (*Page, error) {
	limit = validation.ClampLimit(limit, defaultLimit, maxLimit)

	cacheable := cursor == nil && filters.empty() && s.Rdb != nil
	if cacheable {
		if raw, err := s.Rdb.Get(ctx, globalCacheKey(limit)).Bytes(); err == nil {
			var page Page
			if json.Unmarshal(raw, &page) == nil {
				return &page, nil
			}
		}
	}

	base := func() *gorm.DB {
		q := s.DB.WithContext(ctx).
			Model(&domain.Score{}).
			Joins("JOIN users ON users.user_id = scores.user_id")
		if filters.Since != nil {
			q = q.Where("scores.last_updated_date >= ?", *filters.Since)
		}
		if filters.GroupID != nil {
			q = q.Where("scores.user_id IN (?)", s.DB.Session(&gorm.Session{NewDB: true}).
				Model(&domain.Membership{}).
				Select("user_id").
				Where("group_id = ? AND left_at IS NULL", *filters.GroupID))
		}
		if filters.Search != "" {
			like := "%" + validation.NormalizeQuery(filters.Search) + "%"
			q = q.Where("LOWER(users.user_name) LIKE ? OR LOWER(users.full_name) LIKE ?", like, like)
		}
		return q
	}

	var cur *cursorRow
	if cursor != nil {
		var row domain.Score
		err := s.DB.WithContext(ctx).Where("score_id = ?", *cursor).First(&row).Error
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.BadRequest("Unknown leaderboard cursor")
		}
		if err != nil {
			return nil, err
		}
		cur = &cursorRow{ScoreID: row.ScoreID, FinalScore: row.FinalScore, LastUpdated: row.LastUpdatedDate}
	}

	baseRank := 0
	if cur != nil {
		var count int64
		if err := atOrBeforeCursor(base(), cur).Count(&count).Error; err != nil {
			return nil, err
		}
		baseRank = int(count)
	}

	q := base().
		Select("scores.score_id, scores.user_id, users.user_name, users.full_name, scores.final_score, scores.last_updated_date AS last_updated").
		Order(orderClause).
		Limit(limit + 1)
	if cur != nil {
		q = afterCursor(q, cur)
	}

	var entries []Entry
	if err := q.Scan(&entries).Error; err != nil {
		return nil, err
	}

	page := buildPage(entries, limit, baseRank)
	if filters.empty() {
		s.writeBackGlobalRanks(ctx, page.Entries)
	}
	if cacheable {
		if raw, err := json.Marshal(page); err == nil {
			if err := s.Rdb.Set(ctx, globalCacheKey(limit), raw, globalCacheTTL).Err(); err != nil {
				log.Debug().Err(err).Msg("global leaderboard cache write failed")
			}
		}
	}
	return page, nil
}

// InvalidateGlobalCache drops cached global pages. Called by the admin sweep
// after a bulk re-sync.
func (s *Service) InvalidateGlobalCache(ctx context.Context) {
	if s.Rdb == nil {
		return
	}
	keys := make([]string, 0, maxLimit)
	for limit := 1; limit <= maxLimit; limit++ {
		keys = append(keys, globalCacheKey(limit))
	}
	s.Rdb.Del(ctx, keys...)
}
