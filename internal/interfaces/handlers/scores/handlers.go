package scores

import (
	lbsvc "learnhub-backend/internal/application/leaderboard"
	scoresvc "learnhub-backend/internal/application/scores"
	"learnhub-backend/internal/middleware"
	"learnhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles the admin score-sync handlers. All routes behind
// RequirePlatformAdmin.
type Handlers struct {
	Service     *scoresvc.Service
	Leaderboard *lbsvc.Service
}

type syncRequest struct {
	UserID  string `json:"user_id"`
	GroupID string `json:"group_id"` // optional; empty means global only
}

// SyncScore POST /api/v1/scores/sync
func (h *Handlers) SyncScore(c *fiber.Ctx) error {
	if middleware.GetCaller(c) == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var body syncRequest
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "user_id is required", fiber.StatusBadRequest, nil)
	}
	userID, err := uuid.Parse(body.UserID)
	if err != nil {
		return response.Error(c, "user_id is required", fiber.StatusBadRequest, nil)
	}

	synced := []string{}
	if body.GroupID != "" {
		groupID, err := uuid.Parse(body.GroupID)
		if err != nil {
			return response.Error(c, "Invalid group_id", fiber.StatusBadRequest, nil)
		}
		if err := h.Service.SyncGroupScore(c.Context(), userID, groupID); err != nil {
			return response.FromError(c, err)
		}
		synced = append(synced, "group")
	}
	if err := h.Service.SyncGlobalScore(c.Context(), userID); err != nil {
		return response.FromError(c, err)
	}
	synced = append(synced, "global")

	return response.Success(c, "Score synced successfully", fiber.Map{"synced": synced}, nil)
}

// BulkSync POST /api/v1/scores/bulk-sync
func (h *Handlers) BulkSync(c *fiber.Ctx) error {
	if middleware.GetCaller(c) == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	summary, err := h.Service.BulkSync(c.Context())
	if err != nil {
		return response.FromError(c, err)
	}
	if h.Leaderboard != nil {
		h.Leaderboard.InvalidateGlobalCache(c.Context())
	}
	return response.Success(c, "Bulk sync finished", summary, nil)
}
