package leaderboard

import (
	"time"

	lbsvc "learnhub-backend/internal/application/leaderboard"
	"learnhub-backend/internal/middleware"
	"learnhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles leaderboard handlers with dependencies.
type Handlers struct {
	Service *lbsvc.Service
}

func parseCursor(c *fiber.Ctx) (*uuid.UUID, bool) {
	raw := c.Query("cursor")
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}

// GetGroupPage GET /api/v1/groups/:id/leaderboard
func (h *Handlers) GetGroupPage(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	if caller == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid group id", fiber.StatusBadRequest, nil)
	}
	cursor, ok := parseCursor(c)
	if !ok {
		return response.Error(c, "Invalid cursor", fiber.StatusBadRequest, nil)
	}

	page, err := h.Service.GetPage(c.Context(), caller.UserID, groupID, c.QueryInt("limit"), cursor)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Leaderboard fetched successfully", page, fiber.Map{
		"has_more": page.HasMore,
	})
}

// GetGlobalPage GET /api/v1/leaderboard/global
func (h *Handlers) GetGlobalPage(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	if caller == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	cursor, ok := parseCursor(c)
	if !ok {
		return response.Error(c, "Invalid cursor", fiber.StatusBadRequest, nil)
	}

	var filters lbsvc.GlobalFilters
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return response.Error(c, "since must be RFC3339", fiber.StatusBadRequest, nil)
		}
		filters.Since = &since
	}
	if raw := c.Query("group_id"); raw != "" {
		gid, err := uuid.Parse(raw)
		if err != nil {
			return response.Error(c, "Invalid group_id filter", fiber.StatusBadRequest, nil)
		}
		filters.GroupID = &gid
	}
	filters.Search = c.Query("search")

	page, err := h.Service.GetGlobalPage(c.Context(), c.QueryInt("limit"), cursor, filters)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Global leaderboard fetched successfully", page, fiber.Map{
		"has_more": page.HasMore,
	})
}
