package members

import (
	membersvc "learnhub-backend/internal/application/members"
	"learnhub-backend/internal/middleware"
	"learnhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles member-management handlers with dependencies.
type Handlers struct {
	Service *membersvc.Service
}

// ListMembers GET /api/v1/groups/:id/members
func (h *Handlers) ListMembers(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	if caller == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid group id", fiber.StatusBadRequest, nil)
	}
	members, err := h.Service.ListMembers(c.Context(), caller.UserID, groupID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Members fetched successfully", members, nil)
}

type manageMemberRequest struct {
	Action string `json:"action"` // promote | demote | remove
}

// ManageMember POST /api/v1/groups/:id/members/:userId
func (h *Handlers) ManageMember(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	if caller == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid group id", fiber.StatusBadRequest, nil)
	}
	targetID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return response.Error(c, "Invalid user id", fiber.StatusBadRequest, nil)
	}
	var body manageMemberRequest
	if err := c.BodyParser(&body); err != nil || body.Action == "" {
		return response.Error(c, "action is required", fiber.StatusBadRequest, nil)
	}

	err = h.Service.ManageMember(c.Context(), membersvc.ManageMemberInput{
		ActorID:       caller.UserID,
		PlatformAdmin: caller.PlatformAdmin,
		GroupID:       groupID,
		TargetID:      targetID,
		Action:        body.Action,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Member updated successfully", fiber.Map{}, nil)
}
