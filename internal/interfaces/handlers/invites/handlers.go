package invites

import (
	invsvc "learnhub-backend/internal/application/invites"
	"learnhub-backend/internal/middleware"
	"learnhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles invite handlers with dependencies.
type Handlers struct {
	Service *invsvc.Service
}

type sendInviteRequest struct {
	Target string `json:"target"` // username or email
	Role   string `json:"role"`
}

// SendInvite POST /api/v1/groups/:id/invites
func (h *Handlers) SendInvite(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	if caller == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid group id", fiber.StatusBadRequest, nil)
	}
	var body sendInviteRequest
	if err := c.BodyParser(&body); err != nil || body.Target == "" {
		return response.Error(c, "target is required", fiber.StatusBadRequest, nil)
	}

	invite, err := h.Service.SendInvite(c.Context(), invsvc.SendInviteInput{
		ActorID:       caller.UserID,
		PlatformAdmin: caller.PlatformAdmin,
		GroupID:       groupID,
		TargetQuery:   body.Target,
		Role:          body.Role,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Invitation sent successfully", invite, nil)
}

// ListGroupInvites GET /api/v1/groups/:id/invites
func (h *Handlers) ListGroupInvites(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	if caller == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid group id", fiber.StatusBadRequest, nil)
	}
	invites, err := h.Service.ListGroupInvites(c.Context(), caller.UserID, caller.PlatformAdmin, groupID, c.Query("status"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Invitations fetched successfully", invites, nil)
}

type respondRequest struct {
	Action string `json:"action"` // accept | reject
}

// Respond POST /api/v1/invites/:id/respond
func (h *Handlers) Respond(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	if caller == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	inviteID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid invite id", fiber.StatusBadRequest, nil)
	}
	var body respondRequest
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "action must be accept or reject", fiber.StatusBadRequest, nil)
	}
	var accept bool
	switch body.Action {
	case "accept":
		accept = true
	case "reject":
		accept = false
	default:
		return response.Error(c, "action must be accept or reject", fiber.StatusBadRequest, nil)
	}

	if err := h.Service.Respond(c.Context(), caller.UserID, inviteID, accept); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Invitation updated successfully", fiber.Map{}, nil)
}

// Cancel POST /api/v1/invites/:id/cancel
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	if caller == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	inviteID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid invite id", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.Cancel(c.Context(), caller.UserID, caller.PlatformAdmin, inviteID); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Invitation cancelled successfully", fiber.Map{}, nil)
}
