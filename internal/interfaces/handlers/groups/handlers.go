package groups

import (
	groupsvc "learnhub-backend/internal/application/groups"
	"learnhub-backend/internal/middleware"
	"learnhub-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles group handlers with dependencies.
type Handlers struct {
	Service *groupsvc.Service
}

type createGroupRequest struct {
	Name        string  `json:"name"`
	Kind        string  `json:"kind"`
	Visibility  string  `json:"visibility"`
	Description *string `json:"description"`
}

// CreateGroup POST /api/v1/groups
func (h *Handlers) CreateGroup(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	if caller == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	var body createGroupRequest
	if err := c.BodyParser(&body); err != nil || body.Name == "" {
		return response.Error(c, "name is required", fiber.StatusBadRequest, nil)
	}

	group, err := h.Service.CreateGroup(c.Context(), groupsvc.CreateGroupInput{
		ActorID:       caller.UserID,
		PlatformAdmin: caller.PlatformAdmin,
		Name:          body.Name,
		Kind:          body.Kind,
		Visibility:    body.Visibility,
		Description:   body.Description,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Group created successfully", group, nil)
}

// ListGroups GET /api/v1/groups
func (h *Handlers) ListGroups(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	if caller == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	groups, err := h.Service.ListGroups(c.Context(), caller.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Groups fetched successfully", groups, nil)
}

func groupIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

// GetGroup GET /api/v1/groups/:id
func (h *Handlers) GetGroup(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	if caller == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	groupID, err := groupIDParam(c)
	if err != nil {
		return response.Error(c, "Invalid group id", fiber.StatusBadRequest, nil)
	}
	group, membership, err := h.Service.GetGroup(c.Context(), caller.UserID, groupID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Group fetched successfully", fiber.Map{
		"group":      group,
		"membership": membership,
	}, nil)
}

type updateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Visibility  *string `json:"visibility"`
}

// UpdateGroup PATCH /api/v1/groups/:id
func (h *Handlers) UpdateGroup(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	if caller == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	groupID, err := groupIDParam(c)
	if err != nil {
		return response.Error(c, "Invalid group id", fiber.StatusBadRequest, nil)
	}
	var body updateGroupRequest
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "No update fields provided", fiber.StatusBadRequest, nil)
	}
	if body.Name == nil && body.Description == nil && body.Visibility == nil {
		return response.Error(c, "No update fields provided", fiber.StatusBadRequest, nil)
	}

	group, err := h.Service.UpdateGroup(c.Context(), groupsvc.UpdateGroupInput{
		ActorID:       caller.UserID,
		PlatformAdmin: caller.PlatformAdmin,
		GroupID:       groupID,
		Name:          body.Name,
		Description:   body.Description,
		Visibility:    body.Visibility,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Group updated successfully", group, nil)
}

// DeleteGroup DELETE /api/v1/groups/:id
func (h *Handlers) DeleteGroup(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	if caller == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	groupID, err := groupIDParam(c)
	if err != nil {
		return response.Error(c, "Invalid group id", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.DeleteGroup(c.Context(), caller.UserID, caller.PlatformAdmin, groupID); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Group deleted successfully", fiber.Map{}, nil)
}

// Join POST /api/v1/groups/:id/join
func (h *Handlers) Join(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	if caller == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	groupID, err := groupIDParam(c)
	if err != nil {
		return response.Error(c, "Invalid group id", fiber.StatusBadRequest, nil)
	}
	if _, err := h.Service.Join(c.Context(), caller.UserID, groupID); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Joined group successfully", fiber.Map{}, nil)
}

// Leave POST /api/v1/groups/:id/leave
func (h *Handlers) Leave(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	if caller == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	groupID, err := groupIDParam(c)
	if err != nil {
		return response.Error(c, "Invalid group id", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.Leave(c.Context(), caller.UserID, groupID); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Left group successfully", fiber.Map{}, nil)
}

type transferOwnershipRequest struct {
	NewOwnerID string `json:"new_owner_id"`
}

// TransferOwnership POST /api/v1/groups/:id/transfer-ownership
func (h *Handlers) TransferOwnership(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	if caller == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	groupID, err := groupIDParam(c)
	if err != nil {
		return response.Error(c, "Invalid group id", fiber.StatusBadRequest, nil)
	}
	var body transferOwnershipRequest
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "new_owner_id is required", fiber.StatusBadRequest, nil)
	}
	newOwnerID, err := uuid.Parse(body.NewOwnerID)
	if err != nil {
		return response.Error(c, "new_owner_id is required", fiber.StatusBadRequest, nil)
	}

	err = h.Service.TransferOwnership(c.Context(), groupsvc.TransferOwnershipInput{
		ActorID:       caller.UserID,
		PlatformAdmin: caller.PlatformAdmin,
		GroupID:       groupID,
		NewOwnerID:    newOwnerID,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Ownership transferred successfully", fiber.Map{}, nil)
}
