package response

import (
	"learnhub-backend/internal/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// SuccessBody is the standardized success JSON shape.
type SuccessBody struct {
	Status   string      `json:"status"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data"`
	Metadata interface{} `json:"metadata,omitempty"`
}

// ErrorBody is the standardized error JSON shape.
type ErrorBody struct {
	Status string      `json:"status"`
	Error  ErrorDetail `json:"error"`
}

// ErrorDetail is the nested error object. Code is the stable machine-readable
// failure code from apperr; clients switch on it, not on the message.
type ErrorDetail struct {
	Message    string      `json:"message"`
	Code       string      `json:"code,omitempty"`
	StatusCode int         `json:"statusCode"`
	Details    interface{} `json:"details,omitempty"`
}

const statusSuccess = "success"
const statusError = "error"

// Success sends a 200 OK response with the standard success format.
func Success(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return c.Status(fiber.StatusOK).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: metadata,
	})
}

// SuccessCreated sends a 201 Created response with the standard success format.
func SuccessCreated(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return c.Status(fiber.StatusCreated).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: metadata,
	})
}

// Error sends a response with the standard error format.
func Error(c *fiber.Ctx, message string, statusCode int, details interface{}) error {
	return errorWithCode(c, message, "", statusCode, details)
}

func errorWithCode(c *fiber.Ctx, message, code string, statusCode int, details interface{}) error {
	if details == nil {
		details = map[string]interface{}{}
	}
	return c.Status(statusCode).JSON(ErrorBody{
		Status: statusError,
		Error: ErrorDetail{
			Message:    message,
			Code:       code,
			StatusCode: statusCode,
			Details:    details,
		},
	})
}

// FromError maps an error to the standard error format. Application errors
// keep their code and status; anything else is a 500.
func FromError(c *fiber.Ctx, err error) error {
	if ae, ok := apperr.As(err); ok {
		return errorWithCode(c, ae.Message, ae.Code, ae.Status, nil)
	}
	return errorWithCode(c, "Internal Server Error", "", fiber.StatusInternalServerError, nil)
}

// Unauthorized sends 401 with the same shape as other errors.
// Use this in the identity middleware so all errors are consistent.
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, message, fiber.StatusUnauthorized, nil)
}
