package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Stable failure codes surfaced to clients. These are contract, not transient
// faults: clients switch on them.
const (
	CodeNameConflict   = "NameConflict"
	CodeAlreadyMember  = "AlreadyMember"
	CodeNotMember      = "NotMember"
	CodeOwnerImmutable = "OwnerImmutable"
	CodeAlreadyOwner   = "AlreadyOwner"
	CodeConflict       = "Conflict"
	CodeSelfAction     = "SelfAction"
	CodeNoOp           = "NoOp"
	CodeForbidden      = "Forbidden"
	CodeInvalidState   = "InvalidState"
	CodeNotFound       = "NotFound"
	CodeBadRequest     = "BadRequest"
)

// Error is an application error with a stable code and an HTTP status.
type Error struct {
	Code    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// As unwraps err into an *Error if it is one.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func newErr(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

func NameConflict(message string) *Error {
	return newErr(CodeNameConflict, fiber.StatusConflict, message)
}

func AlreadyMember(message string) *Error {
	return newErr(CodeAlreadyMember, fiber.StatusConflict, message)
}

func NotMember(message string) *Error {
	return newErr(CodeNotMember, fiber.StatusConflict, message)
}

func OwnerImmutable(message string) *Error {
	return newErr(CodeOwnerImmutable, fiber.StatusConflict, message)
}

func AlreadyOwner(message string) *Error {
	return newErr(CodeAlreadyOwner, fiber.StatusConflict, message)
}

func Conflict(message string) *Error {
	return newErr(CodeConflict, fiber.StatusConflict, message)
}

func SelfAction(message string) *Error {
	return newErr(CodeSelfAction, fiber.StatusBadRequest, message)
}

func NoOp(message string) *Error {
	return newErr(CodeNoOp, fiber.StatusConflict, message)
}

func Forbidden(message string) *Error {
	return newErr(CodeForbidden, fiber.StatusForbidden, message)
}

func InvalidState(message string) *Error {
	return newErr(CodeInvalidState, fiber.StatusUnprocessableEntity, message)
}

func NotFound(message string) *Error {
	return newErr(CodeNotFound, fiber.StatusNotFound, message)
}

func BadRequest(message string) *Error {
	return newErr(CodeBadRequest, fiber.StatusBadRequest, message)
}
