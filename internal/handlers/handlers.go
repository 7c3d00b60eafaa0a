package handlers

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"

	"printqueue/internal/status"
	"printqueue/models"
)

// OperationTracker records the outcome of a queue operation.
type OperationTracker interface {
	TrackQueueOperation(operation string, started time.Time, err error)
}

type nopTracker struct{}

func (nopTracker) TrackQueueOperation(string, time.Time, error) {}

func trackerOrNop(t OperationTracker) OperationTracker {
	if t == nil {
		return nopTracker{}
	}
	return t
}

// RequireRole lets through active users holding one of roles.
func RequireRole(roles ...models.Role) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if e.Auth == nil {
			return apis.NewUnauthorizedError("Authentication required", nil)
		}
		if !e.Auth.GetBool("isActive") {
			return apis.NewForbiddenError("Account is disabled", nil)
		}
		if !slices.Contains(roles, models.Role(e.Auth.GetString("role"))) {
			return apis.NewForbiddenError("Insufficient permissions", nil)
		}
		return e.Next()
	}
}

func conflict(message string) *router.ApiError {
	return router.NewApiError(http.StatusConflict, message, nil)
}

// apiError maps service errors onto API errors.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrInvalidInput):
		return apis.NewBadRequestError("Name and student ID are required", nil)
	case errors.Is(err, status.ErrInvalidDesk):
		return apis.NewBadRequestError("Unknown desk", nil)
	case errors.Is(err, status.ErrInvalidRange):
		return apis.NewBadRequestError("Invalid date range", nil)
	case errors.Is(err, status.ErrInvalidEmail):
		return apis.NewBadRequestError("Invalid email address", nil)
	case errors.Is(err, status.ErrInvalidRole):
		return apis.NewBadRequestError("Unknown role", nil)
	case errors.Is(err, status.ErrNothingWaiting):
		return conflict("No one in queue")
	case errors.Is(err, status.ErrNothingServing):
		return conflict("No one is currently being served")
	case errors.Is(err, status.ErrUserExists):
		return conflict("An account with this email already exists")
	case errors.Is(err, status.ErrLockTimeout), errors.Is(err, status.ErrClaimConflict), errors.Is(err, status.ErrConflict):
		return conflict("The desk is busy, please try again")
	case errors.Is(err, status.ErrNotFound):
		return apis.NewNotFoundError("Record not found", nil)
	}
	return apis.NewInternalServerError("Something went wrong", nil)
}
