package handlers

import (
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"printqueue/internal/services"
	"printqueue/models"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsers - Every staff account, newest first
func (h *UserHandler) ListUsers(e *core.RequestEvent) error {
	users, err := h.userService.List(e.Request.Context())
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"users": users})
}

type createUserRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (r createUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Role, validation.Required, validation.In(string(models.RoleAdmin), string(models.RoleDesk))),
	)
}

// CreateUser - Open a staff account with a temporary password
func (h *UserHandler) CreateUser(e *core.RequestEvent) error {
	var req createUserRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	user, password, err := h.userService.Create(e.Request.Context(), req.Email, models.Role(req.Role), e.Auth.Id)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusCreated, map[string]any{
		"user":         user,
		"tempPassword": password,
	})
}

// SetActive - Enable or disable an account
func (h *UserHandler) SetActive(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")

	var req struct {
		IsActive *bool `json:"isActive"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.IsActive == nil {
		return apis.NewBadRequestError("isActive is required", nil)
	}
	if id == e.Auth.Id && !*req.IsActive {
		return apis.NewBadRequestError("You cannot disable your own account", nil)
	}

	if err := h.userService.SetActive(e.Request.Context(), id, *req.IsActive); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"id": id, "isActive": *req.IsActive})
}

// DeleteUser - Remove an account
func (h *UserHandler) DeleteUser(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")
	if id == e.Auth.Id {
		return apis.NewBadRequestError("You cannot delete your own account", nil)
	}
	if err := h.userService.Delete(e.Request.Context(), id); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "User deleted", "id": id})
}

// CompleteFirstLogin - Clear the first-login flag of the signed-in user
func (h *UserHandler) CompleteFirstLogin(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Authentication required", nil)
	}
	if err := h.userService.CompleteFirstLogin(e.Request.Context(), e.Auth.Id); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "First login completed"})
}
