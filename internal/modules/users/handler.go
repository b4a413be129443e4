package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"merchantpay/internal/domain"
	"merchantpay/internal/middleware"
	"merchantpay/internal/pkg/response"
	"merchantpay/internal/pkg/utils"
	"merchantpay/internal/pkg/validator"
	"merchantpay/internal/repository"
	"merchantpay/internal/router"
)

var managers = domain.Roles(domain.RoleSuperAdmin, domain.RoleTenantAdmin, domain.RoleAdmin, domain.RoleBranchAdmin)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Routes() []router.Route {
	return []router.Route{
		{Method: http.MethodPost, Path: "/users", Allow: managers, Handler: h.Create},
		{Method: http.MethodGet, Path: "/users", Allow: managers, Handler: h.List},
		{Method: http.MethodGet, Path: "/users/:id", Handler: h.Get},
		{Method: http.MethodPatch, Path: "/users/:id/status", Allow: managers, Handler: h.UpdateStatus},
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateUserRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	caller, _ := middleware.IdentityFrom(c)
	u, err := h.service.Create(c.Request.Context(), caller, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"user": NewUserResponse(u)})
}

func (h *Handler) List(c *gin.Context) {
	caller, _ := middleware.IdentityFrom(c)
	page := utils.ParsePage(c)
	f := repository.UserFilters{Limit: page.Limit, Offset: page.Offset}
	if raw := c.Query("role"); raw != "" {
		role, err := domain.ParseUserRole(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeValidation, "Unknown role")
			return
		}
		f.Role = role
	}

	list, total, err := h.service.List(c.Request.Context(), caller, f)
	if err != nil {
		handleError(c, err)
		return
	}
	out := make([]UserResponse, 0, len(list))
	for i := range list {
		out = append(out, NewUserResponse(&list[i]))
	}
	response.Success(c, http.StatusOK, gin.H{"users": out, "pagination": page.Meta(total)})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	caller, _ := middleware.IdentityFrom(c)
	u, err := h.service.Get(c.Request.Context(), caller, id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": NewUserResponse(u)})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	caller, _ := middleware.IdentityFrom(c)
	u, err := h.service.SetStatus(c.Request.Context(), caller, id, *req.IsActive)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": NewUserResponse(u)})
}

func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "User not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "Forbidden")
	case errors.Is(err, ErrEmailTaken):
		response.Error(c, http.StatusConflict, response.CodeConflict, "This email is already registered")
	case errors.Is(err, ErrWeakPassword):
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Password must be at least 8 characters")
	case errors.Is(err, ErrScopeRequired):
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Scope is required for this role")
	case errors.Is(err, ErrSelfStatus):
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Cannot change own status")
	case errors.Is(err, ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid request")
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("users request failed")
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal server error")
	}
}
