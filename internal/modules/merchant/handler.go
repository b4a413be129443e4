package merchant

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

var (
	superOnly     = domain.Roles(domain.RoleSuperAdmin)
	tenantAdmins  = domain.Roles(domain.RoleSuperAdmin, domain.RoleTenantAdmin)
	merchantAdmin = domain.Roles(domain.RoleSuperAdmin, domain.RoleTenantAdmin, domain.RoleAdmin)
	branchAdmin   = domain.Roles(domain.RoleSuperAdmin, domain.RoleTenantAdmin, domain.RoleAdmin, domain.RoleBranchAdmin)
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Routes() []router.Route {
	return []router.Route{
		{Method: http.MethodPost, Path: "/tenants", Allow: superOnly, Handler: h.CreateTenant},
		{Method: http.MethodGet, Path: "/tenants", Allow: superOnly, Handler: h.ListTenants},

		{Method: http.MethodPost, Path: "/merchants", Allow: tenantAdmins, Handler: h.CreateMerchant},
		{Method: http.MethodGet, Path: "/merchants", Handler: h.ListMerchants},
		{Method: http.MethodGet, Path: "/merchants/:id", Handler: h.GetMerchant},
		{Method: http.MethodPut, Path: "/merchants/:id", Allow: merchantAdmin, Handler: h.UpdateMerchant},
		{Method: http.MethodDelete, Path: "/merchants/:id", Allow: tenantAdmins, Handler: h.DeleteMerchant},

		{Method: http.MethodPost, Path: "/merchants/:id/branches", Allow: merchantAdmin, Handler: h.CreateBranch},
		{Method: http.MethodGet, Path: "/merchants/:id/branches", Handler: h.ListBranches},
		{Method: http.MethodPut, Path: "/branches/:id", Allow: branchAdmin, Handler: h.UpdateBranch},
		{Method: http.MethodDelete, Path: "/branches/:id", Allow: merchantAdmin, Handler: h.DeleteBranch},

		{Method: http.MethodPost, Path: "/branches/:id/pos", Allow: branchAdmin, Handler: h.CreatePOS},
		{Method: http.MethodGet, Path: "/branches/:id/pos", Handler: h.ListPOS},
		{Method: http.MethodPut, Path: "/pos/:id", Allow: branchAdmin, Handler: h.UpdatePOS},
		{Method: http.MethodDelete, Path: "/pos/:id", Allow: branchAdmin, Handler: h.DeletePOS},
	}
}

/* ---------- TENANTS ---------- */

func (h *Handler) CreateTenant(c *gin.Context) {
	var req CreateTenantRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	t, err := h.service.CreateTenant(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"tenant": t})
}

func (h *Handler) ListTenants(c *gin.Context) {
	page := utils.ParsePage(c)
	tenants, total, err := h.service.ListTenants(c.Request.Context(), repository.ListFilters{Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tenants": tenants, "pagination": page.Meta(total)})
}

/* ---------- MERCHANTS ---------- */

func (h *Handler) CreateMerchant(c *gin.Context) {
	var req CreateMerchantRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	caller, _ := middleware.IdentityFrom(c)
	m, err := h.service.CreateMerchant(c.Request.Context(), caller, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"merchant": m})
}

func (h *Handler) ListMerchants(c *gin.Context) {
	caller, _ := middleware.IdentityFrom(c)
	page := utils.ParsePage(c)
	merchants, total, err := h.service.ListMerchants(c.Request.Context(), caller, repository.ListFilters{Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"merchants": merchants, "pagination": page.Meta(total)})
}

func (h *Handler) GetMerchant(c *gin.Context) {
	id, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	caller, _ := middleware.IdentityFrom(c)
	m, err := h.service.GetMerchant(c.Request.Context(), caller, id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"merchant": m})
}

func (h *Handler) UpdateMerchant(c *gin.Context) {
	id, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	var req UpdateMerchantRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	caller, _ := middleware.IdentityFrom(c)
	m, err := h.service.UpdateMerchant(c.Request.Context(), caller, id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"merchant": m})
}

func (h *Handler) DeleteMerchant(c *gin.Context) {
	id, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	caller, _ := middleware.IdentityFrom(c)
	if err := h.service.DeleteMerchant(c.Request.Context(), caller, id); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

/* ---------- BRANCHES ---------- */

func (h *Handler) CreateBranch(c *gin.Context) {
	merchantID, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	var req CreateBranchRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	caller, _ := middleware.IdentityFrom(c)
	b, err := h.service.CreateBranch(c.Request.Context(), caller, merchantID, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"branch": b})
}

func (h *Handler) ListBranches(c *gin.Context) {
	merchantID, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	caller, _ := middleware.IdentityFrom(c)
	branches, err := h.service.ListBranches(c.Request.Context(), caller, merchantID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"branches": branches})
}

func (h *Handler) UpdateBranch(c *gin.Context) {
	id, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	var req UpdateBranchRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	caller, _ := middleware.IdentityFrom(c)
	b, err := h.service.UpdateBranch(c.Request.Context(), caller, id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"branch": b})
}

func (h *Handler) DeleteBranch(c *gin.Context) {
	id, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	caller, _ := middleware.IdentityFrom(c)
	if err := h.service.DeleteBranch(c.Request.Context(), caller, id); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

/* ---------- POS TERMINALS ---------- */

func (h *Handler) CreatePOS(c *gin.Context) {
	branchID, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	var req CreatePOSRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	caller, _ := middleware.IdentityFrom(c)
	p, err := h.service.CreatePOS(c.Request.Context(), caller, branchID, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"terminal": p})
}

func (h *Handler) ListPOS(c *gin.Context) {
	branchID, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	caller, _ := middleware.IdentityFrom(c)
	terminals, err := h.service.ListPOS(c.Request.Context(), caller, branchID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"terminals": terminals})
}

func (h *Handler) UpdatePOS(c *gin.Context) {
	id, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	var req UpdatePOSRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	caller, _ := middleware.IdentityFrom(c)
	p, err := h.service.UpdatePOS(c.Request.Context(), caller, id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"terminal": p})
}

func (h *Handler) DeletePOS(c *gin.Context) {
	id, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	caller, _ := middleware.IdentityFrom(c)
	if err := h.service.DeactivatePOS(c.Request.Context(), caller, id); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deactivated": true})
}

func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Resource not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "Forbidden")
	case errors.Is(err, ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid request")
	case errors.Is(err, ErrConflict):
		response.Error(c, http.StatusConflict, response.CodeConflict, "Resource already exists")
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("merchant request failed")
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal server error")
	}
}
