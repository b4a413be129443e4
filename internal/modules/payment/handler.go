package payment

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
	creators = domain.Roles(domain.RoleAdmin, domain.RoleBranchAdmin, domain.RoleCashier)
	settlers = domain.Roles(domain.RoleTenantAdmin, domain.RoleAdmin, domain.RoleBranchAdmin, domain.RoleCashier)
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Routes() []router.Route {
	return []router.Route{
		{Method: http.MethodPost, Path: "/payment-orders", Allow: creators, Handler: h.Create},
		{Method: http.MethodGet, Path: "/payment-orders", Handler: h.List},
		{Method: http.MethodGet, Path: "/payment-orders/:id", Handler: h.Get},
		{Method: http.MethodPatch, Path: "/payment-orders/:id/status", Allow: settlers, Handler: h.UpdateStatus},
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if !validator.BindJSON(c, &req) {
		return
	}
	caller, _ := middleware.IdentityFrom(c)
	o, err := h.service.Create(c.Request.Context(), caller, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"order": o})
}

func (h *Handler) List(c *gin.Context) {
	caller, _ := middleware.IdentityFrom(c)
	page := utils.ParsePage(c)
	f := repository.PaymentOrderFilters{Limit: page.Limit, Offset: page.Offset}
	if raw := c.Query("status"); raw != "" {
		status, err := domain.ParsePaymentOrderStatus(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeValidation, "Unknown status")
			return
		}
		f.Status = status
	}

	orders, total, err := h.service.List(c.Request.Context(), caller, f)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"orders": orders, "pagination": page.Meta(total)})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	caller, _ := middleware.IdentityFrom(c)
	o, err := h.service.Get(c.Request.Context(), caller, id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"order": o})
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
	next, err := domain.ParsePaymentOrderStatus(req.Status)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Unknown status")
		return
	}
	caller, _ := middleware.IdentityFrom(c)
	o, err := h.service.UpdateStatus(c.Request.Context(), caller, id, next)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"order": o})
}

func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Payment order not found")
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidCurrency),
		errors.Is(err, ErrTerminalRequired),
		errors.Is(err, ErrTerminalInactive):
		response.Error(c, http.StatusBadRequest, response.CodeValidation, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		response.Error(c, http.StatusConflict, response.CodeConflict, "Order is no longer pending")
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("payment order request failed")
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal server error")
	}
}
