package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rmtpark-api/internal/service"
)

// AdminHandler serves the platform administrator panel.
type AdminHandler struct {
	Admin *service.AdminService
}

func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{Admin: admin}
}

func (h *AdminHandler) ListTenants(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	tenants, err := h.Admin.ListTenants(ctx, principal(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tenants)
}

// RenewTenant extends the tenant's plan by one period.
func (h *AdminHandler) RenewTenant(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	exp, err := h.Admin.RenewTenant(ctx, principal(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "data_expiracao": exp})
}

func (h *AdminHandler) DeleteTenant(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Admin.DeleteTenant(ctx, principal(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
