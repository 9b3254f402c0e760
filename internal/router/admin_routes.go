package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rmtpark-api/internal/handler"
	"github.com/iliyamo/rmtpark-api/internal/middleware"
)

// RegisterAdmin registers the administrator login and panel.
func RegisterAdmin(e *echo.Echo, a *handler.AuthHandler, h *handler.AdminHandler, mw chain) {
	e.POST("/v1/admin/login", a.AdminLogin, mw.rateLimit)

	g := e.Group("/v1/admin", mw.auth, mw.rateLimit, middleware.RequireAdmin())
	g.GET("/empresas", h.ListTenants)
	g.PUT("/empresas/:id/renovar", h.RenewTenant)
	g.DELETE("/empresas/:id", h.DeleteTenant)
}
