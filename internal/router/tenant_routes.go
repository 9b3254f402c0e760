package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rmtpark-api/internal/middleware"
)

// RegisterTenant registers the tenant-scoped routes.  Every write drops the
// tenant's cached report and dashboard responses.
func RegisterTenant(e *echo.Echo, h Handlers, mw chain) {
	g := e.Group("/v1", mw.auth, mw.rateLimit, middleware.RequireTenant(), mw.invalidate)

	g.GET("/vagas", h.Parking.List)
	g.POST("/vagas", h.Parking.Open)
	g.GET("/vagas/:id", h.Parking.Get)
	g.PUT("/vagas/:id/saida", h.Parking.Checkout)

	g.GET("/configuracoes", h.Tariff.Get)
	g.POST("/configuracoes", h.Tariff.Set)
	g.PUT("/configuracoes", h.Tariff.Set)

	g.GET("/relatorios", h.Reports.List, mw.cache)
	g.GET("/relatorios/:id", h.Reports.Get, mw.cache)
	g.DELETE("/relatorios/:id", h.Reports.Delete)
	g.GET("/dashboard", h.Reports.Dashboard, mw.cache)

	g.GET("/mensalistas", h.Passes.List)
	g.POST("/mensalistas", h.Passes.Create)
	g.GET("/mensalistas/:id", h.Passes.Get)
	g.PUT("/mensalistas/:id", h.Passes.Update)
	g.DELETE("/mensalistas/:id", h.Passes.Delete)
}
