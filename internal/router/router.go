package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/rmtpark-api/internal/config"
	"github.com/iliyamo/rmtpark-api/internal/handler"
	"github.com/iliyamo/rmtpark-api/internal/middleware"
)

// Handlers groups every HTTP handler the API exposes.
type Handlers struct {
	Auth    *handler.AuthHandler
	Parking *handler.ParkingHandler
	Tariff  *handler.TariffHandler
	Reports *handler.ReportHandler
	Passes  *handler.MonthlyPassHandler
	Admin   *handler.AdminHandler
}

// Options carries the cross-cutting settings applied to the route groups.
type Options struct {
	JWTSecret   string
	CORSOrigins []string
	RateLimit   config.RateLimitConfig
	Limiter     middleware.Limiter
	Cache       config.CacheConfig
	Store       middleware.ResponseStore
	DB          *sql.DB
	Log         *slog.Logger
}

// chain is the middleware shared by the route groups.
type chain struct {
	auth       echo.MiddlewareFunc
	rateLimit  echo.MiddlewareFunc
	cache      echo.MiddlewareFunc
	invalidate echo.MiddlewareFunc
}

// New builds the echo instance with every route registered.
func New(h Handlers, o Options) *echo.Echo {
	if o.Log == nil {
		o.Log = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(o.Log))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  o.CORSOrigins,
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{echo.HeaderXRequestID, "Retry-After", "X-RateLimit-Remaining"},
	}))

	mw := chain{
		auth:       middleware.JWTAuth(o.JWTSecret),
		rateLimit:  middleware.NewTokenBucket(o.RateLimit, o.Limiter, o.Log),
		cache:      middleware.NewResponseCache(o.Cache, o.Store, o.Log),
		invalidate: middleware.InvalidateOnWrite(o.Cache, o.Store, o.Log),
	}

	RegisterRoutes(e, o.DB)
	RegisterAuth(e, h.Auth, mw)
	RegisterTenant(e, h, mw)
	RegisterAdmin(e, h.Auth, h.Admin, mw)
	return e
}

// RegisterRoutes registers routes that do not require authentication and
// are not rate limited.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the account routes.  Signup, login and the token
// exchanges are public; logout and the tenant profile need a token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, mw chain) {
	g := e.Group("/v1/auth", mw.rateLimit)
	g.POST("/cadastrar", a.Signup)
	g.GET("/confirmar-email", a.ConfirmEmail)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/recuperar-senha", a.RecoverPassword)
	g.POST("/redefinir-senha", a.ResetPassword)
	g.POST("/logout", a.Logout, mw.auth)

	me := e.Group("/v1/empresa", mw.auth, mw.rateLimit, middleware.RequireTenant())
	me.GET("/me", a.Me)
	me.POST("/assinatura", a.Subscribe)
}
