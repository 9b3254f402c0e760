package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rmtpark-api/internal/service"
	"github.com/iliyamo/rmtpark-api/internal/utils"
)

const principalKey = "principal"

// JWTAuth validates a Bearer access token and stores the caller's
// service.Principal in the context.  Handlers read it back with
// PrincipalFrom.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			p, err := service.PrincipalFromClaims(claims)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// PrincipalFrom returns the principal stored by JWTAuth, or the anonymous
// zero value on public routes.
func PrincipalFrom(c echo.Context) service.Principal {
	p, _ := c.Get(principalKey).(service.Principal)
	return p
}
