package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rmtpark-api/internal/service"
)

// RequireRole aborts with 403 unless the principal stored by JWTAuth has
// one of the given roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[PrincipalFrom(c).Role()] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

func RequireTenant() echo.MiddlewareFunc { return RequireRole(service.RoleTenant) }

func RequireAdmin() echo.MiddlewareFunc { return RequireRole(service.RoleAdmin) }
