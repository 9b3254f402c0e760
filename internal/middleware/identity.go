package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// callerID identifies the caller for rate-limit keys and logs: "t<id>" for
// tenants, "admin" for the administrator, "anon" otherwise.
func callerID(c echo.Context) string {
	p := PrincipalFrom(c)
	if p.IsAdmin() {
		return "admin"
	}
	if id, err := p.TenantID(); err == nil {
		return "t" + strconv.FormatUint(id, 10)
	}
	return "anon"
}

// tenantOf returns the tenant id of the caller, if it is a tenant.
func tenantOf(c echo.Context) (uint64, bool) {
	id, err := PrincipalFrom(c).TenantID()
	return id, err == nil
}
