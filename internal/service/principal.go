package service

import "github.com/iliyamo/rmtpark-api/internal/utils"

// Role names carried in the access token "role" claim.
const (
	RoleTenant = "EMPRESA"
	RoleAdmin  = "ADMIN"
)

// Principal is the authenticated caller: either a tenant (identified by
// its id) or the platform administrator.  The zero value is anonymous.
type Principal struct {
	role     string
	tenantID uint64
}

// TenantPrincipal returns the principal of an authenticated tenant.
func TenantPrincipal(id uint64) Principal { return Principal{role: RoleTenant, tenantID: id} }

// AdminPrincipal returns the administrator principal.
func AdminPrincipal() Principal { return Principal{role: RoleAdmin} }

func (p Principal) Role() string  { return p.role }
func (p Principal) IsAdmin() bool { return p.role == RoleAdmin }

// TenantID returns the tenant id for tenant principals.  Administrators
// are rejected because tenant-scoped data always needs a concrete owner.
func (p Principal) TenantID() (uint64, error) {
	switch p.role {
	case RoleTenant:
		if p.tenantID == 0 {
			return 0, newError(KindUnauthorized, "invalid tenant")
		}
		return p.tenantID, nil
	case RoleAdmin:
		return 0, newError(KindForbidden, "operation requires a tenant account")
	default:
		return 0, newError(KindUnauthorized, "authentication required")
	}
}

// RequireAdmin rejects every principal except the administrator.
func (p Principal) RequireAdmin() error {
	switch p.role {
	case RoleAdmin:
		return nil
	case RoleTenant:
		return newError(KindForbidden, "operation requires an administrator")
	default:
		return newError(KindUnauthorized, "authentication required")
	}
}

// PrincipalFromClaims maps verified access-token claims to a principal.
func PrincipalFromClaims(c utils.AccessClaims) (Principal, error) {
	switch c.Role {
	case RoleAdmin:
		return AdminPrincipal(), nil
	case RoleTenant:
		id, err := c.TenantID()
		if err != nil || id == 0 {
			return Principal{}, newError(KindUnauthorized, "invalid token subject")
		}
		return TenantPrincipal(id), nil
	default:
		return Principal{}, newError(KindUnauthorized, "unknown role %q", c.Role)
	}
}
