package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/rmtpark-api/internal/repository"
)

// RenewalPeriod is added to a tenant's paid period on renewal.
const RenewalPeriod = 30 * 24 * time.Hour

// AdminService backs the administrator panel.
type AdminService struct {
	tenants *repository.TenantRepo
	now     func() time.Time
}

func NewAdminService(tenants *repository.TenantRepo) *AdminService {
	return &AdminService{tenants: tenants, now: time.Now}
}

// TenantOverview is one row of the admin tenant list.
type TenantOverview struct {
	ID           uint64     `json:"id"`
	Name         string     `json:"nome"`
	CNPJ         string     `json:"cnpj"`
	PlanTitle    string     `json:"plano"`
	ExpiresAt    *time.Time `json:"data_expiracao"`
	Active       bool       `json:"ativo"`
	OpenSessions int        `json:"vagas_abertas"`
}

// ListTenants returns every tenant with its open-session count.
func (s *AdminService) ListTenants(ctx context.Context, p Principal) ([]TenantOverview, error) {
	if err := p.RequireAdmin(); err != nil {
		return nil, err
	}
	rows, err := s.tenants.ListSummaries(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	out := make([]TenantOverview, 0, len(rows))
	for _, r := range rows {
		out = append(out, TenantOverview{
			ID:           r.ID,
			Name:         r.Name,
			CNPJ:         r.CNPJ,
			PlanTitle:    r.PlanTitle,
			ExpiresAt:    r.ExpiresAt,
			Active:       r.ExpiresAt != nil && r.ExpiresAt.After(now),
			OpenSessions: r.OpenSessions,
		})
	}
	return out, nil
}

// RenewTenant extends the paid period by RenewalPeriod, counted from the
// current expiry when it is still in the future and from now otherwise.
func (s *AdminService) RenewTenant(ctx context.Context, p Principal, id uint64) (time.Time, error) {
	if err := p.RequireAdmin(); err != nil {
		return time.Time{}, err
	}
	t, err := s.tenants.GetByID(ctx, id)
	if errors.Is(err, repository.ErrTenantNotFound) {
		return time.Time{}, notFound("empresa")
	}
	if err != nil {
		return time.Time{}, err
	}
	base := s.now().UTC()
	if t.ExpiresAt != nil && t.ExpiresAt.After(base) {
		base = t.ExpiresAt.UTC()
	}
	next := base.Add(RenewalPeriod)
	if err := s.tenants.SetExpiry(ctx, id, next); err != nil {
		return time.Time{}, err
	}
	return next, nil
}

// DeleteTenant removes a tenant and, through cascading keys, all its data.
func (s *AdminService) DeleteTenant(ctx context.Context, p Principal, id uint64) error {
	if err := p.RequireAdmin(); err != nil {
		return err
	}
	err := s.tenants.Delete(ctx, id)
	if errors.Is(err, repository.ErrTenantNotFound) {
		return notFound("empresa")
	}
	return err
}
