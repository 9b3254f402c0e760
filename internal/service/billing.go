package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rmtpark-api/internal/model"
	"github.com/iliyamo/rmtpark-api/internal/repository"
)

// Charge is what the payment gateway returns for a subscription charge.
type Charge struct {
	ID     string
	Status string
	Link   string
}

// PaymentGateway creates subscription charges for tenants.
type PaymentGateway interface {
	CreateCharge(ctx context.Context, t *model.Tenant, amount decimal.Decimal) (Charge, error)
}

// BillingService starts plan subscriptions through a PaymentGateway.
type BillingService struct {
	tenants *repository.TenantRepo
	gateway PaymentGateway
	log     *slog.Logger
}

func NewBillingService(tenants *repository.TenantRepo, gateway PaymentGateway) *BillingService {
	return &BillingService{tenants: tenants, gateway: gateway, log: slog.Default().With("component", "billing")}
}

// ParsePlanPrice extracts the amount of a price label such as
// "R$ 99,90/mês".
func ParsePlanPrice(label string) (decimal.Decimal, error) {
	s := strings.TrimSpace(label)
	s = strings.TrimPrefix(s, "R$")
	if i := strings.Index(s, "/"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, invalid("plano_preco %q is not a valid price", label)
	}
	return d.Round(2), nil
}

// StartSubscription creates a charge for the tenant's plan and stores it.
// A gateway failure leaves the tenant unchanged.
func (s *BillingService) StartSubscription(ctx context.Context, p Principal) (Charge, error) {
	tenantID, err := p.TenantID()
	if err != nil {
		return Charge{}, err
	}
	if s.gateway == nil {
		return Charge{}, downstream("payment gateway is not configured", nil)
	}
	t, err := s.tenants.GetByID(ctx, tenantID)
	if errors.Is(err, repository.ErrTenantNotFound) {
		return Charge{}, notFound("empresa")
	}
	if err != nil {
		return Charge{}, err
	}
	amount, err := ParsePlanPrice(t.PlanPrice)
	if err != nil {
		return Charge{}, err
	}
	ch, err := s.gateway.CreateCharge(ctx, t, amount)
	if err != nil {
		s.log.Warn("payment gateway failed", "empresa_id", tenantID, "err", err)
		return Charge{}, downstream("payment gateway failed", err)
	}
	if err := s.tenants.UpdatePayment(ctx, tenantID, ch.ID, ch.Status, ch.Link); err != nil {
		return Charge{}, err
	}
	return ch, nil
}
