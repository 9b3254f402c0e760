package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rmtpark-api/internal/model"
	"github.com/iliyamo/rmtpark-api/internal/repository"
)

// Values used for fields a tenant has never set.
var (
	defaultHourlyRate   = decimal.RequireFromString("10.00")
	defaultRoundingUnit = 15
)

// maxRate is the largest amount a DECIMAL(10,2) rate column holds.
var maxRate = decimal.RequireFromString("99999999.99")

// TariffService reads and writes a tenant's pricing configuration.
type TariffService struct {
	db      *sql.DB
	tenants *repository.TenantRepo
	tariffs *repository.TariffRepo
}

func NewTariffService(db *sql.DB) *TariffService {
	return &TariffService{
		db:      db,
		tenants: repository.NewTenantRepo(db),
		tariffs: repository.NewTariffRepo(db),
	}
}

// TariffInput is a partial tariff update.  Nil fields keep the stored
// value, or the default when nothing is stored yet.
type TariffInput struct {
	HourlyRate    *decimal.Decimal
	DailyRate     *decimal.Decimal
	MonthlyRate   *decimal.Decimal
	RoundingUnit  *int
	PaymentMethod *string
}

// GetTariff returns the tenant's configuration or not_found if it was
// never written.
func (s *TariffService) GetTariff(ctx context.Context, p Principal) (*model.TariffConfig, error) {
	tenantID, err := p.TenantID()
	if err != nil {
		return nil, err
	}
	c, err := s.tariffs.GetByTenant(ctx, tenantID)
	if errors.Is(err, repository.ErrTariffNotFound) {
		return nil, notFound("configuracao")
	}
	return c, err
}

// SetTariff validates in, merges it over the current configuration and
// stores the result.  The tenant row stays locked from the read to the
// write so concurrent partial updates apply one after another.
func (s *TariffService) SetTariff(ctx context.Context, p Principal, in TariffInput) (*model.TariffConfig, error) {
	tenantID, err := p.TenantID()
	if err != nil {
		return nil, err
	}
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := s.tenants.GetForUpdateTx(ctx, tx, tenantID); err != nil {
			if errors.Is(err, repository.ErrTenantNotFound) {
				return notFound("empresa")
			}
			return err
		}
		cur, err := s.tariffs.GetForUpdateTx(ctx, tx, tenantID)
		switch {
		case errors.Is(err, repository.ErrTariffNotFound):
			cur = &model.TariffConfig{
				TenantID:      tenantID,
				HourlyRate:    defaultHourlyRate,
				RoundingUnit:  defaultRoundingUnit,
				PaymentMethod: DefaultPaymentMethod,
			}
		case err != nil:
			return err
		}

		next := mergeTariff(*cur, in)
		if err := validateTariff(next); err != nil {
			return err
		}
		next.HourlyRate = next.HourlyRate.Round(2)
		next.DailyRate = next.DailyRate.Round(2)
		next.MonthlyRate = next.MonthlyRate.Round(2)
		return s.tariffs.UpsertTx(ctx, tx, &next)
	})
	if err != nil {
		return nil, err
	}
	return s.tariffs.GetByTenant(ctx, tenantID)
}

func mergeTariff(next model.TariffConfig, in TariffInput) model.TariffConfig {
	if in.HourlyRate != nil {
		next.HourlyRate = *in.HourlyRate
	}
	if in.DailyRate != nil {
		next.DailyRate = *in.DailyRate
	}
	if in.MonthlyRate != nil {
		next.MonthlyRate = *in.MonthlyRate
	}
	if in.RoundingUnit != nil {
		next.RoundingUnit = *in.RoundingUnit
	}
	if in.PaymentMethod != nil {
		next.PaymentMethod = strings.TrimSpace(*in.PaymentMethod)
	}
	if next.PaymentMethod == "" {
		next.PaymentMethod = DefaultPaymentMethod
	}
	return next
}

func validateTariff(c model.TariffConfig) error {
	if c.RoundingUnit < 1 || c.RoundingUnit > MaxRoundingUnit {
		return invalid("arredondamento must be between 1 and %d minutes", MaxRoundingUnit)
	}
	for _, r := range []decimal.Decimal{c.HourlyRate, c.DailyRate, c.MonthlyRate} {
		if r.IsNegative() {
			return invalid("rates must not be negative")
		}
		if r.Round(2).GreaterThan(maxRate) {
			return invalid("rates must not exceed %s", maxRate.StringFixed(2))
		}
	}
	if utf8.RuneCountInString(c.PaymentMethod) > maxMethodLen {
		return invalid("forma_pagamento must have at most %d characters", maxMethodLen)
	}
	return nil
}
