package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// TariffConfig holds a tenant's pricing rules (the `configuracoes`
// table).  There is at most one row per tenant; it is created on the
// first write.
//
// Fields:
//  TenantID      – owning tenant (unique).
//  HourlyRate    – price per hour.
//  DailyRate     – flat daily price; zero means unset.
//  MonthlyRate   – flat monthly-pass price.
//  RoundingUnit  – minutes a duration is rounded up to; always >= 1.
//  PaymentMethod – default payment method label.
//  UpdatedAt     – last update timestamp.
type TariffConfig struct {
    ID            uint64          // configuracoes.id
    TenantID      uint64          // configuracoes.empresa_id
    HourlyRate    decimal.Decimal // configuracoes.valor_hora
    DailyRate     decimal.Decimal // configuracoes.valor_diaria
    MonthlyRate   decimal.Decimal // configuracoes.valor_mensalista
    RoundingUnit  int             // configuracoes.arredondamento (minutes)
    PaymentMethod string          // configuracoes.forma_pagamento
    UpdatedAt     time.Time       // configuracoes.updated_at
}
