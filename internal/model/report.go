package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Report is the permanent record of one completed parking session (a
// "relatorio").  It is written exactly once per checkout and never
// updated afterwards.
//
// Fields:
//  ID              – primary key identifier.
//  TenantID        – owning tenant.
//  SessionID       – id of the session that was closed; unique per tenant.
//  Plate           – plate of the vehicle.
//  Category        – category of the closed session.
//  EntryTime       – entry timestamp, UTC.
//  ExitTime        – exit timestamp, UTC.
//  Duration        – rounded duration formatted as H:MM:SS.
//  DurationSeconds – rounded duration in seconds.
//  Amount          – charged amount.
//  PaymentMethod   – payment method label (nullable).
//  PaymentStatus   – "Pago" or "Mensalista".
//  CreatedAt       – row creation timestamp.
type Report struct {
    ID              uint64          // relatorios.id
    TenantID        uint64          // relatorios.empresa_id
    SessionID       uint64          // relatorios.vaga_id
    Plate           string          // relatorios.placa
    Category        string          // relatorios.tipo
    EntryTime       time.Time       // relatorios.data_hora_entrada
    ExitTime        time.Time       // relatorios.data_hora_saida
    Duration        string          // relatorios.duracao
    DurationSeconds int64           // relatorios.duracao_segundos
    Amount          decimal.Decimal // relatorios.valor_pago
    PaymentMethod   *string         // relatorios.forma_pagamento (nullable)
    PaymentStatus   string          // relatorios.status_pagamento
    CreatedAt       time.Time       // relatorios.created_at
}
