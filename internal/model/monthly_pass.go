package model

import "time"

// MonthlyPass is a vehicle enrolled for flat monthly billing (a
// "mensalista").  The (Plate, TenantID) pair is unique.
//
// Fields:
//  OwnerName   – name of the subscriber.
//  Plate       – upper-cased plate.
//  Vehicle     – free-form vehicle description.
//  Color       – vehicle color.
//  Document    – subscriber identity document (CPF).
//  Phone       – optional contact phone.
//  ValidUntil  – pass validity.
//  Status      – "ativo" or another label.
//  LastPayment – when the monthly fee was last charged (nullable).
type MonthlyPass struct {
    ID          uint64     // mensalistas.id
    TenantID    uint64     // mensalistas.empresa_id
    OwnerName   string     // mensalistas.nome
    Plate       string     // mensalistas.placa
    Vehicle     string     // mensalistas.veiculo
    Color       string     // mensalistas.cor
    Document    string     // mensalistas.cpf
    Phone       *string    // mensalistas.telefone (nullable)
    ValidUntil  time.Time  // mensalistas.validade
    Status      string     // mensalistas.status
    LastPayment *time.Time // mensalistas.ultimo_pagamento (nullable)
    CreatedAt   time.Time  // mensalistas.created_at
    UpdatedAt   time.Time  // mensalistas.updated_at
}
