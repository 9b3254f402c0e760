package model

import "time"

// Session is a vehicle currently occupying a space (a "vaga").  A row in
// the `vagas` table exists only while the vehicle is parked; checkout
// deletes it and writes a Report in the same transaction.
//
// Fields:
//  ID        – primary key identifier.
//  TenantID  – owning tenant.
//  Plate     – upper-cased plate identifier.
//  Category  – vehicle category label ("diarista", "mensalista", ...).
//  EntryTime – when the vehicle entered, UTC.
//  CreatedAt – row creation timestamp.
type Session struct {
    ID        uint64    // vagas.id
    TenantID  uint64    // vagas.empresa_id
    Plate     string    // vagas.placa
    Category  string    // vagas.tipo
    EntryTime time.Time // vagas.data_hora
    CreatedAt time.Time // vagas.created_at
}
