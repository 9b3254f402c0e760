package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/rmtpark-api/internal/model"
)

// TariffRepo reads and writes the per-tenant configuracoes row.
type TariffRepo struct{ db *sql.DB }

func NewTariffRepo(db *sql.DB) *TariffRepo { return &TariffRepo{db: db} }

const tariffSelect = `SELECT id, empresa_id, valor_hora, valor_diaria, valor_mensalista, arredondamento,
	forma_pagamento, updated_at FROM configuracoes WHERE empresa_id = ?`

// GetByTenant returns the tenant's tariff or ErrTariffNotFound.
func (r *TariffRepo) GetByTenant(ctx context.Context, tenantID uint64) (*model.TariffConfig, error) {
	return r.get(ctx, r.db, tariffSelect, tenantID)
}

// GetTx reads the tariff inside a transaction.
func (r *TariffRepo) GetTx(ctx context.Context, tx *sql.Tx, tenantID uint64) (*model.TariffConfig, error) {
	return r.get(ctx, tx, tariffSelect, tenantID)
}

// GetForUpdateTx reads the tariff and locks the row until the
// transaction ends.
func (r *TariffRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, tenantID uint64) (*model.TariffConfig, error) {
	return r.get(ctx, tx, tariffSelect+" FOR UPDATE", tenantID)
}

func (r *TariffRepo) get(ctx context.Context, q DBTX, query string, tenantID uint64) (*model.TariffConfig, error) {
	var c model.TariffConfig
	err := q.QueryRowContext(ctx, query, tenantID).Scan(&c.ID, &c.TenantID, &c.HourlyRate, &c.DailyRate,
		&c.MonthlyRate, &c.RoundingUnit, &c.PaymentMethod, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTariffNotFound
		}
		return nil, err
	}
	return &c, nil
}

// UpsertTx creates the tenant's tariff on first write and overwrites it
// afterwards.
func (r *TariffRepo) UpsertTx(ctx context.Context, tx *sql.Tx, c *model.TariffConfig) error {
	const q = `INSERT INTO configuracoes (empresa_id, valor_hora, valor_diaria, valor_mensalista, arredondamento, forma_pagamento)
	           VALUES (?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE valor_hora = VALUES(valor_hora), valor_diaria = VALUES(valor_diaria),
	             valor_mensalista = VALUES(valor_mensalista), arredondamento = VALUES(arredondamento),
	             forma_pagamento = VALUES(forma_pagamento), updated_at = CURRENT_TIMESTAMP`
	_, err := tx.ExecContext(ctx, q, c.TenantID, c.HourlyRate, c.DailyRate, c.MonthlyRate, c.RoundingUnit, c.PaymentMethod)
	return err
}
