package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/rmtpark-api/internal/model"
)

// MonthlyPassRepo persists mensalistas.  All methods are tenant scoped.
type MonthlyPassRepo struct{ db *sql.DB }

func NewMonthlyPassRepo(db *sql.DB) *MonthlyPassRepo { return &MonthlyPassRepo{db: db} }

const passColumns = `id, empresa_id, nome, placa, veiculo, cor, cpf, telefone, validade, status,
	ultimo_pagamento, created_at, updated_at`

func scanPass(s rowScanner) (*model.MonthlyPass, error) {
	var (
		p     model.MonthlyPass
		phone sql.NullString
		paid  sql.NullTime
	)
	err := s.Scan(&p.ID, &p.TenantID, &p.OwnerName, &p.Plate, &p.Vehicle, &p.Color, &p.Document, &phone,
		&p.ValidUntil, &p.Status, &paid, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Phone = nullStringPtr(phone)
	p.LastPayment = nullTimePtr(paid)
	return &p, nil
}

// Create inserts a pass; a plate already registered for the tenant
// yields ErrDuplicate.
func (r *MonthlyPassRepo) Create(ctx context.Context, p *model.MonthlyPass) error {
	const q = `INSERT INTO mensalistas (empresa_id, nome, placa, veiculo, cor, cpf, telefone, validade, status)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.TenantID, p.OwnerName, p.Plate, p.Vehicle, p.Color, p.Document,
		p.Phone, p.ValidUntil.UTC(), p.Status)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// ListByTenant returns every pass of the tenant ordered by owner name.
func (r *MonthlyPassRepo) ListByTenant(ctx context.Context, tenantID uint64) ([]*model.MonthlyPass, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+passColumns+" FROM mensalistas WHERE empresa_id = ? ORDER BY nome, id", tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.MonthlyPass{}
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByIDAndTenant fetches one pass owned by the tenant.
func (r *MonthlyPassRepo) GetByIDAndTenant(ctx context.Context, id, tenantID uint64) (*model.MonthlyPass, error) {
	return r.get(ctx, r.db, "SELECT "+passColumns+" FROM mensalistas WHERE id = ? AND empresa_id = ?", id, tenantID)
}

// GetByPlateForUpdateTx locks the pass of a plate for the duration of a
// checkout so two checkouts in the same month cannot both charge.
func (r *MonthlyPassRepo) GetByPlateForUpdateTx(ctx context.Context, tx *sql.Tx, tenantID uint64, plate string) (*model.MonthlyPass, error) {
	return r.get(ctx, tx, "SELECT "+passColumns+" FROM mensalistas WHERE empresa_id = ? AND placa = ? FOR UPDATE", tenantID, plate)
}

func (r *MonthlyPassRepo) get(ctx context.Context, q DBTX, query string, args ...any) (*model.MonthlyPass, error) {
	p, err := scanPass(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMonthlyPassNotFound
		}
		return nil, err
	}
	return p, nil
}

// Update overwrites the editable fields of a pass.
func (r *MonthlyPassRepo) Update(ctx context.Context, p *model.MonthlyPass) error {
	const q = `UPDATE mensalistas SET nome = ?, placa = ?, veiculo = ?, cor = ?, cpf = ?, telefone = ?, validade = ?,
	           status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND empresa_id = ?`
	res, err := r.db.ExecContext(ctx, q, p.OwnerName, p.Plate, p.Vehicle, p.Color, p.Document, p.Phone,
		p.ValidUntil.UTC(), p.Status, p.ID, p.TenantID)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return expectAffected(res, ErrMonthlyPassNotFound)
}

// SetLastPaymentTx stamps the month a pass was last charged.
func (r *MonthlyPassRepo) SetLastPaymentTx(ctx context.Context, tx *sql.Tx, id, tenantID uint64, paidAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE mensalistas SET ultimo_pagamento = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND empresa_id = ?",
		paidAt.UTC(), id, tenantID)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrMonthlyPassNotFound)
}

// Delete removes a pass owned by the tenant.
func (r *MonthlyPassRepo) Delete(ctx context.Context, id, tenantID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM mensalistas WHERE id = ? AND empresa_id = ?", id, tenantID)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrMonthlyPassNotFound)
}
