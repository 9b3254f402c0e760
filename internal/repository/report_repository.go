package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rmtpark-api/internal/model"
)

// ReportRepo provides access to the relatorios table: the permanent
// archive of completed sessions.
type ReportRepo struct {
	db *sql.DB
}

// NewReportRepo returns a new ReportRepo bound to the given database.
func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

const reportColumns = `id, empresa_id, vaga_id, placa, tipo, data_hora_entrada, data_hora_saida, duracao,
	duracao_segundos, valor_pago, forma_pagamento, status_pagamento, created_at`

func scanReport(s rowScanner) (*model.Report, error) {
	var (
		r      model.Report
		method sql.NullString
	)
	err := s.Scan(&r.ID, &r.TenantID, &r.SessionID, &r.Plate, &r.Category, &r.EntryTime, &r.ExitTime,
		&r.Duration, &r.DurationSeconds, &r.Amount, &method, &r.PaymentStatus, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.PaymentMethod = nullStringPtr(method)
	return &r, nil
}

// CreateTx inserts a report inside the checkout transaction.  A report
// already written for the same session violates the unique key and is
// reported as ErrDuplicate.
func (r *ReportRepo) CreateTx(ctx context.Context, tx *sql.Tx, rep *model.Report) error {
	const q = `INSERT INTO relatorios (empresa_id, vaga_id, placa, tipo, data_hora_entrada, data_hora_saida,
	           duracao, duracao_segundos, valor_pago, forma_pagamento, status_pagamento)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, rep.TenantID, rep.SessionID, rep.Plate, rep.Category,
		rep.EntryTime.UTC(), rep.ExitTime.UTC(), rep.Duration, rep.DurationSeconds, rep.Amount,
		rep.PaymentMethod, rep.PaymentStatus)
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
	rep.ID = uint64(id)
	return nil
}

// GetBySessionTx returns the latest report written for a session id, if
// any.
func (r *ReportRepo) GetBySessionTx(ctx context.Context, tx *sql.Tx, tenantID, sessionID uint64) (*model.Report, error) {
	return r.get(ctx, tx, "SELECT "+reportColumns+
		" FROM relatorios WHERE empresa_id = ? AND vaga_id = ? ORDER BY id DESC LIMIT 1", tenantID, sessionID)
}

// GetByIDAndTenant fetches a report owned by the tenant.
func (r *ReportRepo) GetByIDAndTenant(ctx context.Context, id, tenantID uint64) (*model.Report, error) {
	return r.get(ctx, r.db, "SELECT "+reportColumns+" FROM relatorios WHERE id = ? AND empresa_id = ?", id, tenantID)
}

func (r *ReportRepo) get(ctx context.Context, q DBTX, query string, args ...any) (*model.Report, error) {
	rep, err := scanReport(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return rep, nil
}

// DeleteByIDAndTenant removes a report on explicit tenant request.
func (r *ReportRepo) DeleteByIDAndTenant(ctx context.Context, id, tenantID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM relatorios WHERE id = ? AND empresa_id = ?", id, tenantID)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrReportNotFound)
}

// ReportQuery narrows a report listing.  Empty strings and nil times
// disable the corresponding filter.  Text filters are case-insensitive
// substrings; the entry-time range is inclusive on both ends.
type ReportQuery struct {
	Plate         string
	Category      string
	PaymentMethod string
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

// List returns the tenant's reports matching q, newest exit first.
func (r *ReportRepo) List(ctx context.Context, tenantID uint64, q ReportQuery) ([]*model.Report, error) {
	var sb strings.Builder
	sb.WriteString("SELECT " + reportColumns + " FROM relatorios WHERE empresa_id = ?")
	args := []any{tenantID}
	if q.Plate != "" {
		sb.WriteString(" AND UPPER(placa) LIKE ?")
		args = append(args, likePattern(strings.ToUpper(q.Plate)))
	}
	if q.Category != "" {
		sb.WriteString(" AND LOWER(tipo) LIKE ?")
		args = append(args, likePattern(strings.ToLower(q.Category)))
	}
	if q.PaymentMethod != "" {
		sb.WriteString(" AND LOWER(forma_pagamento) LIKE ?")
		args = append(args, likePattern(strings.ToLower(q.PaymentMethod)))
	}
	if q.From != nil {
		sb.WriteString(" AND data_hora_entrada >= ?")
		args = append(args, q.From.UTC())
	}
	if q.To != nil {
		sb.WriteString(" AND data_hora_entrada <= ?")
		args = append(args, q.To.UTC())
	}
	sb.WriteString(" ORDER BY data_hora_saida DESC, id DESC")
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReportPoint is the slice of a report the dashboard aggregates over.
type ReportPoint struct {
	EntryTime time.Time
	ExitTime  time.Time
	Amount    decimal.Decimal
}

// ListPoints returns the dashboard rows of a tenant whose entry time is
// inside the optional inclusive window.
func (r *ReportRepo) ListPoints(ctx context.Context, tenantID uint64, from, to *time.Time) ([]ReportPoint, error) {
	query := "SELECT data_hora_entrada, data_hora_saida, valor_pago FROM relatorios WHERE empresa_id = ?"
	args := []any{tenantID}
	if from != nil {
		query += " AND data_hora_entrada >= ?"
		args = append(args, from.UTC())
	}
	if to != nil {
		query += " AND data_hora_entrada <= ?"
		args = append(args, to.UTC())
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportPoint
	for rows.Next() {
		var p ReportPoint
		if err := rows.Scan(&p.EntryTime, &p.ExitTime, &p.Amount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// likePattern wraps s in % wildcards after escaping LIKE metacharacters.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
