package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/rmtpark-api/internal/model"
)

// SessionRepo provides data access to the vagas table, the ledger of
// currently open parking sessions.  Every query is filtered by tenant.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the provided database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionColumns = "id, empresa_id, placa, tipo, data_hora, created_at"

func scanSession(s rowScanner) (*model.Session, error) {
	var v model.Session
	if err := s.Scan(&v.ID, &v.TenantID, &v.Plate, &v.Category, &v.EntryTime, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// CountOpenTx returns the number of open sessions for the tenant.  Run
// it after locking the tenant row so the count stays valid until commit.
func (r *SessionRepo) CountOpenTx(ctx context.Context, tx *sql.Tx, tenantID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM vagas WHERE empresa_id = ?", tenantID).Scan(&n)
	return n, err
}

// CreateTx inserts a new open session and populates its ID.  A second
// open session for the same plate violates the unique key and yields
// ErrDuplicate.
func (r *SessionRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Session) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO vagas (empresa_id, placa, tipo, data_hora) VALUES (?, ?, ?, ?)",
		s.TenantID, s.Plate, s.Category, s.EntryTime.UTC())
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
	s.ID = uint64(id)
	return nil
}

// ListByTenant returns the open sessions of a tenant, oldest entry first.
func (r *SessionRepo) ListByTenant(ctx context.Context, tenantID uint64) ([]*model.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM vagas WHERE empresa_id = ? ORDER BY data_hora, id", tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByIDAndTenant fetches an open session only if it belongs to the
// tenant.  Sessions of other tenants are reported as ErrSessionNotFound.
func (r *SessionRepo) GetByIDAndTenant(ctx context.Context, id, tenantID uint64) (*model.Session, error) {
	return r.get(ctx, r.db, "SELECT "+sessionColumns+" FROM vagas WHERE id = ? AND empresa_id = ?", id, tenantID)
}

// GetForUpdateTx is GetByIDAndTenant with a row lock held until the
// transaction ends.  Two concurrent checkouts of one session serialize
// here; the second one no longer finds the row.
func (r *SessionRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id, tenantID uint64) (*model.Session, error) {
	return r.get(ctx, tx, "SELECT "+sessionColumns+" FROM vagas WHERE id = ? AND empresa_id = ? FOR UPDATE", id, tenantID)
}

func (r *SessionRepo) get(ctx context.Context, q DBTX, query string, args ...any) (*model.Session, error) {
	s, err := scanSession(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// DeleteTx closes a session by removing it from the ledger.
func (r *SessionRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id, tenantID uint64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM vagas WHERE id = ? AND empresa_id = ?", id, tenantID)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrSessionNotFound)
}
