package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/rmtpark-api/internal/model"
)

var (
	ErrEmailExists = errors.New("email already exists")
	ErrCNPJExists  = errors.New("cnpj already exists")
)

const tenantColumns = `id, nome, email, telefone, cnpj, senha_hash, email_confirmado, plano_titulo, plano_preco,
	pagamento_id, pagamento_status, pagamento_link, data_expiracao, created_at, updated_at`

// TenantRepo persists empresas.
type TenantRepo struct{ db *sql.DB }

func NewTenantRepo(db *sql.DB) *TenantRepo { return &TenantRepo{db: db} }

func scanTenant(s rowScanner) (*model.Tenant, error) {
	var (
		t        model.Tenant
		pid      sql.NullString
		pstatus  sql.NullString
		plink    sql.NullString
		expireAt sql.NullTime
	)
	err := s.Scan(&t.ID, &t.Name, &t.Email, &t.Phone, &t.CNPJ, &t.PasswordHash, &t.EmailConfirmed,
		&t.PlanTitle, &t.PlanPrice, &pid, &pstatus, &plink, &expireAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.PaymentID = nullStringPtr(pid)
	t.PaymentStatus = nullStringPtr(pstatus)
	t.PaymentLink = nullStringPtr(plink)
	t.ExpiresAt = nullTimePtr(expireAt)
	return &t, nil
}

// Create inserts a tenant and sets its ID.  Email is normalized to lower
// case.  Unique violations are reported as ErrEmailExists or ErrCNPJExists.
func (r *TenantRepo) Create(ctx context.Context, t *model.Tenant) error {
	t.Email = strings.ToLower(strings.TrimSpace(t.Email))
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO empresas (nome, email, telefone, cnpj, senha_hash, email_confirmado, plano_titulo, plano_preco)
		 VALUES (?,?,?,?,?,?,?,?)`,
		t.Name, t.Email, t.Phone, t.CNPJ, t.PasswordHash, t.EmailConfirmed, t.PlanTitle, t.PlanPrice)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			if strings.Contains(me.Message, "cnpj") {
				return ErrCNPJExists
			}
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

func (r *TenantRepo) getOne(ctx context.Context, q DBTX, query string, args ...any) (*model.Tenant, error) {
	t, err := scanTenant(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return t, nil
}

// GetByID fetches a tenant by id.
func (r *TenantRepo) GetByID(ctx context.Context, id uint64) (*model.Tenant, error) {
	return r.getOne(ctx, r.db, "SELECT "+tenantColumns+" FROM empresas WHERE id = ? LIMIT 1", id)
}

// GetByEmail fetches a tenant by normalized email.
func (r *TenantRepo) GetByEmail(ctx context.Context, email string) (*model.Tenant, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getOne(ctx, r.db, "SELECT "+tenantColumns+" FROM empresas WHERE email = ? LIMIT 1", email)
}

// GetForUpdateTx reads the tenant row and holds a row lock on it until
// the transaction ends.  Session opens lock this row so that capacity
// checks for the same tenant run one after another.
func (r *TenantRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Tenant, error) {
	return r.getOne(ctx, tx, "SELECT "+tenantColumns+" FROM empresas WHERE id = ? FOR UPDATE", id)
}

// ConfirmEmail flags the tenant's email as confirmed.
func (r *TenantRepo) ConfirmEmail(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.db.ExecContext(ctx,
		"UPDATE empresas SET email_confirmado = TRUE, updated_at = CURRENT_TIMESTAMP WHERE email = ?", email)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrTenantNotFound)
}

// UpdatePassword replaces the stored bcrypt hash.
func (r *TenantRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE empresas SET senha_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", hash, id)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrTenantNotFound)
}

// UpdatePayment stores the payment gateway charge attached to the tenant.
func (r *TenantRepo) UpdatePayment(ctx context.Context, id uint64, paymentID, status, link string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE empresas SET pagamento_id = ?, pagamento_status = ?, pagamento_link = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, paymentID, status, link, id)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrTenantNotFound)
}

// SetExpiry sets the end of the tenant's paid period.
func (r *TenantRepo) SetExpiry(ctx context.Context, id uint64, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE empresas SET data_expiracao = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", expiresAt.UTC(), id)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrTenantNotFound)
}

// Delete removes a tenant; foreign keys cascade to every owned row.
func (r *TenantRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM empresas WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrTenantNotFound)
}

// TenantSummary is one line of the admin panel listing.
type TenantSummary struct {
	ID           uint64
	Name         string
	CNPJ         string
	PlanTitle    string
	ExpiresAt    *time.Time
	OpenSessions int
}

// ListSummaries returns every tenant with its number of open sessions.
func (r *TenantRepo) ListSummaries(ctx context.Context) ([]TenantSummary, error) {
	const q = `SELECT e.id, e.nome, e.cnpj, e.plano_titulo, e.data_expiracao, COUNT(v.id)
	           FROM empresas e LEFT JOIN vagas v ON v.empresa_id = e.id
	           GROUP BY e.id, e.nome, e.cnpj, e.plano_titulo, e.data_expiracao
	           ORDER BY e.id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TenantSummary
	for rows.Next() {
		var (
			s  TenantSummary
			nt sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.CNPJ, &s.PlanTitle, &nt, &s.OpenSessions); err != nil {
			return nil, err
		}
		s.ExpiresAt = nullTimePtr(nt)
		out = append(out, s)
	}
	return out, rows.Err()
}

// expectAffected turns "no row updated" into the given not-found error.
func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
