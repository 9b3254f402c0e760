package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrRefreshTokenInvalid covers unknown, revoked and expired refresh tokens
// alike; callers never learn which.
var ErrRefreshTokenInvalid = errors.New("refresh token invalid")

// TokenRepo stores refresh tokens by their SHA-256 hash only.
type TokenRepo struct{ db *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

func (r *TokenRepo) StoreRefresh(ctx context.Context, tenantID uint64, tokenHash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (empresa_id, token_hash, expires_at) VALUES (?,?,?)",
		tenantID, tokenHash, exp.UTC())
	return err
}

// ValidateRefresh returns the owning tenant of a live token.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error) {
	var tenantID uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT empresa_id FROM refresh_tokens
		 WHERE token_hash=? AND revoked_at IS NULL AND expires_at > ? LIMIT 1`,
		tokenHash, now.UTC()).Scan(&tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrRefreshTokenInvalid
	}
	return tenantID, err
}

func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForTenant is used on logout-everywhere and after a password
// reset.
func (r *TokenRepo) RevokeAllForTenant(ctx context.Context, tenantID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE empresa_id=? AND revoked_at IS NULL",
		tenantID)
	return err
}

// DeleteExpired removes tokens that expired before cutoff and reports how
// many rows went away.
func (r *TokenRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at < ?", cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
