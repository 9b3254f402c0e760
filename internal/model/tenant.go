package model

import "time"

// Tenant represents a parking-lot operator (an "empresa") as stored in
// the `empresas` table.  Every other record in the system belongs to
// exactly one tenant and is never visible to another one.
//
// Fields:
//  ID              – primary key identifier.
//  Name            – display name of the company.
//  Email           – unique login e-mail, stored lower-cased.
//  Phone           – phone number, digits only.
//  CNPJ            – unique tax identifier, digits only.
//  PasswordHash    – bcrypt hash of the tenant credential.
//  EmailConfirmed  – whether the signup e-mail link was followed.
//  PlanTitle       – subscription plan label; drives the capacity limit.
//  PlanPrice       – human readable plan price (e.g. "R$ 99,90/mês").
//  PaymentID       – payment gateway charge id (nullable).
//  PaymentStatus   – payment gateway charge status (nullable).
//  PaymentLink     – checkout link for the charge (nullable).
//  ExpiresAt       – end of the paid period (nullable).
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Tenant struct {
    ID             uint64     // empresas.id
    Name           string     // empresas.nome
    Email          string     // empresas.email
    Phone          string     // empresas.telefone
    CNPJ           string     // empresas.cnpj
    PasswordHash   string     // empresas.senha_hash
    EmailConfirmed bool       // empresas.email_confirmado
    PlanTitle      string     // empresas.plano_titulo
    PlanPrice      string     // empresas.plano_preco
    PaymentID      *string    // empresas.pagamento_id (nullable)
    PaymentStatus  *string    // empresas.pagamento_status (nullable)
    PaymentLink    *string    // empresas.pagamento_link (nullable)
    ExpiresAt      *time.Time // empresas.data_expiracao (nullable)
    CreatedAt      time.Time  // empresas.created_at
    UpdatedAt      time.Time  // empresas.updated_at
}

// Active reports whether the tenant's paid period is still running at now.
func (t Tenant) Active(now time.Time) bool {
    return t.ExpiresAt != nil && t.ExpiresAt.After(now)
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the raw token is persisted.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    TenantID  uint64     // refresh_tokens.empresa_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
