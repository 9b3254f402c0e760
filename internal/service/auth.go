package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/rmtpark-api/internal/model"
	"github.com/iliyamo/rmtpark-api/internal/queue"
	"github.com/iliyamo/rmtpark-api/internal/repository"
	"github.com/iliyamo/rmtpark-api/internal/utils"
)

const minPasswordLen = 6

func checkPassword(p string) error {
	if len(p) < minPasswordLen {
		return invalid("senha must have at least %d characters", minPasswordLen)
	}
	if len(p) > utils.MaxPasswordBytes {
		return invalid("senha must have at most %d bytes", utils.MaxPasswordBytes)
	}
	return nil
}

// AuthConfig carries the token and credential settings of AuthService.
type AuthConfig struct {
	JWTSecret         string
	AccessTTLMin      int
	RefreshTTLDays    int
	BcryptCost        int
	ConfirmTTL        time.Duration
	APIURL            string // base of the e-mail confirmation link
	FrontURL          string // base of the password reset page
	AdminEmail        string
	AdminPasswordHash string
}

// AuthService handles tenant signup, credentials and token issuance.
type AuthService struct {
	cfg      AuthConfig
	tenants  *repository.TenantRepo
	tokens   *repository.TokenRepo
	notifier Notifier
	log      *slog.Logger
}

func NewAuthService(cfg AuthConfig, tenants *repository.TenantRepo, tokens *repository.TokenRepo, notifier Notifier) *AuthService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if cfg.ConfirmTTL <= 0 {
		cfg.ConfirmTTL = 24 * time.Hour
	}
	return &AuthService{
		cfg:      cfg,
		tenants:  tenants,
		tokens:   tokens,
		notifier: notifier,
		log:      slog.Default().With("component", "auth"),
	}
}

// SignupInput is the payload of a tenant registration.
type SignupInput struct {
	Name      string
	Email     string
	Phone     string
	CNPJ      string
	Password  string
	PlanTitle string
	PlanPrice string
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	Tenant  *model.Tenant
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", invalid("email is required")
	}
	if a, err := mail.ParseAddress(email); err != nil || a.Address != email {
		return "", invalid("email is invalid")
	}
	return email, nil
}

// Signup creates an unconfirmed tenant and queues the confirmation e-mail.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*model.Tenant, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("nome is required")
	}
	cnpj := utils.DigitsOnly(in.CNPJ)
	if !utils.ValidCNPJ(cnpj) {
		return nil, invalid("cnpj is invalid")
	}
	phone := utils.DigitsOnly(in.Phone)
	if len(phone) < 10 || len(phone) > 13 {
		return nil, invalid("telefone must have 10 to 13 digits")
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}
	plan := strings.TrimSpace(in.PlanTitle)
	if plan == "" {
		return nil, invalid("plano_titulo is required")
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	t := &model.Tenant{
		Name:         name,
		Email:        email,
		Phone:        phone,
		CNPJ:         cnpj,
		PasswordHash: hash,
		PlanTitle:    plan,
		PlanPrice:    strings.TrimSpace(in.PlanPrice),
	}
	switch err := s.tenants.Create(ctx, t); {
	case errors.Is(err, repository.ErrEmailExists):
		return nil, conflict("email already registered")
	case errors.Is(err, repository.ErrCNPJExists):
		return nil, conflict("cnpj already registered")
	case err != nil:
		return nil, err
	}
	s.log.Info("tenant registered", "empresa_id", t.ID)

	token, err := utils.NewPurposeToken(s.cfg.JWTSecret, utils.TypeConfirm, email, s.cfg.ConfirmTTL)
	if err != nil {
		s.log.Warn("issue confirmation token failed", "empresa_id", t.ID, "err", err)
		return t, nil
	}
	link := strings.TrimRight(s.cfg.APIURL, "/") + "/v1/auth/confirmar-email?token=" + url.QueryEscape(token)
	msg := queue.EmailMessage{
		To:      email,
		Subject: "Confirme seu cadastro no RmtPark",
		Body:    fmt.Sprintf("Olá %s,\n\nConfirme seu e-mail acessando o link abaixo:\n%s\n", name, link),
	}
	fireAndForget(s.log, "signup confirmation", func(ctx context.Context) error {
		return s.notifier.SendEmail(ctx, msg)
	})
	return t, nil
}

// ConfirmEmail marks the e-mail bound to a confirmation token as verified.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) error {
	email, err := utils.ParsePurposeToken(s.cfg.JWTSecret, utils.TypeConfirm, strings.TrimSpace(token))
	if err != nil {
		return invalid("confirmation token is invalid or expired")
	}
	if err := s.tenants.ConfirmEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			return notFound("empresa")
		}
		return err
	}
	return nil
}

// Login verifies tenant credentials and issues a token pair.  Tenants
// that have not confirmed their e-mail are refused.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, invalid("email and senha are required")
	}
	t, err := s.tenants.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrTenantNotFound) {
		return nil, newError(KindUnauthorized, "invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !utils.VerifyPassword(t.PasswordHash, password) {
		return nil, newError(KindUnauthorized, "invalid credentials")
	}
	if !t.EmailConfirmed {
		return nil, newError(KindForbidden, "email not confirmed")
	}
	return s.issuePair(ctx, t)
}

func (s *AuthService) issuePair(ctx context.Context, t *model.Tenant) (*TokenPair, error) {
	access, err := s.accessFor(t)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.StoreRefresh(ctx, t.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, err
	}
	return &TokenPair{Tenant: t, Access: access, Refresh: refresh}, nil
}

func (s *AuthService) accessFor(t *model.Tenant) (utils.AccessToken, error) {
	return utils.NewAccessToken(s.cfg.JWTSecret, strconv.FormatUint(t.ID, 10), RoleTenant, t.Email, s.cfg.AccessTTLMin)
}

func (s *AuthService) tenantForRefresh(ctx context.Context, raw string) (*model.Tenant, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, "", invalid("refresh_token is required")
	}
	hash := utils.HashRefreshRaw(raw)
	id, err := s.tokens.ValidateRefresh(ctx, hash, time.Now())
	if errors.Is(err, repository.ErrRefreshTokenInvalid) {
		return nil, "", newError(KindUnauthorized, "invalid refresh token")
	}
	if err != nil {
		return nil, "", err
	}
	t, err := s.tenants.GetByID(ctx, id)
	if errors.Is(err, repository.ErrTenantNotFound) {
		return nil, "", newError(KindUnauthorized, "invalid refresh token")
	}
	if err != nil {
		return nil, "", err
	}
	return t, hash, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*TokenPair, error) {
	t, hash, err := s.tenantForRefresh(ctx, raw)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
		return nil, err
	}
	return s.issuePair(ctx, t)
}

// RefreshAccess issues a new access token without rotating the refresh
// token.
func (s *AuthService) RefreshAccess(ctx context.Context, raw string) (utils.AccessToken, error) {
	t, _, err := s.tenantForRefresh(ctx, raw)
	if err != nil {
		return utils.AccessToken{}, err
	}
	return s.accessFor(t)
}

// Logout revokes one refresh token when raw is given, otherwise every
// refresh token of the authenticated tenant.
func (s *AuthService) Logout(ctx context.Context, p Principal, raw string) error {
	if raw = strings.TrimSpace(raw); raw != "" {
		return s.tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw))
	}
	tenantID, err := p.TenantID()
	if err != nil {
		return err
	}
	return s.tokens.RevokeAllForTenant(ctx, tenantID)
}

// RequestPasswordReset e-mails a reset link.  Unknown addresses succeed
// silently so the endpoint does not reveal which e-mails are registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	t, err := s.tenants.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrTenantNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	token, err := utils.NewPurposeToken(s.cfg.JWTSecret, utils.TypeReset, t.Email, time.Hour)
	if err != nil {
		return err
	}
	link := strings.TrimRight(s.cfg.FrontURL, "/") + "/redefinir-senha?token=" + url.QueryEscape(token)
	msg := queue.EmailMessage{
		To:      t.Email,
		Subject: "Redefinição de senha RmtPark",
		Body:    fmt.Sprintf("Olá %s,\n\nPara redefinir sua senha acesse:\n%s\n\nO link expira em 1 hora.\n", t.Name, link),
	}
	fireAndForget(s.log, "password reset", func(ctx context.Context) error {
		return s.notifier.SendEmail(ctx, msg)
	})
	return nil
}

// ResetPassword sets a new password from a reset token and revokes every
// refresh token of the tenant.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	email, err := utils.ParsePurposeToken(s.cfg.JWTSecret, utils.TypeReset, strings.TrimSpace(token))
	if err != nil {
		return invalid("reset token is invalid or expired")
	}
	if err := checkPassword(password); err != nil {
		return err
	}
	t, err := s.tenants.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrTenantNotFound) {
		return notFound("empresa")
	}
	if err != nil {
		return err
	}
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.tenants.UpdatePassword(ctx, t.ID, hash); err != nil {
		return err
	}
	return s.tokens.RevokeAllForTenant(ctx, t.ID)
}

// AdminLogin checks the configured administrator credential.
func (s *AuthService) AdminLogin(email, password string) (utils.AccessToken, error) {
	if s.cfg.AdminEmail == "" || s.cfg.AdminPasswordHash == "" {
		return utils.AccessToken{}, newError(KindForbidden, "admin login is disabled")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email != strings.ToLower(s.cfg.AdminEmail) || !utils.VerifyPassword(s.cfg.AdminPasswordHash, password) {
		return utils.AccessToken{}, newError(KindUnauthorized, "invalid credentials")
	}
	return utils.NewAccessToken(s.cfg.JWTSecret, "admin", RoleAdmin, email, s.cfg.AccessTTLMin)
}

// Profile returns the authenticated tenant.
func (s *AuthService) Profile(ctx context.Context, p Principal) (*model.Tenant, error) {
	tenantID, err := p.TenantID()
	if err != nil {
		return nil, err
	}
	t, err := s.tenants.GetByID(ctx, tenantID)
	if errors.Is(err, repository.ErrTenantNotFound) {
		return nil, notFound("empresa")
	}
	return t, err
}
