package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rmtpark-api/internal/model"
	"github.com/iliyamo/rmtpark-api/internal/service"
	"github.com/iliyamo/rmtpark-api/internal/utils"
)

// AuthHandler bundles the tenant account endpoints.
type AuthHandler struct {
	Auth    *service.AuthService
	Billing *service.BillingService
}

func NewAuthHandler(auth *service.AuthService, billing *service.BillingService) *AuthHandler {
	return &AuthHandler{Auth: auth, Billing: billing}
}

// ----- DTOs -----

type signupReq struct {
	Name      string `json:"nome"`
	Email     string `json:"email"`
	Phone     string `json:"telefone"`
	CNPJ      string `json:"cnpj"`
	Password  string `json:"senha"`
	PlanTitle string `json:"plano_titulo"`
	PlanPrice string `json:"plano_preco"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type recoverReq struct {
	Email string `json:"email"`
}

type resetReq struct {
	Token    string `json:"token"`
	Password string `json:"nova_senha"`
}

type tenantResp struct {
	ID             uint64     `json:"id"`
	Name           string     `json:"nome"`
	Email          string     `json:"email"`
	Phone          string     `json:"telefone"`
	CNPJ           string     `json:"cnpj"`
	EmailConfirmed bool       `json:"email_confirmado"`
	PlanTitle      string     `json:"plano_titulo"`
	PlanPrice      string     `json:"plano_preco"`
	PaymentStatus  *string    `json:"pagamento_status"`
	PaymentLink    *string    `json:"pagamento_link"`
	ExpiresAt      *time.Time `json:"data_expiracao"`
	Active         bool       `json:"assinatura_ativa"`
}

type tokenResp struct {
	AccessToken      string      `json:"access_token"`
	AccessExpiresAt  time.Time   `json:"access_expires_at"`
	RefreshToken     string      `json:"refresh_token,omitempty"`
	RefreshExpiresAt *time.Time  `json:"refresh_expires_at,omitempty"`
	TokenType        string      `json:"token_type"`
	Tenant           *tenantResp `json:"empresa,omitempty"`
}

func toTenantResp(t *model.Tenant) *tenantResp {
	return &tenantResp{
		ID:             t.ID,
		Name:           t.Name,
		Email:          t.Email,
		Phone:          t.Phone,
		CNPJ:           t.CNPJ,
		EmailConfirmed: t.EmailConfirmed,
		PlanTitle:      t.PlanTitle,
		PlanPrice:      t.PlanPrice,
		PaymentStatus:  t.PaymentStatus,
		PaymentLink:    t.PaymentLink,
		ExpiresAt:      t.ExpiresAt,
		Active:         t.Active(time.Now()),
	}
}

func accessResp(a utils.AccessToken) tokenResp {
	return tokenResp{AccessToken: a.Token, AccessExpiresAt: a.Exp, TokenType: "bearer"}
}

func pairResp(p *service.TokenPair) tokenResp {
	r := accessResp(p.Access)
	exp := p.Refresh.Exp
	r.RefreshToken = p.Refresh.Raw
	r.RefreshExpiresAt = &exp
	r.Tenant = toTenantResp(p.Tenant)
	return r
}

// Signup registers a tenant.  The account stays unconfirmed until the
// e-mailed link is followed.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Auth.Signup(ctx, service.SignupInput{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		CNPJ:      req.CNPJ,
		Password:  req.Password,
		PlanTitle: req.PlanTitle,
		PlanPrice: req.PlanPrice,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toTenantResp(t))
}

func (h *AuthHandler) ConfirmEmail(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Auth.ConfirmEmail(ctx, c.QueryParam("token")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"msg": "e-mail confirmed"})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, pairResp(pair))
}

// Refresh rotates the refresh token and returns a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return badRequest(c, "refresh_token required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.Auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, pairResp(pair))
}

// RefreshAccess issues a new access token and keeps the refresh token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return badRequest(c, "refresh_token required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	access, err := h.Auth.RefreshAccess(ctx, req.RefreshToken)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, accessResp(access))
}

// Logout revokes the given refresh token, or all of the caller's tokens
// when the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Auth.Logout(ctx, principal(c), req.RefreshToken); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) RecoverPassword(c echo.Context) error {
	var req recoverReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Auth.RequestPasswordReset(ctx, req.Email); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"msg": "if the e-mail is registered, a reset link was sent"})
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Auth.ResetPassword(ctx, req.Token, req.Password); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"msg": "password updated"})
}

func (h *AuthHandler) AdminLogin(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	access, err := h.Auth.AdminLogin(req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, accessResp(access))
}

// Me returns the caller's tenant profile.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Auth.Profile(ctx, principal(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toTenantResp(t))
}

// Subscribe creates a gateway charge for the tenant's plan.
func (h *AuthHandler) Subscribe(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	charge, err := h.Billing.StartSubscription(ctx, principal(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"pagamento_id":     charge.ID,
		"pagamento_status": charge.Status,
		"pagamento_link":   charge.Link,
	})
}
