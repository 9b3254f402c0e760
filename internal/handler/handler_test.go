package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rmtpark-api/internal/middleware"
	"github.com/iliyamo/rmtpark-api/internal/repository"
	"github.com/iliyamo/rmtpark-api/internal/service"
	"github.com/iliyamo/rmtpark-api/internal/utils"
)

const secret = "handler-secret"

var tenantCols = []string{"id", "nome", "email", "telefone", "cnpj", "senha_hash", "email_confirmado",
	"plano_titulo", "plano_preco", "pagamento_id", "pagamento_status", "pagamento_link", "data_expiracao",
	"created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func token(t *testing.T, subject, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, subject, role, "lot@example.com", 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func call(e *echo.Echo, method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		kind service.Kind
		want int
	}{
		{service.KindNotFound, http.StatusNotFound},
		{service.KindCapacityExceeded, http.StatusForbidden},
		{service.KindConfigMissing, http.StatusBadRequest},
		{service.KindValidation, http.StatusBadRequest},
		{service.KindConflict, http.StatusConflict},
		{service.KindUnauthorized, http.StatusUnauthorized},
		{service.KindForbidden, http.StatusForbidden},
		{service.KindDownstream, http.StatusBadGateway},
		{service.KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.kind), string(tc.kind))
	}
}

func TestWriteError(t *testing.T) {
	e := echo.New()
	e.GET("/cap", func(c echo.Context) error {
		return writeError(c, &service.Error{Kind: service.KindCapacityExceeded, Message: "limit reached", Limit: 50, Plan: "Basic"})
	})
	e.GET("/boom", func(c echo.Context) error { return writeError(c, errors.New("dial tcp: refused")) })

	rec := call(e, http.MethodGet, "/cap", "", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "capacity_exceeded", body["code"])
	assert.EqualValues(t, 50, body["limite"])
	assert.Equal(t, "Basic", body["plano"])

	rec = call(e, http.MethodGet, "/boom", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "refused")
}

func TestParseTime(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	got, err := parseTime("2025-03-10T10:00:00Z", sp)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)))

	got, err = parseTime("2025-03-10 07:00", sp)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)))

	_, err = parseTime("yesterday", sp)
	assert.Error(t, err)
}

func TestParseBound(t *testing.T) {
	none, err := parseBound("", time.UTC, false)
	require.NoError(t, err)
	assert.Nil(t, none)

	from, err := parseBound("2025-03-01", time.UTC, false)
	require.NoError(t, err)
	assert.True(t, from.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))

	to, err := parseBound("2025-03-31", time.UTC, true)
	require.NoError(t, err)
	assert.True(t, to.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)))
}

func parkingEcho(t *testing.T) (*echo.Echo, sqlmock.Sqlmock) {
	db, mock := newMock(t)
	h := NewParkingHandler(service.NewParkingService(db, service.DefaultPlanTable(), nil, time.UTC), time.UTC)
	e := echo.New()
	g := e.Group("/v1/vagas", middleware.JWTAuth(secret))
	g.POST("", h.Open)
	g.PUT("/:id/saida", h.Checkout)
	return e, mock
}

func TestOpenSession_CapacityExceeded(t *testing.T) {
	e, mock := parkingEcho(t)
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM empresas WHERE id = \? FOR UPDATE`).WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(tenantCols).AddRow(7, "Centro", "lot@example.com", "11987654321",
			"11222333000181", "x", true, "Basic", "R$ 99,90/mês", nil, nil, nil, nil, ts, ts))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM vagas WHERE empresa_id = \?`).WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(50))
	mock.ExpectRollback()

	rec := call(e, http.MethodPost, "/v1/vagas", token(t, "7", service.RoleTenant), `{"placa":"abc1d23","tipo":"diarista"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 50, body["limite"])
	assert.Equal(t, "Basic", body["plano"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenSession_BadInput(t *testing.T) {
	e, _ := parkingEcho(t)
	auth := token(t, "7", service.RoleTenant)

	rec := call(e, http.MethodPost, "/v1/vagas", auth, `{"placa":"abc","tipo":"diarista","data_hora":"soon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(e, http.MethodPost, "/v1/vagas", auth, `{"placa":"","tipo":"diarista"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", decode(t, rec)["code"])

	rec = call(e, http.MethodPost, "/v1/vagas", "", `{"placa":"abc","tipo":"diarista"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckout_UnknownSession(t *testing.T) {
	e, mock := parkingEcho(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM vagas WHERE id = \? AND empresa_id = \? FOR UPDATE`).WithArgs(uint64(9), uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`FROM relatorios WHERE empresa_id = \? AND vaga_id = \?`).WithArgs(uint64(7), uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	rec := call(e, http.MethodPut, "/v1/vagas/9/saida", token(t, "7", service.RoleTenant), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())

	rec = call(e, http.MethodPut, "/v1/vagas/abc/saida", token(t, "7", service.RoleTenant), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTariff_NotConfigured(t *testing.T) {
	db, mock := newMock(t)
	h := NewTariffHandler(service.NewTariffService(db))
	e := echo.New()
	e.GET("/v1/configuracoes", h.Get, middleware.JWTAuth(secret))

	mock.ExpectQuery(`FROM configuracoes WHERE empresa_id = \?`).WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := call(e, http.MethodGet, "/v1/configuracoes", token(t, "7", service.RoleTenant), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReports_QueryValidation(t *testing.T) {
	db, _ := newMock(t)
	h := NewReportHandler(service.NewReportService(repository.NewReportRepo(db), time.UTC), time.UTC)
	e := echo.New()
	g := e.Group("/v1", middleware.JWTAuth(secret))
	g.GET("/relatorios", h.List)
	g.GET("/dashboard", h.Dashboard)
	auth := token(t, "7", service.RoleTenant)

	rec := call(e, http.MethodGet, "/v1/relatorios?data_inicio=2025-03-10&data_fim=2025-03-01", auth, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", decode(t, rec)["code"])

	assert.Equal(t, http.StatusBadRequest, call(e, http.MethodGet, "/v1/relatorios?limit=ten", auth, "").Code)
	assert.Equal(t, http.StatusBadRequest, call(e, http.MethodGet, "/v1/relatorios?data_inicio=ontem", auth, "").Code)
	assert.Equal(t, http.StatusBadRequest, call(e, http.MethodGet, "/v1/dashboard?top=-1", auth, "").Code)

	rec = call(e, http.MethodGet, "/v1/relatorios", token(t, "admin", service.RoleAdmin), "")
	assert.Equal(t, http.StatusForbidden, rec.Code, "administrators own no reports")
}

func TestAdmin_RejectsTenants(t *testing.T) {
	db, _ := newMock(t)
	h := NewAdminHandler(service.NewAdminService(repository.NewTenantRepo(db)))
	e := echo.New()
	g := e.Group("/v1/admin", middleware.JWTAuth(secret))
	g.GET("/empresas", h.ListTenants)
	g.PUT("/empresas/:id/renovar", h.RenewTenant)

	assert.Equal(t, http.StatusForbidden, call(e, http.MethodGet, "/v1/admin/empresas", token(t, "7", service.RoleTenant), "").Code)
	assert.Equal(t, http.StatusBadRequest, call(e, http.MethodPut, "/v1/admin/empresas/x/renovar", token(t, "admin", service.RoleAdmin), "").Code)
}

func TestHealth(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	e := echo.New()
	e.GET("/healthz", Health(db))

	mock.ExpectPing()
	rec := call(e, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	mock.ExpectPing().WillReturnError(errors.New("down"))
	rec = call(e, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
