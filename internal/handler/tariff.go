package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/rmtpark-api/internal/model"
	"github.com/iliyamo/rmtpark-api/internal/service"
)

// TariffHandler serves /v1/configuracoes.
type TariffHandler struct {
	Tariffs *service.TariffService
}

func NewTariffHandler(tariffs *service.TariffService) *TariffHandler {
	return &TariffHandler{Tariffs: tariffs}
}

type tariffReq struct {
	HourlyRate    *decimal.Decimal `json:"valorHora"`
	DailyRate     *decimal.Decimal `json:"valorDiaria"`
	MonthlyRate   *decimal.Decimal `json:"valorMensalista"`
	RoundingUnit  *int             `json:"arredondamento"`
	PaymentMethod *string          `json:"formaPagamento"`
}

type tariffResp struct {
	HourlyRate    decimal.Decimal `json:"valorHora"`
	DailyRate     decimal.Decimal `json:"valorDiaria"`
	MonthlyRate   decimal.Decimal `json:"valorMensalista"`
	RoundingUnit  int             `json:"arredondamento"`
	PaymentMethod string          `json:"formaPagamento"`
	UpdatedAt     time.Time       `json:"atualizado_em"`
}

func toTariffResp(t *model.TariffConfig) tariffResp {
	return tariffResp{
		HourlyRate:    t.HourlyRate,
		DailyRate:     t.DailyRate,
		MonthlyRate:   t.MonthlyRate,
		RoundingUnit:  t.RoundingUnit,
		PaymentMethod: t.PaymentMethod,
		UpdatedAt:     t.UpdatedAt,
	}
}

func (h *TariffHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Tariffs.GetTariff(ctx, principal(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toTariffResp(t))
}

// Set creates or updates the tariff.  Omitted fields keep their value.
func (h *TariffHandler) Set(c echo.Context) error {
	var req tariffReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tariffs.SetTariff(ctx, principal(c), service.TariffInput{
		HourlyRate:    req.HourlyRate,
		DailyRate:     req.DailyRate,
		MonthlyRate:   req.MonthlyRate,
		RoundingUnit:  req.RoundingUnit,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toTariffResp(t))
}
