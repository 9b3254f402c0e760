package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/rmtpark-api/internal/model"
	"github.com/iliyamo/rmtpark-api/internal/service"
)

// ReportHandler serves the report archive and the dashboard.
type ReportHandler struct {
	Reports *service.ReportService
	Loc     *time.Location
}

func NewReportHandler(reports *service.ReportService, loc *time.Location) *ReportHandler {
	return &ReportHandler{Reports: reports, Loc: loc}
}

type reportResp struct {
	ID              uint64          `json:"id"`
	SessionID       uint64          `json:"vaga_id"`
	Plate           string          `json:"placa"`
	Category        string          `json:"tipo"`
	EntryTime       time.Time       `json:"data_hora_entrada"`
	ExitTime        time.Time       `json:"data_hora_saida"`
	Duration        string          `json:"duracao"`
	DurationSeconds int64           `json:"duracao_segundos"`
	Amount          decimal.Decimal `json:"valor_pago"`
	PaymentMethod   *string         `json:"forma_pagamento"`
	PaymentStatus   string          `json:"status_pagamento"`
	TenantID        uint64          `json:"empresa_id"`
}

func toReportResp(r *model.Report) reportResp {
	return reportResp{
		ID:              r.ID,
		SessionID:       r.SessionID,
		Plate:           r.Plate,
		Category:        r.Category,
		EntryTime:       r.EntryTime,
		ExitTime:        r.ExitTime,
		Duration:        r.Duration,
		DurationSeconds: r.DurationSeconds,
		Amount:          r.Amount,
		PaymentMethod:   r.PaymentMethod,
		PaymentStatus:   r.PaymentStatus,
		TenantID:        r.TenantID,
	}
}

// window reads data_inicio/data_fim from the query string.
func (h *ReportHandler) window(c echo.Context) (from, to *time.Time, err error) {
	if from, err = parseBound(c.QueryParam("data_inicio"), h.Loc, false); err != nil {
		return nil, nil, err
	}
	if to, err = parseBound(c.QueryParam("data_fim"), h.Loc, true); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// List filters reports by placa, tipo, forma_pagamento and the entry
// window, paginated with limit/offset.
func (h *ReportHandler) List(c echo.Context) error {
	from, to, err := h.window(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return badRequest(c, "invalid limit")
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return badRequest(c, "invalid offset")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	reports, err := h.Reports.ListReports(ctx, principal(c), service.ReportFilter{
		Plate:         c.QueryParam("placa"),
		Category:      c.QueryParam("tipo"),
		PaymentMethod: c.QueryParam("forma_pagamento"),
		From:          from,
		To:            to,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	out := make([]reportResp, 0, len(reports))
	for _, r := range reports {
		out = append(out, toReportResp(r))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ReportHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Reports.GetReport(ctx, principal(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReportResp(r))
}

func (h *ReportHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Reports.DeleteReport(ctx, principal(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Dashboard aggregates revenue and traffic; "top" sets how many days and
// hours are ranked.
func (h *ReportHandler) Dashboard(c echo.Context) error {
	from, to, err := h.window(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	topN, err := queryInt(c, "top")
	if err != nil || topN < 0 {
		return badRequest(c, "invalid top")
	}
	if topN == 0 {
		topN = service.DefaultTopN
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	d, err := h.Reports.Dashboard(ctx, principal(c), from, to, topN)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}
