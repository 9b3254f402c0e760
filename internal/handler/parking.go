package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/rmtpark-api/internal/model"
	"github.com/iliyamo/rmtpark-api/internal/service"
)

// ParkingHandler serves the open-session ledger under /v1/vagas.
type ParkingHandler struct {
	Parking *service.ParkingService
	Loc     *time.Location
}

func NewParkingHandler(parking *service.ParkingService, loc *time.Location) *ParkingHandler {
	return &ParkingHandler{Parking: parking, Loc: loc}
}

type openSessionReq struct {
	Plate     string  `json:"placa"`
	Category  string  `json:"tipo"`
	EntryTime *string `json:"data_hora"`
}

type checkoutReq struct {
	ExitTime      *string `json:"saida"`
	PaymentMethod string  `json:"formaPagamento"`
}

type sessionResp struct {
	ID        uint64    `json:"id"`
	Plate     string    `json:"placa"`
	Category  string    `json:"tipo"`
	EntryTime time.Time `json:"data_hora"`
	TenantID  uint64    `json:"empresa_id"`
}

type checkoutResp struct {
	Success       bool            `json:"success"`
	ReportID      uint64          `json:"relatorio_id"`
	Amount        decimal.Decimal `json:"valor_pago"`
	Duration      string          `json:"duracao"`
	PaymentMethod *string         `json:"forma_pagamento"`
	PaymentStatus string          `json:"status_pagamento"`
	Replayed      bool            `json:"replayed"`
}

func toSessionResp(s *model.Session) sessionResp {
	return sessionResp{ID: s.ID, Plate: s.Plate, Category: s.Category, EntryTime: s.EntryTime, TenantID: s.TenantID}
}

func (h *ParkingHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	sessions, err := h.Parking.ListSessions(ctx, principal(c))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]sessionResp, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResp(s))
	}
	return c.JSON(http.StatusOK, out)
}

// Open registers a vehicle entering the lot.
func (h *ParkingHandler) Open(c echo.Context) error {
	var req openSessionReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	entry, err := optionalTime(req.EntryTime, h.Loc)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Parking.OpenSession(ctx, principal(c), service.OpenSessionRequest{
		Plate:     req.Plate,
		Category:  req.Category,
		EntryTime: entry,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toSessionResp(s))
}

func (h *ParkingHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Parking.FindSession(ctx, principal(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toSessionResp(s))
}

// Checkout closes the session and returns a summary of the report.  An
// already closed session answers 200 with replayed=true.
func (h *ParkingHandler) Checkout(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	exit, err := optionalTime(req.ExitTime, h.Loc)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Parking.Checkout(ctx, principal(c), service.CheckoutRequest{
		SessionID:     id,
		ExitTime:      exit,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return writeError(c, err)
	}
	r := res.Report
	return c.JSON(http.StatusOK, checkoutResp{
		Success:       true,
		ReportID:      r.ID,
		Amount:        r.Amount,
		Duration:      r.Duration,
		PaymentMethod: r.PaymentMethod,
		PaymentStatus: r.PaymentStatus,
		Replayed:      res.Replayed,
	})
}
