package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rmtpark-api/internal/model"
	"github.com/iliyamo/rmtpark-api/internal/service"
)

// MonthlyPassHandler serves /v1/mensalistas.
type MonthlyPassHandler struct {
	Passes *service.MonthlyPassService
	Loc    *time.Location
}

func NewMonthlyPassHandler(passes *service.MonthlyPassService, loc *time.Location) *MonthlyPassHandler {
	return &MonthlyPassHandler{Passes: passes, Loc: loc}
}

type passReq struct {
	OwnerName  string `json:"nome"`
	Plate      string `json:"placa"`
	Vehicle    string `json:"veiculo"`
	Color      string `json:"cor"`
	Document   string `json:"cpf"`
	Phone      string `json:"telefone"`
	ValidUntil string `json:"validade"`
	Status     string `json:"status"`
}

type passResp struct {
	ID          uint64     `json:"id"`
	OwnerName   string     `json:"nome"`
	Plate       string     `json:"placa"`
	Vehicle     string     `json:"veiculo"`
	Color       string     `json:"cor"`
	Document    string     `json:"cpf"`
	Phone       *string    `json:"telefone"`
	ValidUntil  string     `json:"validade"`
	Status      string     `json:"status"`
	LastPayment *time.Time `json:"ultimo_pagamento"`
}

func (h *MonthlyPassHandler) toResp(p *model.MonthlyPass) passResp {
	return passResp{
		ID:          p.ID,
		OwnerName:   p.OwnerName,
		Plate:       p.Plate,
		Vehicle:     p.Vehicle,
		Color:       p.Color,
		Document:    p.Document,
		Phone:       p.Phone,
		ValidUntil:  p.ValidUntil.In(h.Loc).Format("2006-01-02"),
		Status:      p.Status,
		LastPayment: p.LastPayment,
	}
}

// input converts the body; validade is a calendar date in the tenant zone.
func (h *MonthlyPassHandler) input(c echo.Context) (service.MonthlyPassInput, error) {
	var req passReq
	if err := c.Bind(&req); err != nil {
		return service.MonthlyPassInput{}, err
	}
	in := service.MonthlyPassInput{
		OwnerName: req.OwnerName,
		Plate:     req.Plate,
		Vehicle:   req.Vehicle,
		Color:     req.Color,
		Document:  req.Document,
		Phone:     req.Phone,
		Status:    req.Status,
	}
	if req.ValidUntil != "" {
		d, err := parseBound(req.ValidUntil, h.Loc, false)
		if err != nil {
			return service.MonthlyPassInput{}, err
		}
		in.ValidUntil = *d
	}
	return in, nil
}

func (h *MonthlyPassHandler) Create(c echo.Context) error {
	in, err := h.input(c)
	if err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Passes.Create(ctx, principal(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, h.toResp(p))
}

func (h *MonthlyPassHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	passes, err := h.Passes.List(ctx, principal(c))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]passResp, 0, len(passes))
	for _, p := range passes {
		out = append(out, h.toResp(p))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *MonthlyPassHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Passes.Get(ctx, principal(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, h.toResp(p))
}

func (h *MonthlyPassHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	in, err := h.input(c)
	if err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Passes.Update(ctx, principal(c), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, h.toResp(p))
}

func (h *MonthlyPassHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Passes.Delete(ctx, principal(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
