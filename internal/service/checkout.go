package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/rmtpark-api/internal/model"
	"github.com/iliyamo/rmtpark-api/internal/repository"
)

// CheckoutRequest closes a session.  A nil ExitTime means now; an empty
// PaymentMethod falls back to the tenant's default.
type CheckoutRequest struct {
	SessionID     uint64
	ExitTime      *time.Time
	PaymentMethod string
}

// CheckoutResult carries the report of a checkout.  Replayed is true
// when the session had already been checked out and the existing report
// is returned unchanged.
type CheckoutResult struct {
	Report   *model.Report
	Replayed bool
}

// Checkout prices a session, archives it as a report and removes it from
// the ledger in one transaction.  Repeating a checkout for a session that
// is already archived returns the original report.
func (s *ParkingService) Checkout(ctx context.Context, p Principal, req CheckoutRequest) (*CheckoutResult, error) {
	tenantID, err := p.TenantID()
	if err != nil {
		return nil, err
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if utf8.RuneCountInString(method) > maxMethodLen {
		return nil, invalid("forma_pagamento must have at most %d characters", maxMethodLen)
	}
	exit := s.now().UTC()
	if req.ExitTime != nil {
		exit = req.ExitTime.UTC()
	}
	exit = exit.Truncate(time.Second)

	var res CheckoutResult
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		sess, err := s.sessions.GetForUpdateTx(ctx, tx, req.SessionID, tenantID)
		if errors.Is(err, repository.ErrSessionNotFound) {
			rep, rerr := s.reports.GetBySessionTx(ctx, tx, tenantID, req.SessionID)
			if errors.Is(rerr, repository.ErrReportNotFound) {
				return notFound("vaga")
			}
			if rerr != nil {
				return rerr
			}
			res = CheckoutResult{Report: rep, Replayed: true}
			return nil
		}
		if err != nil {
			return err
		}
		if exit.Before(sess.EntryTime) {
			return invalid("data_hora_saida %s is before data_hora_entrada %s",
				exit.Format(time.RFC3339), sess.EntryTime.UTC().Format(time.RFC3339))
		}

		tariff, err := s.tariffs.GetTx(ctx, tx, tenantID)
		if errors.Is(err, repository.ErrTariffNotFound) {
			return newError(KindConfigMissing, "tariff configuration not found; configure it before checkout")
		}
		if err != nil {
			return err
		}

		var pass *model.MonthlyPass
		if strings.EqualFold(sess.Category, CategoryMonthly) {
			pass, err = s.passes.GetByPlateForUpdateTx(ctx, tx, tenantID, sess.Plate)
			if errors.Is(err, repository.ErrMonthlyPassNotFound) {
				pass, err = nil, nil
			}
			if err != nil {
				return err
			}
		}

		q, err := ComputeFee(FeeInput{
			Session:       *sess,
			Exit:          exit,
			Tariff:        *tariff,
			Pass:          pass,
			PaymentMethod: method,
			Location:      s.loc,
		})
		if err != nil {
			return err
		}
		if q.StampPass {
			if err := s.passes.SetLastPaymentTx(ctx, tx, pass.ID, tenantID, exit); err != nil {
				return err
			}
		}

		rep := &model.Report{
			TenantID:        tenantID,
			SessionID:       sess.ID,
			Plate:           sess.Plate,
			Category:        sess.Category,
			EntryTime:       sess.EntryTime,
			ExitTime:        exit,
			Duration:        q.Duration,
			DurationSeconds: int64(q.Rounded / time.Second),
			Amount:          q.Amount,
			PaymentStatus:   q.PaymentStatus,
			CreatedAt:       s.now().UTC(),
		}
		if q.PaymentMethod != "" {
			m := q.PaymentMethod
			rep.PaymentMethod = &m
		}
		if err := s.reports.CreateTx(ctx, tx, rep); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return conflict("vaga %d already has a report", sess.ID)
			}
			return err
		}
		if err := s.sessions.DeleteTx(ctx, tx, sess.ID, tenantID); err != nil {
			return err
		}
		res = CheckoutResult{Report: rep}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Replayed {
		s.log.Info("checkout replayed", "empresa_id", tenantID, "vaga_id", req.SessionID, "relatorio_id", res.Report.ID)
		return &res, nil
	}
	s.log.Info("checkout completed", "empresa_id", tenantID, "vaga_id", req.SessionID,
		"relatorio_id", res.Report.ID, "valor_pago", res.Report.Amount.StringFixed(2))
	ev := checkoutEvent(res.Report)
	fireAndForget(s.log, "checkout.completed", func(ctx context.Context) error {
		return s.notifier.CheckoutCompleted(ctx, ev)
	})
	return &res, nil
}
