package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/rmtpark-api/internal/model"
	"github.com/iliyamo/rmtpark-api/internal/repository"
)

const (
	defaultReportLimit = 100
	maxReportLimit     = 500
)

// ReportService is the query side of the report archive.
type ReportService struct {
	reports *repository.ReportRepo
	loc     *time.Location
}

func NewReportService(reports *repository.ReportRepo, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{reports: reports, loc: loc}
}

// ReportFilter narrows ListReports.  Text fields match case-insensitive
// substrings; From and To bound the entry time inclusively.
type ReportFilter struct {
	Plate         string
	Category      string
	PaymentMethod string
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

// ListReports returns the tenant's reports matching f, newest exit first.
func (s *ReportService) ListReports(ctx context.Context, p Principal, f ReportFilter) ([]*model.Report, error) {
	tenantID, err := p.TenantID()
	if err != nil {
		return nil, err
	}
	if err := checkWindow(f.From, f.To); err != nil {
		return nil, err
	}
	if f.Offset < 0 {
		return nil, invalid("offset must not be negative")
	}
	limit := f.Limit
	switch {
	case limit <= 0:
		limit = defaultReportLimit
	case limit > maxReportLimit:
		limit = maxReportLimit
	}
	return s.reports.List(ctx, tenantID, repository.ReportQuery{
		Plate:         strings.TrimSpace(f.Plate),
		Category:      strings.TrimSpace(f.Category),
		PaymentMethod: strings.TrimSpace(f.PaymentMethod),
		From:          f.From,
		To:            f.To,
		Limit:         limit,
		Offset:        f.Offset,
	})
}

// GetReport returns one report of the tenant.
func (s *ReportService) GetReport(ctx context.Context, p Principal, id uint64) (*model.Report, error) {
	tenantID, err := p.TenantID()
	if err != nil {
		return nil, err
	}
	r, err := s.reports.GetByIDAndTenant(ctx, id, tenantID)
	if errors.Is(err, repository.ErrReportNotFound) {
		return nil, notFound("relatorio")
	}
	return r, err
}

// DeleteReport removes a report on explicit request of its tenant.
func (s *ReportService) DeleteReport(ctx context.Context, p Principal, id uint64) error {
	tenantID, err := p.TenantID()
	if err != nil {
		return err
	}
	err = s.reports.DeleteByIDAndTenant(ctx, id, tenantID)
	if errors.Is(err, repository.ErrReportNotFound) {
		return notFound("relatorio")
	}
	return err
}

// Dashboard aggregates the tenant's reports whose entry time falls in the
// optional window.
func (s *ReportService) Dashboard(ctx context.Context, p Principal, from, to *time.Time, topN int) (Dashboard, error) {
	tenantID, err := p.TenantID()
	if err != nil {
		return Dashboard{}, err
	}
	if err := checkWindow(from, to); err != nil {
		return Dashboard{}, err
	}
	points, err := s.reports.ListPoints(ctx, tenantID, from, to)
	if err != nil {
		return Dashboard{}, err
	}
	return Aggregate(points, s.loc, topN), nil
}

func checkWindow(from, to *time.Time) error {
	if from != nil && to != nil && to.Before(*from) {
		return invalid("data_fim must not be before data_inicio")
	}
	return nil
}
