package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/rmtpark-api/internal/model"
	"github.com/iliyamo/rmtpark-api/internal/repository"
)

// PassStatusActive is the status given to new passes.
const PassStatusActive = "ativo"

// MonthlyPassService is the tenant-scoped registry of mensalistas.
type MonthlyPassService struct {
	passes *repository.MonthlyPassRepo
}

func NewMonthlyPassService(passes *repository.MonthlyPassRepo) *MonthlyPassService {
	return &MonthlyPassService{passes: passes}
}

// MonthlyPassInput holds the editable fields of a pass.
type MonthlyPassInput struct {
	OwnerName  string
	Plate      string
	Vehicle    string
	Color      string
	Document   string
	Phone      string
	ValidUntil time.Time
	Status     string
}

func (in MonthlyPassInput) apply(p *model.MonthlyPass) error {
	name := strings.TrimSpace(in.OwnerName)
	if name == "" {
		return invalid("nome is required")
	}
	plate, err := NormalizePlate(in.Plate)
	if err != nil {
		return err
	}
	doc := strings.TrimSpace(in.Document)
	if doc == "" {
		return invalid("cpf is required")
	}
	if in.ValidUntil.IsZero() {
		return invalid("validade is required")
	}
	p.OwnerName = name
	p.Plate = plate
	p.Vehicle = strings.TrimSpace(in.Vehicle)
	p.Color = strings.TrimSpace(in.Color)
	p.Document = doc
	p.Phone = nil
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		p.Phone = &phone
	}
	p.ValidUntil = in.ValidUntil.UTC()
	p.Status = strings.ToLower(strings.TrimSpace(in.Status))
	if p.Status == "" {
		p.Status = PassStatusActive
	}
	return nil
}

// Create registers a pass for the tenant.
func (s *MonthlyPassService) Create(ctx context.Context, pr Principal, in MonthlyPassInput) (*model.MonthlyPass, error) {
	tenantID, err := pr.TenantID()
	if err != nil {
		return nil, err
	}
	p := &model.MonthlyPass{TenantID: tenantID}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if err := s.passes.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("placa %s is already registered as mensalista", p.Plate)
		}
		return nil, err
	}
	return s.passes.GetByIDAndTenant(ctx, p.ID, tenantID)
}

// List returns every pass of the tenant.
func (s *MonthlyPassService) List(ctx context.Context, pr Principal) ([]*model.MonthlyPass, error) {
	tenantID, err := pr.TenantID()
	if err != nil {
		return nil, err
	}
	return s.passes.ListByTenant(ctx, tenantID)
}

// Get returns one pass of the tenant.
func (s *MonthlyPassService) Get(ctx context.Context, pr Principal, id uint64) (*model.MonthlyPass, error) {
	tenantID, err := pr.TenantID()
	if err != nil {
		return nil, err
	}
	p, err := s.passes.GetByIDAndTenant(ctx, id, tenantID)
	if errors.Is(err, repository.ErrMonthlyPassNotFound) {
		return nil, notFound("mensalista")
	}
	return p, err
}

// Update replaces the editable fields of a pass.  The last payment stamp
// is left alone.
func (s *MonthlyPassService) Update(ctx context.Context, pr Principal, id uint64, in MonthlyPassInput) (*model.MonthlyPass, error) {
	tenantID, err := pr.TenantID()
	if err != nil {
		return nil, err
	}
	p := &model.MonthlyPass{ID: id, TenantID: tenantID}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	switch err := s.passes.Update(ctx, p); {
	case errors.Is(err, repository.ErrMonthlyPassNotFound):
		return nil, notFound("mensalista")
	case errors.Is(err, repository.ErrDuplicate):
		return nil, conflict("placa %s is already registered as mensalista", p.Plate)
	case err != nil:
		return nil, err
	}
	return s.passes.GetByIDAndTenant(ctx, id, tenantID)
}

// Delete removes a pass of the tenant.
func (s *MonthlyPassService) Delete(ctx context.Context, pr Principal, id uint64) error {
	tenantID, err := pr.TenantID()
	if err != nil {
		return err
	}
	err = s.passes.Delete(ctx, id, tenantID)
	if errors.Is(err, repository.ErrMonthlyPassNotFound) {
		return notFound("mensalista")
	}
	return err
}
