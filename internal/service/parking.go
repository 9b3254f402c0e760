package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/rmtpark-api/internal/model"
	"github.com/iliyamo/rmtpark-api/internal/repository"
)

const (
	maxPlateLen    = 10
	maxCategoryLen = 20
	maxMethodLen   = 20
)

// ParkingService owns the session ledger and the checkout flow.  It holds
// no per-request state and is safe for concurrent use.
type ParkingService struct {
	db       *sql.DB
	tenants  *repository.TenantRepo
	sessions *repository.SessionRepo
	tariffs  *repository.TariffRepo
	reports  *repository.ReportRepo
	passes   *repository.MonthlyPassRepo
	plans    PlanTable
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger
}

// NewParkingService wires the service on top of db.  A nil notifier
// disables checkout events; a nil loc means UTC.
func NewParkingService(db *sql.DB, plans PlanTable, notifier Notifier, loc *time.Location) *ParkingService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ParkingService{
		db:       db,
		tenants:  repository.NewTenantRepo(db),
		sessions: repository.NewSessionRepo(db),
		tariffs:  repository.NewTariffRepo(db),
		reports:  repository.NewReportRepo(db),
		passes:   repository.NewMonthlyPassRepo(db),
		plans:    plans,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
		log:      slog.Default().With("component", "parking"),
	}
}

// withTx runs fn inside a transaction, committing when fn succeeds and
// rolling back otherwise.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// NormalizePlate trims and upper-cases a plate.
func NormalizePlate(raw string) (string, error) {
	p := strings.ToUpper(strings.TrimSpace(raw))
	if p == "" {
		return "", invalid("placa is required")
	}
	if utf8.RuneCountInString(p) > maxPlateLen {
		return "", invalid("placa must have at most %d characters", maxPlateLen)
	}
	return p, nil
}

func normalizeCategory(raw string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(raw))
	if c == "" {
		return "", invalid("tipo is required")
	}
	if utf8.RuneCountInString(c) > maxCategoryLen {
		return "", invalid("tipo must have at most %d characters", maxCategoryLen)
	}
	return c, nil
}

// OpenSessionRequest is the input of OpenSession.  A nil EntryTime means
// now.
type OpenSessionRequest struct {
	Plate     string
	Category  string
	EntryTime *time.Time
}

// OpenSession records a vehicle entering the lot.  The tenant row is
// locked while open sessions are counted so concurrent opens cannot both
// pass the capacity check.
func (s *ParkingService) OpenSession(ctx context.Context, p Principal, req OpenSessionRequest) (*model.Session, error) {
	tenantID, err := p.TenantID()
	if err != nil {
		return nil, err
	}
	plate, err := NormalizePlate(req.Plate)
	if err != nil {
		return nil, err
	}
	category, err := normalizeCategory(req.Category)
	if err != nil {
		return nil, err
	}

	// data_hora has whole-second precision; MySQL would round the rest.
	now := s.now().UTC().Truncate(time.Second)
	sess := &model.Session{
		TenantID:  tenantID,
		Plate:     plate,
		Category:  category,
		EntryTime: now,
		CreatedAt: now,
	}
	if req.EntryTime != nil {
		sess.EntryTime = req.EntryTime.UTC().Truncate(time.Second)
	}

	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.tenants.GetForUpdateTx(ctx, tx, tenantID)
		if errors.Is(err, repository.ErrTenantNotFound) {
			return notFound("empresa")
		}
		if err != nil {
			return err
		}
		open, err := s.sessions.CountOpenTx(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		if err := s.plans.CanOpen(t.PlanTitle, open); err != nil {
			return err
		}
		if err := s.sessions.CreateTx(ctx, tx, sess); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return conflict("placa %s already has an open session", plate)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("session opened", "empresa_id", tenantID, "vaga_id", sess.ID, "placa", plate)
	return sess, nil
}

// ListSessions returns the tenant's open sessions.
func (s *ParkingService) ListSessions(ctx context.Context, p Principal) ([]*model.Session, error) {
	tenantID, err := p.TenantID()
	if err != nil {
		return nil, err
	}
	return s.sessions.ListByTenant(ctx, tenantID)
}

// FindSession returns one open session of the tenant.
func (s *ParkingService) FindSession(ctx context.Context, p Principal, id uint64) (*model.Session, error) {
	tenantID, err := p.TenantID()
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.GetByIDAndTenant(ctx, id, tenantID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, notFound("vaga")
	}
	return sess, err
}
